package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"tip-chain.backend/internal/domain/entities"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/internal/infrastructure/models"
	"tip-chain.backend/internal/infrastructure/repositories"
	"tip-chain.backend/pkg/utils"
)

// fakeChain is an in-memory contract with per-address failure injection
type fakeChain struct {
	mu       sync.Mutex
	profiles map[string]*entities.ChainProfile
	order    []string
	tips     map[string]*entities.ChainTip
	failing  map[string]bool
	listErr  error
	calls    map[string]int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		profiles: map[string]*entities.ChainProfile{},
		tips:     map[string]*entities.ChainTip{},
		failing:  map[string]bool{},
		calls:    map[string]int{},
	}
}

func (c *fakeChain) setProfile(address string, p *entities.ChainProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.profiles[address]; !ok {
		c.order = append(c.order, address)
	}
	c.profiles[address] = p
}

func (c *fakeChain) GetProfile(_ context.Context, address string) (*entities.ChainProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[address]++
	if c.failing[address] {
		return nil, fmt.Errorf("creatorProfiles: %w: rpc timeout", domainerrors.ErrChainUnavailable)
	}
	p, ok := c.profiles[address]
	if !ok {
		return &entities.ChainProfile{TotalTipsReceived: big.NewInt(0), TipCount: big.NewInt(0), Socials: []string{}}, nil
	}
	cp := *p
	cp.Socials = append([]string{}, p.Socials...)
	return &cp, nil
}

func (c *fakeChain) GetAllCreatorAddresses(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]string{}, c.order...), nil
}

func (c *fakeChain) GetTip(_ context.Context, index *big.Int) (*entities.ChainTip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tip, ok := c.tips[index.String()]
	if !ok {
		return nil, fmt.Errorf("getTip: %w: reverted", domainerrors.ErrChainUnavailable)
	}
	return tip, nil
}

func chainProfile(username string, total int64, count int64) *entities.ChainProfile {
	return &entities.ChainProfile{
		Username:          username,
		Bio:               username + " bio",
		AvatarURI:         "ipfs://" + username,
		TotalTipsReceived: big.NewInt(total),
		TipCount:          big.NewInt(count),
		Exists:            true,
		Socials:           []string{},
	}
}

// memProfileStore is a concurrency-safe ProfileRepository
type memProfileStore struct {
	mu   sync.Mutex
	rows map[string]entities.CreatorProfile
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{rows: map[string]entities.CreatorProfile{}}
}

func (s *memProfileStore) Upsert(_ context.Context, p *entities.CreatorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[p.Address] = *p
	return nil
}

func (s *memProfileStore) MarkMissing(_ context.Context, address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[address]
	if !ok {
		return false, nil
	}
	row.Exists = false
	s.rows[address] = row
	return true, nil
}

func (s *memProfileStore) IncrementTips(_ context.Context, address, amount string, native bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[address]
	if !ok {
		return false, nil
	}
	if native {
		total, err := utils.AddAmounts(row.TotalTipsReceived, amount)
		if err != nil {
			return false, err
		}
		row.TotalTipsReceived = total
	}
	row.TipCount++
	s.rows[address] = row
	return true, nil
}

func (s *memProfileStore) GetByAddress(_ context.Context, address string) (*entities.CreatorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[address]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return &row, nil
}

func (s *memProfileStore) ListExistingAddresses(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for addr, row := range s.rows {
		if row.Exists {
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *memProfileStore) ListTop(context.Context, int) ([]*entities.CreatorProfile, error) {
	return nil, errors.New("not used")
}

func (s *memProfileStore) CountExisting(ctx context.Context) (int64, error) {
	addrs, _ := s.ListExistingAddresses(ctx)
	return int64(len(addrs)), nil
}

// sqliteStores opens real gorm repositories on an in-memory database
type sqliteStores struct {
	db       *gorm.DB
	profiles *repositories.ProfileRepository
	tips     *repositories.TipRepository
	uow      *repositories.UnitOfWorkImpl
}

func newSQLiteStores(t *testing.T) *sqliteStores {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return openStores(t, db)
}

// newFileSQLiteStores opens a file database shared by several pooled
// connections. Writers take the lock at BEGIN and wait on each other.
func newFileSQLiteStores(t *testing.T) *sqliteStores {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "indexer.db") + "?_busy_timeout=10000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return openStores(t, db)
}

func openStores(t *testing.T, db *gorm.DB) *sqliteStores {
	t.Helper()
	require.NoError(t, models.AutoMigrate(db))
	return &sqliteStores{
		db:       db,
		profiles: repositories.NewProfileRepository(db),
		tips:     repositories.NewTipRepository(db),
		uow:      repositories.NewUnitOfWork(db).(*repositories.UnitOfWorkImpl),
	}
}
