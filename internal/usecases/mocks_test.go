package usecases_test

import (
	"context"
	"math/big"
	"time"

	"github.com/stretchr/testify/mock"
	"tip-chain.backend/internal/domain/entities"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

func (m *MockUnitOfWork) WithLock(ctx context.Context) context.Context {
	args := m.Called(ctx)
	return args.Get(0).(context.Context)
}

// Mock ChainReader
type MockChainReader struct {
	mock.Mock
}

func (m *MockChainReader) GetProfile(ctx context.Context, address string) (*entities.ChainProfile, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ChainProfile), args.Error(1)
}

func (m *MockChainReader) GetAllCreatorAddresses(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockChainReader) GetTip(ctx context.Context, index *big.Int) (*entities.ChainTip, error) {
	args := m.Called(ctx, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ChainTip), args.Error(1)
}

// Mock ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *entities.CreatorProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockProfileRepository) MarkMissing(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}

func (m *MockProfileRepository) IncrementTips(ctx context.Context, address string, amount string, native bool) (bool, error) {
	args := m.Called(ctx, address, amount, native)
	return args.Bool(0), args.Error(1)
}

func (m *MockProfileRepository) GetByAddress(ctx context.Context, address string) (*entities.CreatorProfile, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CreatorProfile), args.Error(1)
}

func (m *MockProfileRepository) ListExistingAddresses(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProfileRepository) ListTop(ctx context.Context, limit int) ([]*entities.CreatorProfile, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CreatorProfile), args.Error(1)
}

func (m *MockProfileRepository) CountExisting(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Mock TipRepository
type MockTipRepository struct {
	mock.Mock
}

func (m *MockTipRepository) Insert(ctx context.Context, tip *entities.Tip) (bool, error) {
	args := m.Called(ctx, tip)
	return args.Bool(0), args.Error(1)
}

func (m *MockTipRepository) GetByTxHash(ctx context.Context, txHash string) (*entities.Tip, error) {
	args := m.Called(ctx, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Tip), args.Error(1)
}

func (m *MockTipRepository) ListRecent(ctx context.Context, limit int) ([]*entities.Tip, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Tip), args.Error(1)
}

func (m *MockTipRepository) ListByRecipient(ctx context.Context, address string) ([]*entities.Tip, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Tip), args.Error(1)
}

func (m *MockTipRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTipRepository) SumNativeAmounts(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockTipRepository) AggregateByRecipient(ctx context.Context) (map[string]*entities.RecipientTipAggregate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*entities.RecipientTipAggregate), args.Error(1)
}

// Mock Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	args := m.Called(ctx, key, dest)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

// Mock SyncRunner
type MockSyncRunner struct {
	mock.Mock
}

func (m *MockSyncRunner) Run(ctx context.Context, opts entities.SyncOptions) (*entities.SyncReport, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SyncReport), args.Error(1)
}

// Mock ProfileSyncer
type MockProfileSyncer struct {
	mock.Mock
}

func (m *MockProfileSyncer) SyncProfile(ctx context.Context, address string) (*entities.CreatorProfile, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CreatorProfile), args.Error(1)
}
