package usecases

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"tip-chain.backend/internal/domain/entities"
	"tip-chain.backend/internal/domain/repositories"
	"tip-chain.backend/internal/infrastructure/metrics"
	"tip-chain.backend/pkg/logger"
	"tip-chain.backend/pkg/utils"
)

const defaultSyncConcurrency = 4

// BulkSyncUsecase sweeps the on-chain creator set and repairs the profile store
type BulkSyncUsecase struct {
	chain       ChainReader
	profiles    repositories.ProfileRepository
	concurrency int
	metrics     *metrics.Indexer
	syncer      *profileSyncer
	now         func() time.Time
	newRunID    func() string
}

// NewBulkSyncUsecase creates a new bulk sync usecase
func NewBulkSyncUsecase(
	chain ChainReader,
	profiles repositories.ProfileRepository,
	concurrency int,
	m *metrics.Indexer,
) *BulkSyncUsecase {
	if concurrency <= 0 {
		concurrency = defaultSyncConcurrency
	}
	u := &BulkSyncUsecase{
		chain:       chain,
		profiles:    profiles,
		concurrency: concurrency,
		metrics:     m,
		now:         time.Now,
		newRunID:    uuid.NewString,
	}
	u.syncer = &profileSyncer{chain: chain, profiles: profiles, now: func() time.Time { return u.now() }}
	return u
}

// Run performs one sweep. Only a failure to load the creator set or the
// stored address set aborts the run; per-address failures are reported.
func (u *BulkSyncUsecase) Run(ctx context.Context, opts entities.SyncOptions) (*entities.SyncReport, error) {
	report := &entities.SyncReport{
		RunID:           u.newRunID(),
		Mode:            opts.Mode(),
		FailedAddresses: []string{},
		StartedAt:       u.now().UTC(),
	}
	ctx = logger.WithSyncRun(ctx, report.RunID)
	logger.Info(ctx, "Bulk sync started", zap.String("mode", string(report.Mode)))

	candidates, err := u.candidates(ctx, opts, report)
	if err != nil {
		u.metrics.ObserveSyncRun(string(report.Mode), err)
		logger.Error(ctx, "Bulk sync aborted", zap.Error(err))
		return nil, err
	}
	report.Candidates = len(candidates)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(u.concurrency)
	for _, address := range candidates {
		g.Go(func() error {
			profile, err := u.syncer.sync(ctx, address)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed++
				report.FailedAddresses = append(report.FailedAddresses, address)
				logger.Warn(ctx, "Bulk sync address failed", zap.String("address", address), zap.Error(err))
			case profile == nil:
				report.NotOnChain++
			default:
				report.Repaired++
			}
			// failures stay isolated to their address
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.FailedAddresses)
	report.Duration = u.now().Sub(report.StartedAt)

	u.metrics.ObserveSyncRun(string(report.Mode), nil)
	u.metrics.AddSyncAddresses("repaired", report.Repaired)
	u.metrics.AddSyncAddresses("not_on_chain", report.NotOnChain)
	u.metrics.AddSyncAddresses("failed", report.Failed)

	logger.Info(ctx, "Bulk sync finished",
		zap.String("mode", string(report.Mode)),
		zap.Int("on_chain", report.OnChain),
		zap.Int("candidates", report.Candidates),
		zap.Int("repaired", report.Repaired),
		zap.Int("not_on_chain", report.NotOnChain),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// candidates returns the addresses to reconcile: every on-chain address in
// full mode, otherwise those not already stored as existing.
func (u *BulkSyncUsecase) candidates(ctx context.Context, opts entities.SyncOptions, report *entities.SyncReport) ([]string, error) {
	onChain, err := u.chain.GetAllCreatorAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch creator set: %w", err)
	}
	onChain = utils.UniqueAddresses(onChain)
	report.OnChain = len(onChain)

	stored, err := u.profiles.ListExistingAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored creators: %w", err)
	}
	existing := make(map[string]struct{}, len(stored))
	for _, a := range stored {
		existing[a] = struct{}{}
	}

	repair := make([]string, 0, len(onChain))
	for _, a := range onChain {
		if _, ok := existing[a]; ok {
			report.AlreadySynced++
			if !opts.Full {
				continue
			}
		}
		repair = append(repair, a)
	}
	return repair, nil
}
