package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
	"tip-chain.backend/internal/config"
	"tip-chain.backend/internal/domain/entities"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/internal/usecases"
	"tip-chain.backend/pkg/logger"
	pkgredis "tip-chain.backend/pkg/redis"
)

// SyncLockKey is the redis key shared by every replica running bulk syncs
const SyncLockKey = "tipchain:bulk-sync:lock"

// SyncLocker guards a bulk sync run across processes
type SyncLocker interface {
	Acquire(ctx context.Context) (func(context.Context) error, error)
}

// BulkSyncJob schedules bulk sync runs and serializes them through a lock
type BulkSyncJob struct {
	runner       usecases.SyncRunner
	locker       SyncLocker
	interval     time.Duration
	fullInterval time.Duration
	runOnStart   bool

	newScheduler func() (gocron.Scheduler, error)
	scheduler    gocron.Scheduler
}

// NewBulkSyncJob creates the job. locker may be nil when redis is not configured.
func NewBulkSyncJob(runner usecases.SyncRunner, locker SyncLocker, cfg config.SyncConfig) *BulkSyncJob {
	return &BulkSyncJob{
		runner:       runner,
		locker:       locker,
		interval:     cfg.Interval,
		fullInterval: cfg.FullInterval,
		runOnStart:   cfg.RunOnStart,
		newScheduler: func() (gocron.Scheduler, error) { return gocron.NewScheduler() },
	}
}

// Run executes one bulk sync while holding the lock. It returns
// ErrSyncInProgress when another owner holds it.
func (j *BulkSyncJob) Run(ctx context.Context, opts entities.SyncOptions) (*entities.SyncReport, error) {
	if j.locker != nil {
		release, err := j.locker.Acquire(ctx)
		switch {
		case errors.Is(err, pkgredis.ErrLockHeld):
			return nil, domainerrors.ErrSyncInProgress
		case err != nil:
			logger.Warn(ctx, "Bulk sync lock unavailable, running unlocked", zap.Error(err))
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					logger.Warn(ctx, "Failed to release bulk sync lock", zap.Error(err))
				}
			}()
		}
	}
	return j.runner.Run(ctx, opts)
}

// Start registers the missing-only and full schedules and starts the scheduler
func (j *BulkSyncJob) Start(ctx context.Context) error {
	s, err := j.newScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if j.interval > 0 {
		opts := []gocron.JobOption{
			gocron.WithName("bulk-sync-missing"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		}
		if j.runOnStart {
			opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
		}
		if _, err := s.NewJob(
			gocron.DurationJob(j.interval),
			gocron.NewTask(j.runScheduled, ctx, entities.SyncOptions{}),
			opts...,
		); err != nil {
			_ = s.Shutdown()
			return fmt.Errorf("failed to schedule missing sync: %w", err)
		}
	}

	if j.fullInterval > 0 {
		if _, err := s.NewJob(
			gocron.DurationJob(j.fullInterval),
			gocron.NewTask(j.runScheduled, ctx, entities.SyncOptions{Full: true}),
			gocron.WithName("bulk-sync-full"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			_ = s.Shutdown()
			return fmt.Errorf("failed to schedule full sync: %w", err)
		}
	}

	s.Start()
	j.scheduler = s
	logger.Info(ctx, "Bulk sync scheduler started",
		zap.Duration("interval", j.interval),
		zap.Duration("full_interval", j.fullInterval),
		zap.Bool("run_on_start", j.runOnStart),
	)
	return nil
}

// Stop waits for running jobs and shuts the scheduler down
func (j *BulkSyncJob) Stop() error {
	if j.scheduler == nil {
		return nil
	}
	err := j.scheduler.Shutdown()
	j.scheduler = nil
	return err
}

func (j *BulkSyncJob) runScheduled(ctx context.Context, opts entities.SyncOptions) {
	if ctx.Err() != nil {
		return
	}
	report, err := j.Run(ctx, opts)
	if errors.Is(err, domainerrors.ErrSyncInProgress) {
		logger.Info(ctx, "Bulk sync skipped, another run holds the lock", zap.String("mode", string(opts.Mode())))
		return
	}
	if err != nil {
		logger.Error(ctx, "Scheduled bulk sync failed", zap.String("mode", string(opts.Mode())), zap.Error(err))
		return
	}
	logger.Debug(ctx, "Scheduled bulk sync finished",
		zap.String("run_id", report.RunID),
		zap.Int("repaired", report.Repaired),
		zap.Int("failed", report.Failed),
	)
}
