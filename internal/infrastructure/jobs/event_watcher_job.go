package jobs

import (
	"context"
	"errors"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"tip-chain.backend/internal/config"
	"tip-chain.backend/internal/domain/entities"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/internal/domain/repositories"
	"tip-chain.backend/internal/infrastructure/metrics"
	"tip-chain.backend/pkg/logger"
)

// WatcherCursorName is the sync_cursors row owned by the log watcher
const WatcherCursorName = "tipchain-events"

// LogSource is the subset of the RPC client the watcher polls
type LogSource interface {
	GetBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	GetBlockTimestamp(ctx context.Context, number uint64) (int64, error)
}

type LogDecoder interface {
	Topics() [][]common.Hash
	Decode(log types.Log) (entities.ChainEvent, error)
}

type EventReconciler interface {
	Reconcile(ctx context.Context, ev entities.ChainEvent) (*entities.ReconcileResult, error)
}

// EventWatcherJob tails contract logs and feeds them to the reconciler.
// Delivery is at-least-once: the cursor never passes an event that failed.
type EventWatcherJob struct {
	source     LogSource
	decoder    LogDecoder
	reconciler EventReconciler
	cursors    repositories.SyncCursorRepository
	metrics    *metrics.Indexer

	contract      common.Address
	startBlock    uint64
	confirmations uint64
	batchSize     uint64
	interval      time.Duration
	callTimeout   time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

func NewEventWatcherJob(
	source LogSource,
	decoder LogDecoder,
	reconciler EventReconciler,
	cursors repositories.SyncCursorRepository,
	cfg config.ChainConfig,
	m *metrics.Indexer,
) *EventWatcherJob {
	batch := cfg.LogBatchSize
	if batch == 0 {
		batch = 2000
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &EventWatcherJob{
		source:        source,
		decoder:       decoder,
		reconciler:    reconciler,
		cursors:       cursors,
		metrics:       m,
		contract:      common.HexToAddress(cfg.ContractAddress),
		startBlock:    cfg.StartBlock,
		confirmations: cfg.Confirmations,
		batchSize:     batch,
		interval:      interval,
		callTimeout:   cfg.CallTimeout,
		stop:          make(chan struct{}),
	}
}

// Start polls until ctx is cancelled or Stop is called
func (j *EventWatcherJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting chain log watcher",
		zap.String("contract", j.contract.Hex()),
		zap.Duration("interval", j.interval),
	)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		j.pollLogged(ctx)
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Chain log watcher stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Chain log watcher stopped")
			return
		case <-ticker.C:
		}
	}
}

func (j *EventWatcherJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

func (j *EventWatcherJob) pollLogged(ctx context.Context) {
	if err := j.Poll(ctx); err != nil && ctx.Err() == nil {
		logger.Error(ctx, "Chain log poll failed", zap.Error(err))
	}
}

// withCallTimeout bounds a single RPC call. A zero timeout leaves ctx as is.
func (j *EventWatcherJob) withCallTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if j.callTimeout > 0 {
		return context.WithTimeout(ctx, j.callTimeout)
	}
	return ctx, func() {}
}

func (j *EventWatcherJob) headBlock(ctx context.Context) (uint64, error) {
	callCtx, cancel := j.withCallTimeout(ctx)
	defer cancel()
	return j.source.GetBlockNumber(callCtx)
}

func (j *EventWatcherJob) filterLogs(ctx context.Context, from, to uint64) ([]types.Log, error) {
	callCtx, cancel := j.withCallTimeout(ctx)
	defer cancel()
	return j.source.FilterLogs(callCtx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{j.contract},
		Topics:    j.decoder.Topics(),
	})
}

// Poll processes every confirmed block after the cursor
func (j *EventWatcherJob) Poll(ctx context.Context) error {
	head, err := j.headBlock(ctx)
	if err != nil {
		return err
	}
	if head < j.confirmations {
		return nil
	}
	safe := head - j.confirmations

	from, err := j.nextBlock(ctx)
	if err != nil {
		return err
	}

	for from <= safe {
		if err := ctx.Err(); err != nil {
			return err
		}
		to := min(from+j.batchSize-1, safe)

		logs, err := j.filterLogs(ctx, from, to)
		if err != nil {
			return err
		}

		if failedBlock, err := j.processLogs(ctx, logs); err != nil {
			if failedBlock > from {
				j.saveCursor(ctx, failedBlock-1)
			}
			return err
		}

		if err := j.cursors.Save(ctx, WatcherCursorName, to); err != nil {
			return err
		}
		j.metrics.SetWatcherBlock(to)
		from = to + 1
	}
	return nil
}

func (j *EventWatcherJob) nextBlock(ctx context.Context) (uint64, error) {
	cursor, err := j.cursors.Get(ctx, WatcherCursorName)
	if errors.Is(err, domainerrors.ErrNotFound) {
		return j.startBlock, nil
	}
	if err != nil {
		return 0, err
	}
	return max(cursor.BlockNumber+1, j.startBlock), nil
}

func (j *EventWatcherJob) saveCursor(ctx context.Context, block uint64) {
	if err := j.cursors.Save(ctx, WatcherCursorName, block); err != nil {
		logger.Warn(ctx, "Failed to save watcher cursor", zap.Uint64("block", block), zap.Error(err))
		return
	}
	j.metrics.SetWatcherBlock(block)
}

// processLogs reconciles logs in chain order. On failure it returns the
// block of the failed event.
func (j *EventWatcherJob) processLogs(ctx context.Context, logs []types.Log) (uint64, error) {
	slices.SortStableFunc(logs, func(a, b types.Log) int {
		if a.BlockNumber != b.BlockNumber {
			if a.BlockNumber < b.BlockNumber {
				return -1
			}
			return 1
		}
		return int(a.Index) - int(b.Index)
	})

	timestamps := make(map[uint64]int64)
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		ev, err := j.decoder.Decode(lg)
		if err != nil {
			logger.Warn(ctx, "Skipping undecodable log",
				zap.String("tx_hash", lg.TxHash.Hex()),
				zap.Uint64("block", lg.BlockNumber),
				zap.Error(err),
			)
			continue
		}
		ev.BlockTimestamp = j.blockTimestamp(ctx, lg.BlockNumber, timestamps)

		if _, err := j.reconciler.Reconcile(ctx, ev); err != nil {
			logger.Error(ctx, "Watcher reconcile failed",
				zap.String("event", string(ev.Type)),
				zap.String("tx_hash", ev.TxHash),
				zap.Uint64("block", lg.BlockNumber),
				zap.Error(err),
			)
			return lg.BlockNumber, err
		}
	}
	return 0, nil
}

// 0 lets the reconciler fall back to the next timestamp source
func (j *EventWatcherJob) blockTimestamp(ctx context.Context, block uint64, seen map[uint64]int64) int64 {
	if ts, ok := seen[block]; ok {
		return ts
	}
	callCtx, cancel := j.withCallTimeout(ctx)
	ts, err := j.source.GetBlockTimestamp(callCtx, block)
	cancel()
	if err != nil {
		logger.Debug(ctx, "Block timestamp unavailable", zap.Uint64("block", block), zap.Error(err))
		ts = 0
	}
	seen[block] = ts
	return ts
}
