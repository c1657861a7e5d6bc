package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tip-chain.backend/internal/config"
	"tip-chain.backend/internal/domain/entities"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/internal/infrastructure/metrics"
)

const watchedContract = "0x6B83C21A6203186c47EfDD0dD66edFa6967Ff69e"

type stubLogSource struct {
	mu         sync.Mutex
	head       uint64
	headErr    error
	logs       []types.Log
	filterErr  error
	tsErr      error
	queries    []ethereum.FilterQuery
	tsRequests map[uint64]int
}

func (s *stubLogSource) GetBlockNumber(context.Context) (uint64, error) {
	return s.head, s.headErr
}

func (s *stubLogSource) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.filterErr != nil {
		return nil, s.filterErr
	}
	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	var out []types.Log
	for _, lg := range s.logs {
		if lg.BlockNumber >= from && lg.BlockNumber <= to {
			out = append(out, lg)
		}
	}
	return out, nil
}

func (s *stubLogSource) GetBlockTimestamp(_ context.Context, number uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tsRequests == nil {
		s.tsRequests = map[uint64]int{}
	}
	s.tsRequests[number]++
	if s.tsErr != nil {
		return 0, s.tsErr
	}
	return 1_700_000_000 + int64(number), nil
}

// stubDecoder turns the first topic byte into an event
type stubDecoder struct{}

func (stubDecoder) Topics() [][]common.Hash { return [][]common.Hash{{common.HexToHash("0x01")}} }

func (stubDecoder) Decode(lg types.Log) (entities.ChainEvent, error) {
	if len(lg.Topics) == 0 {
		return entities.ChainEvent{}, domainerrors.ErrUnknownEvent
	}
	return entities.ChainEvent{
		Type:        entities.EventProfileUpdated,
		Creator:     lg.Topics[0].Hex(),
		TxHash:      lg.TxHash.Hex(),
		BlockNumber: lg.BlockNumber,
	}, nil
}

type recordingReconciler struct {
	mu     sync.Mutex
	events []entities.ChainEvent
	failTx common.Hash
}

func (r *recordingReconciler) Reconcile(_ context.Context, ev entities.ChainEvent) (*entities.ReconcileResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev.TxHash == r.failTx.Hex() {
		return nil, domainerrors.ErrChainUnavailable
	}
	r.events = append(r.events, ev)
	return &entities.ReconcileResult{Event: ev.Type, Exists: true}, nil
}

func (r *recordingReconciler) blocks() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.BlockNumber)
	}
	return out
}

type memCursors struct {
	mu      sync.Mutex
	block   *uint64
	saveErr error
	saves   []uint64
}

func (c *memCursors) Get(_ context.Context, name string) (*entities.SyncCursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.block == nil {
		return nil, domainerrors.ErrNotFound
	}
	return &entities.SyncCursor{Name: name, BlockNumber: *c.block}, nil
}

func (c *memCursors) Save(_ context.Context, _ string, block uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveErr != nil {
		return c.saveErr
	}
	c.block = &block
	c.saves = append(c.saves, block)
	return nil
}

func (c *memCursors) current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.block == nil {
		return 0
	}
	return *c.block
}

func logAt(block uint64, index uint, tx string) types.Log {
	return types.Log{
		Topics:      []common.Hash{common.HexToHash("0x01")},
		BlockNumber: block,
		Index:       index,
		TxHash:      common.HexToHash(tx),
	}
}

func newWatcher(src *stubLogSource, rec *recordingReconciler, cursors *memCursors, m *metrics.Indexer) *EventWatcherJob {
	return NewEventWatcherJob(src, stubDecoder{}, rec, cursors, config.ChainConfig{
		ContractAddress: watchedContract,
		StartBlock:      10,
		Confirmations:   2,
		LogBatchSize:    5,
		PollInterval:    time.Hour,
	}, m)
}

func TestEventWatcher_PollProcessesConfirmedBatches(t *testing.T) {
	src := &stubLogSource{
		head: 24,
		logs: []types.Log{
			logAt(12, 1, "0xb"),
			logAt(12, 0, "0xa"),
			logAt(17, 0, "0xc"),
			logAt(23, 0, "0xd"), // unconfirmed
		},
	}
	rec := &recordingReconciler{}
	cursors := &memCursors{}
	reg := prometheus.NewRegistry()
	m := metrics.NewIndexer(reg)

	require.NoError(t, newWatcher(src, rec, cursors, m).Poll(context.Background()))

	assert.Equal(t, []uint64{12, 12, 17}, rec.blocks())
	assert.Equal(t, common.HexToHash("0xa").Hex(), rec.events[0].TxHash)
	assert.Equal(t, int64(1_700_000_012), rec.events[0].BlockTimestamp)
	assert.Equal(t, uint64(22), cursors.current())
	assert.Equal(t, []uint64{14, 19, 22}, cursors.saves)
	assert.Equal(t, 1, src.tsRequests[12])
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP tipchain_indexer_watcher_cursor_block Last block fully reconciled by the log watcher.
# TYPE tipchain_indexer_watcher_cursor_block gauge
tipchain_indexer_watcher_cursor_block 22
`), "tipchain_indexer_watcher_cursor_block"))

	require.Len(t, src.queries, 3)
	assert.Equal(t, uint64(10), src.queries[0].FromBlock.Uint64())
	assert.Equal(t, uint64(14), src.queries[0].ToBlock.Uint64())
	assert.Equal(t, []common.Address{common.HexToAddress(watchedContract)}, src.queries[0].Addresses)
}

func TestEventWatcher_ResumesFromCursor(t *testing.T) {
	src := &stubLogSource{head: 30, logs: []types.Log{logAt(20, 0, "0x1"), logAt(21, 0, "0x2")}}
	rec := &recordingReconciler{}
	prev := uint64(20)
	cursors := &memCursors{block: &prev}

	require.NoError(t, newWatcher(src, rec, cursors, nil).Poll(context.Background()))
	assert.Equal(t, []uint64{21}, rec.blocks())
	assert.Equal(t, uint64(28), cursors.current())

	// caught up: nothing to query
	src.queries = nil
	require.NoError(t, newWatcher(src, rec, cursors, nil).Poll(context.Background()))
	assert.Empty(t, src.queries)
}

func TestEventWatcher_FailureHoldsCursorBeforeFailedBlock(t *testing.T) {
	src := &stubLogSource{
		head: 22,
		logs: []types.Log{logAt(11, 0, "0x1"), logAt(13, 0, "0x2"), logAt(13, 1, "0x3"), logAt(18, 0, "0x4")},
	}
	rec := &recordingReconciler{failTx: common.HexToHash("0x3")}
	cursors := &memCursors{}
	w := newWatcher(src, rec, cursors, nil)

	err := w.Poll(context.Background())
	require.ErrorIs(t, err, domainerrors.ErrChainUnavailable)
	assert.Equal(t, uint64(12), cursors.current())
	assert.Equal(t, []uint64{11, 13}, rec.blocks())

	// retry redelivers block 13 from its first event
	rec.failTx = common.Hash{}
	require.NoError(t, w.Poll(context.Background()))
	assert.Equal(t, []uint64{11, 13, 13, 13, 18}, rec.blocks())
	assert.Equal(t, uint64(20), cursors.current())
}

func TestEventWatcher_FailureAtBatchStartLeavesCursor(t *testing.T) {
	src := &stubLogSource{head: 22, logs: []types.Log{logAt(10, 0, "0x1")}}
	rec := &recordingReconciler{failTx: common.HexToHash("0x1")}
	cursors := &memCursors{}

	require.Error(t, newWatcher(src, rec, cursors, nil).Poll(context.Background()))
	assert.Nil(t, cursors.block)
}

func TestEventWatcher_SkipsRemovedAndUndecodableLogs(t *testing.T) {
	removed := logAt(11, 0, "0x1")
	removed.Removed = true
	src := &stubLogSource{
		head:  16,
		tsErr: errors.New("header unavailable"),
		logs:  []types.Log{removed, {BlockNumber: 12}, logAt(13, 0, "0x3")},
	}
	rec := &recordingReconciler{}
	cursors := &memCursors{}

	require.NoError(t, newWatcher(src, rec, cursors, nil).Poll(context.Background()))
	require.Len(t, rec.events, 1)
	assert.Equal(t, uint64(13), rec.events[0].BlockNumber)
	assert.Zero(t, rec.events[0].BlockTimestamp)
	assert.Equal(t, uint64(14), cursors.current())
}

func TestEventWatcher_SourceAndStoreErrors(t *testing.T) {
	ctx := context.Background()

	src := &stubLogSource{headErr: errors.New("rpc down")}
	require.ErrorContains(t, newWatcher(src, &recordingReconciler{}, &memCursors{}, nil).Poll(ctx), "rpc down")

	src = &stubLogSource{head: 1}
	require.NoError(t, newWatcher(src, &recordingReconciler{}, &memCursors{}, nil).Poll(ctx))
	assert.Empty(t, src.queries)

	src = &stubLogSource{head: 30, filterErr: errors.New("range too large")}
	require.ErrorContains(t, newWatcher(src, &recordingReconciler{}, &memCursors{}, nil).Poll(ctx), "range too large")

	src = &stubLogSource{head: 30}
	require.ErrorContains(t, newWatcher(src, &recordingReconciler{}, &memCursors{saveErr: errors.New("db down")}, nil).Poll(ctx), "db down")
}

func TestEventWatcher_StartStop(t *testing.T) {
	src := &stubLogSource{head: 14, logs: []types.Log{logAt(11, 0, "0x1")}}
	rec := &recordingReconciler{}
	w := newWatcher(src, rec, &memCursors{}, nil)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return len(rec.blocks()) == 1 }, time.Second, 10*time.Millisecond)
	w.Stop()
	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestEventWatcher_StartHonorsContext(t *testing.T) {
	w := newWatcher(&stubLogSource{}, &recordingReconciler{}, &memCursors{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher ignored cancelled context")
	}
}

// stallingSource blocks the selected call until its context ends
type stallingSource struct {
	*stubLogSource
	stallHead, stallFilter, stallTimestamp bool
}

func (s *stallingSource) GetBlockNumber(ctx context.Context) (uint64, error) {
	if s.stallHead {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return s.stubLogSource.GetBlockNumber(ctx)
}

func (s *stallingSource) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if s.stallFilter {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.stubLogSource.FilterLogs(ctx, q)
}

func (s *stallingSource) GetBlockTimestamp(ctx context.Context, number uint64) (int64, error) {
	if s.stallTimestamp {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return s.stubLogSource.GetBlockTimestamp(ctx, number)
}

func newTimedWatcher(src LogSource, rec *recordingReconciler, cursors *memCursors) *EventWatcherJob {
	return NewEventWatcherJob(src, stubDecoder{}, rec, cursors, config.ChainConfig{
		ContractAddress: watchedContract,
		CallTimeout:     50 * time.Millisecond,
		StartBlock:      10,
		Confirmations:   2,
		LogBatchSize:    5,
		PollInterval:    time.Hour,
	}, nil)
}

func pollWithin(t *testing.T, w *EventWatcherJob, limit time.Duration) error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Poll(context.Background()) }()
	select {
	case err := <-errCh:
		return err
	case <-time.After(limit):
		t.Fatal("poll did not return within the call timeout")
		return nil
	}
}

func TestEventWatcher_StalledHeadCallTimesOut(t *testing.T) {
	src := &stallingSource{stubLogSource: &stubLogSource{head: 20}, stallHead: true}
	cursors := &memCursors{}

	err := pollWithin(t, newTimedWatcher(src, &recordingReconciler{}, cursors), time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, cursors.block)
}

func TestEventWatcher_StalledFilterCallTimesOut(t *testing.T) {
	src := &stallingSource{
		stubLogSource: &stubLogSource{head: 20, logs: []types.Log{logAt(11, 0, "0x1")}},
		stallFilter:   true,
	}
	rec := &recordingReconciler{}
	cursors := &memCursors{}
	w := newTimedWatcher(src, rec, cursors)

	err := pollWithin(t, w, time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, rec.blocks())
	assert.Nil(t, cursors.block)

	// node recovered: next tick indexes the range
	src.stallFilter = false
	require.NoError(t, pollWithin(t, w, time.Second))
	assert.Equal(t, []uint64{11}, rec.blocks())
	assert.Equal(t, uint64(18), cursors.current())
}

func TestEventWatcher_StalledTimestampFallsBack(t *testing.T) {
	src := &stallingSource{
		stubLogSource:  &stubLogSource{head: 16, logs: []types.Log{logAt(12, 0, "0x1")}},
		stallTimestamp: true,
	}
	rec := &recordingReconciler{}
	cursors := &memCursors{}

	require.NoError(t, pollWithin(t, newTimedWatcher(src, rec, cursors), time.Second))
	require.Len(t, rec.events, 1)
	assert.Zero(t, rec.events[0].BlockTimestamp)
	assert.Equal(t, uint64(14), cursors.current())
}
