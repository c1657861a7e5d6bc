package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tipchain_indexer"

// Indexer holds the indexer's prometheus collectors. A nil *Indexer is valid
// and records nothing, so components can run without metrics in tests.
type Indexer struct {
	events        *prometheus.CounterVec
	syncRuns      *prometheus.CounterVec
	syncAddresses *prometheus.CounterVec
	chainCalls    *prometheus.HistogramVec
	watcherBlock  prometheus.Gauge
}

// NewIndexer creates the collectors and registers them on reg
func NewIndexer(reg prometheus.Registerer) *Indexer {
	m := &Indexer{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Chain events reconciled, by event name and outcome.",
		}, []string{"event", "outcome"}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Bulk sync runs, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		syncAddresses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_addresses_total",
			Help:      "Addresses processed by bulk sync, by outcome.",
		}, []string{"outcome"}),
		chainCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_call_duration_seconds",
			Help:      "Latency of contract view calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "outcome"}),
		watcherBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watcher_cursor_block",
			Help:      "Last block fully reconciled by the log watcher.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.syncRuns, m.syncAddresses, m.chainCalls, m.watcherBlock)
	}
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveEvent counts one reconciled event
func (m *Indexer) ObserveEvent(event, result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event, result).Inc()
}

// ObserveSyncRun counts one bulk sync run
func (m *Indexer) ObserveSyncRun(mode string, err error) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(mode, outcome(err)).Inc()
}

// AddSyncAddresses adds n addresses with the given result
func (m *Indexer) AddSyncAddresses(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.syncAddresses.WithLabelValues(result).Add(float64(n))
}

// ObserveChainCall records the latency of one contract call
func (m *Indexer) ObserveChainCall(method string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.chainCalls.WithLabelValues(method, outcome(err)).Observe(time.Since(started).Seconds())
}

func (m *Indexer) SetWatcherBlock(block uint64) {
	if m == nil {
		return
	}
	m.watcherBlock.Set(float64(block))
}
