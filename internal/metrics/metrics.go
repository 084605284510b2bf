// Package metrics exposes the ambient Prometheus instrumentation the
// teacher always adds alongside its own domain metrics (DESIGN.md,
// grounded on cmd/server/signal.go's SignalMetricsInterface shape):
// sync-phase outcomes, lock contention, and bot reconnects.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every counter/histogram the core emits. A zero value
// is not usable; construct with New, which registers against a
// dedicated registry so tests don't collide with the default global
// one across repeated construction.
type Metrics struct {
	Registry *prometheus.Registry

	SyncDuration   prometheus.Histogram
	SyncOutcomes   *prometheus.CounterVec // label: outcome kind (entry.Kind)
	LockContention prometheus.Counter
	BotReconnects  prometheus.Counter
	BotAuthFailures *prometheus.CounterVec // label: kind (sasl, stream-policy)
}

// New registers and returns a fresh Metrics bound to its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_sync_duration_seconds",
			Help:    "Duration of a full sync engine pass.",
			Buckets: prometheus.DefBuckets,
		}),
		SyncOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_sync_outcomes_total",
			Help: "Count of sync report entries by kind.",
		}, []string{"kind"}),
		LockContention: factory.NewCounter(prometheus.CounterOpts{
			Name: "portal_lock_contention_total",
			Help: "Count of swapState calls that found the lock already held.",
		}),
		BotReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "portal_bot_reconnects_total",
			Help: "Count of admin bot reconnect attempts.",
		}),
		BotAuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_bot_auth_failures_total",
			Help: "Count of admin bot authentication failures by kind.",
		}, []string{"kind"}),
	}
}

// RecordReport increments SyncOutcomes for every entry in a Report.
// Kept as a plain function over a []string of kinds (not a
// syncengine.Report) so this package has no import-time dependency on
// the sync engine.
func (m *Metrics) RecordReport(kinds []string) {
	for _, k := range kinds {
		m.SyncOutcomes.WithLabelValues(k).Inc()
	}
}
