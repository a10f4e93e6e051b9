// Copyright 2025 Veritas Documents
//
// Metrics - Prometheus counters and histograms for mining cadence, pool
// depth, and per-tier storage latency. This package only registers and
// updates the collectors, leaving the /metrics HTTP exposition to
// whatever transport a deployment adds.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the collectors VDC's core components update directly,
// so constructors take one Registry rather than half a dozen individual
// collectors.
type Registry struct {
	BlocksMined     prometheus.Counter
	PendingPoolSize prometheus.Gauge
	TxSubmitted     *prometheus.CounterVec
	TierLatency     *prometheus.HistogramVec
}

// NewRegistry builds a Registry and registers every collector against reg.
// Passing prometheus.NewRegistry() (rather than the global DefaultRegisterer)
// keeps tests and multiple in-process nodes from colliding on metric names.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		BlocksMined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vdc",
			Subsystem: "ledger",
			Name:      "blocks_mined_total",
			Help:      "Total number of blocks mined.",
		}),
		PendingPoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vdc",
			Subsystem: "ledger",
			Name:      "pending_pool_size",
			Help:      "Number of transactions currently queued for the next block.",
		}),
		TxSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vdc",
			Subsystem: "ledger",
			Name:      "transactions_submitted_total",
			Help:      "Total number of transactions submitted, by type and outcome.",
		}, []string{"type", "outcome"}),
		TierLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vdc",
			Subsystem: "storage",
			Name:      "tier_operation_seconds",
			Help:      "Latency of storage tier Put/Get operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tier", "op"}),
	}
	reg.MustRegister(m.BlocksMined, m.PendingPoolSize, m.TxSubmitted, m.TierLatency)
	return m
}

// ObserveTierLatency records how long a storage tier operation took.
func (m *Registry) ObserveTierLatency(tier, op string, start time.Time) {
	m.TierLatency.WithLabelValues(tier, op).Observe(time.Since(start).Seconds())
}
