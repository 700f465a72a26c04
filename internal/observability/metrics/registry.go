// Package metrics provides centralized Prometheus metrics for the worker process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ops HTTP metrics track the worker's health and stats endpoints
var (
	// OpsRequestsTotal counts ops endpoint requests by method, path, and status
	OpsRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolgate_ops_requests_total",
			Help: "Total number of ops HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// OpsRequestDuration measures ops request duration in seconds
	OpsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toolgate_ops_request_duration_seconds",
			Help:    "Ops HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// OpsRequestsInFlight tracks the current number of ops requests being served
	OpsRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "toolgate_ops_requests_in_flight",
			Help: "Current number of ops HTTP requests being served",
		},
	)
)

// Maintenance metrics track the background jobs the worker schedules
var (
	// SweepRunsTotal counts idempotency cache sweeps by result
	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolgate_sweep_runs_total",
			Help: "Total number of idempotency cache sweep runs",
		},
		[]string{"result"}, // result: success, failure
	)

	// SweepRemovedTotal counts entries removed by sweeps
	SweepRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "toolgate_sweep_removed_entries_total",
			Help: "Total number of expired idempotency entries removed by sweeps",
		},
	)

	// SweepDuration measures how long one sweep takes
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "toolgate_sweep_duration_seconds",
			Help:    "Idempotency cache sweep duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
	)

	// IdempotencyEntries tracks the current size of the idempotency cache
	IdempotencyEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "toolgate_idempotency_entries",
			Help: "Current number of entries in the idempotency cache",
		},
	)

	// StatsSnapshotsTotal counts statistics snapshots taken on schedule
	StatsSnapshotsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "toolgate_stats_snapshots_total",
			Help: "Total number of scheduled statistics snapshots",
		},
	)

	// TrackedDependencies tracks how many dependencies have recorded calls
	TrackedDependencies = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "toolgate_tracked_dependencies",
			Help: "Number of dependencies with recorded invocation statistics",
		},
	)
)

// Config metrics track configuration loading
var (
	// ConfigLoadsTotal counts configuration loads by result
	ConfigLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolgate_config_loads_total",
			Help: "Total number of configuration load attempts",
		},
		[]string{"result"}, // result: success, failure
	)
)
