package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"toolgate/internal/pkg/config"
)

// WorkerMetrics bundles the worker process metrics. It embeds the standard
// ConfigMetrics for configuration monitoring and adds the scheduled-job
// liveness gauge.
//
// Embedded metrics (from ConfigMetrics):
//   - toolgate_worker_config_load_timestamp: Unix timestamp of last configuration load
//   - toolgate_worker_config_validation_errors_total: Total validation errors by field
//   - toolgate_worker_config_fallbacks_total: Total fallback operations by field
//   - toolgate_worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Worker-specific metrics:
//   - toolgate_worker_job_last_success_timestamp: Unix timestamp of last successful run per job
//
// Run counters and durations for the sweep job live in
// internal/observability/metrics (toolgate_sweep_*); this gauge is the
// staleness signal shared by every scheduled job.
//
// Example usage:
//
//	metrics := NewWorkerMetrics()
//
//	if err := store.Sweep(ctx); err == nil {
//	    metrics.RecordJobSuccess("sweep")
//	}
type WorkerMetrics struct {
	// Embedded configuration metrics
	*config.ConfigMetrics

	// JobLastSuccessTimestamp records the Unix timestamp of the last
	// successful run of each scheduled job.
	// Type: Gauge
	// Labels: job ("sweep", "stats")
	// Usage: Set to current time when a job completes successfully
	JobLastSuccessTimestamp *prometheus.GaugeVec
}

// NewWorkerMetrics creates a WorkerMetrics instance. Metrics register with
// the Prometheus default registry via promauto, so construct once per
// process and share the instance.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("toolgate_worker"),

		JobLastSuccessTimestamp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toolgate_worker_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful run per scheduled job",
		}, []string{"job"}),
	}
}

// RecordJobSuccess records the current time as the last successful
// completion of the named job.
//
// Example:
//
//	if err := runSweep(); err == nil {
//	    metrics.RecordJobSuccess("sweep")
//	}
func (m *WorkerMetrics) RecordJobSuccess(job string) {
	m.JobLastSuccessTimestamp.WithLabelValues(job).SetToCurrentTime()
}
