package metrics

import (
	"strconv"
	"time"
)

// RecordOpsRequest records one request against the worker's ops HTTP server.
func RecordOpsRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	OpsRequestsTotal.WithLabelValues(method, path, code).Inc()
	OpsRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// RecordSweep records one idempotency cache sweep run.
//
// Parameters:
//   - duration: Time the sweep took
//   - removed: Number of expired entries the sweep dropped
//   - err: The sweep error, nil on success
//
// Example:
//
//	start := time.Now()
//	removed, err := store.Sweep(ctx)
//	metrics.RecordSweep(time.Since(start), removed, err)
func RecordSweep(duration time.Duration, removed int, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	SweepRunsTotal.WithLabelValues(result).Inc()
	SweepDuration.Observe(duration.Seconds())
	if removed > 0 {
		SweepRemovedTotal.Add(float64(removed))
	}
}

// UpdateIdempotencyEntries updates the current idempotency cache size.
// This gauge should be updated after sweeps and periodically between them.
func UpdateIdempotencyEntries(count int) {
	IdempotencyEntries.Set(float64(count))
}

// RecordStatsSnapshot records one scheduled statistics snapshot and the
// number of dependencies it covered.
func RecordStatsSnapshot(dependencies int) {
	StatsSnapshotsTotal.Inc()
	TrackedDependencies.Set(float64(dependencies))
}

// RecordConfigLoad records the result of a configuration load attempt.
func RecordConfigLoad(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	ConfigLoadsTotal.WithLabelValues(result).Inc()
}
