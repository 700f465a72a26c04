// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the worker's process metrics including:
//   - Ops HTTP request metrics (duration, count, status)
//   - Idempotency cache sweep metrics (runs, removed entries, duration)
//   - Statistics snapshot metrics (snapshots, tracked dependencies)
//   - Configuration load metrics
//
// All metrics are automatically registered with the Prometheus default
// registry. The worker's /metrics endpoint gathers this registry together
// with the gate recorder's private registry, so one scrape covers both.
//
// Example usage:
//
//	import "toolgate/internal/observability/metrics"
//
//	func sweepCache(ctx context.Context, store idempotency.Store) {
//	    start := time.Now()
//	    removed, err := store.Sweep(ctx)
//	    metrics.RecordSweep(time.Since(start), removed, err)
//	}
package metrics
