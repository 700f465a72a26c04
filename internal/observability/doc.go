// Package observability provides production-grade observability infrastructure
// including structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// This package centralizes observability concerns to enable:
//   - Invocation tracing across the resilience stack
//   - Structured logging with context propagation
//   - Prometheus metrics for monitoring
//   - Per-dependency SLO tracking
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics for the worker process
//   - slo: Service level objective gauges per dependency
//   - tracing: OpenTelemetry spans for guarded invocations
//
// Example usage:
//
//	import (
//	    "toolgate/internal/observability/logging"
//	    "toolgate/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started")
//
//	    metrics.RecordSweep(time.Second, 12, nil)
//	}
package observability
