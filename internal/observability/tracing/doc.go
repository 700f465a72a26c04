// Package tracing provides OpenTelemetry tracing for the gate.
//
// Every invocation executed by the gate gets a client span named
// "invoke <dependency>/<operation>" carrying the outcome class,
// attempt count, and cache-hit flag as attributes. The worker's ops
// HTTP endpoints are traced through Middleware, which extracts W3C
// trace context from incoming requests and echoes the trace ID in the
// X-Trace-Id response header.
//
// The package writes through the global tracer provider, so span
// export is whatever the process configured at startup. A process
// that never installs a provider pays only for no-op spans.
//
// Example usage:
//
//	import "toolgate/internal/observability/tracing"
//
//	func guardedCall(ctx context.Context, req invocation.Request) {
//	    ctx, span := tracing.StartInvocation(ctx, req.Dependency, req.Operation)
//	    out := run(ctx, req)
//	    tracing.FinishInvocation(span, out)
//	}
package tracing
