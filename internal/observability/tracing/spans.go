package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"toolgate/internal/domain/invocation"
)

// StartInvocation starts a client span covering one guarded invocation,
// including cache lookups, retries, and backoff sleeps. The span is named
// after the dependency and operation so traces group by provider route.
func StartInvocation(ctx context.Context, dependency, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "invoke "+dependency+"/"+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("toolgate.dependency", dependency),
			attribute.String("toolgate.operation", operation),
		),
	)
}

// FinishInvocation annotates the span with the execution outcome and ends it.
func FinishInvocation(span trace.Span, out invocation.Outcome) {
	span.SetAttributes(
		attribute.String("toolgate.class", out.Class.String()),
		attribute.Int("toolgate.attempts", out.Attempts),
		attribute.Bool("toolgate.cache_hit", out.CacheHit),
	)
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	span.End()
}
