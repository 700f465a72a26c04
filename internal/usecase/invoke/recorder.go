package invoke

import (
	"log/slog"
	"runtime/debug"
	"time"

	"toolgate/internal/domain/invocation"
)

// Recorder receives monitoring events emitted on the invocation path.
// Implementations must not block: events are reported inline by the
// executor. A Recorder that panics does not break the invocation; the
// service recovers and logs the panic.
type Recorder interface {
	// RecordAttempt reports that an invocation attempt is starting.
	// Attempts are numbered from 1 within one execution.
	RecordAttempt(dependency string, attempt int)

	// RecordAttemptResult reports the classified result of a finished
	// attempt and how long the provider call took.
	RecordAttemptResult(dependency string, class invocation.Class, duration time.Duration)

	// RecordRateLimitHit reports a provider rate-limit signal and the
	// wait it imposes, already clamped to the backoff ceiling.
	RecordRateLimitHit(dependency string, wait time.Duration)

	// RecordCircuitTransition reports a circuit breaker state change.
	RecordCircuitTransition(dependency, from, to string)

	// RecordCacheHit reports an execution served from the idempotency
	// cache without invoking the dependency.
	RecordCacheHit(dependency string)

	// RecordCacheMiss reports an execution that had to reach the
	// dependency.
	RecordCacheMiss(dependency string)

	// RecordExecution reports a completed execution with its final
	// outcome.
	RecordExecution(dependency string, outcome invocation.Outcome)
}

// NopRecorder discards all events. It is the default when no Recorder
// is configured.
type NopRecorder struct{}

func (NopRecorder) RecordAttempt(_ string, _ int) {
	// No-op
}

func (NopRecorder) RecordAttemptResult(_ string, _ invocation.Class, _ time.Duration) {
	// No-op
}

func (NopRecorder) RecordRateLimitHit(_ string, _ time.Duration) {
	// No-op
}

func (NopRecorder) RecordCircuitTransition(_, _, _ string) {
	// No-op
}

func (NopRecorder) RecordCacheHit(_ string) {
	// No-op
}

func (NopRecorder) RecordCacheMiss(_ string) {
	// No-op
}

func (NopRecorder) RecordExecution(_ string, _ invocation.Outcome) {
	// No-op
}

// MultiRecorder fans every event out to each wrapped recorder in order.
type MultiRecorder []Recorder

func (m MultiRecorder) RecordAttempt(dependency string, attempt int) {
	for _, r := range m {
		r.RecordAttempt(dependency, attempt)
	}
}

func (m MultiRecorder) RecordAttemptResult(dependency string, class invocation.Class, duration time.Duration) {
	for _, r := range m {
		r.RecordAttemptResult(dependency, class, duration)
	}
}

func (m MultiRecorder) RecordRateLimitHit(dependency string, wait time.Duration) {
	for _, r := range m {
		r.RecordRateLimitHit(dependency, wait)
	}
}

func (m MultiRecorder) RecordCircuitTransition(dependency, from, to string) {
	for _, r := range m {
		r.RecordCircuitTransition(dependency, from, to)
	}
}

func (m MultiRecorder) RecordCacheHit(dependency string) {
	for _, r := range m {
		r.RecordCacheHit(dependency)
	}
}

func (m MultiRecorder) RecordCacheMiss(dependency string) {
	for _, r := range m {
		r.RecordCacheMiss(dependency)
	}
}

func (m MultiRecorder) RecordExecution(dependency string, outcome invocation.Outcome) {
	for _, r := range m {
		r.RecordExecution(dependency, outcome)
	}
}

// guardedRecorder shields the invocation path from a misbehaving
// Recorder: panics raised by the wrapped recorder are recovered and
// logged instead of propagating into the executor.
type guardedRecorder struct {
	inner Recorder
}

func guarded(r Recorder) Recorder {
	if r == nil {
		return NopRecorder{}
	}
	if _, ok := r.(*guardedRecorder); ok {
		return r
	}
	return &guardedRecorder{inner: r}
}

func (g *guardedRecorder) RecordAttempt(dependency string, attempt int) {
	defer recoverEvent("attempt")
	g.inner.RecordAttempt(dependency, attempt)
}

func (g *guardedRecorder) RecordAttemptResult(dependency string, class invocation.Class, duration time.Duration) {
	defer recoverEvent("attempt_result")
	g.inner.RecordAttemptResult(dependency, class, duration)
}

func (g *guardedRecorder) RecordRateLimitHit(dependency string, wait time.Duration) {
	defer recoverEvent("rate_limit_hit")
	g.inner.RecordRateLimitHit(dependency, wait)
}

func (g *guardedRecorder) RecordCircuitTransition(dependency, from, to string) {
	defer recoverEvent("circuit_transition")
	g.inner.RecordCircuitTransition(dependency, from, to)
}

func (g *guardedRecorder) RecordCacheHit(dependency string) {
	defer recoverEvent("cache_hit")
	g.inner.RecordCacheHit(dependency)
}

func (g *guardedRecorder) RecordCacheMiss(dependency string) {
	defer recoverEvent("cache_miss")
	g.inner.RecordCacheMiss(dependency)
}

func (g *guardedRecorder) RecordExecution(dependency string, outcome invocation.Outcome) {
	defer recoverEvent("execution")
	g.inner.RecordExecution(dependency, outcome)
}

func recoverEvent(event string) {
	if r := recover(); r != nil {
		slog.Error("monitoring recorder panicked",
			slog.String("event", event),
			slog.Any("panic", r),
			slog.String("stack", string(debug.Stack())))
	}
}
