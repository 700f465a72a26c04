// Package invoke coordinates tool invocations against external
// provider APIs. Every invocation passes through per-dependency rate
// limiting, circuit breaking, failure classification, retry with
// exponential backoff, and an idempotency cache, and emits monitoring
// events to a pluggable Recorder.
package invoke

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"toolgate/internal/domain/invocation"
	"toolgate/internal/observability/tracing"
	"toolgate/internal/resilience/circuitbreaker"
	"toolgate/internal/resilience/classify"
	"toolgate/internal/resilience/ratelimit"
	"toolgate/internal/resilience/retry"
	"toolgate/pkg/idempotency"
)

// defaultExecutionTimeout bounds executions whose request carries no
// timeout of its own.
const defaultExecutionTimeout = 30 * time.Second

type contextKey string

const invocationIDKey contextKey = "invocation_id"

// InvocationIDFromContext returns the invocation ID Execute attached to
// the context passed to the invoker.
func InvocationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(invocationIDKey).(string)
	return id, ok
}

// WithInvocationID returns a context carrying the given invocation ID.
// Execute stamps its own ID on every invocation; this is for callers
// that need to propagate one through other code paths.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationIDKey, id)
}

// Config assembles a Service from its policy blocks. Zero-value fields
// fall back to conservative defaults.
type Config struct {
	// RateLimit spaces outbound calls per dependency.
	RateLimit ratelimit.Config

	// Breaker tunes the per-dependency circuit breakers.
	Breaker circuitbreaker.Config

	// Retry shapes the attempt loop and its backoff schedule.
	Retry retry.Policy

	// Classifier maps invocation errors to outcome classes. When nil,
	// a detector with no configured error names is used.
	Classifier *classify.Detector

	// Store caches successful results for idempotent replay. When
	// nil, an in-memory store with default TTL and capacity is used.
	Store idempotency.Store

	// Recorder receives monitoring events. When nil, events are
	// discarded.
	Recorder Recorder

	// DefaultTimeout applies to requests that carry no timeout. Zero
	// means 30 seconds.
	DefaultTimeout time.Duration
}

// Service executes tool invocations behind the full resilience stack.
// A single Service is shared by all workers in a process; all methods
// are safe for concurrent use.
type Service struct {
	limiter        *ratelimit.Limiter
	breakers       *circuitbreaker.Registry
	detector       *classify.Detector
	policy         retry.Policy
	store          idempotency.Store
	recorder       Recorder
	flights        singleflight.Group
	defaultTimeout time.Duration
}

// New wires a Service from the given configuration. The breaker
// registry reports its state transitions to the configured Recorder in
// addition to any OnStateChange hook already present in cfg.Breaker.
func New(cfg Config) *Service {
	recorder := guarded(cfg.Recorder)

	detector := cfg.Classifier
	if detector == nil {
		detector = classify.NewDetector(nil, 0)
	}

	store := cfg.Store
	if store == nil {
		store = idempotency.NewInMemoryStore(idempotency.DefaultInMemoryStoreConfig())
	}

	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = defaultExecutionTimeout
	}

	breakerCfg := cfg.Breaker
	hook := breakerCfg.OnStateChange
	breakerCfg.OnStateChange = func(dependency string, from, to gobreaker.State) {
		recorder.RecordCircuitTransition(dependency, from.String(), to.String())
		if hook != nil {
			hook(dependency, from, to)
		}
	}

	return &Service{
		limiter:        ratelimit.New(cfg.RateLimit),
		breakers:       circuitbreaker.NewRegistry(breakerCfg),
		detector:       detector,
		policy:         cfg.Retry.Normalized(),
		store:          store,
		recorder:       recorder,
		defaultTimeout: timeout,
	}
}

// Execute runs fn behind the gate's resilience controls.
//
// The idempotency cache is consulted first; a fresh cached result is
// returned without invoking fn. Otherwise the executor runs fn for up
// to the configured number of attempts, passing each attempt through
// the dependency's circuit breaker and rate limiter, classifying each
// failure, and sleeping between attempts. Successful results are
// cached under the request's idempotency key, and concurrent
// executions with the same key are coalesced into a single provider
// call whose outcome every caller receives.
//
// The request timeout bounds the whole execution including backoff
// sleeps. Execute never returns an error; the returned Outcome carries
// the final classification, the result or cause, and attempt metadata.
func (s *Service) Execute(ctx context.Context, req invocation.Request, fn invocation.Invoker) invocation.Outcome {
	start := time.Now()
	id := uuid.New().String()

	ctx, span := tracing.StartInvocation(ctx, req.Dependency, req.Operation)

	finish := func(out invocation.Outcome) invocation.Outcome {
		out.InvocationID = id
		out.Duration = time.Since(start)
		tracing.FinishInvocation(span, out)
		s.recorder.RecordExecution(req.Dependency, out)
		s.logOutcome(req, out)
		return out
	}

	if req.Timeout <= 0 {
		req.Timeout = s.defaultTimeout
	}
	if err := req.Validate(); err != nil {
		return finish(invocation.Fatal(fmt.Errorf("validate request: %w", err)))
	}
	if fn == nil {
		return finish(invocation.Fatal(fmt.Errorf("%w: nil invoker", invocation.ErrInvalidRequest)))
	}

	key, err := req.CacheKey()
	if err != nil {
		return finish(invocation.Fatal(fmt.Errorf("derive idempotency key: %w", err)))
	}

	ctx = WithInvocationID(ctx, id)
	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	slog.Debug("executing invocation",
		slog.String("invocation_id", id),
		slog.String("dependency", req.Dependency),
		slog.String("operation", req.Operation))

	if entry, ok, err := s.store.Get(ctx, key); err == nil && ok {
		s.recorder.RecordCacheHit(req.Dependency)
		out := invocation.Success(entry.Value)
		out.CacheHit = true
		return finish(out)
	}
	s.recorder.RecordCacheMiss(req.Dependency)

	// Concurrent executions with the same key share one flight. The
	// closure runs only for the flight leader, on the leader's
	// context; waiters select on their own context below.
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		out := s.runAttempts(ctx, req, fn, id)
		if out.IsSuccess() {
			if err := s.store.Put(ctx, key, out.Result); err != nil {
				slog.Warn("idempotency store write failed",
					slog.String("invocation_id", id),
					slog.String("dependency", req.Dependency),
					slog.String("error", err.Error()))
			}
		}
		return out, nil
	})

	select {
	case res := <-ch:
		out, _ := res.Val.(invocation.Outcome)
		return finish(out)
	case <-ctx.Done():
		return finish(invocation.Fatal(fmt.Errorf("%w: %w", invocation.ErrInvocationTimeout, ctx.Err())))
	}
}

// BreakerState reports the current circuit state for a dependency.
func (s *Service) BreakerState(dependency string) gobreaker.State {
	return s.breakers.State(dependency)
}

func (s *Service) logOutcome(req invocation.Request, out invocation.Outcome) {
	attrs := []any{
		slog.String("invocation_id", out.InvocationID),
		slog.String("dependency", req.Dependency),
		slog.String("operation", req.Operation),
		slog.String("class", out.Class.String()),
		slog.Int("attempts", out.Attempts),
		slog.Duration("duration", out.Duration),
		slog.Bool("cache_hit", out.CacheHit),
	}
	if out.IsSuccess() {
		slog.Info("invocation completed", attrs...)
		return
	}
	slog.Warn("invocation failed", append(attrs, slog.String("error", out.Err.Error()))...)
}
