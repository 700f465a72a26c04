package invoke

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolgate/internal/domain/invocation"
	"toolgate/internal/resilience/circuitbreaker"
	"toolgate/internal/resilience/classify"
	"toolgate/internal/resilience/retry"
)

// scriptedTool is a test invoker that fails according to a canned
// script: call i returns script[i], calls beyond the script succeed.
type scriptedTool struct {
	mu     sync.Mutex
	script []error
	result any
	delay  time.Duration
	calls  int
}

func (s *scriptedTool) invoke(ctx context.Context, _ any) (any, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	var err error
	if idx < len(s.script) {
		err = s.script[idx]
	}
	result := s.result
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *scriptedTool) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// captureRecorder retains every monitoring event for assertions.
type captureRecorder struct {
	mu          sync.Mutex
	attempts    []int
	results     []invocation.Class
	rateLimits  []time.Duration
	transitions []string
	cacheHits   int
	cacheMisses int
	executions  []invocation.Outcome
}

func (c *captureRecorder) RecordAttempt(_ string, attempt int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = append(c.attempts, attempt)
}

func (c *captureRecorder) RecordAttemptResult(_ string, class invocation.Class, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, class)
}

func (c *captureRecorder) RecordRateLimitHit(_ string, wait time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rateLimits = append(c.rateLimits, wait)
}

func (c *captureRecorder) RecordCircuitTransition(_, from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transitions = append(c.transitions, from+"->"+to)
}

func (c *captureRecorder) RecordCacheHit(_ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheHits++
}

func (c *captureRecorder) RecordCacheMiss(_ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheMisses++
}

func (c *captureRecorder) RecordExecution(_ string, outcome invocation.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executions = append(c.executions, outcome)
}

func (c *captureRecorder) attemptsSeen() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.attempts...)
}

func (c *captureRecorder) resultsSeen() []invocation.Class {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]invocation.Class(nil), c.results...)
}

func (c *captureRecorder) rateLimitsSeen() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.rateLimits...)
}

func (c *captureRecorder) transitionsSeen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.transitions...)
}

func (c *captureRecorder) cacheCounts() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cacheHits, c.cacheMisses
}

func (c *captureRecorder) executionsSeen() []invocation.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]invocation.Outcome(nil), c.executions...)
}

// fastPolicy keeps backoff sleeps in the low milliseconds so retry
// tests run quickly.
func fastPolicy(maxAttempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts: maxAttempts,
		BaseBackoff: time.Millisecond,
		Multiplier:  2.0,
		MaxBackoff:  50 * time.Millisecond,
		Jitter:      false,
	}
}

func testDetector() *classify.Detector {
	table := classify.NewTable(
		[]string{"connection_error"},
		[]string{"rate_limit_exceeded"},
	)
	return classify.NewDetector(table, 20*time.Millisecond)
}

func searchRequest() invocation.Request {
	return invocation.Request{
		Dependency: "github_search",
		Operation:  "search_repositories",
		Args:       map[string]any{"query": "resilience"},
		Timeout:    5 * time.Second,
	}
}

func transientErr() error {
	return &invocation.ProviderError{
		Dependency: "github_search",
		Operation:  "search_repositories",
		StatusCode: 503,
		Err:        errors.New("upstream unavailable"),
	}
}

func rateLimitErr(retryAfter time.Duration) error {
	return &invocation.ProviderError{
		Dependency: "github_search",
		Operation:  "search_repositories",
		Name:       "rate_limit_exceeded",
		StatusCode: 429,
		RetryAfter: retryAfter,
		Err:        errors.New("too many requests"),
	}
}

func fatalErr() error {
	return &invocation.ProviderError{
		Dependency: "github_search",
		Operation:  "search_repositories",
		Name:       "invalid_query",
		StatusCode: 400,
		Err:        errors.New("bad request"),
	}
}

// TestExecute_SuccessFirstAttempt verifies the happy path: one call, one
// success outcome, matching monitoring events.
func TestExecute_SuccessFirstAttempt(t *testing.T) {
	// Arrange
	tool := &scriptedTool{result: "repos"}
	recorder := &captureRecorder{}
	svc := New(Config{
		Retry:      fastPolicy(3),
		Classifier: testDetector(),
		Recorder:   recorder,
	})

	// Act
	out := svc.Execute(context.Background(), searchRequest(), tool.invoke)

	// Assert
	require.True(t, out.IsSuccess())
	assert.Equal(t, "repos", out.Result)
	assert.Equal(t, 1, out.Attempts)
	assert.False(t, out.CacheHit)
	assert.NotEmpty(t, out.InvocationID)
	assert.Equal(t, 1, tool.callCount())

	assert.Equal(t, []int{1}, recorder.attemptsSeen())
	assert.Equal(t, []invocation.Class{invocation.ClassSuccess}, recorder.resultsSeen())
	executions := recorder.executionsSeen()
	require.Len(t, executions, 1)
	assert.Equal(t, invocation.ClassSuccess, executions[0].Class)
}

// TestExecute_RetriesTransientThenSucceeds verifies transient failures
// are retried until the call succeeds.
func TestExecute_RetriesTransientThenSucceeds(t *testing.T) {
	// Arrange
	tool := &scriptedTool{
		script: []error{transientErr(), transientErr()},
		result: "repos",
	}
	svc := New(Config{
		Retry:      fastPolicy(3),
		Classifier: testDetector(),
	})

	// Act
	out := svc.Execute(context.Background(), searchRequest(), tool.invoke)

	// Assert
	require.True(t, out.IsSuccess())
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, tool.callCount())
}

// TestExecute_FatalStopsImmediately verifies unrecognized client errors
// are not retried.
func TestExecute_FatalStopsImmediately(t *testing.T) {
	// Arrange
	tool := &scriptedTool{script: []error{fatalErr()}}
	svc := New(Config{
		Retry:      fastPolicy(3),
		Classifier: testDetector(),
	})

	// Act
	out := svc.Execute(context.Background(), searchRequest(), tool.invoke)

	// Assert
	require.Equal(t, invocation.ClassFatal, out.Class)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 1, tool.callCount())

	var provErr *invocation.ProviderError
	require.ErrorAs(t, out.Err, &provErr)
	assert.Equal(t, 400, provErr.StatusCode)
}

// TestExecute_ExhaustedReturnsLastOutcome verifies the attempt budget:
// the final outcome keeps the last real classification and gains the
// exhaustion sentinel.
func TestExecute_ExhaustedReturnsLastOutcome(t *testing.T) {
	// Arrange
	tool := &scriptedTool{
		script: []error{transientErr(), transientErr(), transientErr()},
	}
	svc := New(Config{
		Retry:      fastPolicy(3),
		Classifier: testDetector(),
	})

	// Act
	out := svc.Execute(context.Background(), searchRequest(), tool.invoke)

	// Assert
	require.Equal(t, invocation.ClassRetryable, out.Class)
	assert.True(t, out.Retriable())
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, tool.callCount())
	assert.ErrorIs(t, out.Err, invocation.ErrAttemptsExhausted)

	var provErr *invocation.ProviderError
	assert.ErrorAs(t, out.Err, &provErr)
}

// TestExecute_RateLimitedHonorsRetryAfter verifies the executor sleeps
// for the provider's explicit wait hint before the next attempt.
func TestExecute_RateLimitedHonorsRetryAfter(t *testing.T) {
	// Arrange
	const wait = 30 * time.Millisecond
	tool := &scriptedTool{
		script: []error{rateLimitErr(wait)},
		result: "repos",
	}
	recorder := &captureRecorder{}
	svc := New(Config{
		Retry:      fastPolicy(2),
		Classifier: testDetector(),
		Recorder:   recorder,
	})

	// Act
	start := time.Now()
	out := svc.Execute(context.Background(), searchRequest(), tool.invoke)
	elapsed := time.Since(start)

	// Assert
	require.True(t, out.IsSuccess())
	assert.Equal(t, 2, out.Attempts)
	assert.GreaterOrEqual(t, elapsed, wait)
	assert.Equal(t, []time.Duration{wait}, recorder.rateLimitsSeen())
}

// TestExecute_RateLimitWaitClampedToCeiling verifies a huge provider
// wait hint cannot stall the executor past the backoff ceiling.
func TestExecute_RateLimitWaitClampedToCeiling(t *testing.T) {
	// Arrange
	policy := fastPolicy(2)
	policy.MaxBackoff = 20 * time.Millisecond
	tool := &scriptedTool{
		script: []error{rateLimitErr(10 * time.Second)},
		result: "repos",
	}
	recorder := &captureRecorder{}
	svc := New(Config{
		Retry:      policy,
		Classifier: testDetector(),
		Recorder:   recorder,
	})

	// Act
	start := time.Now()
	out := svc.Execute(context.Background(), searchRequest(), tool.invoke)
	elapsed := time.Since(start)

	// Assert
	require.True(t, out.IsSuccess())
	assert.Less(t, elapsed, time.Second, "wait should be clamped, not the provider's 10s")
	assert.Equal(t, []time.Duration{20 * time.Millisecond}, recorder.rateLimitsSeen())
}

// TestExecute_RateLimitKeepsBackoffExponent verifies a rate-limit wait
// consumes an attempt without advancing the transient backoff ladder.
func TestExecute_RateLimitKeepsBackoffExponent(t *testing.T) {
	// Arrange: transient (30ms), rate limit (5ms), transient (60ms if the
	// exponent held at the second rung, 120ms if the rate limit advanced it).
	policy := retry.Policy{
		MaxAttempts: 4,
		BaseBackoff: 30 * time.Millisecond,
		Multiplier:  2.0,
		MaxBackoff:  time.Second,
		Jitter:      false,
	}
	tool := &scriptedTool{
		script: []error{transientErr(), rateLimitErr(5 * time.Millisecond), transientErr()},
		result: "repos",
	}
	svc := New(Config{
		Retry:      policy,
		Classifier: testDetector(),
	})

	// Act
	start := time.Now()
	out := svc.Execute(context.Background(), searchRequest(), tool.invoke)
	elapsed := time.Since(start)

	// Assert: 30 + 5 + 60 = 95ms of sleeps on the correct path, 155ms if
	// the rate-limit attempt had advanced the exponent.
	require.True(t, out.IsSuccess())
	assert.Equal(t, 4, out.Attempts)
	assert.GreaterOrEqual(t, elapsed, 95*time.Millisecond)
	assert.Less(t, elapsed, 140*time.Millisecond)
}

// TestExecute_CircuitOpensAfterThreshold verifies consecutive fatal
// outcomes open the circuit and later calls are rejected locally.
func TestExecute_CircuitOpensAfterThreshold(t *testing.T) {
	// Arrange
	tool := &scriptedTool{
		script: []error{fatalErr(), fatalErr(), fatalErr()},
	}
	recorder := &captureRecorder{}
	svc := New(Config{
		Retry:      fastPolicy(1),
		Breaker:    circuitbreaker.Config{FailureThreshold: 3, Cooldown: time.Minute},
		Classifier: testDetector(),
		Recorder:   recorder,
	})
	req := searchRequest()

	// Act: three fatal executions trip the breaker.
	for i := 0; i < 3; i++ {
		out := svc.Execute(context.Background(), req, tool.invoke)
		require.Equal(t, invocation.ClassFatal, out.Class)
	}
	rejected := svc.Execute(context.Background(), req, tool.invoke)

	// Assert
	require.Equal(t, invocation.ClassCircuitOpen, rejected.Class)
	assert.ErrorIs(t, rejected.Err, invocation.ErrCircuitOpen)
	assert.Equal(t, 0, rejected.Attempts)
	assert.Equal(t, 3, tool.callCount(), "rejected call must not reach the provider")
	assert.Equal(t, gobreaker.StateOpen, svc.BreakerState(req.Dependency))
	assert.Contains(t, recorder.transitionsSeen(), "closed->open")

	executions := recorder.executionsSeen()
	require.Len(t, executions, 4)
	assert.Equal(t, invocation.ClassCircuitOpen, executions[3].Class)
}

// TestExecute_CircuitRecoversAfterCooldown verifies the half-open probe
// closes the circuit again once the dependency recovers.
func TestExecute_CircuitRecoversAfterCooldown(t *testing.T) {
	// Arrange
	tool := &scriptedTool{
		script: []error{fatalErr()},
		result: "repos",
	}
	recorder := &captureRecorder{}
	svc := New(Config{
		Retry:      fastPolicy(1),
		Breaker:    circuitbreaker.Config{FailureThreshold: 1, Cooldown: 50 * time.Millisecond},
		Classifier: testDetector(),
		Recorder:   recorder,
	})
	req := searchRequest()

	// Act
	first := svc.Execute(context.Background(), req, tool.invoke)
	require.Equal(t, invocation.ClassFatal, first.Class)
	require.Equal(t, gobreaker.StateOpen, svc.BreakerState(req.Dependency))

	time.Sleep(80 * time.Millisecond)
	second := svc.Execute(context.Background(), req, tool.invoke)

	// Assert
	require.True(t, second.IsSuccess())
	assert.Equal(t, gobreaker.StateClosed, svc.BreakerState(req.Dependency))
	transitions := recorder.transitionsSeen()
	assert.Contains(t, transitions, "open->half-open")
	assert.Contains(t, transitions, "half-open->closed")
}

// TestExecute_TimeoutDuringInvocation verifies deadline expiry inside a
// provider call aborts the execution and counts a breaker failure.
func TestExecute_TimeoutDuringInvocation(t *testing.T) {
	// Arrange
	tool := &scriptedTool{delay: 300 * time.Millisecond, result: "repos"}
	svc := New(Config{
		Retry:      fastPolicy(3),
		Breaker:    circuitbreaker.Config{FailureThreshold: 1, Cooldown: time.Minute},
		Classifier: testDetector(),
	})
	req := searchRequest()
	req.Timeout = 50 * time.Millisecond

	// Act
	start := time.Now()
	out := svc.Execute(context.Background(), req, tool.invoke)
	elapsed := time.Since(start)

	// Assert
	require.Equal(t, invocation.ClassFatal, out.Class)
	assert.ErrorIs(t, out.Err, invocation.ErrInvocationTimeout)
	assert.Equal(t, 1, out.Attempts)
	assert.Less(t, elapsed, 250*time.Millisecond)
	assert.Equal(t, gobreaker.StateOpen, svc.BreakerState(req.Dependency),
		"timeout must count as a breaker failure")
}

// TestExecute_TimeoutDuringBackoff verifies deadline expiry during a
// backoff sleep aborts instead of finishing the sleep.
func TestExecute_TimeoutDuringBackoff(t *testing.T) {
	// Arrange
	policy := retry.Policy{
		MaxAttempts: 3,
		BaseBackoff: 5 * time.Second,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
		Jitter:      false,
	}
	tool := &scriptedTool{script: []error{transientErr(), transientErr()}}
	svc := New(Config{
		Retry:      policy,
		Classifier: testDetector(),
	})
	req := searchRequest()
	req.Timeout = 50 * time.Millisecond

	// Act
	start := time.Now()
	out := svc.Execute(context.Background(), req, tool.invoke)
	elapsed := time.Since(start)

	// Assert
	require.Equal(t, invocation.ClassFatal, out.Class)
	assert.ErrorIs(t, out.Err, invocation.ErrInvocationTimeout)
	assert.Equal(t, 1, out.Attempts, "the sleep was cut short before attempt 2")
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 1, tool.callCount())
}

// TestExecute_CancellationKeepsBreakerClosed verifies caller
// cancellation aborts the call without counting a dependency failure.
func TestExecute_CancellationKeepsBreakerClosed(t *testing.T) {
	// Arrange
	tool := &scriptedTool{delay: 300 * time.Millisecond, result: "repos"}
	svc := New(Config{
		Retry:      fastPolicy(3),
		Breaker:    circuitbreaker.Config{FailureThreshold: 1, Cooldown: time.Minute},
		Classifier: testDetector(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	// Act
	out := svc.Execute(ctx, searchRequest(), tool.invoke)

	// Assert
	require.Equal(t, invocation.ClassFatal, out.Class)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.NotErrorIs(t, out.Err, invocation.ErrInvocationTimeout)
	assert.Equal(t, gobreaker.StateClosed, svc.BreakerState("github_search"),
		"caller cancellation says nothing about dependency health")
}

// TestExecute_AttemptNumbersReported verifies attempts are numbered
// from 1 in monitoring events.
func TestExecute_AttemptNumbersReported(t *testing.T) {
	// Arrange
	tool := &scriptedTool{
		script: []error{transientErr(), transientErr()},
		result: "repos",
	}
	recorder := &captureRecorder{}
	svc := New(Config{
		Retry:      fastPolicy(3),
		Classifier: testDetector(),
		Recorder:   recorder,
	})

	// Act
	out := svc.Execute(context.Background(), searchRequest(), tool.invoke)

	// Assert
	require.True(t, out.IsSuccess())
	assert.Equal(t, []int{1, 2, 3}, recorder.attemptsSeen())
	assert.Equal(t, []invocation.Class{
		invocation.ClassRetryable,
		invocation.ClassRetryable,
		invocation.ClassSuccess,
	}, recorder.resultsSeen())
}
