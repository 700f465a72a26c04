package invoke

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"toolgate/internal/domain/invocation"
	"toolgate/internal/resilience/circuitbreaker"
	"toolgate/internal/resilience/retry"
)

// runAttempts drives the retry loop for one execution. Every attempt
// passes breaker admission and the rate limiter before fn runs;
// failures are classified to decide between returning, sleeping, and
// retrying. Transient failures advance the backoff exponent;
// rate-limit waits do not.
func (s *Service) runAttempts(ctx context.Context, req invocation.Request, fn invocation.Invoker, id string) invocation.Outcome {
	var (
		last           invocation.Outcome
		transientFails int
	)

	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		permit, err := s.breakers.Allow(req.Dependency)
		if err != nil {
			out := invocation.CircuitOpen(err)
			out.Attempts = attempt - 1
			return out
		}

		s.recorder.RecordAttempt(req.Dependency, attempt)

		if err := s.limiter.Acquire(ctx, req.Dependency); err != nil {
			abortPermit(permit, err)
			return s.aborted(req, attempt, err, id)
		}

		started := time.Now()
		result, invokeErr := fn(ctx, req.Args)
		elapsed := time.Since(started)

		if ctx.Err() != nil {
			abortPermit(permit, ctx.Err())
			return s.aborted(req, attempt, ctx.Err(), id)
		}

		class, hint := s.detector.Classify(invokeErr)
		s.recorder.RecordAttemptResult(req.Dependency, class, elapsed)

		switch class {
		case invocation.ClassSuccess:
			permit.Success()
			out := invocation.Success(result)
			out.Attempts = attempt
			return out

		case invocation.ClassFatal:
			permit.Failure()
			out := invocation.Fatal(invokeErr)
			out.Attempts = attempt
			return out

		case invocation.ClassRateLimited:
			wait := hint
			if wait > s.policy.MaxBackoff {
				wait = s.policy.MaxBackoff
			}
			s.recorder.RecordRateLimitHit(req.Dependency, wait)

			last = invocation.RateLimited(invokeErr, hint)
			last.Attempts = attempt
			if attempt == s.policy.MaxAttempts {
				permit.Failure()
				return s.exhausted(last)
			}

			slog.Warn("provider rate limited, backing off",
				slog.String("invocation_id", id),
				slog.String("dependency", req.Dependency),
				slog.String("operation", req.Operation),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.String("error", invokeErr.Error()))

			if err := retry.Sleep(ctx, wait); err != nil {
				abortPermit(permit, err)
				return s.aborted(req, attempt, err, id)
			}
			permit.Retrying()

		default:
			transientFails++
			last = invocation.Retryable(invokeErr)
			last.Attempts = attempt
			if attempt == s.policy.MaxAttempts {
				permit.Failure()
				return s.exhausted(last)
			}

			backoff := s.policy.Jittered(s.policy.Backoff(transientFails))
			slog.Warn("invocation attempt failed, retrying",
				slog.String("invocation_id", id),
				slog.String("dependency", req.Dependency),
				slog.String("operation", req.Operation),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", s.policy.MaxAttempts),
				slog.Duration("backoff", backoff),
				slog.String("error", invokeErr.Error()))

			if err := retry.Sleep(ctx, backoff); err != nil {
				abortPermit(permit, err)
				return s.aborted(req, attempt, err, id)
			}
			permit.Retrying()
		}
	}

	return last
}

// exhausted stamps the terminal outcome of a run that used up its
// attempt budget. The outcome keeps its real class; the error chain
// gains the exhaustion sentinel.
func (s *Service) exhausted(last invocation.Outcome) invocation.Outcome {
	last.Err = fmt.Errorf("%w (%d attempts): %w", invocation.ErrAttemptsExhausted, s.policy.MaxAttempts, last.Err)
	return last
}

// aborted builds the outcome for an execution cut short by its context.
// Deadline expiry is surfaced as the timeout sentinel; caller
// cancellation keeps its own cause.
func (s *Service) aborted(req invocation.Request, attempt int, cause error, id string) invocation.Outcome {
	err := fmt.Errorf("invocation aborted: %w", cause)
	if errors.Is(cause, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", invocation.ErrInvocationTimeout, cause)
	}

	slog.Warn("invocation aborted",
		slog.String("invocation_id", id),
		slog.String("dependency", req.Dependency),
		slog.String("operation", req.Operation),
		slog.Int("attempt", attempt),
		slog.String("cause", cause.Error()))

	out := invocation.Fatal(err)
	out.Attempts = attempt
	return out
}

// abortPermit resolves a permit whose attempt never produced a verdict.
// Deadline expiry counts as a dependency failure; caller cancellation
// says nothing about dependency health, so it only reopens a probing
// circuit.
func abortPermit(permit *circuitbreaker.Permit, cause error) {
	if errors.Is(cause, context.DeadlineExceeded) {
		permit.Failure()
		return
	}
	permit.Retrying()
}
