package invocation

import "time"

// Class is the closed set of invocation outcome tags. Every execution ends in
// exactly one class.
type Class int

const (
	// ClassSuccess means the call completed and Result holds the payload.
	ClassSuccess Class = iota

	// ClassRetryable means the call failed with a transient condition that
	// retrying may resolve (network errors, timeouts of the underlying
	// transport, 5xx responses).
	ClassRetryable

	// ClassRateLimited means the dependency signaled quota exhaustion; the
	// outcome carries a wait hint.
	ClassRateLimited

	// ClassFatal means the call failed in a way retrying cannot fix.
	ClassFatal

	// ClassCircuitOpen means the call was rejected locally without invoking
	// the dependency, because its circuit breaker is open.
	ClassCircuitOpen
)

// String returns the class name for logs and metric labels.
func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassRetryable:
		return "retryable"
	case ClassRateLimited:
		return "rate_limited"
	case ClassFatal:
		return "fatal"
	case ClassCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one logical invocation. Exactly one class
// applies; failure classes carry the cause, rate-limited outcomes carry the
// wait hint the dependency suggested.
type Outcome struct {
	Class    Class
	Result   any
	Err      error
	WaitHint time.Duration

	// Execution metadata stamped by the executor.
	Attempts     int
	Duration     time.Duration
	InvocationID string
	CacheHit     bool
}

// Success builds a successful outcome carrying the call's result.
func Success(result any) Outcome {
	return Outcome{Class: ClassSuccess, Result: result}
}

// Retryable builds a transient-failure outcome.
func Retryable(err error) Outcome {
	return Outcome{Class: ClassRetryable, Err: err}
}

// RateLimited builds a rate-limit outcome with the wait hint extracted from
// the dependency's response.
func RateLimited(err error, waitHint time.Duration) Outcome {
	return Outcome{Class: ClassRateLimited, Err: err, WaitHint: waitHint}
}

// Fatal builds a non-retryable failure outcome.
func Fatal(err error) Outcome {
	return Outcome{Class: ClassFatal, Err: err}
}

// CircuitOpen builds the distinguished local-rejection outcome. The
// dependency was never invoked.
func CircuitOpen(err error) Outcome {
	return Outcome{Class: ClassCircuitOpen, Err: err}
}

// IsSuccess reports whether the outcome carries a result.
func (o Outcome) IsSuccess() bool {
	return o.Class == ClassSuccess
}

// Retriable reports whether the executor may retry after this outcome.
func (o Outcome) Retriable() bool {
	return o.Class == ClassRetryable || o.Class == ClassRateLimited
}
