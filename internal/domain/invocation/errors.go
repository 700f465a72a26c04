package invocation

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors surfaced by the execution layer.
var (
	// ErrCircuitOpen indicates the dependency's circuit breaker rejected the
	// call before any invocation was attempted.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrAttemptsExhausted wraps the last failure after the retry budget is
	// spent.
	ErrAttemptsExhausted = errors.New("retry attempts exhausted")

	// ErrInvocationTimeout indicates the request's overall timeout elapsed
	// during an attempt or a backoff sleep.
	ErrInvocationTimeout = errors.New("invocation timed out")

	// ErrQuotaExhausted marks a response whose quota headers report zero
	// remaining calls, classified as rate-limited even without an error.
	ErrQuotaExhausted = errors.New("provider quota exhausted")

	// ErrInvalidRequest indicates the request failed validation.
	ErrInvalidRequest = errors.New("invalid invocation request")
)

// ProviderError is the normalized failure shape produced by transport
// adapters and consumed by outcome classification. It preserves everything a
// classifier or log line needs: the provider's error name, the HTTP status,
// and the response headers carrying rate-limit signals.
type ProviderError struct {
	Dependency string
	Operation  string

	// Name is the provider-assigned error identifier (e.g.
	// "rate_limit_exceeded") matched against configured category sets.
	Name string

	// StatusCode is the HTTP status of the failed response, 0 when the
	// failure happened below the HTTP layer.
	StatusCode int

	// Header holds the response headers, when a response was received.
	Header http.Header

	// RetryAfter is an explicit wait hint already extracted by the adapter
	// (e.g. from gRPC RetryInfo). Zero means none.
	RetryAfter time.Duration

	// Err is the underlying cause.
	Err error
}

// Error formats the provider error with its dependency context.
func (e *ProviderError) Error() string {
	msg := e.Name
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Dependency, e.Operation, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Dependency, e.Operation, msg)
}

// Unwrap returns the underlying cause for errors.Is and errors.As.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ValidationError reports which request field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted message for the validation failure.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrInvalidRequest.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}
