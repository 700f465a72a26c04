// Package fixtures provides reusable test data generators for gate tests.
package fixtures

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"toolgate/internal/domain/invocation"
)

// ErrorOption is a functional option for customizing test provider errors.
type ErrorOption func(*invocation.ProviderError)

// NewRateLimitError creates a ProviderError shaped like provider
// throttling: status 429, a "Retry-After: 30" header, and the
// "rate_limit_exceeded" error name. Use functional options to vary the
// signal for specific test cases.
//
// Example:
//
//	err := fixtures.NewRateLimitError()
//	err := fixtures.NewRateLimitError(fixtures.WithRetryAfterSeconds(120))
//	err := fixtures.NewRateLimitError(fixtures.WithQuotaReset(time.Now().Add(time.Hour)))
func NewRateLimitError(opts ...ErrorOption) *invocation.ProviderError {
	e := &invocation.ProviderError{
		Dependency: "github_api",
		Operation:  "search",
		Name:       "rate_limit_exceeded",
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{},
		Err:        errors.New("rate limit exceeded"),
	}
	e.Header.Set("Retry-After", "30")

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// NewTransientError creates a ProviderError shaped like a provider
// outage: status 503 with the "server_error" name.
func NewTransientError(opts ...ErrorOption) *invocation.ProviderError {
	e := &invocation.ProviderError{
		Dependency: "github_api",
		Operation:  "search",
		Name:       "server_error",
		StatusCode: http.StatusServiceUnavailable,
		Header:     http.Header{},
		Err:        errors.New("service unavailable"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// NewFatalError creates a ProviderError shaped like a caller mistake:
// status 400 with the "invalid_request_error" name. These must never be
// retried.
func NewFatalError(opts ...ErrorOption) *invocation.ProviderError {
	e := &invocation.ProviderError{
		Dependency: "github_api",
		Operation:  "search",
		Name:       "invalid_request_error",
		StatusCode: http.StatusBadRequest,
		Header:     http.Header{},
		Err:        errors.New("invalid request"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// WithErrorDependency sets the dependency name of the error.
func WithErrorDependency(dependency string) ErrorOption {
	return func(e *invocation.ProviderError) {
		e.Dependency = dependency
	}
}

// WithErrorOperation sets the operation identifier of the error.
func WithErrorOperation(operation string) ErrorOption {
	return func(e *invocation.ProviderError) {
		e.Operation = operation
	}
}

// WithName sets the provider-assigned error name.
func WithName(name string) ErrorOption {
	return func(e *invocation.ProviderError) {
		e.Name = name
	}
}

// WithStatusCode sets the HTTP status of the error.
func WithStatusCode(code int) ErrorOption {
	return func(e *invocation.ProviderError) {
		e.StatusCode = code
	}
}

// WithRetryAfterSeconds replaces the Retry-After header with a
// delay-seconds value.
func WithRetryAfterSeconds(seconds int) ErrorOption {
	return func(e *invocation.ProviderError) {
		e.Header.Set("Retry-After", strconv.Itoa(seconds))
	}
}

// WithRetryAfterDate replaces the Retry-After header with an HTTP-date
// value.
func WithRetryAfterDate(at time.Time) ErrorOption {
	return func(e *invocation.ProviderError) {
		e.Header.Set("Retry-After", at.UTC().Format(http.TimeFormat))
	}
}

// WithQuotaReset drops the Retry-After header and expresses the wait
// through the quota convention instead: zero remaining calls plus an
// epoch reset timestamp.
func WithQuotaReset(at time.Time) ErrorOption {
	return func(e *invocation.ProviderError) {
		e.Header.Del("Retry-After")
		e.Header.Set("X-RateLimit-Remaining", "0")
		e.Header.Set("X-RateLimit-Reset", fmt.Sprintf("%d", at.Unix()))
	}
}

// WithHeader sets one response header on the error.
func WithHeader(key, value string) ErrorOption {
	return func(e *invocation.ProviderError) {
		e.Header.Set(key, value)
	}
}

// WithoutHeaders strips every response header, leaving only the status
// and name as classification signals.
func WithoutHeaders() ErrorOption {
	return func(e *invocation.ProviderError) {
		e.Header = http.Header{}
	}
}

// WithRetryAfterHint sets the pre-extracted wait hint, the way gRPC
// adapters surface RetryInfo.
func WithRetryAfterHint(d time.Duration) ErrorOption {
	return func(e *invocation.ProviderError) {
		e.RetryAfter = d
	}
}

// WithCause sets the underlying cause of the error.
func WithCause(err error) ErrorOption {
	return func(e *invocation.ProviderError) {
		e.Err = err
	}
}
