// Package invocation defines the core domain types for guarded tool execution:
// the immutable request describing one logical call to an external dependency,
// the tagged outcome returned to the caller, and the provider error shape that
// classification operates on.
package invocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// maxDependencyNameLength bounds dependency and operation identifiers to keep
// metric label cardinality and log lines sane.
const maxDependencyNameLength = 128

// Invoker performs the underlying call for a request. The arguments are the
// request's opaque payload; the returned value becomes the success result.
// Implementations must honor ctx cancellation.
type Invoker func(ctx context.Context, args any) (any, error)

// Request identifies a single logical tool invocation against a named external
// dependency. It is immutable once created; the execution layer only reads it.
type Request struct {
	// Dependency is the name of the external service being called,
	// e.g. "github_search" or "crm_contacts". It keys rate limiter and
	// circuit breaker state.
	Dependency string

	// Operation identifies the specific call within the dependency,
	// e.g. "search_repositories". Used for idempotency keys and metrics.
	Operation string

	// Args is the argument payload, opaque to the execution layer. It is
	// passed through to the Invoker and folded into derived idempotency keys.
	Args any

	// IdempotencyKey, when non-empty, overrides the derived cache key.
	IdempotencyKey string

	// Timeout bounds the whole execution including retries and backoff
	// sleeps. Required.
	Timeout time.Duration
}

// Validate checks that the request is well-formed.
func (r Request) Validate() error {
	if r.Dependency == "" {
		return &ValidationError{Field: "dependency", Message: "dependency name is required"}
	}
	if len(r.Dependency) > maxDependencyNameLength {
		return &ValidationError{
			Field:   "dependency",
			Message: fmt.Sprintf("dependency name must not exceed %d characters", maxDependencyNameLength),
		}
	}
	if r.Operation == "" {
		return &ValidationError{Field: "operation", Message: "operation identifier is required"}
	}
	if len(r.Operation) > maxDependencyNameLength {
		return &ValidationError{
			Field:   "operation",
			Message: fmt.Sprintf("operation identifier must not exceed %d characters", maxDependencyNameLength),
		}
	}
	if r.Timeout <= 0 {
		return &ValidationError{Field: "timeout", Message: "timeout must be positive"}
	}
	return nil
}

// CacheKey returns the idempotency key for the request: the caller-supplied
// key when present, otherwise a stable hash over dependency, operation, and
// the canonical JSON encoding of the arguments. Two requests with equal
// dependency, operation, and argument payloads always produce the same key.
func (r Request) CacheKey() (string, error) {
	if r.IdempotencyKey != "" {
		return r.IdempotencyKey, nil
	}

	// encoding/json sorts map keys, so equal payloads encode identically.
	args, err := json.Marshal(r.Args)
	if err != nil {
		return "", fmt.Errorf("canonicalize arguments: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(r.Dependency))
	h.Write([]byte{0})
	h.Write([]byte(r.Operation))
	h.Write([]byte{0})
	h.Write(args)
	return hex.EncodeToString(h.Sum(nil)), nil
}
