// Package fixtures provides reusable test data generators for gate tests.
// This package eliminates test data duplication and ensures consistent
// request and failure shapes across different test suites.
package fixtures

import (
	"fmt"
	"time"

	"toolgate/internal/domain/invocation"
)

// RequestOptions configures the generated invocation request. Zero
// fields fall back to a valid default so every generated request passes
// validation.
type RequestOptions struct {
	// Dependency is the dependency name ("github_api" when empty).
	Dependency string

	// Operation is the operation identifier ("search" when empty).
	Operation string

	// Args is the argument payload (a small search query when nil).
	Args any

	// IdempotencyKey is the caller-supplied result cache key. Empty
	// means the gate derives one from the payload.
	IdempotencyKey string

	// Timeout bounds the whole execution (10s when zero).
	Timeout time.Duration
}

// NewRequest generates a valid invocation request from the options.
//
// Example:
//
//	req := fixtures.NewRequest(fixtures.RequestOptions{
//	    Dependency: "hubspot_api",
//	    Operation:  "upsert_contact",
//	})
func NewRequest(opts RequestOptions) invocation.Request {
	if opts.Dependency == "" {
		opts.Dependency = "github_api"
	}
	if opts.Operation == "" {
		opts.Operation = "search"
	}
	if opts.Args == nil {
		opts.Args = map[string]any{"query": "resilience", "per_page": 30}
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	return invocation.Request{
		Dependency:     opts.Dependency,
		Operation:      opts.Operation,
		Args:           opts.Args,
		IdempotencyKey: opts.IdempotencyKey,
		Timeout:        opts.Timeout,
	}
}

// SearchRequest generates a code-hosting search request.
//
// Example:
//
//	req := fixtures.SearchRequest()
//	// Dependency "github_api", operation "search"
func SearchRequest() invocation.Request {
	return NewRequest(RequestOptions{})
}

// ContactRequest generates a CRM contact upsert request.
//
// Example:
//
//	req := fixtures.ContactRequest()
//	// Dependency "hubspot_api", operation "upsert_contact"
func ContactRequest() invocation.Request {
	return NewRequest(RequestOptions{
		Dependency: "hubspot_api",
		Operation:  "upsert_contact",
		Args: map[string]any{
			"email":      "ada@example.com",
			"properties": map[string]any{"company": "Analytical Engines"},
		},
	})
}

// CompletionRequest generates a model completion request.
//
// Example:
//
//	req := fixtures.CompletionRequest()
//	// Dependency "anthropic_messages", operation "complete"
func CompletionRequest() invocation.Request {
	return NewRequest(RequestOptions{
		Dependency: "anthropic_messages",
		Operation:  "complete",
		Args:       map[string]any{"prompt": "Summarize the release notes."},
	})
}

// KeyedRequest generates a search request carrying the given
// idempotency key, for cache replay scenarios.
func KeyedRequest(key string) invocation.Request {
	return NewRequest(RequestOptions{IdempotencyKey: key})
}

// NumberedRequests generates n search requests with distinct argument
// payloads, so each derives a distinct cache key.
func NumberedRequests(n int) []invocation.Request {
	reqs := make([]invocation.Request, 0, n)
	for i := 0; i < n; i++ {
		reqs = append(reqs, NewRequest(RequestOptions{
			Args: map[string]any{"query": fmt.Sprintf("resilience-%d", i), "per_page": 30},
		}))
	}
	return reqs
}
