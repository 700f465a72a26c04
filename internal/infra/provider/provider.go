// Package provider adapts concrete transports to the gate's Invoker contract.
// Each adapter converts its transport's failures into *invocation.ProviderError
// so classification sees status codes, rate-limit headers, and provider error
// names regardless of whether the call traveled over plain HTTP, gRPC, or a
// vendor SDK.
package provider

import (
	"fmt"
	"sort"
	"sync"

	"toolgate/internal/domain/invocation"
)

// Catalog maps (dependency, operation) pairs to their invokers. The worker
// registers adapters at startup and resolves them when jobs arrive.
//
// Thread safety: Catalog is safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	invokers map[string]invocation.Invoker
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		invokers: make(map[string]invocation.Invoker),
	}
}

// Register binds an invoker to a dependency and operation, replacing any
// previous binding for the pair.
func (c *Catalog) Register(dependency, operation string, fn invocation.Invoker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invokers[catalogKey(dependency, operation)] = fn
}

// Lookup returns the invoker registered for the dependency and operation.
func (c *Catalog) Lookup(dependency, operation string) (invocation.Invoker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.invokers[catalogKey(dependency, operation)]
	return fn, ok
}

// Operations returns the registered "dependency/operation" pairs in sorted
// order, for diagnostics and startup logs.
func (c *Catalog) Operations() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ops := make([]string, 0, len(c.invokers))
	for key := range c.invokers {
		ops = append(ops, key)
	}
	sort.Strings(ops)
	return ops
}

func catalogKey(dependency, operation string) string {
	return dependency + "/" + operation
}

// CompletionArgs is the argument payload the SDK-backed model invokers
// understand. Invokers also accept a bare string prompt or a decoded JSON
// object with a "prompt" field, so arguments survive a round trip through
// the diagnostic CLI.
type CompletionArgs struct {
	Prompt string `json:"prompt"`
}

// promptFromArgs extracts the prompt from the supported argument shapes.
func promptFromArgs(args any) (string, error) {
	switch v := args.(type) {
	case CompletionArgs:
		if v.Prompt != "" {
			return v.Prompt, nil
		}
	case *CompletionArgs:
		if v != nil && v.Prompt != "" {
			return v.Prompt, nil
		}
	case string:
		if v != "" {
			return v, nil
		}
	case map[string]any:
		if prompt, ok := v["prompt"].(string); ok && prompt != "" {
			return prompt, nil
		}
	}
	return "", fmt.Errorf("%w: completion arguments must carry a non-empty prompt", invocation.ErrInvalidRequest)
}
