// Package idempotency provides framework-agnostic result caching keyed by
// idempotency keys.
//
// A successful invocation's result is stored under its key for a bounded
// lifetime, so repeated deliveries of the same logical request return the
// recorded result instead of repeating the side effect. Entries expire
// lazily at read time; a periodic sweep can remove expired entries eagerly.
package idempotency

import (
	"context"
	"time"
)

// Entry is a cached invocation result.
type Entry struct {
	// Value is the stored result.
	Value any

	// CreatedAt is when the entry was stored. Capacity eviction removes
	// the oldest entries by this timestamp.
	CreatedAt time.Time

	// ExpiresAt is when the entry stops being served.
	ExpiresAt time.Time
}

// Store defines the interface for idempotency result caches.
//
// Implementations can use in-memory storage or external backends.
// All methods must be thread-safe.
type Store interface {
	// Get returns the fresh entry for the given key.
	//
	// An entry past its expiry is treated as a miss and removed.
	Get(ctx context.Context, key string) (Entry, bool, error)

	// Put stores a result under the given key with a fresh lifetime,
	// replacing any previous entry. When the store is at capacity the
	// oldest entries by creation time are evicted first.
	Put(ctx context.Context, key string, value any) error

	// Sweep removes expired entries eagerly.
	//
	// Returns the number of entries removed.
	Sweep(ctx context.Context) (int, error)

	// Len returns the number of stored entries, including expired ones
	// that have not been swept yet.
	Len(ctx context.Context) (int, error)
}

// Clock provides an abstraction for time operations to enable testing.
//
// This interface allows for dependency injection of time functions,
// making it easy to test expiry behavior with fake clocks.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
