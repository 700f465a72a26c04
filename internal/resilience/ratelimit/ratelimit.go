// Package ratelimit spaces outbound provider calls per dependency.
// Each dependency gets its own token bucket so a throttled provider
// never delays calls to a different one.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config controls per-dependency call spacing.
type Config struct {
	// Intervals is the minimum spacing between call starts per
	// dependency. A zero entry leaves that dependency unthrottled even
	// when DefaultInterval is set.
	Intervals map[string]time.Duration

	// DefaultInterval applies to dependencies without an explicit
	// entry. Zero leaves them unthrottled.
	DefaultInterval time.Duration

	// Disabled bypasses all waiting. Used as the kill-switch when rate
	// limiting is turned off in configuration.
	Disabled bool
}

// Limiter enforces a minimum interval between call starts for each
// dependency. Buckets are created lazily on first use with burst 1, so
// the first call for a dependency is admitted immediately and later
// calls are spaced by the configured interval.
type Limiter struct {
	cfg Config

	mu      sync.RWMutex
	buckets map[string]*rate.Limiter
}

// New creates a Limiter for the given configuration.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Acquire blocks until at least the dependency's minimum interval has
// elapsed since its last permitted call start, then records the new
// call start and returns. Concurrent acquisitions for one dependency
// serialize; different dependencies never wait on each other. Only the
// calling goroutine is suspended.
//
// Context cancellation abandons the wait, releases the pending slot,
// and returns the context error.
func (l *Limiter) Acquire(ctx context.Context, dependency string) error {
	if l.cfg.Disabled {
		return nil
	}
	interval := l.Interval(dependency)
	if interval <= 0 {
		return nil
	}
	return l.bucket(dependency, interval).Wait(ctx)
}

// Interval reports the minimum spacing applied to a dependency. Zero
// means unthrottled.
func (l *Limiter) Interval(dependency string) time.Duration {
	if d, ok := l.cfg.Intervals[dependency]; ok {
		return d
	}
	return l.cfg.DefaultInterval
}

func (l *Limiter) bucket(dependency string, interval time.Duration) *rate.Limiter {
	l.mu.RLock()
	b, ok := l.buckets[dependency]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[dependency]; ok {
		return b
	}
	b = rate.NewLimiter(rate.Every(interval), 1)
	l.buckets[dependency] = b
	return b
}
