// Package retry computes backoff schedules for failed provider calls.
// The executor owns the attempt loop; this package owns the delay math
// and the cancellable sleep between attempts.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy holds the retry tuning applied to every invocation.
type Policy struct {
	// MaxAttempts is the total number of attempts, counting the first.
	MaxAttempts int

	// BaseBackoff is the delay after the first transient failure.
	BaseBackoff time.Duration

	// Multiplier is the exponential growth factor between delays.
	Multiplier float64

	// MaxBackoff caps any single delay, including rate-limit waits.
	MaxBackoff time.Duration

	// Jitter replaces each delay with a uniform draw from [0, delay].
	Jitter bool
}

// DefaultPolicy returns the policy used when configuration supplies
// nothing.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseBackoff: 1 * time.Second,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
		Jitter:      true,
	}
}

// Normalized fills non-positive fields with their defaults. Jitter is
// kept as given.
func (p Policy) Normalized() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = def.BaseBackoff
	}
	if p.Multiplier <= 0 {
		p.Multiplier = def.Multiplier
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	return p
}

// Backoff returns the delay after the n-th transient failure, counting
// from 1: BaseBackoff × Multiplier^(n−1), capped at MaxBackoff. Jitter
// is not applied here; see Jittered.
func (p Policy) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	delay := float64(p.BaseBackoff)
	for i := 1; i < n; i++ {
		delay *= p.Multiplier
		if delay >= float64(p.MaxBackoff) {
			return p.MaxBackoff
		}
	}
	d := time.Duration(delay)
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

// Jittered applies full jitter: a uniform draw from [0, delay] replaces
// the delay. With jitter disabled the delay passes through unchanged.
func (p Policy) Jittered(delay time.Duration) time.Duration {
	if !p.Jitter || delay <= 0 {
		return delay
	}
	// #nosec G404 -- Using math/rand is acceptable for jitter calculation.
	// Cryptographic randomness is not required for retry backoff jitter.
	return time.Duration(rand.Int63n(int64(delay) + 1))
}

// Sleep waits for d or until the context is done, whichever comes
// first. It holds no locks, so a sleeping retry never delays work on
// other goroutines.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
