// Package classify turns provider call errors into retry dispositions.
// Classification is deterministic: throttling signals are checked first,
// then transient failures, and everything else is fatal.
package classify

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
	"time"

	"toolgate/internal/domain/invocation"
)

// DefaultFixedWait is used as the rate-limit wait hint when a provider
// signals throttling without saying how long to back off.
const DefaultFixedWait = 60 * time.Second

// Detector classifies invocation errors. Rules apply in priority order:
//
//  1. Explicit rate-limit indicator (HTTP 429, exhausted quota headers,
//     or a name in the configured rate-limit set) → RateLimited.
//  2. Name in the configured transient set, or a transport-level
//     transient condition → Retryable.
//  3. Anything else → Fatal.
//
// A nil error classifies Success. Rule order means an HTTP 429 whose
// error name is listed as transient still classifies RateLimited.
type Detector struct {
	table     *Table
	fixedWait time.Duration
	now       func() time.Time
}

// NewDetector builds a detector over the given name table. fixedWait is
// the fallback wait hint for throttling signals without an explicit
// Retry-After or reset timestamp; non-positive values use
// DefaultFixedWait.
func NewDetector(table *Table, fixedWait time.Duration) *Detector {
	if table == nil {
		table = NewTable(nil, nil)
	}
	if fixedWait <= 0 {
		fixedWait = DefaultFixedWait
	}
	return &Detector{
		table:     table,
		fixedWait: fixedWait,
		now:       time.Now,
	}
}

// Classify maps an invocation error onto an outcome class. The returned
// duration is the wait hint and is meaningful only for ClassRateLimited:
// the explicit Retry-After value if present, else the time until the
// quota reset floored at zero, else the fixed fallback wait.
func (d *Detector) Classify(err error) (invocation.Class, time.Duration) {
	if err == nil {
		return invocation.ClassSuccess, 0
	}

	var provErr *invocation.ProviderError
	if errors.As(err, &provErr) {
		if d.rateLimited(provErr) || errors.Is(err, invocation.ErrQuotaExhausted) {
			return invocation.ClassRateLimited, d.waitHint(provErr)
		}
		if cat, ok := d.table.Lookup(provErr.Name); ok && cat == CategoryTransient {
			return invocation.ClassRetryable, 0
		}
		if transientStatus(provErr.StatusCode) {
			return invocation.ClassRetryable, 0
		}
	} else if errors.Is(err, invocation.ErrQuotaExhausted) {
		return invocation.ClassRateLimited, d.fixedWait
	}

	if transientNative(err) {
		return invocation.ClassRetryable, 0
	}
	return invocation.ClassFatal, 0
}

// rateLimited applies rule 1 to a provider error.
func (d *Detector) rateLimited(e *invocation.ProviderError) bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if QuotaExhausted(e.Header) {
		return true
	}
	cat, ok := d.table.Lookup(e.Name)
	return ok && cat == CategoryRateLimit
}

// waitHint resolves the backoff hint for a throttled call.
func (d *Detector) waitHint(e *invocation.ProviderError) time.Duration {
	if e.RetryAfter > 0 {
		return e.RetryAfter
	}
	now := d.now()
	if wait, ok := RetryAfter(e.Header, now); ok {
		return wait
	}
	if reset, ok := ResetTime(e.Header, now); ok {
		wait := reset.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return wait
	}
	return d.fixedWait
}

// transientStatus reports whether an HTTP status is worth retrying.
// 429 is excluded here because the rate-limit rule already claimed it.
func transientStatus(code int) bool {
	if code >= 500 && code < 600 {
		return true
	}
	return code == http.StatusRequestTimeout
}

// transientNative reports transport-level failures worth retrying.
// Context cancellation and deadline expiry are deliberate stops, not
// transient conditions.
func transientNative(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH)
}
