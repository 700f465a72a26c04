package classify

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Quota header spellings vary by provider; each list is checked in
// order and the first parseable value wins.
var (
	remainingHeaders = []string{
		"X-RateLimit-Remaining",
		"X-Rate-Limit-Remaining",
		"RateLimit-Remaining",
	}
	resetHeaders = []string{
		"X-RateLimit-Reset",
		"X-Rate-Limit-Reset",
		"RateLimit-Reset",
	}
)

// Reset values larger than one year of seconds are epoch timestamps,
// smaller values are delta seconds from now.
const epochCutoff = int64(365 * 24 * 60 * 60)

// RetryAfter parses a Retry-After header, which carries either delay
// seconds or an HTTP date. Negative values floor to zero.
func RetryAfter(h http.Header, now time.Time) (time.Duration, bool) {
	raw := strings.TrimSpace(h.Get("Retry-After"))
	if raw == "" {
		return 0, false
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if secs < 0 {
			return 0, true
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(raw); err == nil {
		wait := at.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}
	return 0, false
}

// RemainingQuota parses the remaining-quota header across the known
// spellings.
func RemainingQuota(h http.Header) (int64, bool) {
	for _, name := range remainingHeaders {
		raw := strings.TrimSpace(h.Get(name))
		if raw == "" {
			continue
		}
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// ResetTime parses the quota reset header as epoch seconds or delta
// seconds from now.
func ResetTime(h http.Header, now time.Time) (time.Time, bool) {
	for _, name := range resetHeaders {
		raw := strings.TrimSpace(h.Get(name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if v > epochCutoff {
			return time.Unix(v, 0), true
		}
		return now.Add(time.Duration(v) * time.Second), true
	}
	return time.Time{}, false
}

// QuotaExhausted reports whether the headers show zero remaining quota
// alongside a reset timestamp. Both signals must be present.
func QuotaExhausted(h http.Header) bool {
	remaining, ok := RemainingQuota(h)
	if !ok || remaining != 0 {
		return false
	}
	for _, name := range resetHeaders {
		if strings.TrimSpace(h.Get(name)) != "" {
			return true
		}
	}
	return false
}
