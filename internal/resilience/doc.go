// Package resilience provides reliability and fault tolerance patterns for
// outbound provider calls. It includes per-dependency rate limiting, circuit
// breaking, failure classification, and backoff computation, so a degraded
// provider slows or stops only its own traffic.
//
// The package supports:
//   - Per-dependency call spacing backed by golang.org/x/time/rate
//   - Per-dependency circuit breakers backed by github.com/sony/gobreaker
//   - Deterministic classification of provider failures into retry dispositions
//   - Exponential backoff schedules with full jitter
//
// Usage Example:
//
//	limiter := ratelimit.New(ratelimit.Config{
//	    Intervals: map[string]time.Duration{"github_search": time.Second},
//	})
//	if err := limiter.Acquire(ctx, "github_search"); err != nil {
//	    return err
//	}
//
//	breakers := circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig())
//	permit, err := breakers.Allow("github_search")
//	if err != nil {
//	    return err // circuit open
//	}
//	defer permit.Success()
package resilience
