// Package circuitbreaker isolates repeatedly failing provider dependencies.
// It uses the github.com/sony/gobreaker library to prevent cascading failures:
// each dependency gets its own breaker, so an open github_search circuit
// never blocks crm calls.
package circuitbreaker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"toolgate/internal/domain/invocation"
)

// Config holds the configuration shared by all per-dependency breakers.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens a
	// circuit. Only fatal and exhausted-retry outcomes count; a success
	// resets the counter.
	FailureThreshold uint32

	// Cooldown is how long an open circuit rejects calls before the
	// next one is admitted as the single half-open probe.
	Cooldown time.Duration

	// OnStateChange, when set, observes every transition. It runs on
	// the goroutine that triggered the transition.
	OnStateChange func(dependency string, from, to gobreaker.State)
}

// DefaultConfig returns the breaker tuning used when configuration
// supplies nothing.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// Registry holds one circuit breaker per dependency, created lazily on
// first admission.
type Registry struct {
	cfg Config

	mu       sync.RWMutex
	breakers map[string]*gobreaker.TwoStepCircuitBreaker
}

// NewRegistry creates a Registry. Non-positive threshold or cooldown
// fall back to the defaults.
func NewRegistry(cfg Config) *Registry {
	def := DefaultConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Registry{
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.TwoStepCircuitBreaker),
	}
}

// Permit is the admission ticket for a single attempt. Exactly one of
// Success, Failure, or Retrying must be called once the attempt
// resolves.
type Permit struct {
	done    func(bool)
	probing bool
}

// Success reports a successful attempt. It resets the dependency's
// failure counter and closes the circuit when this permit was the
// half-open probe.
func (p *Permit) Success() {
	p.done(true)
}

// Failure reports a counted failure: a fatal outcome or the final
// attempt of an exhausted retry loop.
func (p *Permit) Failure() {
	p.done(false)
}

// Retrying reports a non-final retryable or rate-limited attempt. In
// the closed state these do not move the failure counter. When this
// permit was the half-open probe, any failure must reopen the circuit,
// so it counts as a failure there.
func (p *Permit) Retrying() {
	if p.probing {
		p.done(false)
	}
}

// Probing reports whether this permit was admitted as the half-open
// probe.
func (p *Permit) Probing() bool {
	return p.probing
}

// Allow asks the dependency's breaker to admit one attempt. A rejection
// returns an error matching invocation.ErrCircuitOpen; this covers both
// the open state and callers racing an outstanding half-open probe.
func (r *Registry) Allow(dependency string) (*Permit, error) {
	b := r.breaker(dependency)
	done, err := b.Allow()
	if err != nil {
		return nil, fmt.Errorf("dependency %s: %w", dependency, invocation.ErrCircuitOpen)
	}
	// With MaxRequests=1 an admission observed in the half-open state
	// can only be the probe itself. Stale done callbacks from an older
	// generation are discarded by gobreaker, so the check is race-safe.
	return &Permit{
		done:    done,
		probing: b.State() == gobreaker.StateHalfOpen,
	}, nil
}

// State reports the current state of a dependency's breaker. A
// dependency that has never been admitted reports closed.
func (r *Registry) State(dependency string) gobreaker.State {
	r.mu.RLock()
	b, ok := r.breakers[dependency]
	r.mu.RUnlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return b.State()
}

func (r *Registry) breaker(dependency string) *gobreaker.TwoStepCircuitBreaker {
	r.mu.RLock()
	b, ok := r.breakers[dependency]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[dependency]; ok {
		return b
	}

	threshold := r.cfg.FailureThreshold
	settings := gobreaker.Settings{
		Name:        dependency,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     r.cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("dependency", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			if r.cfg.OnStateChange != nil {
				r.cfg.OnStateChange(name, from, to)
			}
		},
	}

	b = gobreaker.NewTwoStepCircuitBreaker(settings)
	r.breakers[dependency] = b
	return b
}
