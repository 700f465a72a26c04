// Package config loads and validates the gate configuration file. The file
// is YAML, found at the path in TOOLGATE_CONFIG (default
// config/toolgate.yaml). Loading is fail-closed: a file that does not parse
// or validate refuses to start the process instead of running with
// half-applied policies.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"toolgate/internal/resilience/circuitbreaker"
	"toolgate/internal/resilience/classify"
	"toolgate/internal/resilience/ratelimit"
	"toolgate/internal/resilience/retry"
	"toolgate/internal/usecase/invoke"
	"toolgate/pkg/idempotency"
)

// DefaultSweepInterval is the idempotency sweep cadence when
// idempotency.sweep_interval_seconds is absent.
const DefaultSweepInterval = time.Minute

// Config is the gate configuration file schema.
type Config struct {
	// RateLimits maps "<dependency>_per_hour" / "<dependency>_per_second"
	// keys to call budgets. The reserved dependency name "default" sets
	// the fallback budget for dependencies without an explicit entry.
	RateLimits map[string]float64 `yaml:"rate_limits"`

	// Retries shapes the retry executor and its backoff schedule.
	Retries RetriesConfig `yaml:"retries"`

	// CircuitBreaker tunes the per-dependency circuit breakers.
	CircuitBreaker BreakerConfig `yaml:"circuit_breaker"`

	// Idempotency sizes the result cache and the worker sweep.
	Idempotency IdempotencyConfig `yaml:"idempotency"`

	// ErrorHandling names the provider errors classified as transient
	// or rate-limit signals.
	ErrorHandling ErrorHandlingConfig `yaml:"error_handling"`

	// Features holds operational kill-switches.
	Features FeaturesConfig `yaml:"features"`
}

// RetriesConfig mirrors the retries block. Zero fields fall back to the
// retry package defaults.
type RetriesConfig struct {
	// MaxAttempts bounds the attempt loop, counting the first call.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// BaseBackoffSeconds is the delay after the first transient failure.
	// Default: 1.0
	BaseBackoffSeconds float64 `yaml:"base_backoff_seconds"`

	// BackoffMultiplier is the exponential growth factor between delays.
	// Default: 2.0
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`

	// Jitter replaces each delay with a uniform draw from [0, delay].
	// Default: true
	Jitter *bool `yaml:"jitter"`

	// MaxBackoffSeconds caps any single delay. Default: 30
	MaxBackoffSeconds float64 `yaml:"max_backoff_seconds"`

	// RateLimitRetryAfter is the wait applied to a rate-limit signal
	// that carries no explicit hint. Default: 60
	RateLimitRetryAfter float64 `yaml:"rate_limit_retry_after"`
}

// BreakerConfig mirrors the circuit_breaker block.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens a
	// circuit. Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// CooldownSeconds is how long an open circuit rejects calls before
	// admitting a probe. Default: 30
	CooldownSeconds float64 `yaml:"cooldown_seconds"`
}

// IdempotencyConfig mirrors the idempotency block.
type IdempotencyConfig struct {
	// TTLSeconds is how long a cached result stays fresh. Default: 300
	TTLSeconds float64 `yaml:"ttl_seconds"`

	// MaxEntries bounds the cache; oldest entries are evicted first.
	// Default: 10000
	MaxEntries int `yaml:"max_entries"`

	// SweepIntervalSeconds is the worker's expired-entry sweep cadence.
	// Zero disables the sweep. Default: 60
	SweepIntervalSeconds *float64 `yaml:"sweep_interval_seconds"`
}

// ErrorHandlingConfig mirrors the error_handling block. Names match
// invocation.ProviderError.Name values emitted by the provider adapters.
type ErrorHandlingConfig struct {
	// RetryableErrors are classified transient.
	RetryableErrors []string `yaml:"retryable_errors"`

	// RateLimitErrors are classified as rate-limit signals.
	RateLimitErrors []string `yaml:"rate_limit_errors"`
}

// FeaturesConfig mirrors the features block.
type FeaturesConfig struct {
	// EnableRateLimiting bypasses the rate limiter when false.
	// Default: true
	EnableRateLimiting *bool `yaml:"enable_rate_limiting"`
}

// Default returns the configuration used when no file is present. The
// zero schema resolves to every documented default.
func Default() *Config {
	return &Config{}
}

const (
	suffixPerHour   = "_per_hour"
	suffixPerSecond = "_per_second"

	// defaultBudgetName is the reserved rate_limits dependency name for
	// the fallback budget.
	defaultBudgetName = "default"
)

// budget is one parsed rate_limits entry.
type budget struct {
	dependency string
	interval   time.Duration
}

// parseBudget splits a rate_limits key into its dependency name and
// converts the budget into a minimum inter-call interval.
func parseBudget(key string, value float64) (budget, error) {
	var (
		dependency string
		unit       time.Duration
	)
	switch {
	case strings.HasSuffix(key, suffixPerHour):
		dependency = strings.TrimSuffix(key, suffixPerHour)
		unit = time.Hour
	case strings.HasSuffix(key, suffixPerSecond):
		dependency = strings.TrimSuffix(key, suffixPerSecond)
		unit = time.Second
	default:
		return budget{}, fmt.Errorf("rate_limits: unknown suffix in %q, want _per_hour or _per_second", key)
	}
	if dependency == "" {
		return budget{}, fmt.Errorf("rate_limits: missing dependency name in %q", key)
	}
	if value <= 0 {
		return budget{}, fmt.Errorf("rate_limits: %s must be positive, got %v", key, value)
	}
	return budget{
		dependency: dependency,
		interval:   time.Duration(float64(unit) / value),
	}, nil
}

// Validate checks every option against its documented range. It returns
// the first violation found; rate_limits keys are checked in sorted
// order so the error is deterministic.
func (c *Config) Validate() error {
	keys := make([]string, 0, len(c.RateLimits))
	for key := range c.RateLimits {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seen := make(map[string]string, len(keys))
	for _, key := range keys {
		b, err := parseBudget(key, c.RateLimits[key])
		if err != nil {
			return err
		}
		if prev, ok := seen[b.dependency]; ok {
			return fmt.Errorf("rate_limits: %q and %q configure the same dependency", prev, key)
		}
		seen[b.dependency] = key
	}

	r := c.Retries
	if r.MaxAttempts < 0 || r.MaxAttempts > 10 {
		return fmt.Errorf("retries.max_attempts must be between 1 and 10, got %d", r.MaxAttempts)
	}
	if r.BaseBackoffSeconds < 0 || r.BaseBackoffSeconds > 600 {
		return fmt.Errorf("retries.base_backoff_seconds must be between 0 and 600, got %v", r.BaseBackoffSeconds)
	}
	if r.BackoffMultiplier != 0 && (r.BackoffMultiplier < 1 || r.BackoffMultiplier > 10) {
		return fmt.Errorf("retries.backoff_multiplier must be between 1 and 10, got %v", r.BackoffMultiplier)
	}
	if r.MaxBackoffSeconds < 0 || r.MaxBackoffSeconds > 600 {
		return fmt.Errorf("retries.max_backoff_seconds must be between 0 and 600, got %v", r.MaxBackoffSeconds)
	}
	if r.RateLimitRetryAfter < 0 || r.RateLimitRetryAfter > 3600 {
		return fmt.Errorf("retries.rate_limit_retry_after must be between 0 and 3600, got %v", r.RateLimitRetryAfter)
	}
	policy := c.Retry()
	if policy.BaseBackoff > policy.MaxBackoff {
		return fmt.Errorf("retries.base_backoff_seconds (%v) exceeds max_backoff_seconds (%v)",
			policy.BaseBackoff, policy.MaxBackoff)
	}

	cb := c.CircuitBreaker
	if cb.FailureThreshold < 0 || cb.FailureThreshold > 1000 {
		return fmt.Errorf("circuit_breaker.failure_threshold must be between 1 and 1000, got %d", cb.FailureThreshold)
	}
	if cb.CooldownSeconds < 0 || cb.CooldownSeconds > 3600 {
		return fmt.Errorf("circuit_breaker.cooldown_seconds must be between 0 and 3600, got %v", cb.CooldownSeconds)
	}

	id := c.Idempotency
	if id.TTLSeconds < 0 || id.TTLSeconds > 86400 {
		return fmt.Errorf("idempotency.ttl_seconds must be between 0 and 86400, got %v", id.TTLSeconds)
	}
	if id.MaxEntries < 0 || id.MaxEntries > 1000000 {
		return fmt.Errorf("idempotency.max_entries must be between 1 and 1000000, got %d", id.MaxEntries)
	}
	if id.SweepIntervalSeconds != nil {
		if s := *id.SweepIntervalSeconds; s < 0 || s > 3600 {
			return fmt.Errorf("idempotency.sweep_interval_seconds must be between 0 and 3600, got %v", s)
		}
	}

	if err := validateErrorNames("error_handling.retryable_errors", c.ErrorHandling.RetryableErrors); err != nil {
		return err
	}
	if err := validateErrorNames("error_handling.rate_limit_errors", c.ErrorHandling.RateLimitErrors); err != nil {
		return err
	}
	retryable := make(map[string]struct{}, len(c.ErrorHandling.RetryableErrors))
	for _, name := range c.ErrorHandling.RetryableErrors {
		retryable[name] = struct{}{}
	}
	for _, name := range c.ErrorHandling.RateLimitErrors {
		if _, ok := retryable[name]; ok {
			return fmt.Errorf("error_handling: %q appears in both retryable_errors and rate_limit_errors", name)
		}
	}

	return nil
}

func validateErrorNames(option string, names []string) error {
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s: error names cannot be empty", option)
		}
	}
	return nil
}

// Intervals returns the per-dependency minimum inter-call intervals and
// the fallback interval for dependencies without an explicit budget.
// Call Validate first; malformed entries are skipped here.
func (c *Config) Intervals() (map[string]time.Duration, time.Duration) {
	intervals := make(map[string]time.Duration, len(c.RateLimits))
	var fallback time.Duration
	for key, value := range c.RateLimits {
		b, err := parseBudget(key, value)
		if err != nil {
			continue
		}
		if b.dependency == defaultBudgetName {
			fallback = b.interval
			continue
		}
		intervals[b.dependency] = b.interval
	}
	return intervals, fallback
}

// RateLimitingEnabled reports the features.enable_rate_limiting
// kill-switch, defaulting to true.
func (c *Config) RateLimitingEnabled() bool {
	if c.Features.EnableRateLimiting == nil {
		return true
	}
	return *c.Features.EnableRateLimiting
}

// RateLimit resolves the rate_limits and features blocks into the
// limiter configuration.
func (c *Config) RateLimit() ratelimit.Config {
	intervals, fallback := c.Intervals()
	return ratelimit.Config{
		Intervals:       intervals,
		DefaultInterval: fallback,
		Disabled:        !c.RateLimitingEnabled(),
	}
}

// Retry resolves the retries block into a retry policy, filling absent
// fields with the retry package defaults.
func (c *Config) Retry() retry.Policy {
	def := retry.DefaultPolicy()
	policy := retry.Policy{
		MaxAttempts: c.Retries.MaxAttempts,
		BaseBackoff: secondsOr(c.Retries.BaseBackoffSeconds, def.BaseBackoff),
		Multiplier:  c.Retries.BackoffMultiplier,
		MaxBackoff:  secondsOr(c.Retries.MaxBackoffSeconds, def.MaxBackoff),
		Jitter:      def.Jitter,
	}
	if c.Retries.Jitter != nil {
		policy.Jitter = *c.Retries.Jitter
	}
	return policy.Normalized()
}

// Breaker resolves the circuit_breaker block. Zero fields are filled by
// the breaker registry itself.
func (c *Config) Breaker() circuitbreaker.Config {
	return circuitbreaker.Config{
		FailureThreshold: uint32(c.CircuitBreaker.FailureThreshold),
		Cooldown:         seconds(c.CircuitBreaker.CooldownSeconds),
	}
}

// Detector builds the failure classifier from the error_handling block
// and the configured fixed rate-limit wait.
func (c *Config) Detector() *classify.Detector {
	table := classify.NewTable(c.ErrorHandling.RetryableErrors, c.ErrorHandling.RateLimitErrors)
	return classify.NewDetector(table, seconds(c.Retries.RateLimitRetryAfter))
}

// StoreConfig resolves the idempotency block into the in-memory store
// configuration. Zero fields are filled by the store itself.
func (c *Config) StoreConfig() idempotency.InMemoryStoreConfig {
	return idempotency.InMemoryStoreConfig{
		TTL:        seconds(c.Idempotency.TTLSeconds),
		MaxEntries: c.Idempotency.MaxEntries,
	}
}

// SweepInterval returns the worker's expired-entry sweep cadence. Zero
// means the sweep is disabled.
func (c *Config) SweepInterval() time.Duration {
	if c.Idempotency.SweepIntervalSeconds == nil {
		return DefaultSweepInterval
	}
	s := *c.Idempotency.SweepIntervalSeconds
	if s <= 0 {
		return 0
	}
	return seconds(s)
}

// Gate assembles the policy blocks of an invoke.Config. The caller
// still chooses the Recorder and the default execution timeout.
func (c *Config) Gate() invoke.Config {
	return invoke.Config{
		RateLimit:  c.RateLimit(),
		Breaker:    c.Breaker(),
		Retry:      c.Retry(),
		Classifier: c.Detector(),
		Store:      idempotency.NewInMemoryStore(c.StoreConfig()),
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func secondsOr(v float64, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return seconds(v)
}
