package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolgate/internal/domain/invocation"
	"toolgate/internal/resilience/retry"
)

func boolPtr(b bool) *bool        { return &b }
func floatPtr(v float64) *float64 { return &v }

// validConfig returns a fully populated configuration that passes
// validation, for use as the mutation base in error tests.
func validConfig() *Config {
	return &Config{
		RateLimits: map[string]float64{
			"github_api_per_hour":   100,
			"crm_api_per_second":    2,
			"outreach_api_per_hour": 500,
			"default_per_second":    1,
		},
		Retries: RetriesConfig{
			MaxAttempts:         3,
			BaseBackoffSeconds:  1,
			BackoffMultiplier:   2,
			Jitter:              boolPtr(true),
			MaxBackoffSeconds:   30,
			RateLimitRetryAfter: 60,
		},
		CircuitBreaker: BreakerConfig{
			FailureThreshold: 5,
			CooldownSeconds:  30,
		},
		Idempotency: IdempotencyConfig{
			TTLSeconds:           300,
			MaxEntries:           10000,
			SweepIntervalSeconds: floatPtr(60),
		},
		ErrorHandling: ErrorHandlingConfig{
			RetryableErrors: []string{"ServiceUnavailable", "InternalError"},
			RateLimitErrors: []string{"RateLimitExceeded", "QuotaExceeded"},
		},
		Features: FeaturesConfig{
			EnableRateLimiting: boolPtr(true),
		},
	}
}

func TestDefault_ResolvedValues(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	// Retry policy resolves to the documented defaults
	policy := cfg.Retry()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.BaseBackoff)
	assert.Equal(t, 2.0, policy.Multiplier)
	assert.Equal(t, 30*time.Second, policy.MaxBackoff)
	assert.True(t, policy.Jitter)

	// Rate limiting is on but unthrottled without budgets
	assert.True(t, cfg.RateLimitingEnabled())
	rl := cfg.RateLimit()
	assert.False(t, rl.Disabled)
	assert.Empty(t, rl.Intervals)
	assert.Zero(t, rl.DefaultInterval)

	// Sweep runs every minute unless configured away
	assert.Equal(t, time.Minute, cfg.SweepInterval())
}

func TestConfig_Validate_Valid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        float64
		wantDep      string
		wantInterval time.Duration
		expectedErr  string
	}{
		{
			name:         "hourly budget",
			key:          "github_api_per_hour",
			value:        100,
			wantDep:      "github_api",
			wantInterval: 36 * time.Second,
		},
		{
			name:         "per second budget",
			key:          "crm_api_per_second",
			value:        2,
			wantDep:      "crm_api",
			wantInterval: 500 * time.Millisecond,
		},
		{
			name:         "fractional budget",
			key:          "outreach_api_per_second",
			value:        0.5,
			wantDep:      "outreach_api",
			wantInterval: 2 * time.Second,
		},
		{
			name:        "unknown suffix",
			key:         "github_api_per_minute",
			value:       10,
			expectedErr: "unknown suffix",
		},
		{
			name:        "missing dependency name",
			key:         "_per_hour",
			value:       10,
			expectedErr: "missing dependency name",
		},
		{
			name:        "zero budget",
			key:         "github_api_per_hour",
			value:       0,
			expectedErr: "must be positive",
		},
		{
			name:        "negative budget",
			key:         "crm_api_per_second",
			value:       -1,
			expectedErr: "must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := parseBudget(tt.key, tt.value)
			if tt.expectedErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDep, b.dependency)
			assert.Equal(t, tt.wantInterval, b.interval)
		})
	}
}

func TestConfig_Validate_RateLimits(t *testing.T) {
	tests := []struct {
		name        string
		rateLimits  map[string]float64
		expectedErr string
	}{
		{
			name:        "unknown suffix",
			rateLimits:  map[string]float64{"github_api_hourly": 100},
			expectedErr: "unknown suffix",
		},
		{
			name:        "bare suffix",
			rateLimits:  map[string]float64{"_per_second": 1},
			expectedErr: "missing dependency name",
		},
		{
			name:        "non positive budget",
			rateLimits:  map[string]float64{"crm_api_per_hour": 0},
			expectedErr: "must be positive",
		},
		{
			name: "same dependency twice",
			rateLimits: map[string]float64{
				"github_api_per_hour":   100,
				"github_api_per_second": 1,
			},
			expectedErr: "configure the same dependency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.RateLimits = tt.rateLimits

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestConfig_Validate_OutOfRange(t *testing.T) {
	tests := []struct {
		name        string
		modifyFn    func(*Config)
		expectedErr string
	}{
		{
			name:        "max attempts too high",
			modifyFn:    func(c *Config) { c.Retries.MaxAttempts = 11 },
			expectedErr: "retries.max_attempts",
		},
		{
			name:        "negative max attempts",
			modifyFn:    func(c *Config) { c.Retries.MaxAttempts = -1 },
			expectedErr: "retries.max_attempts",
		},
		{
			name:        "negative base backoff",
			modifyFn:    func(c *Config) { c.Retries.BaseBackoffSeconds = -0.5 },
			expectedErr: "retries.base_backoff_seconds",
		},
		{
			name:        "multiplier below one",
			modifyFn:    func(c *Config) { c.Retries.BackoffMultiplier = 0.5 },
			expectedErr: "retries.backoff_multiplier",
		},
		{
			name:        "multiplier too high",
			modifyFn:    func(c *Config) { c.Retries.BackoffMultiplier = 11 },
			expectedErr: "retries.backoff_multiplier",
		},
		{
			name:        "max backoff too high",
			modifyFn:    func(c *Config) { c.Retries.MaxBackoffSeconds = 601 },
			expectedErr: "retries.max_backoff_seconds",
		},
		{
			name: "base backoff above max backoff",
			modifyFn: func(c *Config) {
				c.Retries.BaseBackoffSeconds = 60
				c.Retries.MaxBackoffSeconds = 30
			},
			expectedErr: "exceeds max_backoff_seconds",
		},
		{
			name:        "retry after too high",
			modifyFn:    func(c *Config) { c.Retries.RateLimitRetryAfter = 3601 },
			expectedErr: "retries.rate_limit_retry_after",
		},
		{
			name:        "failure threshold too high",
			modifyFn:    func(c *Config) { c.CircuitBreaker.FailureThreshold = 1001 },
			expectedErr: "circuit_breaker.failure_threshold",
		},
		{
			name:        "negative failure threshold",
			modifyFn:    func(c *Config) { c.CircuitBreaker.FailureThreshold = -1 },
			expectedErr: "circuit_breaker.failure_threshold",
		},
		{
			name:        "cooldown too high",
			modifyFn:    func(c *Config) { c.CircuitBreaker.CooldownSeconds = 3601 },
			expectedErr: "circuit_breaker.cooldown_seconds",
		},
		{
			name:        "ttl too high",
			modifyFn:    func(c *Config) { c.Idempotency.TTLSeconds = 86401 },
			expectedErr: "idempotency.ttl_seconds",
		},
		{
			name:        "max entries too high",
			modifyFn:    func(c *Config) { c.Idempotency.MaxEntries = 1000001 },
			expectedErr: "idempotency.max_entries",
		},
		{
			name:        "negative sweep interval",
			modifyFn:    func(c *Config) { c.Idempotency.SweepIntervalSeconds = floatPtr(-1) },
			expectedErr: "idempotency.sweep_interval_seconds",
		},
		{
			name:        "blank retryable error name",
			modifyFn:    func(c *Config) { c.ErrorHandling.RetryableErrors = []string{"  "} },
			expectedErr: "error names cannot be empty",
		},
		{
			name: "name in both categories",
			modifyFn: func(c *Config) {
				c.ErrorHandling.RateLimitErrors = append(c.ErrorHandling.RateLimitErrors, "InternalError")
			},
			expectedErr: "appears in both",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFn(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestConfig_Intervals(t *testing.T) {
	cfg := validConfig()

	intervals, fallback := cfg.Intervals()
	assert.Equal(t, 36*time.Second, intervals["github_api"])
	assert.Equal(t, 500*time.Millisecond, intervals["crm_api"])
	assert.Equal(t, time.Duration(float64(time.Hour)/500), intervals["outreach_api"])
	assert.Equal(t, time.Second, fallback)

	// The reserved default budget never shows up as a dependency
	_, ok := intervals["default"]
	assert.False(t, ok)
}

func TestConfig_RateLimit_KillSwitch(t *testing.T) {
	cfg := validConfig()
	cfg.Features.EnableRateLimiting = boolPtr(false)

	rl := cfg.RateLimit()
	assert.True(t, rl.Disabled)
	// Budgets stay parsed so flipping the switch back needs no reload
	assert.Equal(t, 36*time.Second, rl.Intervals["github_api"])
}

func TestConfig_Retry_CustomValues(t *testing.T) {
	cfg := &Config{
		Retries: RetriesConfig{
			MaxAttempts:        5,
			BaseBackoffSeconds: 0.5,
			BackoffMultiplier:  3,
			Jitter:             boolPtr(false),
			MaxBackoffSeconds:  120,
		},
	}

	policy := cfg.Retry()
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, policy.BaseBackoff)
	assert.Equal(t, 3.0, policy.Multiplier)
	assert.Equal(t, 120*time.Second, policy.MaxBackoff)
	assert.False(t, policy.Jitter)
}

func TestConfig_Retry_ZeroFieldsUseDefaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, retry.DefaultPolicy(), cfg.Retry())
}

func TestConfig_Breaker(t *testing.T) {
	cfg := validConfig()
	cfg.CircuitBreaker = BreakerConfig{FailureThreshold: 8, CooldownSeconds: 45}

	bc := cfg.Breaker()
	assert.Equal(t, uint32(8), bc.FailureThreshold)
	assert.Equal(t, 45*time.Second, bc.Cooldown)
}

func TestConfig_Detector(t *testing.T) {
	cfg := &Config{
		Retries: RetriesConfig{RateLimitRetryAfter: 45},
		ErrorHandling: ErrorHandlingConfig{
			RetryableErrors: []string{"ServiceUnavailable"},
			RateLimitErrors: []string{"RateLimitExceeded"},
		},
	}
	det := cfg.Detector()
	require.NotNil(t, det)

	class, wait := det.Classify(&invocation.ProviderError{
		Dependency: "crm_api",
		Operation:  "update_contact",
		Name:       "RateLimitExceeded",
	})
	assert.Equal(t, invocation.ClassRateLimited, class)
	assert.Equal(t, 45*time.Second, wait)

	class, _ = det.Classify(&invocation.ProviderError{Name: "ServiceUnavailable"})
	assert.Equal(t, invocation.ClassRetryable, class)

	class, _ = det.Classify(&invocation.ProviderError{Name: "InvalidArgument"})
	assert.Equal(t, invocation.ClassFatal, class)
}

func TestConfig_Detector_DefaultWait(t *testing.T) {
	cfg := &Config{
		ErrorHandling: ErrorHandlingConfig{RateLimitErrors: []string{"RateLimitExceeded"}},
	}

	_, wait := cfg.Detector().Classify(&invocation.ProviderError{Name: "RateLimitExceeded"})
	assert.Equal(t, 60*time.Second, wait)
}

func TestConfig_StoreConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Idempotency.TTLSeconds = 120
	cfg.Idempotency.MaxEntries = 500

	sc := cfg.StoreConfig()
	assert.Equal(t, 2*time.Minute, sc.TTL)
	assert.Equal(t, 500, sc.MaxEntries)
}

func TestConfig_SweepInterval(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, time.Minute, cfg.SweepInterval())

	cfg.Idempotency.SweepIntervalSeconds = floatPtr(15)
	assert.Equal(t, 15*time.Second, cfg.SweepInterval())

	// Explicit zero disables the sweep entirely
	cfg.Idempotency.SweepIntervalSeconds = floatPtr(0)
	assert.Zero(t, cfg.SweepInterval())
}

func TestConfig_Gate(t *testing.T) {
	cfg := validConfig()

	gate := cfg.Gate()
	assert.Equal(t, cfg.RateLimit(), gate.RateLimit)
	assert.Equal(t, cfg.Breaker(), gate.Breaker)
	assert.Equal(t, cfg.Retry(), gate.Retry)
	require.NotNil(t, gate.Classifier)
	require.NotNil(t, gate.Store)
}
