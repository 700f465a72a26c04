// Package worker provides the worker process shell: environment-driven
// configuration with fail-open fallbacks, the ops HTTP server lifecycle,
// and the worker's job metrics.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"toolgate/internal/pkg/config"
	pkgconfig "toolgate/pkg/config"
)

// WorkerConfig holds the operational configuration for the worker process.
// It covers the schedules, listeners, and shutdown behavior of the shell
// around the gate; the gate policy itself (rate limits, retries, breakers)
// is loaded separately from the YAML file by internal/config.
type WorkerConfig struct {
	// StatsSchedule is the cron expression for the stats snapshot job,
	// which logs gate counters and refreshes the per-dependency gauges.
	//
	// Format: standard five-field cron ("minute hour day month weekday")
	// Example: "0 * * * *" (top of every hour)
	// Validation: parsed with robfig/cron
	// Default: "0 * * * *"
	StatsSchedule string

	// Timezone is the IANA timezone name the cron schedules run in.
	//
	// Format: IANA timezone name
	// Example: "America/New_York"
	// Validation: must load via time.LoadLocation (requires tzdata)
	// Default: "UTC"
	Timezone string

	// MetricsPort is the TCP port for the Prometheus /metrics listener.
	//
	// Format: integer port number
	// Example: 9090
	// Validation: 1024-65535 (unprivileged range)
	// Default: 9090
	MetricsPort int

	// HealthPort is the TCP port for the ops listener serving liveness,
	// readiness, health detail, the stats snapshot, and optionally pprof.
	//
	// Format: integer port number
	// Example: 9091
	// Validation: 1024-65535 (unprivileged range), must differ from MetricsPort
	// Default: 9091
	HealthPort int

	// ShutdownTimeout bounds the graceful stop: running cron jobs and the
	// HTTP listeners get this long to finish after SIGINT/SIGTERM.
	//
	// Format: Go duration string
	// Example: "30s"
	// Validation: between 1s and 5m
	// Default: 10s
	ShutdownTimeout time.Duration

	// EnablePprof mounts net/http/pprof on the ops listener when true.
	// Profiles are served unauthenticated, so leave this off unless the
	// port is reachable only from inside the deployment.
	//
	// Format: boolean ("true"/"false")
	// Default: false
	EnablePprof bool

	// Dependencies lists dependency names to register with the gate's
	// stats and circuit-state series at startup, so dashboards see the
	// series before the first call arrives.
	//
	// Format: comma-separated names
	// Example: "github_api, hubspot_api, outreach_api"
	// Default: empty (series appear on first use)
	Dependencies []string
}

// DefaultConfig returns the worker configuration defaults. These values
// keep a fresh deployment operational without any environment setup.
func DefaultConfig() *WorkerConfig {
	return &WorkerConfig{
		StatsSchedule:   "0 * * * *",      // Top of every hour
		Timezone:        "UTC",            // Container-safe default
		MetricsPort:     9090,             // Prometheus listener
		HealthPort:      9091,             // Ops endpoints listener
		ShutdownTimeout: 10 * time.Second, // Graceful stop grace
		EnablePprof:     false,            // Profiling off unless enabled
	}
}

// Validate checks every field against its documented constraints and
// aggregates the failures into a single error.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateCronSchedule(c.StatsSchedule); err != nil {
		errors = append(errors, fmt.Errorf("stats schedule: %w", err))
	}

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}

	if err := validatePort(c.MetricsPort); err != nil {
		errors = append(errors, fmt.Errorf("metrics port: %w", err))
	}

	if err := validatePort(c.HealthPort); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if c.MetricsPort == c.HealthPort {
		errors = append(errors, fmt.Errorf("metrics port and health port must differ, both are %d", c.MetricsPort))
	}

	if err := validateShutdownTimeout(c.ShutdownTimeout); err != nil {
		errors = append(errors, fmt.Errorf("shutdown timeout: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	return nil
}

// LoadConfigFromEnv loads the worker configuration from environment
// variables with fail-open fallbacks: an invalid value logs a warning,
// feeds the fallback metrics, and yields the documented default. The
// returned configuration always passes Validate.
//
// Environment variables:
//   - STATS_SCHEDULE: cron expression for the stats snapshot job
//   - WORKER_TIMEZONE: IANA timezone for the cron schedules
//   - METRICS_PORT: Prometheus listener port
//   - WORKER_HEALTH_PORT: ops listener port
//   - WORKER_SHUTDOWN_TIMEOUT: graceful stop grace
//   - ENABLE_PPROF: mount /debug/pprof on the ops listener
//   - WORKER_DEPENDENCIES: dependency names to pre-register
func LoadConfigFromEnv(logger *slog.Logger, metrics *config.ConfigMetrics) *WorkerConfig {
	cfg := DefaultConfig()
	fallbackApplied := false

	result := config.LoadEnvWithFallback("STATS_SCHEDULE", cfg.StatsSchedule, config.ValidateCronSchedule)
	cfg.StatsSchedule = result.Value.(string)
	fallbackApplied = noteFallback(logger, metrics, "stats_schedule", result) || fallbackApplied

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	fallbackApplied = noteFallback(logger, metrics, "timezone", result) || fallbackApplied

	result = config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, validatePort)
	cfg.MetricsPort = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "metrics_port", result) || fallbackApplied

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, validatePort)
	cfg.HealthPort = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "health_port", result) || fallbackApplied

	result = config.LoadEnvDuration("WORKER_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout, validateShutdownTimeout)
	cfg.ShutdownTimeout = result.Value.(time.Duration)
	fallbackApplied = noteFallback(logger, metrics, "shutdown_timeout", result) || fallbackApplied

	result = config.LoadEnvBool("ENABLE_PPROF", cfg.EnablePprof)
	cfg.EnablePprof = result.Value.(bool)
	fallbackApplied = noteFallback(logger, metrics, "enable_pprof", result) || fallbackApplied

	// The two listeners cannot share a port. Keep the metrics port and
	// move the ops listener back to a default, the same way a single bad
	// field falls back.
	if cfg.MetricsPort == cfg.HealthPort {
		defaults := DefaultConfig()
		cfg.HealthPort = defaults.HealthPort
		if cfg.HealthPort == cfg.MetricsPort {
			cfg.HealthPort = defaults.MetricsPort
		}
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port")
		logger.Warn("Configuration fallback applied",
			slog.String("field", "health_port"),
			slog.String("warning", fmt.Sprintf(
				"WORKER_HEALTH_PORT collides with METRICS_PORT=%d, falling back to '%d'",
				cfg.MetricsPort, cfg.HealthPort)))
		fallbackApplied = true
	}

	cfg.Dependencies = pkgconfig.GetEnvStringList("WORKER_DEPENDENCIES", nil)

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()

	return cfg
}

// noteFallback records a fallback on the metrics and logs its warnings.
// The field name doubles as the metric label and the log field.
func noteFallback(logger *slog.Logger, metrics *config.ConfigMetrics, field string, result config.ConfigLoadResult) bool {
	if !result.FallbackApplied {
		return false
	}

	metrics.RecordValidationError(field)
	metrics.RecordFallback(field)
	for _, warning := range result.Warnings {
		logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}

	return true
}

func validatePort(port int) error {
	return config.ValidateIntRange(port, 1024, 65535)
}

func validateShutdownTimeout(d time.Duration) error {
	return config.ValidateDuration(d, time.Second, 5*time.Minute)
}
