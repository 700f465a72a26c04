package config

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics provides parameterized Prometheus metrics for environment
// configuration loading. The factory creates a standard set of metrics for
// tracking load time, validation errors, and fallback behavior, prefixed
// with the owning component's name.
//
// Metrics generated (parameterized by component name):
//   - {component}_config_load_timestamp: Unix timestamp of last configuration load
//   - {component}_config_validation_errors_total: Total validation errors by field
//   - {component}_config_fallbacks_total: Total fallback operations by field
//   - {component}_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Example usage:
//
//	var configMetrics = config.NewConfigMetrics("toolgate_worker")
//
//	result := config.LoadEnvWithFallback("STATS_SCHEDULE", "0 * * * *", config.ValidateCronSchedule)
//	if result.FallbackApplied {
//	    configMetrics.RecordValidationError("stats_schedule")
//	    configMetrics.RecordFallback("stats_schedule")
//	}
//	configMetrics.SetFallbackActive(result.FallbackApplied)
//	configMetrics.RecordLoadTimestamp()
type ConfigMetrics struct {
	// LoadTimestamp records the Unix timestamp of the last configuration load.
	LoadTimestamp prometheus.Gauge

	// ValidationErrorsTotal counts validation errors by field
	// (e.g., "stats_schedule", "timezone", "metrics_port").
	ValidationErrorsTotal *prometheus.CounterVec

	// FallbacksTotal counts applied fallbacks by field.
	FallbacksTotal *prometheus.CounterVec

	// FallbackActive is 1 while any field runs on its fallback value.
	FallbackActive prometheus.Gauge
}

// NewConfigMetrics creates a ConfigMetrics instance with component-specific
// metric names. The component name prefixes every metric so two components
// in one process cannot collide.
//
// Metrics register with the Prometheus default registry; registering the
// same component name twice panics, so construct once per process and
// share the instance.
//
// Example:
//
//	workerMetrics := config.NewConfigMetrics("toolgate_worker")
//	// Creates: toolgate_worker_config_load_timestamp, toolgate_worker_config_fallbacks_total, ...
func NewConfigMetrics(componentName string) *ConfigMetrics {
	return &ConfigMetrics{
		LoadTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_load_timestamp", componentName),
			Help: fmt.Sprintf("Unix timestamp of last %s configuration load", componentName),
		}),

		ValidationErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_validation_errors_total", componentName),
			Help: fmt.Sprintf("Total number of %s configuration validation errors", componentName),
		}, []string{"field"}),

		FallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_fallbacks_total", componentName),
			Help: fmt.Sprintf("Total number of %s configuration fallback operations", componentName),
		}, []string{"field"}),

		FallbackActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_fallback_active", componentName),
			Help: fmt.Sprintf("1 if any %s configuration fallback is active, 0 otherwise", componentName),
		}),
	}
}

// RecordLoadTimestamp records the current time as the configuration load
// timestamp. Call it once the component's configuration is fully loaded.
func (m *ConfigMetrics) RecordLoadTimestamp() {
	m.LoadTimestamp.SetToCurrentTime()
}

// RecordValidationError increments the validation error counter for a field.
func (m *ConfigMetrics) RecordValidationError(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
}

// RecordFallback increments the fallback counter for a field. Call it
// whenever a default is substituted for an invalid value.
func (m *ConfigMetrics) RecordFallback(field string) {
	m.FallbacksTotal.WithLabelValues(field).Inc()
}

// SetFallbackActive sets the fallback active gauge: 1 while any field is
// running on its fallback value, 0 once all fields hold configured values.
func (m *ConfigMetrics) SetFallbackActive(active bool) {
	if active {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
}
