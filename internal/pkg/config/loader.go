// Package config provides environment variable loaders with fail-open
// fallback semantics for the worker shell. Invalid values never stop the
// process: loaders return the default together with a warning to log and
// a flag that feeds the fallback metrics.
//
// The gate policy file (rate limits, retries, breakers) is handled
// separately and fail-closed by internal/config. This package covers only
// operational knobs (ports, schedules, timezone, log level) where running
// on defaults beats not running at all.
package config

import (
	"fmt"
	"os"
	"time"
)

// ConfigLoadResult represents the result of loading a configuration value.
// It contains the loaded value, any warnings generated during loading,
// and a flag indicating whether a fallback value was used.
//
// Fields:
//   - Value: The loaded configuration value (may be fallback if validation failed)
//   - Warnings: List of warning messages (one per fallback applied)
//   - FallbackApplied: True if the default value was used due to validation failure
//
// Example:
//
//	result := LoadEnvDuration("WORKER_SHUTDOWN_TIMEOUT", 10*time.Second, ValidatePositiveDuration)
//	if result.FallbackApplied {
//	    for _, warning := range result.Warnings {
//	        slog.Warn(warning)
//	    }
//	}
//	timeout := result.Value.(time.Duration)
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

func loaded(value interface{}) ConfigLoadResult {
	return ConfigLoadResult{Value: value}
}

func fallback(value interface{}, warning string) ConfigLoadResult {
	return ConfigLoadResult{
		Value:           value,
		Warnings:        []string{warning},
		FallbackApplied: true,
	}
}

// LoadEnvString loads a string value from an environment variable.
// If the environment variable is not set, the default value is returned.
// No validation is performed.
//
// Example:
//
//	schedule := LoadEnvString("STATS_SCHEDULE", "0 * * * *")
//	// If STATS_SCHEDULE is not set, returns "0 * * * *"
//	// If STATS_SCHEDULE="*/30 * * * *", returns "*/30 * * * *"
//
// Use LoadEnvWithFallback if validation is needed.
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvWithFallback loads a string value from an environment variable
// with validation and automatic fallback to default on validation failure.
//
// Loading behavior:
//  1. Read environment variable
//  2. If not set or empty: use default value (no warning)
//  3. If set: validate using the provided validator
//  4. If validation fails: use default value and generate warning
//
// This function never returns an error. It always returns a usable
// configuration value, either from the environment or the default.
// Validation failures result in warnings, not errors.
//
// Parameters:
//   - envKey: Environment variable name to read
//   - defaultValue: Value to use if variable not set or validation fails
//   - validator: Validation function (can be nil to skip validation)
//
// Example:
//
//	result := LoadEnvWithFallback(
//	    "STATS_SCHEDULE",
//	    "0 * * * *",
//	    ValidateCronSchedule,
//	)
//	if result.FallbackApplied {
//	    for _, warning := range result.Warnings {
//	        slog.Warn(warning)
//	    }
//	}
//	schedule := result.Value.(string)
//
// Warning format:
//
//	"Invalid {envKey}='{value}': {error}, falling back to default '{default}'"
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)
	if value == "" {
		return loaded(defaultValue)
	}

	if validator != nil {
		if err := validator(value); err != nil {
			return fallback(defaultValue, fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%s'",
				envKey, value, err, defaultValue,
			))
		}
	}

	return loaded(value)
}

// LoadEnvDuration loads a duration value from an environment variable
// with parsing, validation, and automatic fallback to default on failure.
//
// Loading behavior:
//  1. Read environment variable
//  2. If not set or empty: use default value (no warning)
//  3. If set: parse using time.ParseDuration
//  4. If parsing fails: use default value and generate warning
//  5. If parsing succeeds: validate using the provided validator
//  6. If validation fails: use default value and generate warning
//
// Parameters:
//   - envKey: Environment variable name to read
//   - defaultValue: Duration to use if variable not set or parsing/validation fails
//   - validator: Validation function (can be nil to skip validation)
//
// Example:
//
//	result := LoadEnvDuration(
//	    "WORKER_SHUTDOWN_TIMEOUT",
//	    10*time.Second,
//	    ValidatePositiveDuration,
//	)
//	timeout := result.Value.(time.Duration)
//
// Environment variable format:
//   - Go duration string: "30s", "5m", "1h30m", etc.
//   - Must be parseable by time.ParseDuration
//
// Warning format:
//
//	"Invalid {envKey}='{value}': {error}, falling back to default '{default}'"
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return loaded(defaultValue)
	}

	parsedDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback(defaultValue, fmt.Sprintf(
			"Invalid %s='%s': %v, falling back to default '%v'",
			envKey, valueStr, err, defaultValue,
		))
	}

	if validator != nil {
		if err := validator(parsedDuration); err != nil {
			return fallback(defaultValue, fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%v'",
				envKey, valueStr, err, defaultValue,
			))
		}
	}

	return loaded(parsedDuration)
}

// LoadEnvInt loads an integer value from an environment variable
// with parsing, validation, and automatic fallback to default on failure.
//
// Loading behavior:
//  1. Read environment variable
//  2. If not set or empty: use default value (no warning)
//  3. If set: parse as integer using fmt.Sscanf
//  4. If parsing fails: use default value and generate warning
//  5. If parsing succeeds: validate using the provided validator
//  6. If validation fails: use default value and generate warning
//
// Parameters:
//   - envKey: Environment variable name to read
//   - defaultValue: Integer to use if variable not set or parsing/validation fails
//   - validator: Validation function (can be nil to skip validation)
//
// Example:
//
//	result := LoadEnvInt(
//	    "METRICS_PORT",
//	    9090,
//	    func(v int) error { return ValidateIntRange(v, 1024, 65535) },
//	)
//	port := result.Value.(int)
//
// Warning formats:
//   - Parse error: "Invalid {envKey}='{value}': invalid integer format, falling back to default '{default}'"
//   - Validation error: "Invalid {envKey}='{value}': {error}, falling back to default '{default}'"
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return loaded(defaultValue)
	}

	var parsedInt int
	if _, err := fmt.Sscanf(valueStr, "%d", &parsedInt); err != nil {
		return fallback(defaultValue, fmt.Sprintf(
			"Invalid %s='%s': invalid integer format, falling back to default '%d'",
			envKey, valueStr, defaultValue,
		))
	}

	if validator != nil {
		if err := validator(parsedInt); err != nil {
			return fallback(defaultValue, fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%d'",
				envKey, valueStr, err, defaultValue,
			))
		}
	}

	return loaded(parsedInt)
}

// LoadEnvBool loads a boolean value from an environment variable
// with parsing and automatic fallback to default on failure.
//
// Loading behavior:
//  1. Read environment variable
//  2. If not set or empty: use default value (no warning)
//  3. If set: parse as boolean
//     - True values: "1", "t", "T", "true", "TRUE", "True"
//     - False values: "0", "f", "F", "false", "FALSE", "False"
//  4. If parsing fails: use default value and generate warning
//
// Example:
//
//	result := LoadEnvBool("ENABLE_PPROF", false)
//	enablePprof := result.Value.(bool)
//
// Warning format:
//
//	"Invalid {envKey}='{value}': invalid boolean format, expected 'true' or 'false', falling back to default '{default}'"
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return loaded(defaultValue)
	}

	var parsedBool bool
	switch valueStr {
	case "1", "t", "T", "true", "TRUE", "True":
		parsedBool = true
	case "0", "f", "F", "false", "FALSE", "False":
		parsedBool = false
	default:
		return fallback(defaultValue, fmt.Sprintf(
			"Invalid %s='%s': invalid boolean format, expected 'true' or 'false', falling back to default '%t'",
			envKey, valueStr, defaultValue,
		))
	}

	return loaded(parsedBool)
}
