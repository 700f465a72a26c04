package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidateCronSchedule validates a cron expression using the robfig/cron/v3
// parser, the same parser the worker scheduler runs the expression with.
//
// The cron expression must follow the standard five-field format:
//   - "minute hour day month weekday"
//   - Example: "0 * * * *" (top of every hour)
//   - Example: "*/15 * * * *" (every 15 minutes)
//   - Example: "30 9 * * 1-5" (weekdays at 9:30)
//
// Parameters:
//   - schedule: Cron expression to validate
//
// Returns:
//   - error: nil if valid, descriptive error otherwise
//
// Example:
//
//	err := ValidateCronSchedule("0 * * * *")
//	if err != nil {
//	    slog.Error("Invalid stats schedule", "error", err)
//	}
//
// Validation tool: https://crontab.guru/
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("invalid cron schedule: cannot be empty")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	return nil
}

// ValidateTimezone validates a timezone string by attempting to load it
// with time.LoadLocation.
//
// The timezone must be a valid IANA timezone name:
//   - Example: "UTC"
//   - Example: "America/New_York"
//   - Example: "Asia/Tokyo"
//
// Loading depends on timezone data being available on the system; a valid
// name can still fail in a container image without the tzdata package.
//
// Parameters:
//   - timezone: IANA timezone name to validate
//
// Returns:
//   - error: nil if valid and loadable, descriptive error otherwise
//
// Common issues:
//   - Missing tzdata package in the container image
//   - Typo in timezone name
//   - Using a UTC offset instead of an IANA name (e.g., "+09:00" instead of "Asia/Tokyo")
func ValidateTimezone(timezone string) error {
	if timezone == "" {
		return fmt.Errorf("invalid timezone: cannot be empty")
	}

	_, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", timezone, err)
	}

	return nil
}

// ValidateDuration validates that a duration is within a specified range.
//
// Validation rules:
//   - duration must be >= min (inclusive)
//   - duration must be <= max (inclusive)
//   - min must be <= max (checked internally)
//
// Example:
//
//	// Shutdown grace between 1s and 5m
//	err := ValidateDuration(10*time.Second, 1*time.Second, 5*time.Minute)
//	if err != nil {
//	    slog.Error("Invalid shutdown timeout", "error", err)
//	}
func ValidateDuration(duration, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	}

	if duration < min {
		return fmt.Errorf("duration %v is below minimum %v", duration, min)
	}

	if duration > max {
		return fmt.Errorf("duration %v exceeds maximum %v", duration, max)
	}

	return nil
}

// ValidateIntRange validates that an integer value is within a specified range.
//
// Validation rules:
//   - value must be >= min (inclusive)
//   - value must be <= max (inclusive)
//   - min must be <= max (checked internally)
//
// Example:
//
//	// Listen ports must be outside the privileged range
//	err := ValidateIntRange(9090, 1024, 65535)
//	if err != nil {
//	    slog.Error("Invalid metrics port", "error", err)
//	}
func ValidateIntRange(value, min, max int) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%d) cannot be greater than max (%d)", min, max)
	}

	if value < min {
		return fmt.Errorf("value %d is below minimum %d", value, min)
	}

	if value > max {
		return fmt.Errorf("value %d exceeds maximum %d", value, max)
	}

	return nil
}

// ValidatePositiveDuration validates that a duration is strictly positive.
// This is the common validation for timeouts and intervals where zero
// would mean "hang forever" or "spin".
//
// Example:
//
//	err := ValidatePositiveDuration(10 * time.Second)
//	if err != nil {
//	    slog.Error("Invalid timeout", "error", err)
//	}
func ValidatePositiveDuration(duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", duration)
	}

	return nil
}
