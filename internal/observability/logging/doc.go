// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats
//   - Invocation ID propagation
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "toolgate/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started", slog.String("version", "1.0"))
//	}
//
//	func handleInvocation(ctx context.Context) {
//	    logger := logging.WithInvocationID(ctx, slog.Default())
//	    logger.Info("processing invocation")
//	}
package logging
