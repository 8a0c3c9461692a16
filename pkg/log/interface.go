// Package log provides a structured logging interface for occusim.
//
// The interface is slog-compatible so callers never depend on a concrete
// backend; the default backend is zerolog (see logger.go). Simulation,
// fitting and evaluation code logs through component loggers obtained from
// GetLoggerWithName.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("glm").With(
//	    log.ModelNameKey, "PolynomialGLM",
//	)
//	logger.Info("Fit completed",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 200,
//	    log.IterationKey, 7,
//	)

package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// The interface supports method chaining through the With method, allowing
// for creation of contextual loggers with pre-populated fields.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	//
	// Example:
	//   logger.Debug("IRLS step",
	//       log.IterationKey, 3,
	//       "deviance", 241.7,
	//   )
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	//
	// Example:
	//   logger.Info("Model training completed",
	//       log.DurationMsKey, 5432,
	//       log.LossKey, 0.41,
	//   )
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If an error value is provided as the first field, it is attached as the
	// "error" field together with its stack trace when one is available.
	//
	// Example:
	//   logger.Error("Model training failed",
	//       err,
	//       log.OperationKey, "fit",
	//       log.SamplesKey, 1000,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	//
	// Example:
	//   contextLogger := logger.With(
	//       log.ModelNameKey, "BoostedTrees",
	//       log.EstimatorIDKey, "boost-3",
	//   )
	//   contextLogger.Info("Starting training")
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	// Use it to skip building expensive fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider defines an interface for creating and configuring loggers.
// This interface allows for dependency injection and testing with different
// logger implementations.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger with a specific name/component identifier.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
