package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	occerrors "github.com/YuminosukeSato/occusim/pkg/errors"
)

const (
	// ErrAttrKey is the field name used for error values.
	ErrAttrKey = "error"

	// FormatJSON and FormatConsole select the zerolog output encoding.
	FormatJSON    = "json"
	FormatConsole = "console"
)

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog logger.
func NewZerologLogger(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) {
	emit(l.zl.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) {
	emit(l.zl.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) {
	emit(l.zl.Warn(), msg, fields)
}

// Error implements Logger.Error.
func (l *ZerologLogger) Error(msg string, fields ...any) {
	emit(l.zl.Error(), msg, fields)
}

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			ctx = ctx.AnErr(ErrAttrKey, err)
		}
		fields = fields[1:]
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			ctx = ctx.AnErr(key, v)
		case zerolog.LogObjectMarshaler:
			ctx = ctx.Object(key, v)
		default:
			ctx = ctx.Interface(key, v)
		}
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	zlevel := toZerologLevel(level)
	return zlevel >= l.zl.GetLevel() && zlevel >= zerolog.GlobalLevel()
}

// emit appends key/value pairs to the event. A leading unpaired error is
// attached under ErrAttrKey. Errors carrying a cockroachdb stack also get a
// StacktraceKey field. A nil event (level disabled) is a no-op.
func emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			e = appendError(e, ErrAttrKey, err)
		}
		fields = fields[1:]
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			e = appendError(e, key, v)
		case zerolog.LogObjectMarshaler:
			e = e.Object(key, v)
		case time.Duration:
			e = e.Dur(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

func appendError(e *zerolog.Event, key string, err error) *zerolog.Event {
	e = e.AnErr(key, err)
	if st := extractStacktrace(err); st != "" {
		e = e.Str(StacktraceKey, st)
	}
	return e
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

// ZerologProvider implements LoggerProvider and hands out component loggers
// derived from a single root zerolog logger.
type ZerologProvider struct {
	mu   sync.RWMutex
	root zerolog.Logger
}

// NewZerologProvider creates a provider writing to w in the given format.
func NewZerologProvider(w io.Writer, level Level, format string) *ZerologProvider {
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	root := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologProvider{root: root}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &ZerologLogger{zl: p.root}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &ZerologLogger{zl: p.root.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.root = p.root.Level(toZerologLevel(level))
}

// warn routes library warnings (ConvergenceWarning etc.) to the root logger.
func (p *ZerologProvider) warn(w error) {
	p.mu.RLock()
	zl := p.root
	p.mu.RUnlock()

	ev := zl.Warn().Str(ComponentKey, "warnings")
	if m, ok := w.(zerolog.LogObjectMarshaler); ok {
		ev = ev.Object("warning", m)
	}
	ev.Msg(w.Error())
}

var (
	providerMu      sync.RWMutex
	defaultProvider LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo, FormatJSON)
)

// SetupLogger configures the process-wide logger. level is one of
// "debug", "info", "warn", "error"; format is "json" or "console".
// Library warnings are routed to the same output.
func SetupLogger(level, format string) error {
	return SetupLoggerWithWriter(os.Stderr, level, format)
}

// SetupLoggerWithWriter is SetupLogger with an explicit destination.
func SetupLoggerWithWriter(w io.Writer, level, format string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatConsole {
		return occerrors.NewValidationError("log_format", "must be 'json' or 'console'", format)
	}

	p := NewZerologProvider(w, lvl, format)
	SetProvider(p)
	occerrors.SetZerologWarnFunc(p.warn)
	return nil
}

// SetProvider replaces the process-wide provider (tests inject a TestLoggerProvider).
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	defaultProvider = p
}

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLogger()
}

// GetLoggerWithName returns the process-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLoggerWithName(name)
}

// ParseLevel converts a level name to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, occerrors.NewValidationError("log_level", "must be one of debug, info, warn, error", level)
	}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
