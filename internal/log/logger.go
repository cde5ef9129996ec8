package log

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
)

// Logger provides structured logging with slog
type Logger struct {
	slog   *slog.Logger
	config Config
}

// New creates a new Logger with the given configuration
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = DefaultConfig().Output
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(config.Output, opts)
	} else {
		handler = slog.NewTextHandler(config.Output, opts)
	}

	l := slog.New(handler)
	if config.ServiceName != "" {
		l = l.With("service", config.ServiceName, "version", config.ServiceVersion)
	}

	return &Logger{slog: l, config: config}
}

// Default creates a logger with default configuration
func Default() *Logger {
	return New(DefaultConfig())
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{slog: slog.New(slog.NewTextHandler(io.Discard, nil)), config: DefaultConfig()}
}

// With returns a new Logger with the given attributes added to all log entries
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), config: l.config}
}

// WithGroup returns a new Logger with a group name that prefixes all attributes
func (l *Logger) WithGroup(name string) *Logger {
	return &Logger{slog: l.slog.WithGroup(name), config: l.config}
}

// kinded is satisfied by provider failures.
type kinded interface {
	FailureKind() string
}

// WithError adds error details to the logger.
// Coded errors contribute error_code and suggestions; provider failures contribute failure_kind.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	args := []any{"error", err.Error()}

	var pe *errors.PlannerError
	if stderrors.As(err, &pe) {
		args = []any{"error", pe.Message, "error_code", string(pe.Code)}
		if len(pe.Suggestions) > 0 {
			args = append(args, "suggestions", pe.Suggestions)
		}
		if pe.Cause != nil {
			args = append(args, "cause", pe.Cause.Error())
		}
	}

	var k kinded
	if stderrors.As(err, &k) {
		args = append(args, "failure_kind", k.FailureKind())
	}

	return l.With(args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// DebugContext logs a debug message with context
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slog.DebugContext(ctx, msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// InfoContext logs an info message with context
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slog.InfoContext(ctx, msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// WarnContext logs a warning message with context
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slog.WarnContext(ctx, msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// ErrorContext logs an error message with context
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slog.ErrorContext(ctx, msg, args...)
}

// LogError logs err at ERROR with its coded details expanded.
func (l *Logger) LogError(ctx context.Context, msg string, err error) {
	if err == nil {
		return
	}
	l.WithError(err).ErrorContext(ctx, msg)
}

// Enabled returns whether the logger is enabled for the given level
func (l *Logger) Enabled(ctx context.Context, level Level) bool {
	return l.slog.Enabled(ctx, level.slogLevel())
}

// Slog exposes the underlying *slog.Logger for libraries that accept one.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Config returns the logger configuration
func (l *Logger) Config() Config {
	return l.config
}
