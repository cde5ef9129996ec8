package log

import (
	"log/slog"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[Logger]

// SetDefaultLogger installs logger as the process default and points slog's
// default at the same handler, so third-party slog output lands in one stream.
// A nil logger is ignored.
func SetDefaultLogger(logger *Logger) {
	if logger == nil {
		return
	}
	defaultLogger.Store(logger)
	slog.SetDefault(logger.slog)
}

// DefaultLogger returns the process default, creating a Default() logger on first use.
func DefaultLogger() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := Default()
	if defaultLogger.CompareAndSwap(nil, l) {
		slog.SetDefault(l.slog)
		return l
	}
	return defaultLogger.Load()
}
