// Package log provides logging functionality for quadlet-sync.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger defines the interface for logging operations.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// With returns a Logger that always carries the given key/value pairs.
	With(args ...any) Logger
}

// Options controls handler construction.
type Options struct {
	Verbose bool
	// Format is "text" (default) or "json".
	Format string
	Output io.Writer
}

// SlogAdapter wraps slog.Logger to implement our Logger interface.
type SlogAdapter struct {
	logger *slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) {
	s.logger.Debug(msg, args...)
}

// Info logs an info message.
func (s *SlogAdapter) Info(msg string, args ...any) {
	s.logger.Info(msg, args...)
}

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)
}

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) {
	s.logger.Error(msg, args...)
}

// With returns a child logger carrying args on every record.
func (s *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{logger: s.logger.With(args...)}
}

// NewLogger creates a new text logger on stderr with the specified verbosity.
func NewLogger(verbose bool) Logger {
	return NewLoggerWithOptions(Options{Verbose: verbose})
}

// NewLoggerWithOptions creates a logger from explicit options.
func NewLoggerWithOptions(o Options) Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}
	if o.Verbose {
		opts.Level = slog.LevelDebug
	}

	out := o.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	switch strings.ToLower(o.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}

	return &SlogAdapter{logger: slog.New(handler)}
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &SlogAdapter{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

var defaultLogger Logger

// GetLogger returns the process-wide logger, creating a quiet one if Init was never called.
func GetLogger() Logger {
	if defaultLogger == nil {
		defaultLogger = NewLogger(false)
	}
	return defaultLogger
}

// Init initializes the default logger.
// This function should be called once at application startup.
func Init(o Options) {
	defaultLogger = NewLoggerWithOptions(o)
}

// NewSlogAdapter creates a Logger from an slog.Logger.
func NewSlogAdapter(slogLogger *slog.Logger) Logger {
	return &SlogAdapter{logger: slogLogger}
}
