package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
	// OutputKey is the context key for the writer behind that logger
	OutputKey ContextKey = "logger_output"
)

// ConsoleWriter returns the human-readable writer used by New.
func ConsoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
}

// New creates a new structured logger with default configuration
func New() zerolog.Logger {
	return zerolog.New(ConsoleWriter()).With().Timestamp().Caller().Logger()
}

// NewWithLevel creates a console logger filtered at the named level.
// Unknown or empty names fall back to info.
func NewWithLevel(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return New().Level(lvl)
}

// NewWithWriter creates a new structured logger with a custom writer
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// Tee returns the logger from ctx writing to both its output and w.
// Context fields and level are preserved. When ctx holds a logger stored
// without WithOutput its writer is unknown and only w receives events.
func Tee(ctx context.Context, w io.Writer) zerolog.Logger {
	log := FromContext(ctx)
	if out, ok := ctx.Value(OutputKey).(io.Writer); ok {
		return log.Output(zerolog.MultiLevelWriter(out, w))
	}
	if _, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return log.Output(w)
	}
	return log.Output(zerolog.MultiLevelWriter(ConsoleWriter(), w))
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithOutput adds log, writing to out, to the context and records out so
// Tee can extend it.
func WithOutput(ctx context.Context, log zerolog.Logger, out io.Writer) context.Context {
	ctx = context.WithValue(ctx, OutputKey, out)
	return WithContext(ctx, log.Output(out))
}

// FromContext retrieves the logger from the context or returns a default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return New()
}

// WithFields adds structured fields to a logger
func WithFields(logger zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	ctx := logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}
