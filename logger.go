package vnrag

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with retrieval-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRequestID tags every record with a request id.
func (l *Logger) WithRequestID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("request_id", id),
	}
}

// WithComponent tags every record with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", name),
	}
}

// LogRetrieve logs a finished retrieval.
func (l *Logger) LogRetrieve(ctx context.Context, filterKey string, k, results int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "retrieval failed",
			"filter", filterKey,
			"k", k,
			"duration", duration,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "retrieval completed",
			"filter", filterKey,
			"k", k,
			"results", results,
			"duration", duration,
		)
	}
}

// LogEmbed logs the outcome of a query embedding.
func (l *Logger) LogEmbed(ctx context.Context, dimension int, duration time.Duration) {
	if dimension == 0 {
		l.WarnContext(ctx, "query embedding unavailable",
			"duration", duration,
		)
	} else {
		l.DebugContext(ctx, "query embedded",
			"dimension", dimension,
			"duration", duration,
		)
	}
}

// LogLoad logs the knowledge corpus being made available.
func (l *Logger) LogLoad(ctx context.Context, passages int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "knowledge load failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "knowledge available",
			"passages", passages,
		)
	}
}

// LogIndexBuild logs an index lookup for a filter subset.
func (l *Logger) LogIndexBuild(ctx context.Context, key string, kind string, vectors int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index unavailable",
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "index ready",
			"key", key,
			"kind", kind,
			"vectors", vectors,
		)
	}
}
