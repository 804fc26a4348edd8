package rxgo

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with rxgo-specific context.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithEngine adds the engine name to the logger.
func (l *Logger) WithEngine(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("engine", name),
	}
}

// WithFlags adds a flags field to the logger.
func (l *Logger) WithFlags(flags Flags) *Logger {
	return &Logger{
		Logger: l.Logger.With("flags", flags.String()),
	}
}

// WithMode adds the machine mode to the logger.
func (l *Logger) WithMode(mode Mode) *Logger {
	return &Logger{
		Logger: l.Logger.With("mode", mode.String()),
	}
}

// LogCacheInit logs a cache allocation and initialization.
func (l *Logger) LogCacheInit(ctx context.Context, size int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "cache init failed",
			"size", size,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "cache initialized",
			"size", size,
			"elapsed", elapsed,
		)
	}
}

// LogDatasetBuild logs a complete dataset build.
func (l *Logger) LogDatasetBuild(ctx context.Context, items uint64, workers int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "dataset build failed",
			"items", items,
			"workers", workers,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "dataset built",
			"items", items,
			"workers", workers,
			"elapsed", elapsed,
		)
	}
}

// LogPartition logs one worker's partition.
func (l *Logger) LogPartition(ctx context.Context, worker int, p Partition, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "partition failed",
			"worker", worker,
			"start", p.Start,
			"len", p.Len,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "partition initialized",
			"worker", worker,
			"start", p.Start,
			"len", p.Len,
			"elapsed", elapsed,
		)
	}
}

// LogSnapshot logs a snapshot load or save.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot "+op+" failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot "+op+" completed",
			"name", name,
			"bytes", size,
		)
	}
}

// LogRelease logs a rejected or failed release of native memory.
func (l *Logger) LogRelease(ctx context.Context, what string, err error) {
	if err != nil {
		l.WarnContext(ctx, what+" release rejected",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, what+" released")
	}
}
