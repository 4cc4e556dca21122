package ramble

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/ramblegraph/ramble/graph"
	"github.com/ramblegraph/ramble/walk"
)

// Logger wraps slog.Logger with ramble-specific context.
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

// WithEgo adds an ego vertex field to the logger.
func (l *Logger) WithEgo(ego graph.Vertex) *Logger {
	return &Logger{
		Logger: l.Logger.With("ego", uint32(ego)),
	}
}

// WithSourceRange adds the configured source range to the logger.
func (l *Logger) WithSourceRange(first graph.Vertex, n uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("first_source", uint32(first), "sources", n),
	}
}

// LogWalkStage logs the outcome of the walk simulation stage.
func (l *Logger) LogWalkStage(ctx context.Context, stats walk.Stats, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "walk stage failed",
			"passes", stats.Passes,
			"steps", stats.Steps,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "walk stage completed",
			"passes", stats.Passes,
			"steps", stats.Steps,
			"tracked_visits", stats.TrackedVisits,
			"duration", duration,
		)
	}
}

// LogEgo logs one ego vertex's ranking outcome.
func (l *Logger) LogEgo(ctx context.Context, ego graph.Vertex, recommendations int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "ranking failed",
			"ego", uint32(ego),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "ranking completed",
			"ego", uint32(ego),
			"recommendations", recommendations,
		)
	}
}

// LogProgress logs periodic ranking-stage progress.
func (l *Logger) LogProgress(ctx context.Context, done, total int64, elapsed time.Duration) {
	avg := time.Duration(0)
	if done > 0 {
		avg = elapsed / time.Duration(done)
	}
	l.InfoContext(ctx, "computed recommendations",
		"egos", done,
		"total", total,
		"avg_per_ego", avg,
	)
}
