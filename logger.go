package dbow2

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with retrieval-specific helpers, so the
// subsystems log the same field names for the same things.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler means
// text logs to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger emitting JSON logs to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger emitting human-readable logs to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards everything.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// WithVocabulary tags the logger with vocabulary shape fields.
func (l *Logger) WithVocabulary(k, depth, words int) *Logger {
	return &Logger{Logger: l.Logger.With("k", k, "depth", depth, "words", words)}
}

// LogTrain logs one vocabulary training run.
func (l *Logger) LogTrain(ctx context.Context, images, words int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "vocabulary training failed",
			"images", images,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "vocabulary trained",
		"images", images,
		"words", words,
		"elapsed", elapsed,
	)
}

// LogAdd logs one database insertion.
func (l *Logger) LogAdd(ctx context.Context, id EntryID, features int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"features", features,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "entry added",
		"id", uint32(id),
		"features", features,
	)
}

// LogQuery logs one database query.
func (l *Logger) LogQuery(ctx context.Context, results int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed", "error", err)
		return
	}
	l.DebugContext(ctx, "query completed",
		"results", results,
		"elapsed", elapsed,
	)
}

// LogSave logs one persistence write.
func (l *Logger) LogSave(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "saved", "name", name)
}

// LogLoad logs one persistence read.
func (l *Logger) LogLoad(ctx context.Context, name string, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "loaded",
		"name", name,
		"elapsed", elapsed,
	)
}
