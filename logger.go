package quantcs

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with quantcs-specific context.
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

// WithRun tags the logger with a run identifier.
func (l *Logger) WithRun(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run", id),
	}
}

// WithDimensions adds the problem size.
func (l *Logger) WithDimensions(m, n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("m", m, "n", n),
	}
}

// WithPrior adds the prior family name.
func (l *Logger) WithPrior(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("prior", name),
	}
}

// WithQuantizer adds the quantizer resolution.
func (l *Logger) WithQuantizer(levels int) *Logger {
	return &Logger{
		Logger: l.Logger.With("levels", levels),
	}
}

// LogReconstruct logs a finished reconstruction.
func (l *Logger) LogReconstruct(ctx context.Context, iterations int, state string, mse float64, err error) {
	if err != nil {
		l.WarnContext(ctx, "reconstruction ended without success",
			"iterations", iterations,
			"state", state,
			"mse", mse,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "reconstruction completed",
			"iterations", iterations,
			"state", state,
			"mse", mse,
		)
	}
}

// LogPredict logs a finished prediction.
func (l *Logger) LogPredict(ctx context.Context, iterations int, state string, mse float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "prediction failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "prediction completed",
			"iterations", iterations,
			"state", state,
			"mse", mse,
		)
	}
}

// LogRound logs one iteration. verbose raises it from Debug to Info.
func (l *Logger) LogRound(ctx context.Context, kind string, round int, mse, change float64, verbose bool) {
	level := slog.LevelDebug
	if verbose {
		level = slog.LevelInfo
	}
	l.Log(ctx, level, "round",
		"kind", kind,
		"round", round,
		"mse", mse,
		"change", change,
	)
}

// LogDegenerateEM logs discarded EM updates of a run.
func (l *Logger) LogDegenerateEM(ctx context.Context, prior string, count int) {
	l.WarnContext(ctx, "EM updates discarded",
		"prior", prior,
		"count", count,
	)
}
