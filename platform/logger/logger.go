// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithSource returns a logger scoped to a lead source type
func (l *Logger) WithSource(source string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("source", source)),
	}
}

// WithLead returns a logger scoped to a single lead
func (l *Logger) WithLead(leadID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("lead_id", leadID)),
	}
}

// StageFailure logs a per-lead pipeline stage failure
func (l *Logger) StageFailure(stage string, err error) {
	l.Error("lead stage failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}

// UpstreamError logs a failed call to the source API or the CRM
func (l *Logger) UpstreamError(system, operation string, err error) {
	l.Error("upstream_error",
		slog.String("system", system),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// LedgerError logs a ledger I/O failure with a diagnostic
func (l *Logger) LedgerError(operation, path string, err error) {
	l.Error("ledger_error",
		slog.String("operation", operation),
		slog.String("path", path),
		slog.String("error", err.Error()),
	)
}
