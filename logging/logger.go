// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer StageflowLogger with contextual
// helpers (pipeline run, stage, component) and domain specific logging
// helpers for bridge calls, retry attempts and circuit transitions.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger defines the minimal logging interface for Stageflow.
// This allows users to provide their own logger implementation or use the
// built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// NoOpLogger discards all log messages. Useful for testing or when logging
// is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// LoggerConfig configures construction of a StageflowLogger.
type LoggerConfig struct {
	Level     slog.Level
	Format    string // json or text
	Output    io.Writer
	AddSource bool
	Component string
	RunID     string
	StageID   string
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: slog.LevelInfo, Format: "json", Output: os.Stdout}
}

// StageflowLogger wraps slog.Logger adding contextual cloning helpers and
// domain convenience methods. It is cheap to copy via the With* methods.
type StageflowLogger struct {
	logger    *slog.Logger
	component string
	runID     string
	stageID   string
}

// NewLogger builds a StageflowLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *StageflowLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &StageflowLogger{logger: slog.New(handler), component: cfg.Component, runID: cfg.RunID, stageID: cfg.StageID}
}

// WithComponent sets the logical component (factory, dispatch, bridge, etc.).
func (l *StageflowLogger) WithComponent(c string) *StageflowLogger {
	nl := *l
	nl.component = c
	return &nl
}

// WithRun attaches pipeline run and stage identifiers.
func (l *StageflowLogger) WithRun(runID, stageID string) *StageflowLogger {
	nl := *l
	nl.runID = runID
	nl.stageID = stageID
	return &nl
}

func (l *StageflowLogger) buildAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 3)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.runID != "" {
		attrs = append(attrs, slog.String("run_id", l.runID))
	}
	if l.stageID != "" {
		attrs = append(attrs, slog.String("stage_id", l.stageID))
	}
	return attrs
}

func (l *StageflowLogger) log(level slog.Level, msg string, args ...any) {
	attrs := l.buildAttrs()
	rec := l.logger
	for _, a := range attrs {
		rec = rec.With(a)
	}
	rec.Log(context.Background(), level, msg, args...)
}

// Debug logs at debug level.
func (l *StageflowLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs at info level.
func (l *StageflowLogger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs at warn level.
func (l *StageflowLogger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs at error level.
func (l *StageflowLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

// LogBridgeCall records execution details for one bridge invocation.
func (l *StageflowLogger) LogBridgeCall(agentType, backend string, dur time.Duration, success bool, errMsg string) {
	args := []any{"agent_type", agentType, "backend", backend, "duration", dur, "success", success}
	if errMsg != "" {
		args = append(args, "error", errMsg)
	}
	if success {
		l.Info("Bridge execution completed", args...)
		return
	}
	l.Error("Bridge execution failed", args...)
}

// LogRetryAttempt records one attempt of a retried operation.
func (l *StageflowLogger) LogRetryAttempt(operation string, attempt int, delay time.Duration, err error) {
	args := []any{"operation", operation, "attempt", attempt, "next_delay", delay}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.Debug("Retry attempt finished", args...)
}

// LogCircuitTransition records a circuit breaker state change.
func (l *StageflowLogger) LogCircuitTransition(name, from, to string, failures int) {
	l.Warn("Circuit breaker state changed", "breaker", name, "from", from, "to", to, "failures", failures)
}
