// logging.go: Pluggable logging system for the bridge
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// loggerContextKey is a custom type for context keys to avoid collisions
type loggerContextKey string

const (
	loggerKey loggerContextKey = "logger"
)

// Logger defines the pluggable logging interface for the bridge.
//
// The interface has no external dependencies so that host applications can
// plug in any logging framework. Arguments are key-value pairs.
//
// Example usage:
//
//	host := gobridge.NewHost(native, gobridge.WithLogger(myLogger))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, args ...any)

	// Info logs an info message with optional key-value pairs
	Info(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs
	Warn(msg string, args ...any)

	// Error logs an error message with optional key-value pairs
	Error(msg string, args ...any)

	// With returns a new logger with persistent context key-value pairs
	With(args ...any) Logger
}

// NewLogger creates a Logger from supported logger types.
//
// Supported types:
//   - Logger interface: used directly
//   - *slog.Logger: wrapped in a SlogLogger
//   - nil: returns NoOpLogger for silent operation
//   - unsupported types: panic with a descriptive message
func NewLogger(logger any) Logger {
	switch l := logger.(type) {
	case Logger:
		return l
	case *slog.Logger:
		return &SlogLogger{logger: l}
	case nil:
		return NewNoOpLogger()
	default:
		panic("unsupported logger type: expected Logger interface, *slog.Logger or nil")
	}
}

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a new no-operation logger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) Debug(msg string, args ...any) {}
func (n *NoOpLogger) Info(msg string, args ...any)  {}
func (n *NoOpLogger) Warn(msg string, args ...any)  {}
func (n *NoOpLogger) Error(msg string, args ...any) {}

// With implements Logger interface (no-op)
func (n *NoOpLogger) With(args ...any) Logger {
	return n
}

// SlogLogger adapts a log/slog logger to the Logger interface.
//
// When created with NewSlogLogger the minimum level is held in a LevelVar,
// so the config watcher can change verbosity without rebuilding handlers.
type SlogLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// NewSlogLogger creates a text-handler logger writing to w at the given level.
func NewSlogLogger(w io.Writer, level slog.Level) *SlogLogger {
	lv := new(slog.LevelVar)
	lv.Set(level)
	return &SlogLogger{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})),
		level:  lv,
	}
}

func (s *SlogLogger) Debug(msg string, args ...any) { s.logger.Debug(msg, args...) }
func (s *SlogLogger) Info(msg string, args ...any)  { s.logger.Info(msg, args...) }
func (s *SlogLogger) Warn(msg string, args ...any)  { s.logger.Warn(msg, args...) }
func (s *SlogLogger) Error(msg string, args ...any) { s.logger.Error(msg, args...) }

// With implements Logger interface. The level variable is shared with the parent.
func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{logger: s.logger.With(args...), level: s.level}
}

// SetLevel changes the minimum level. It is a no-op for loggers wrapped
// through NewLogger, which do not own their handler.
func (s *SlogLogger) SetLevel(level slog.Level) {
	if s.level != nil {
		s.level.Set(level)
	}
}

// Level returns the current minimum level.
func (s *SlogLogger) Level() slog.Level {
	if s.level == nil {
		return slog.LevelInfo
	}
	return s.level.Level()
}

// ParseLogLevel maps a configuration string to a slog level.
func ParseLogLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// levelSetter is implemented by loggers whose verbosity can change at runtime.
type levelSetter interface {
	SetLevel(level slog.Level)
}

// TestLogger captures log messages for assertions. Loggers derived with
// With record into the same message list, with their fields prepended.
type TestLogger struct {
	mu       sync.RWMutex
	Messages []TestLogMessage

	root   *TestLogger
	fields []any
}

// TestLogMessage represents a captured log message for testing.
type TestLogMessage struct {
	Level   string
	Message string
	Args    []any
}

// NewTestLogger creates a new test logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{
		Messages: make([]TestLogMessage, 0),
	}
}

func (t *TestLogger) record(level, msg string, args []any) {
	target := t
	if t.root != nil {
		target = t.root
	}
	all := make([]any, 0, len(t.fields)+len(args))
	all = append(all, t.fields...)
	all = append(all, args...)

	target.mu.Lock()
	defer target.mu.Unlock()
	target.Messages = append(target.Messages, TestLogMessage{
		Level:   level,
		Message: msg,
		Args:    all,
	})
}

func (t *TestLogger) Debug(msg string, args ...any) { t.record("DEBUG", msg, args) }
func (t *TestLogger) Info(msg string, args ...any)  { t.record("INFO", msg, args) }
func (t *TestLogger) Warn(msg string, args ...any)  { t.record("WARN", msg, args) }
func (t *TestLogger) Error(msg string, args ...any) { t.record("ERROR", msg, args) }

// With implements Logger interface.
func (t *TestLogger) With(args ...any) Logger {
	root := t
	if t.root != nil {
		root = t.root
	}
	fields := make([]any, 0, len(t.fields)+len(args))
	fields = append(fields, t.fields...)
	fields = append(fields, args...)
	return &TestLogger{root: root, fields: fields}
}

func (t *TestLogger) sink() *TestLogger {
	if t.root != nil {
		return t.root
	}
	return t
}

// Snapshot returns a copy of the captured messages.
func (t *TestLogger) Snapshot() []TestLogMessage {
	s := t.sink()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TestLogMessage, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// HasMessage checks if the logger captured a message with exactly this text.
func (t *TestLogger) HasMessage(level, message string) bool {
	for _, msg := range t.Snapshot() {
		if msg.Level == level && msg.Message == message {
			return true
		}
	}
	return false
}

// HasMessageContaining checks if a message at level contains the substring.
func (t *TestLogger) HasMessageContaining(level, substr string) bool {
	for _, msg := range t.Snapshot() {
		if msg.Level == level && strings.Contains(msg.Message, substr) {
			return true
		}
	}
	return false
}

// Count returns how many messages were captured at level.
func (t *TestLogger) Count(level string) int {
	n := 0
	for _, msg := range t.Snapshot() {
		if msg.Level == level {
			n++
		}
	}
	return n
}

// Clear removes all captured messages.
func (t *TestLogger) Clear() {
	s := t.sink()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = s.Messages[:0]
}

// DefaultLogger returns the logger used when none is configured.
func DefaultLogger() Logger {
	return NewNoOpLogger()
}

// LoggerFromContext extracts a logger from context if available.
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return DefaultLogger()
}

// ContextWithLogger adds a logger to the context.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}
