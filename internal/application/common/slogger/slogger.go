// Package slogger provides context-aware structured logging for the sync engine.
// It is a thin facade over log/slog so call sites stay one-liners and the
// correlation id travels through context instead of being threaded by hand.
package slogger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Fields carries structured key-value pairs for a log record.
type Fields = map[string]any

type correlationIDKey struct{}

var (
	defaultLogger *slog.Logger //nolint:gochecknoglobals // Singleton logging infrastructure
	loggerOnce    sync.Once    //nolint:gochecknoglobals // Thread-safe singleton initialization
	loggerMu      sync.RWMutex //nolint:gochecknoglobals // Guards replacement via Configure
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		loggerMu.Lock()
		if defaultLogger == nil {
			defaultLogger = newLogger("info", "json")
		}
		loggerMu.Unlock()
	})
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return defaultLogger
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// Configure replaces the global logger with one using the given level and format.
func Configure(level, format string) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = newLogger(level, format)
}

// WithCorrelationID returns a context carrying a correlation id that will be
// attached to every log record written with that context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID extracts the correlation id from the context, if present.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

func log(ctx context.Context, level slog.Level, msg string, fields Fields) {
	attrs := make([]any, 0, 2*(len(fields)+1))
	if id := CorrelationID(ctx); id != "" {
		attrs = append(attrs, "correlation_id", id)
	}
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	getLogger().Log(ctx, level, msg, attrs...)
}

// Debug logs a debug message with context.
func Debug(ctx context.Context, msg string, fields Fields) {
	log(ctx, slog.LevelDebug, msg, fields)
}

// Info logs an info message with context.
func Info(ctx context.Context, msg string, fields Fields) {
	log(ctx, slog.LevelInfo, msg, fields)
}

// Warn logs a warning message with context.
func Warn(ctx context.Context, msg string, fields Fields) {
	log(ctx, slog.LevelWarn, msg, fields)
}

// Error logs an error message with context.
func Error(ctx context.Context, msg string, fields Fields) {
	log(ctx, slog.LevelError, msg, fields)
}

// ErrorWithError logs an error message with an error object and context.
func ErrorWithError(ctx context.Context, err error, msg string, fields Fields) {
	merged := Fields{"error": err.Error()}
	for k, v := range fields {
		merged[k] = v
	}
	log(ctx, slog.LevelError, msg, merged)
}

// No-context fallbacks for startup/shutdown paths.

// InfoNoCtx logs an info message without context.
func InfoNoCtx(msg string, fields Fields) {
	log(context.Background(), slog.LevelInfo, msg, fields)
}

// WarnNoCtx logs a warning message without context.
func WarnNoCtx(msg string, fields Fields) {
	log(context.Background(), slog.LevelWarn, msg, fields)
}

// ErrorNoCtx logs an error message without context.
func ErrorNoCtx(msg string, fields Fields) {
	log(context.Background(), slog.LevelError, msg, fields)
}

// Field creates a single-field Fields map.
func Field(key string, value any) Fields {
	return Fields{key: value}
}

// Fields2 creates a Fields map with two key-value pairs.
func Fields2(k1 string, v1 any, k2 string, v2 any) Fields {
	return Fields{k1: v1, k2: v2}
}

// Fields3 creates a Fields map with three key-value pairs.
func Fields3(k1 string, v1 any, k2 string, v2 any, k3 string, v3 any) Fields {
	return Fields{k1: v1, k2: v2, k3: v3}
}
