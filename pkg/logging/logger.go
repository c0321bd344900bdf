package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "requestID"

// LevelTrace is below debug; used for per-request slice bookkeeping.
const LevelTrace = slog.LevelDebug - 4

var (
	logger *slog.Logger
	level  = new(slog.LevelVar)
)

func init() {
	logger = slog.New(NewCompactHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// Setup replaces the process logger. Output goes to w in compact form, or as
// JSON when jsonOutput is set.
func Setup(w io.Writer, l slog.Level, jsonOutput bool) {
	level.Set(l)
	opts := &slog.HandlerOptions{Level: level}
	if jsonOutput {
		logger = slog.New(slog.NewJSONHandler(w, opts))
		return
	}
	logger = slog.New(NewCompactHandler(w, opts))
}

// SetLevel changes the minimum level of the current logger.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// CurrentLevel returns the minimum level of the current logger.
func CurrentLevel() slog.Level {
	return level.Level()
}

// ParseLevel maps a verbosity name or a -v count to a level. An explicit
// name wins over the count.
func ParseLevel(verbosity string, verboseCount int) slog.Level {
	switch strings.ToLower(strings.TrimSpace(verbosity)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	switch {
	case verboseCount >= 2:
		return LevelTrace
	case verboseCount == 1:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Logger exposes the current logger for packages that want a child logger.
func Logger() *slog.Logger {
	return logger
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func withRequestID(ctx context.Context, args []any) []any {
	requestID := GetRequestID(ctx)
	if requestID != "" {
		return append([]any{"requestID", requestID}, args...)
	}
	return args
}

// Trace logs at TRACE level (very verbose, debug-time only)
func Trace(msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// TraceContext logs at TRACE level with context
func TraceContext(ctx context.Context, msg string, args ...any) {
	logger.Log(ctx, LevelTrace, msg, withRequestID(ctx, args)...)
}

// Debug logs at DEBUG level (internal component behavior)
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	logger.DebugContext(ctx, msg, withRequestID(ctx, args)...)
}

// Info logs at INFO level (user-facing operations)
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	logger.InfoContext(ctx, msg, withRequestID(ctx, args)...)
}

// Warn logs at WARN level (should be monitored)
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	logger.WarnContext(ctx, msg, withRequestID(ctx, args)...)
}

// Error logs at ERROR level
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	logger.ErrorContext(ctx, msg, withRequestID(ctx, args)...)
}

// Fatal logs at ERROR level and exits
func Fatal(msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}
