// Package logger provides the structured logger shared by every moodwatch command.
//
// It wraps log/slog with a text handler. The level comes from MOODWATCH_LOG_LEVEL
// (debug, info, warn, error) and can be raised to debug with SetVerbose. While the
// live TUI owns the terminal, output is redirected to a file with SetOutput.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu     sync.RWMutex
	level  = new(slog.LevelVar)
	logger *slog.Logger
)

func init() {
	level.Set(parseLevel(os.Getenv("MOODWATCH_LOG_LEVEL")))
	logger = newLogger(os.Stderr)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Default returns the current process-wide logger.
func Default() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetOutput replaces the destination of all subsequent records.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

// SetVerbose enables debug records when verbose is true.
func SetVerbose(verbose bool) {
	if verbose {
		level.Set(slog.LevelDebug)
	}
}

// Debug logs at debug level with key-value attributes.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }

// Info logs at info level with key-value attributes.
func Info(msg string, args ...any) { Default().Info(msg, args...) }

// Warn logs at warn level with key-value attributes.
func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

// Error logs at error level with key-value attributes.
func Error(msg string, args ...any) { Default().Error(msg, args...) }

// ErrorContext logs at error level, carrying ctx to the handler.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	Default().ErrorContext(ctx, msg, args...)
}
