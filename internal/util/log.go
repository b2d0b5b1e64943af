// Package util provides shared helpers for logging, retries and the
// trading-day calendar.
package util

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Unknown strings map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// NewLogger creates a structured logger on stdout. format is "json"
// (default) or "text".
func NewLogger(level, format string) *slog.Logger {
	return NewLoggerTo(os.Stdout, level, format)
}

// NewLoggerTo is NewLogger with an explicit writer. CLI binaries log to
// stderr so that recommendation lines on stdout stay clean.
func NewLoggerTo(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// SetDefault configures the provided logger as the default slog logger.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}

// Discard returns a logger that drops every record. Used by tests and by
// components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
