// Package logging builds the slog loggers used across the fixture generator.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Channel names. The human channel carries readable multi-line reports, the
// testing channel carries one-line records meant for grepping CI output.
const (
	ChannelFixtures = "fixtures"
	ChannelTesting  = "fixtures.testing"
)

// New creates a logger writing to w. It does not touch slog.Default, so tests
// can build isolated instances.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a config string onto a slog level. Unknown values mean info.
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

// Channel returns a child logger tagged with the channel name.
func Channel(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("logger", name)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
