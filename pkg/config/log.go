package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process logger. Records go to the configured log file
// when set, otherwise to fallback; a nil fallback discards them. The returned
// close function releases the file.
func NewLogger(cfg Config, fallback io.Writer) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }
	level := ParseLevel(cfg.LogLevel())

	if path := cfg.LogFile(); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, noop, fmt.Errorf("config: open log file: %w", err)
		}
		return slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})), f.Close, nil
	}
	if fallback == nil {
		return slog.New(slog.DiscardHandler), noop, nil
	}
	return slog.New(slog.NewTextHandler(fallback, &slog.HandlerOptions{Level: level})), noop, nil
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
