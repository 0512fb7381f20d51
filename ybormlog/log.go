// Package ybormlog centralizes the module's logging conventions: one
// environment-driven slog handler, consulted sparingly (only the
// execution-adjacent packages log anything at all).
package ybormlog

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures slog based on the YBORM_LOG_LEVEL environment variable.
// Supported levels: debug, info, warn, error. Unset leaves slog's default
// handler untouched; an unrecognized value installs the handler at info
// level.
func Init() {
	levelStr, ok := os.LookupEnv("YBORM_LOG_LEVEL")
	if !ok {
		return
	}

	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// Default returns slog.Default(), used as the fallback logger by Session
// when it is given a nil *slog.Logger.
func Default() *slog.Logger {
	return slog.Default()
}
