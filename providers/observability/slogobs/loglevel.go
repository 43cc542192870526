package slogobs

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLogLevel maps a level name to its slog.Level. Unknown names fall
// back to Info.
func ParseLogLevel(s string) slog.Level {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "trace":
		return LevelTrace
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

// GetLogLevelFromEnv reads MANIFOLD_LOG_LEVEL, then LOG_LEVEL, defaulting
// to Info.
func GetLogLevelFromEnv() slog.Level {
	if level := os.Getenv("MANIFOLD_LOG_LEVEL"); level != "" {
		return ParseLogLevel(level)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return ParseLogLevel(level)
	}
	return slog.LevelInfo
}
