package slogobs

import (
	"os"
	"strings"
)

// Format selects how the built-in handler renders records.
type Format string

const (
	// FormatCompact renders one line per record with JSON attributes:
	//
	//	2025-08-25 10:30:00  INFO request sent → {"provider":"openai"}
	FormatCompact Format = "compact"

	// FormatPretty renders the message followed by one tree-indented line
	// per attribute. Meant for humans watching a terminal.
	FormatPretty Format = "pretty"

	// FormatJSON renders one JSON object per line for log aggregation.
	FormatJSON Format = "json"
)

func (f Format) String() string { return string(f) }

// ParseFormat maps a string to a Format, falling back to FormatCompact for
// anything it does not recognise.
func ParseFormat(s string) Format {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "pretty":
		return FormatPretty
	case "json":
		return FormatJSON
	default:
		return FormatCompact
	}
}

// GetFormatFromEnv reads MANIFOLD_LOG_FORMAT, then LOG_FORMAT, defaulting
// to FormatCompact.
func GetFormatFromEnv() Format {
	if format := os.Getenv("MANIFOLD_LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	return FormatCompact
}
