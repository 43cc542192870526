package slogobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatCompact, ParseFormat("compact"))
	assert.Equal(t, FormatPretty, ParseFormat("pretty"))
	assert.Equal(t, FormatJSON, ParseFormat("json"))

	// Case and whitespace are forgiven; garbage falls back to compact.
	assert.Equal(t, FormatJSON, ParseFormat("  JSON "))
	assert.Equal(t, FormatCompact, ParseFormat("yaml"))
	assert.Equal(t, FormatCompact, ParseFormat(""))
}

func TestGetFormatFromEnv(t *testing.T) {
	t.Run("primary variable wins", func(t *testing.T) {
		t.Setenv("MANIFOLD_LOG_FORMAT", "pretty")
		t.Setenv("LOG_FORMAT", "json")
		assert.Equal(t, FormatPretty, GetFormatFromEnv())
	})

	t.Run("fallback variable", func(t *testing.T) {
		t.Setenv("MANIFOLD_LOG_FORMAT", "")
		t.Setenv("LOG_FORMAT", "json")
		assert.Equal(t, FormatJSON, GetFormatFromEnv())
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv("MANIFOLD_LOG_FORMAT", "")
		t.Setenv("LOG_FORMAT", "")
		assert.Equal(t, FormatCompact, GetFormatFromEnv())
	})
}
