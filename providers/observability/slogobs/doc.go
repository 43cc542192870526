// Package slogobs implements [observability.Provider] on the standard
// library's log/slog: spans and metrics become structured debug log lines,
// which makes it the backend of choice when no tracing infrastructure is
// available. Construct with [New]; tune output with [WithFormat],
// [WithLevel], [WithOutput], [WithColors] or hand in a logger via
// [WithLogger]. For OTLP-backed observability see the otelobs package.
package slogobs
