// Package httpx is the HTTP transport layer shared by every provider
// adapter: JSON requests with timeout and error classification, streaming
// requests with open bodies, SSE and newline-delimited JSON decoding, and
// the per-frame inactivity guard for streams.
//
// The transport performs no retries — that is a middleware concern — but it
// classifies every failure into the core/aierr taxonomy so retry middleware
// can distinguish retryable outcomes (connection reset, 429, 5xx) from
// permanent ones.
package httpx
