package aierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// ConfigError reports a problem detected before any network call: missing
// credentials, an invalid model identifier, or an otherwise unusable request.
// Configuration errors are fatal to the caller and never retried.
type ConfigError struct {
	Provider string
	Model    string
	Message  string
}

func (e *ConfigError) Error() string {
	return prefix(e.Provider, e.Model) + e.Message
}

// Retryable always returns false for configuration errors.
func (e *ConfigError) Retryable() bool { return false }

// TransportError reports a TCP/TLS/DNS failure or a read timeout. The
// wrapped error is the underlying net/http error. Transport errors are
// retryable by middleware.
type TransportError struct {
	Provider string
	Method   string
	URL      string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%stransport error on %s %s: %v", prefix(e.Provider, ""), e.Method, RedactURL(e.URL), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable always returns true for transport errors.
func (e *TransportError) Retryable() bool { return true }

// HTTPError reports a response with status >= 400. Body carries the
// provider's error-body JSON when it parsed; otherwise it is nil and
// BodyText holds the raw (truncated) payload.
type HTTPError struct {
	Provider string
	Model    string
	Method   string
	URL      string
	Status   int
	Body     json.RawMessage
	BodyText string
}

func (e *HTTPError) Error() string {
	detail := e.BodyText
	if len(e.Body) > 0 {
		detail = string(e.Body)
	}
	return fmt.Sprintf("%sHTTP %d on %s %s: %s", prefix(e.Provider, e.Model), e.Status, e.Method, RedactURL(e.URL), detail)
}

// Retryable reports whether the status code indicates a transient server
// condition: 429 and all 5xx are retryable, other 4xx are not.
func (e *HTTPError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// DecodeError reports malformed JSON, an unexpected SSE frame, or a response
// that does not match the provider's documented shape. Decode errors are not
// retryable: they indicate a server or API-version issue.
type DecodeError struct {
	Provider string
	Message  string
	Err      error
}

func (e *DecodeError) Error() string {
	msg := prefix(e.Provider, "") + "decode error: " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Retryable always returns false for decode errors.
func (e *DecodeError) Retryable() bool { return false }

// ValidationError reports a structured-output schema failure or an MCP
// tool-argument mismatch. Surfaced to the caller, never retried.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := "validation error: " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Retryable always returns false for validation errors.
func (e *ValidationError) Retryable() bool { return false }

// UnsupportedOperationError reports a dispatch to an operation the provider
// does not implement (e.g. image generation on a text-only backend).
type UnsupportedOperationError struct {
	Provider  string
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("provider %q does not support %s", e.Provider, e.Operation)
}

// Retryable always returns false for unsupported-operation errors.
func (e *UnsupportedOperationError) Retryable() bool { return false }

// NoSuchProviderError reports a registry lookup for an unknown provider id.
// Available lists the provider ids the registry does know about.
type NoSuchProviderError struct {
	ProviderID string
	Available  []string
}

func (e *NoSuchProviderError) Error() string {
	return fmt.Sprintf("no such provider %q (available: %v)", e.ProviderID, e.Available)
}

// Retryable always returns false for registry lookup errors.
func (e *NoSuchProviderError) Retryable() bool { return false }

// NoSuchModelError reports a model lookup that failed: either the identifier
// could not be split into provider and model segments, or the provider does
// not know the model id.
type NoSuchModelError struct {
	ModelID string
	Reason  string
}

func (e *NoSuchModelError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no such model %q: %s", e.ModelID, e.Reason)
	}
	return fmt.Sprintf("no such model %q", e.ModelID)
}

// Retryable always returns false for registry lookup errors.
func (e *NoSuchModelError) Retryable() bool { return false }

// retryable is implemented by every error kind in this package.
type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err (or any error it wraps) is a transient
// failure worth retrying: transport errors, and HTTP 429/5xx responses.
// Errors outside this package's taxonomy are treated as non-retryable.
func IsRetryable(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// RedactURL strips userinfo and query values from a URL so error messages
// never leak credentials (several providers put API keys in query strings).
func RedactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.User = nil
	query := parsed.Query()
	for key := range query {
		query.Set(key, "REDACTED")
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// prefix renders the "provider/model: " context portion of an error message.
func prefix(provider, model string) string {
	switch {
	case provider != "" && model != "":
		return provider + "/" + model + ": "
	case provider != "":
		return provider + ": "
	default:
		return ""
	}
}
