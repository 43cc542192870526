// Package aierr defines the error taxonomy shared by every provider adapter
// and middleware: configuration, transport, HTTP protocol, decoding, and
// validation errors, plus the registry lookup errors.
//
// Each kind exposes Retryable() so retry middleware can decide whether an
// attempt is worth repeating without string-matching error messages. Use
// [IsRetryable] to classify an arbitrary wrapped error.
package aierr
