package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
)

// ErrRetryExhausted marks errors returned after every retry attempt failed.
// The last provider error is wrapped alongside it, so callers can unwrap
// either.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// RetryConfig holds the tuning parameters for the retry middleware. Zero
// values are replaced with the defaults documented below.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the first
	// failure. A value of 3 means the adapter is called at most 4 times.
	// Default: 3.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff. Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier
	// (backoff = min(InitialBackoff * BackoffFactor^attempt, MaxBackoff)).
	// Default: 2.0.
	BackoffFactor float64

	// JitterFraction adds random noise in [0, JitterFraction * backoff] to
	// avoid thundering-herd behaviour. Default: 0.1.
	JitterFraction float64

	// RetryableFunc decides whether an error triggers a retry. The default
	// is [aierr.IsRetryable]: transport failures and HTTP 408/429/5xx.
	RetryableFunc func(error) bool
}

func (c *RetryConfig) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = 2.0
	}
	if c.JitterFraction == 0 {
		c.JitterFraction = 0.1
	}
	if c.RetryableFunc == nil {
		c.RetryableFunc = aierr.IsRetryable
	}
}

// computeBackoff returns the wait for the given attempt (0-indexed).
func computeBackoff(config RetryConfig, attempt int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}

	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter is intentional
	return time.Duration(base + jitter)
}

// Retry retries failed generate calls with exponential backoff. Streams
// bypass it: mid-stream failures cannot be transparently retried once events
// have been delivered.
func Retry(config RetryConfig) Middleware {
	config.applyDefaults()

	return Middleware{
		WrapGenerate: func(next GenerateFunc, _ ai.LanguageModel) GenerateFunc {
			return func(ctx context.Context, request *ai.Request) (*ai.Response, error) {
				var lastErr error

				for attempt := 0; attempt <= config.MaxRetries; attempt++ {
					if attempt > 0 {
						backoff := computeBackoff(config, attempt-1)
						select {
						case <-ctx.Done():
							return nil, ctx.Err()
						case <-time.After(backoff):
						}
					}

					response, err := next(ctx, request)
					if err == nil {
						return response, nil
					}

					lastErr = err

					if !config.RetryableFunc(err) {
						return nil, err
					}
				}

				return nil, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
			}
		},
	}
}
