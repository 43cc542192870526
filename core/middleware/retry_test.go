package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
)

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

// flakyModel fails a fixed number of times before succeeding.
type flakyModel struct {
	fakeModel
	failures int
	failWith error
}

func (m *flakyModel) Generate(ctx context.Context, request *ai.Request) (*ai.Response, error) {
	m.generateCalls.Add(1)
	if int(m.generateCalls.Load()) <= m.failures {
		return nil, m.failWith
	}
	return textResponse("recovered"), nil
}

func TestRetry_RecoversFromTransientFailure(t *testing.T) {
	inner := &flakyModel{
		failures: 2,
		failWith: &aierr.HTTPError{Provider: "fake", Status: 503},
	}
	model := WrapLanguageModel(inner, Retry(fastRetry(3)))

	response, err := model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("q")}})
	require.NoError(t, err)
	assert.Equal(t, "recovered", response.Text())
	assert.Equal(t, int32(3), inner.generateCalls.Load())
}

func TestRetry_NonRetryableFailsImmediately(t *testing.T) {
	inner := &flakyModel{
		failures: 10,
		failWith: &aierr.HTTPError{Provider: "fake", Status: 401},
	}
	model := WrapLanguageModel(inner, Retry(fastRetry(3)))

	_, err := model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("q")}})
	require.Error(t, err)
	assert.Equal(t, int32(1), inner.generateCalls.Load())
}

func TestRetry_Exhaustion(t *testing.T) {
	failure := &aierr.TransportError{Provider: "fake", Method: "POST", URL: "http://x", Err: errors.New("reset")}
	inner := &flakyModel{failures: 10, failWith: failure}
	model := WrapLanguageModel(inner, Retry(fastRetry(2)))

	_, err := model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("q")}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetryExhausted)

	var transportErr *aierr.TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.Equal(t, int32(3), inner.generateCalls.Load())
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	inner := &flakyModel{
		failures: 10,
		failWith: &aierr.HTTPError{Provider: "fake", Status: 429},
	}
	model := WrapLanguageModel(inner, Retry(RetryConfig{
		MaxRetries:     5,
		InitialBackoff: time.Hour,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := model.Generate(ctx, &ai.Request{Messages: []ai.Message{ai.UserText("q")}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestComputeBackoff_Caps(t *testing.T) {
	config := RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     4 * time.Second,
		BackoffFactor:  2.0,
		JitterFraction: 0.1,
	}

	backoff := computeBackoff(config, 10)
	assert.GreaterOrEqual(t, backoff, 4*time.Second)
	assert.LessOrEqual(t, backoff, time.Duration(float64(4*time.Second)*1.1))
}
