package fal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
)

func testProvider(serverURL string) *Provider {
	return New(
		WithAPIKey("test-key"),
		WithBaseURL(serverURL),
		WithPollInterval(time.Millisecond),
		WithPollTimeout(time.Second),
	)
}

func TestTranscribe_QueueLifecycle(t *testing.T) {
	var polls atomic.Int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "Key test-key", request.Header.Get("Authorization"))

		switch request.URL.Path {
		case "/fal-ai/whisper":
			body, _ := io.ReadAll(request.Body)
			var submitted submitRequest
			require.NoError(t, json.Unmarshal(body, &submitted))
			assert.True(t, strings.HasPrefix(submitted.AudioURL, "data:audio/wav;base64,"))
			assert.Equal(t, "en", submitted.Language)
			writer.Write([]byte(`{
				"request_id": "req-1",
				"status_url": "` + server.URL + `/status/req-1",
				"response_url": "` + server.URL + `/response/req-1"
			}`))

		case "/status/req-1":
			if polls.Add(1) < 3 {
				writer.Write([]byte(`{"status": "IN_PROGRESS"}`))
				return
			}
			writer.Write([]byte(`{"status": "COMPLETED"}`))

		case "/response/req-1":
			writer.Write([]byte(`{
				"text": "hello world",
				"chunks": [
					{"text": "hello", "timestamp": [0.0, 0.4]},
					{"text": "world", "timestamp": [0.5, 0.9]}
				],
				"inferred_languages": ["en"]
			}`))

		default:
			t.Errorf("unexpected path %s", request.URL.Path)
		}
	}))
	defer server.Close()

	model, err := testProvider(server.URL).TranscriptionModel("fal-ai/whisper")
	require.NoError(t, err)

	result, err := model.Transcribe(context.Background(), []byte("RIFF"), "audio/wav",
		&ai.TranscriptionOptions{Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, "hello world", result.Text)
	assert.Equal(t, "en", result.Language)
	assert.Equal(t, 0.9, result.Duration)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, 0.5, result.Segments[1].Start)
	assert.Equal(t, int32(3), polls.Load())
}

func TestTranscribe_PollTimeout(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/fal-ai/whisper":
			writer.Write([]byte(`{
				"request_id": "req-2",
				"status_url": "` + server.URL + `/status/req-2",
				"response_url": "` + server.URL + `/response/req-2"
			}`))
		case "/status/req-2":
			writer.Write([]byte(`{"status": "IN_QUEUE"}`))
		}
	}))
	defer server.Close()

	provider := New(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithPollInterval(5*time.Millisecond),
		WithPollTimeout(20*time.Millisecond),
	)
	model, err := provider.TranscriptionModel("fal-ai/whisper")
	require.NoError(t, err)

	_, err = model.Transcribe(context.Background(), []byte("RIFF"), "audio/wav", nil)
	var transportErr *aierr.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Contains(t, transportErr.Err.Error(), "did not complete")
}

func TestTranscribe_FailedJobSurfacesHTTPError(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/fal-ai/whisper":
			writer.Write([]byte(`{
				"request_id": "req-3",
				"status_url": "` + server.URL + `/status/req-3",
				"response_url": "` + server.URL + `/response/req-3"
			}`))
		case "/status/req-3":
			writer.WriteHeader(http.StatusUnprocessableEntity)
			writer.Write([]byte(`{"detail": "invalid audio"}`))
		}
	}))
	defer server.Close()

	model, err := testProvider(server.URL).TranscriptionModel("fal-ai/whisper")
	require.NoError(t, err)

	_, err = model.Transcribe(context.Background(), []byte("RIFF"), "audio/wav", nil)
	var httpErr *aierr.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.Status)
}

func TestTranscribe_ProviderOptionOverrides(t *testing.T) {
	model := &transcriptionModel{provider: New(WithAPIKey("k")), modelID: "fal-ai/whisper"}

	interval, timeout, err := model.pollSettings(&ai.TranscriptionOptions{
		ProviderOptions: map[string]map[string]any{ProviderID: {
			"poll_interval_ms": 50,
			"poll_timeout_ms":  500,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, interval)
	assert.Equal(t, 500*time.Millisecond, timeout)
}

func TestTranscribe_MissingKey(t *testing.T) {
	model := &transcriptionModel{provider: New(WithAPIKey("")), modelID: "fal-ai/whisper"}
	_, err := model.Transcribe(context.Background(), []byte("x"), "audio/wav", nil)
	var configErr *aierr.ConfigError
	require.ErrorAs(t, err, &configErr)
}
