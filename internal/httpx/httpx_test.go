package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manifold-ai/manifold/core/aierr"
)

type echoResponse struct {
	Greeting string `json:"greeting"`
}

func TestPostJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", request.Header.Get("Authorization"))
		writer.Write([]byte(`{"greeting":"hello"}`))
	}))
	defer server.Close()

	headers := map[string]string{"Authorization": "Bearer test-key"}
	parsed, err := PostJSON[echoResponse](context.Background(), server.Client(), "test", server.URL, headers, map[string]string{"in": "x"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", parsed.Greeting)
}

func TestPostJSON_HTTPErrorCarriesParsedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusTooManyRequests)
		writer.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	_, err := PostJSON[echoResponse](context.Background(), server.Client(), "test", server.URL, nil, nil, 0)
	require.Error(t, err)

	var httpErr *aierr.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 429, httpErr.Status)
	assert.JSONEq(t, `{"error":{"message":"rate limited"}}`, string(httpErr.Body))
	assert.True(t, aierr.IsRetryable(err))
}

func TestPostJSON_NonRetryable4xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
		writer.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	_, err := PostJSON[echoResponse](context.Background(), server.Client(), "test", server.URL, nil, nil, 0)
	require.Error(t, err)
	assert.False(t, aierr.IsRetryable(err))
}

func TestPostJSON_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	_, err := PostJSON[echoResponse](context.Background(), server.Client(), "test", server.URL, nil, nil, 0)
	require.Error(t, err)

	var decodeErr *aierr.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
	assert.False(t, aierr.IsRetryable(err))
}

func TestPostJSON_TransportError(t *testing.T) {
	// Closed server: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := PostJSON[echoResponse](context.Background(), http.DefaultClient, "test", url, nil, nil, 0)
	require.Error(t, err)

	var transportErr *aierr.TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.True(t, aierr.IsRetryable(err))
}

func TestPostJSON_ContextCancellationIsNotTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		<-request.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := PostJSON[echoResponse](ctx, server.Client(), "test", server.URL, nil, nil, time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var transportErr *aierr.TransportError
	assert.False(t, aierr.IsRetryable(err))
	assert.NotErrorAs(t, err, &transportErr)
}

func TestPostStream_LeavesBodyOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.Write([]byte("data: {\"n\":1}\n\ndata: [DONE]\n\n"))
	}))
	defer server.Close()

	response, err := PostStream(context.Background(), server.Client(), "test", server.URL, nil, map[string]any{})
	require.NoError(t, err)
	defer response.Body.Close()

	scanner := NewSSEScanner(response.Body)
	event, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"n":1}`, event.Data)
}

func TestPostStream_ErrorStatusClosesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusInternalServerError)
		writer.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	_, err := PostStream(context.Background(), server.Client(), "test", server.URL, nil, map[string]any{})
	require.Error(t, err)

	var httpErr *aierr.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 500, httpErr.Status)
}

func TestPostMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, request.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", request.FormValue("model"))

		file, header, err := request.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.mp3", header.Filename)

		writer.Write([]byte(`{"greeting":"transcribed"}`))
	}))
	defer server.Close()

	parsed, err := PostMultipart[echoResponse](context.Background(), server.Client(), "test", server.URL, nil,
		map[string]string{"model": "whisper-1"}, "file", "audio.mp3", []byte("fake-audio"), 0)
	require.NoError(t, err)
	assert.Equal(t, "transcribed", parsed.Greeting)
}
