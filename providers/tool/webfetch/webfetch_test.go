package webfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, html)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetch_ConvertsHTMLToMarkdown(t *testing.T) {
	server := serveHTML(t, `<html><body>
		<h1>Release notes</h1>
		<p>Streaming is <strong>stable</strong>.</p>
		<ul><li>faster</li><li>cheaper</li></ul>
	</body></html>`)

	output, err := Fetch(context.Background(), Input{URL: server.URL})
	require.NoError(t, err)

	assert.Equal(t, server.URL, output.URL)
	assert.Contains(t, output.Markdown, "Release notes")
	assert.Contains(t, output.Markdown, "**stable**")
	assert.Contains(t, output.Markdown, "faster")
	assert.Empty(t, output.HTML)
}

func TestFetch_EmptyURL(t *testing.T) {
	for _, url := range []string{"", "   "} {
		_, err := Fetch(context.Background(), Input{URL: url})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "URL cannot be empty")
	}
}

func TestFetch_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := Fetch(context.Background(), Input{URL: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetch_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>landed</p></body></html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	output, err := Fetch(context.Background(), Input{URL: server.URL + "/start"})
	require.NoError(t, err)

	assert.Equal(t, server.URL+"/final", output.URL)
	assert.Contains(t, output.Markdown, "landed")
}

func TestFetch_TooManyRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer server.Close()

	_, err := Fetch(context.Background(), Input{URL: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many redirects")
}

func TestFetch_IncludeHTML(t *testing.T) {
	html := "<html><body><h1>raw</h1></body></html>"
	server := serveHTML(t, html)

	output, err := Fetch(context.Background(), Input{URL: server.URL, IncludeHTML: true})
	require.NoError(t, err)
	assert.Equal(t, html, output.HTML)
}

func TestFetch_UserAgent(t *testing.T) {
	var agents []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	_, err := Fetch(context.Background(), Input{URL: server.URL})
	require.NoError(t, err)

	_, err = Fetch(context.Background(), Input{URL: server.URL, UserAgent: "custom-agent/2.0"})
	require.NoError(t, err)

	require.Len(t, agents, 2)
	assert.Equal(t, DefaultUserAgent, agents[0])
	assert.Equal(t, "custom-agent/2.0", agents[1])
}

func TestFetch_SlowBodyTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, b := range []byte("<html><body>slow</body></html>") {
			_, _ = w.Write([]byte{b})
			flusher.Flush()
			time.Sleep(200 * time.Millisecond)
		}
	}))
	defer server.Close()

	start := time.Now()
	_, err := Fetch(context.Background(), Input{URL: server.URL, TimeoutSeconds: 1})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "timeout") ||
		strings.Contains(err.Error(), "deadline exceeded"), "got: %v", err)
	assert.Less(t, elapsed, 4*time.Second)
}

func TestFetch_CancelledContext(t *testing.T) {
	server := serveHTML(t, "<html></html>")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Fetch(ctx, Input{URL: server.URL})
	require.Error(t, err)
}

func TestNewWebFetchTool_Surface(t *testing.T) {
	fetchTool := NewWebFetchTool()
	info := fetchTool.Info()

	assert.Equal(t, "WebFetch", info.Name)
	assert.NotEmpty(t, info.Description)
	assert.Equal(t, "object", info.Parameters["type"])
	assert.Contains(t, info.Parameters["required"], "url")
}

func TestWebFetchTool_CallThroughGenericInterface(t *testing.T) {
	server := serveHTML(t, "<html><body><h1>Tool path</h1></body></html>")

	args, _ := json.Marshal(Input{URL: server.URL})
	result, err := NewWebFetchTool().Call(context.Background(), string(args))
	require.NoError(t, err)

	var output Output
	require.NoError(t, json.Unmarshal([]byte(result), &output))
	assert.Contains(t, output.Markdown, "Tool path")
}
