package mcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/manifold-ai/manifold/internal/httpx"
)

// endpointWait bounds how long the SSE handshake waits for the server's
// endpoint event before giving up.
const endpointWait = 10 * time.Second

// SSETransport speaks MCP over Server-Sent Events: the client holds one
// long-lived SSE connection for inbound messages and POSTs outbound
// requests to the endpoint URL the server advertises in its initial
// "endpoint" event.
type SSETransport struct {
	client   *http.Client
	response *http.Response
	endpoint string
	inbox    chan []byte

	closeOnce sync.Once
}

// NewSSETransport connects to an MCP server's SSE URL and waits for the
// endpoint event. client may be nil to use http.DefaultClient.
func NewSSETransport(ctx context.Context, client *http.Client, sseURL string) (*SSETransport, error) {
	if client == nil {
		client = http.DefaultClient
	}

	request, err := http.NewRequestWithContext(ctx, "GET", sseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp sse: creating request: %w", err)
	}
	request.Header.Set("Accept", "text/event-stream")

	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("mcp sse: connecting: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		httpx.CloseWithLog(response.Body)
		return nil, fmt.Errorf("mcp sse: server returned status %d", response.StatusCode)
	}

	transport := &SSETransport{
		client:   client,
		response: response,
		inbox:    make(chan []byte, 16),
	}

	endpointCh := make(chan string, 1)
	go transport.readLoop(endpointCh)

	select {
	case endpoint, ok := <-endpointCh:
		if !ok {
			_ = transport.Close()
			return nil, fmt.Errorf("mcp sse: connection closed before endpoint event")
		}
		resolved, err := resolveEndpoint(sseURL, endpoint)
		if err != nil {
			_ = transport.Close()
			return nil, err
		}
		transport.endpoint = resolved

	case <-time.After(endpointWait):
		_ = transport.Close()
		return nil, fmt.Errorf("mcp sse: no endpoint event within %s", endpointWait)

	case <-ctx.Done():
		_ = transport.Close()
		return nil, ctx.Err()
	}

	return transport, nil
}

// readLoop decodes SSE frames: the first "endpoint" event is handed to
// endpointCh, every "message" event lands in the inbox.
func (t *SSETransport) readLoop(endpointCh chan<- string) {
	defer close(t.inbox)
	defer close(endpointCh)

	scanner := httpx.NewSSEScanner(t.response.Body)
	for {
		event, err := scanner.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			return
		}

		switch event.Type {
		case "endpoint":
			select {
			case endpointCh <- event.Data:
			default:
			}
		case "message":
			t.inbox <- []byte(event.Data)
		}
	}
}

// resolveEndpoint resolves the advertised endpoint (absolute or relative)
// against the SSE URL.
func resolveEndpoint(sseURL, endpoint string) (string, error) {
	base, err := url.Parse(sseURL)
	if err != nil {
		return "", fmt.Errorf("mcp sse: parsing SSE URL: %w", err)
	}
	resolved, err := base.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("mcp sse: parsing endpoint %q: %w", endpoint, err)
	}
	return resolved.String(), nil
}

// Send POSTs one message to the advertised endpoint.
func (t *SSETransport) Send(ctx context.Context, payload []byte) error {
	request, err := http.NewRequestWithContext(ctx, "POST", t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("mcp sse: creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := t.client.Do(request)
	if err != nil {
		return fmt.Errorf("mcp sse: posting message: %w", err)
	}
	defer httpx.CloseWithLog(response.Body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("mcp sse: server returned status %d", response.StatusCode)
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

// Messages returns the inbound message channel.
func (t *SSETransport) Messages() <-chan []byte { return t.inbox }

// Close drops the SSE connection.
func (t *SSETransport) Close() error {
	t.closeOnce.Do(func() {
		httpx.CloseWithLog(t.response.Body)
	})
	return nil
}
