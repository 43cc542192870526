package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryTransport loops outbound requests through a handler and feeds its
// replies back as inbound messages.
type memoryTransport struct {
	handler func(request jsonrpcRequest) (any, *RPCError)
	inbox   chan []byte

	mu       sync.Mutex
	requests []jsonrpcRequest
	closed   bool
}

func newMemoryTransport(handler func(request jsonrpcRequest) (any, *RPCError)) *memoryTransport {
	return &memoryTransport{handler: handler, inbox: make(chan []byte, 16)}
}

func (t *memoryTransport) Send(_ context.Context, payload []byte) error {
	var request jsonrpcRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		return err
	}

	t.mu.Lock()
	t.requests = append(t.requests, request)
	t.mu.Unlock()

	if request.ID == nil {
		return nil
	}

	result, rpcErr := t.handler(request)
	reply := map[string]any{"jsonrpc": "2.0", "id": *request.ID}
	if rpcErr != nil {
		reply["error"] = rpcErr
	} else {
		reply["result"] = result
	}
	encoded, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	t.inbox <- encoded
	return nil
}

func (t *memoryTransport) Messages() <-chan []byte { return t.inbox }

func (t *memoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.inbox)
	}
	return nil
}

func (t *memoryTransport) sentRequests() []jsonrpcRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]jsonrpcRequest(nil), t.requests...)
}

func paramsMap(t *testing.T, request jsonrpcRequest) map[string]any {
	t.Helper()
	encoded, err := json.Marshal(request.Params)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	return decoded
}

func serverWithTools(tools []map[string]any) func(request jsonrpcRequest) (any, *RPCError) {
	return func(request jsonrpcRequest) (any, *RPCError) {
		switch request.Method {
		case "initialize":
			return map[string]any{
				"protocolVersion": protocolVersion,
				"serverInfo":      map[string]any{"name": "test-server", "version": "0.1"},
			}, nil
		case "tools/list":
			return map[string]any{"tools": tools}, nil
		default:
			return nil, &RPCError{Code: -32601, Message: "method not found"}
		}
	}
}

func TestClient_InitializeLifecycle(t *testing.T) {
	transport := newMemoryTransport(serverWithTools(nil))
	client := NewClient(transport)
	defer client.Close()

	require.NoError(t, client.Initialize(context.Background()))
	assert.Equal(t, "test-server", client.ServerInfo().Name)

	requests := transport.sentRequests()
	require.Len(t, requests, 2)

	assert.Equal(t, "initialize", requests[0].Method)
	params := paramsMap(t, requests[0])
	assert.Equal(t, protocolVersion, params["protocolVersion"])

	assert.Equal(t, "notifications/initialized", requests[1].Method)
	assert.Nil(t, requests[1].ID)
}

func TestClient_RequiresInitialize(t *testing.T) {
	client := NewClient(newMemoryTransport(serverWithTools(nil)))
	defer client.Close()

	_, err := client.ListTools(context.Background())
	assert.ErrorContains(t, err, "before Initialize")

	_, err = client.CallTool(context.Background(), "anything", nil)
	assert.ErrorContains(t, err, "before Initialize")
}

func TestClient_MonotonicIDs(t *testing.T) {
	transport := newMemoryTransport(serverWithTools(nil))
	client := NewClient(transport)
	defer client.Close()

	require.NoError(t, client.Initialize(context.Background()))
	_, err := client.ListTools(context.Background())
	require.NoError(t, err)
	_, err = client.ListTools(context.Background())
	require.NoError(t, err)

	var ids []int64
	for _, request := range transport.sentRequests() {
		if request.ID != nil {
			ids = append(ids, *request.ID)
		}
	}
	require.Len(t, ids, 3)
	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}
}

func TestClient_ListToolsPagination(t *testing.T) {
	pages := map[string]map[string]any{
		"": {
			"tools":      []map[string]any{{"name": "first"}},
			"nextCursor": "page-2",
		},
		"page-2": {
			"tools": []map[string]any{{"name": "second"}},
		},
	}

	transport := newMemoryTransport(func(request jsonrpcRequest) (any, *RPCError) {
		if request.Method == "initialize" {
			return map[string]any{"protocolVersion": protocolVersion, "serverInfo": map[string]any{"name": "s"}}, nil
		}
		encoded, _ := json.Marshal(request.Params)
		var params struct {
			Cursor string `json:"cursor"`
		}
		_ = json.Unmarshal(encoded, &params)
		return pages[params.Cursor], nil
	})

	client := NewClient(transport)
	defer client.Close()
	require.NoError(t, client.Initialize(context.Background()))

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "first", tools[0].Name)
	assert.Equal(t, "second", tools[1].Name)
}

func TestClient_CallTool(t *testing.T) {
	transport := newMemoryTransport(func(request jsonrpcRequest) (any, *RPCError) {
		switch request.Method {
		case "initialize":
			return map[string]any{"protocolVersion": protocolVersion, "serverInfo": map[string]any{"name": "s"}}, nil
		case "tools/call":
			return map[string]any{"content": []map[string]any{
				{"type": "text", "text": "line one"},
				{"type": "text", "text": "line two"},
			}}, nil
		default:
			return nil, &RPCError{Code: -32601, Message: "method not found"}
		}
	})

	client := NewClient(transport)
	defer client.Close()
	require.NoError(t, client.Initialize(context.Background()))

	text, err := client.CallTool(context.Background(), "echo", map[string]any{"value": 42})
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", text)

	requests := transport.sentRequests()
	params := paramsMap(t, requests[len(requests)-1])
	assert.Equal(t, "echo", params["name"])
}

func TestClient_CallToolIsError(t *testing.T) {
	transport := newMemoryTransport(func(request jsonrpcRequest) (any, *RPCError) {
		if request.Method == "initialize" {
			return map[string]any{"protocolVersion": protocolVersion, "serverInfo": map[string]any{"name": "s"}}, nil
		}
		return map[string]any{
			"content": []map[string]any{{"type": "text", "text": "division by zero"}},
			"isError": true,
		}, nil
	})

	client := NewClient(transport)
	defer client.Close()
	require.NoError(t, client.Initialize(context.Background()))

	_, err := client.CallTool(context.Background(), "divide", nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "division by zero")
}

func TestClient_RPCError(t *testing.T) {
	transport := newMemoryTransport(func(request jsonrpcRequest) (any, *RPCError) {
		if request.Method == "initialize" {
			return map[string]any{"protocolVersion": protocolVersion, "serverInfo": map[string]any{"name": "s"}}, nil
		}
		return nil, &RPCError{Code: -32602, Message: "invalid params"}
	})

	client := NewClient(transport)
	defer client.Close()
	require.NoError(t, client.Initialize(context.Background()))

	_, err := client.ListTools(context.Background())
	require.Error(t, err)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
}

func TestClient_RequestTimeout(t *testing.T) {
	transport := &silentTransport{inbox: make(chan []byte)}
	client := NewClient(transport, WithRequestTimeout(50*time.Millisecond))
	defer client.Close()

	err := client.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// silentTransport accepts requests but never replies.
type silentTransport struct {
	inbox     chan []byte
	closeOnce sync.Once
}

func (t *silentTransport) Send(context.Context, []byte) error { return nil }
func (t *silentTransport) Messages() <-chan []byte            { return t.inbox }
func (t *silentTransport) Close() error {
	t.closeOnce.Do(func() { close(t.inbox) })
	return nil
}

func TestClient_Tools(t *testing.T) {
	transport := newMemoryTransport(func(request jsonrpcRequest) (any, *RPCError) {
		switch request.Method {
		case "initialize":
			return map[string]any{"protocolVersion": protocolVersion, "serverInfo": map[string]any{"name": "s"}}, nil
		case "tools/list":
			return map[string]any{"tools": []map[string]any{{
				"name":        "greet",
				"description": "Greets someone.",
				"inputSchema": map[string]any{
					"type":       "object",
					"properties": map[string]any{"who": map[string]any{"type": "string"}},
				},
			}}}, nil
		case "tools/call":
			params := struct {
				Arguments map[string]any `json:"arguments"`
			}{}
			encoded, _ := json.Marshal(request.Params)
			_ = json.Unmarshal(encoded, &params)
			return map[string]any{"content": []map[string]any{
				{"type": "text", "text": fmt.Sprintf("hello %v", params.Arguments["who"])},
			}}, nil
		default:
			return nil, &RPCError{Code: -32601, Message: "method not found"}
		}
	})

	client := NewClient(transport)
	defer client.Close()
	require.NoError(t, client.Initialize(context.Background()))

	tools, err := client.Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)

	info := tools[0].Info()
	assert.Equal(t, "greet", info.Name)
	assert.Equal(t, "Greets someone.", info.Description)
	assert.Equal(t, "object", info.Parameters["type"])

	result, err := tools[0].Call(context.Background(), `{"who": "world"}`)
	require.NoError(t, err)
	assert.Equal(t, "hello world", result)
}
