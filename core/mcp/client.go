// Package mcp implements a minimal Model Context Protocol client: JSON-RPC
// 2.0 over a pluggable transport (stdio subprocess or SSE), with the
// initialize handshake, tool discovery and tool invocation. Discovered tools
// materialise as executable [tool.Remote] values.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/manifold-ai/manifold/providers/tool"
)

// protocolVersion is the MCP revision this client negotiates.
const protocolVersion = "2024-11-05"

// defaultRequestTimeout bounds one request/response round trip.
const defaultRequestTimeout = 30 * time.Second

// ClientInfo identifies this client during the initialize handshake.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo is the server identity returned by initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Client is an MCP client bound to one transport. Create it with
// [NewClient], call [Client.Initialize] before anything else, and [Client.Close]
// when done. Methods are safe for concurrent use.
type Client struct {
	transport Transport
	info      ClientInfo
	timeout   time.Duration

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan *jsonrpcResponse

	serverInfo  ServerInfo
	initialized bool

	dispatchOnce sync.Once
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithClientInfo overrides the identity sent during initialize.
func WithClientInfo(info ClientInfo) ClientOption {
	return func(c *Client) { c.info = info }
}

// WithRequestTimeout overrides the 30 s per-request timeout.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.timeout = timeout }
}

// NewClient creates a client over the given transport. The transport's
// lifecycle passes to the client: Close closes it.
func NewClient(transport Transport, opts ...ClientOption) *Client {
	client := &Client{
		transport: transport,
		info:      ClientInfo{Name: "manifold", Version: "1.0"},
		timeout:   defaultRequestTimeout,
		pending:   map[int64]chan *jsonrpcResponse{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

/*
	##### WIRE #####
*/

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"` // nil for notifications
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error object returned by the server.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("mcp: server error %d: %s", e.Code, e.Message)
}

/*
	##### PLUMBING #####
*/

// dispatchLoop routes inbound responses to their pending calls. Requests
// initiated by the server (none are supported) and stray responses are
// dropped.
func (c *Client) dispatchLoop() {
	for payload := range c.transport.Messages() {
		var response jsonrpcResponse
		if err := json.Unmarshal(payload, &response); err != nil || response.ID == nil {
			continue
		}

		c.mu.Lock()
		waiter, ok := c.pending[*response.ID]
		delete(c.pending, *response.ID)
		c.mu.Unlock()

		if ok {
			waiter <- &response
		}
	}

	// Transport closed: fail everything still in flight.
	c.mu.Lock()
	for id, waiter := range c.pending {
		delete(c.pending, id)
		close(waiter)
	}
	c.mu.Unlock()
}

// call performs one request/response round trip with the per-request
// timeout. Ids increase monotonically for the lifetime of the client.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	c.dispatchOnce.Do(func() { go c.dispatchLoop() })

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	waiter := make(chan *jsonrpcResponse, 1)
	c.pending[id] = waiter
	c.mu.Unlock()

	cleanup := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(jsonrpcRequest{JSONRPC: "2.0", ID: &id, Method: method, Params: params})
	if err != nil {
		cleanup()
		return fmt.Errorf("mcp: encoding %s request: %w", method, err)
	}
	if err := c.transport.Send(ctx, payload); err != nil {
		cleanup()
		return err
	}

	select {
	case response, ok := <-waiter:
		if !ok {
			return fmt.Errorf("mcp: connection closed during %s", method)
		}
		if response.Error != nil {
			return response.Error
		}
		if result != nil {
			if err := json.Unmarshal(response.Result, result); err != nil {
				return fmt.Errorf("mcp: decoding %s result: %w", method, err)
			}
		}
		return nil

	case <-ctx.Done():
		cleanup()
		return fmt.Errorf("mcp: %s: %w", method, ctx.Err())
	}
}

// notify sends a notification (no id, no response).
func (c *Client) notify(ctx context.Context, method string, params any) error {
	payload, err := json.Marshal(jsonrpcRequest{JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("mcp: encoding %s notification: %w", method, err)
	}
	return c.transport.Send(ctx, payload)
}

/*
	##### LIFECYCLE #####
*/

type initializeResult struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ServerInfo      ServerInfo `json:"serverInfo"`
}

// Initialize performs the initialize handshake followed by the initialized
// notification. It must complete before tool discovery or invocation.
func (c *Client) Initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      c.info,
	}

	var result initializeResult
	if err := c.call(ctx, "initialize", params, &result); err != nil {
		return err
	}

	c.mu.Lock()
	c.serverInfo = result.ServerInfo
	c.initialized = true
	c.mu.Unlock()

	return c.notify(ctx, "notifications/initialized", nil)
}

// ServerInfo returns the identity the server reported during initialize.
func (c *Client) ServerInfo() ServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// Close tears down the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

func (c *Client) requireInitialized(operation string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return fmt.Errorf("mcp: %s before Initialize", operation)
	}
	return nil
}

/*
	##### TOOLS #####
*/

// ToolInfo describes one tool the server advertises.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

type listToolsResult struct {
	Tools      []ToolInfo `json:"tools"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ListTools enumerates the server's tools, following cursor pagination to
// the end.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	if err := c.requireInitialized("tools/list"); err != nil {
		return nil, err
	}

	var tools []ToolInfo
	cursor := ""
	for {
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}

		var result listToolsResult
		if err := c.call(ctx, "tools/list", params, &result); err != nil {
			return nil, err
		}
		tools = append(tools, result.Tools...)

		if result.NextCursor == "" {
			return tools, nil
		}
		cursor = result.NextCursor
	}
}

type callToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

// CallTool invokes a tool and returns its text content. Results the server
// flags as errors are returned as Go errors carrying the same text.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (string, error) {
	if err := c.requireInitialized("tools/call"); err != nil {
		return "", err
	}
	if arguments == nil {
		arguments = map[string]any{}
	}

	var result callToolResult
	err := c.call(ctx, "tools/call", map[string]any{"name": name, "arguments": arguments}, &result)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, content := range result.Content {
		if content.Type == "text" {
			parts = append(parts, content.Text)
		}
	}
	text := strings.Join(parts, "\n")

	if result.IsError {
		return "", fmt.Errorf("mcp: tool %q failed: %s", name, text)
	}
	return text, nil
}

// Tools materialises every advertised tool as an executable [tool.Remote]
// whose Execute forwards to CallTool on this client.
func (c *Client) Tools(ctx context.Context) ([]*tool.Remote, error) {
	infos, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	tools := make([]*tool.Remote, 0, len(infos))
	for _, info := range infos {
		name := info.Name
		tools = append(tools, &tool.Remote{
			Name:        name,
			Description: info.Description,
			Parameters:  info.InputSchema,
			Execute: func(ctx context.Context, arguments map[string]any) (string, error) {
				return c.CallTool(ctx, name, arguments)
			},
		})
	}
	return tools, nil
}
