package mcp

import "context"

// Transport carries raw JSON-RPC payloads between the client and an MCP
// server. Implementations own their connection lifecycle: Messages delivers
// every inbound payload until the transport closes, after which the channel
// is closed.
type Transport interface {
	// Send writes one JSON-RPC payload to the server.
	Send(ctx context.Context, payload []byte) error

	// Messages returns the channel of inbound payloads. The channel is
	// closed when the connection ends.
	Messages() <-chan []byte

	// Close tears the connection down and releases resources.
	Close() error
}
