// Package tool provides the foundational types for defining and executing
// tools that language models can invoke.
//
// A [Tool] wraps a typed Go function together with its name, description,
// and an auto-derived JSON schema, ready to be listed in a generate call.
// The main entry point is [New]; [WithDescription] configures the result.
// [Remote] covers tools whose schema and execution live elsewhere, such as
// tools discovered from an MCP server.
//
// Both satisfy [GenericTool], the interface the execution loop works with:
// Info for advertising the tool to the model, Call for running it with the
// model's raw JSON arguments. Call repairs near-JSON argument payloads
// before decoding, since models occasionally emit unquoted keys or trailing
// commas.
package tool
