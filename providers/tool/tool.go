// Package tool defines the executable tool abstraction shared by MCP-backed
// tools and locally implemented ones. A tool advertises an
// [ai.ToolDescription] to the model and executes JSON-encoded arguments on
// request. Nothing in the core executes tools; callers drive the
// call/execute/result loop themselves.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/internal/jsonschema"
	"github.com/manifold-ai/manifold/providers/observability"
)

// GenericTool is the provider-agnostic interface for all tools. It abstracts
// over the concrete generic type parameters of [Tool] so tools can be
// stored, advertised and dispatched without knowing their exact input and
// output types.
type GenericTool interface {
	// Info returns the metadata advertised to the model.
	Info() ai.ToolDescription

	// Call invokes the tool with a JSON-encoded argument object and returns
	// a string result for the tool-result message.
	Call(ctx context.Context, inputJSON string) (string, error)
}

// Tool binds a name and description to a strongly-typed Go function. The
// parameter schema for the input type I is derived by reflection. Use
// [New] to construct one.
type Tool[I, O any] struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Function    func(ctx context.Context, input I) (O, error)
}

// Option configures a tool created via [New].
type Option func(*options)

type options struct {
	description string
}

// WithDescription sets the human-readable description surfaced to the model
// so it can decide when and how to invoke the tool.
func WithDescription(description string) Option {
	return func(o *options) { o.description = description }
}

// New constructs a [Tool] with the given name and handler function. The
// JSON Schema for the input type I is derived automatically via reflection.
func New[I, O any](name string, function func(ctx context.Context, input I) (O, error), opts ...Option) *Tool[I, O] {
	var configured options
	for _, opt := range opts {
		opt(&configured)
	}

	parameters, err := jsonschema.GenerateJSONSchema[I]()
	if err != nil {
		parameters = &jsonschema.Schema{Type: "object"}
	}

	return &Tool[I, O]{
		Name:        name,
		Description: configured.description,
		Parameters:  parameters,
		Function:    function,
	}
}

// Info returns the [ai.ToolDescription] advertised to the model.
func (t *Tool[I, O]) Info() ai.ToolDescription {
	return ai.ToolDescription{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  schemaMap(t.Parameters),
	}
}

// Call deserialises inputJSON into I, executes the function, and returns
// the JSON-encoded output. Model-produced argument strings that are not
// strict JSON are repaired before parsing. Span events are emitted when a
// span is present in ctx.
func (t *Tool[I, O]) Call(ctx context.Context, inputJSON string) (string, error) {
	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(observability.EventToolExecutionStart,
			observability.String(observability.AttrToolName, t.Name),
			observability.String(observability.AttrToolInput, inputJSON),
		)
		defer span.AddEvent(observability.EventToolExecutionEnd)
	}

	start := time.Now()

	input, err := decodeInput[I](inputJSON)
	if err != nil {
		if span != nil {
			span.RecordError(err)
		}
		return "", fmt.Errorf("tool %q: %w", t.Name, err)
	}

	output, err := t.Function(ctx, input)
	duration := time.Since(start)

	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetAttributes(observability.Duration(observability.AttrToolDuration, duration))
		}
		return "", err
	}

	encoded, err := json.Marshal(output)
	if err != nil {
		if span != nil {
			span.RecordError(err)
		}
		return "", fmt.Errorf("tool %q: encoding output: %w", t.Name, err)
	}

	if span != nil {
		span.SetAttributes(
			observability.String(observability.AttrToolOutput, string(encoded)),
			observability.Duration(observability.AttrToolDuration, duration),
		)
	}

	return string(encoded), nil
}

// decodeInput parses a model-produced argument string into I, repairing the
// JSON when strict parsing fails. An empty input decodes to the zero value
// so tools without parameters remain callable.
func decodeInput[I any](inputJSON string) (I, error) {
	var input I
	if inputJSON == "" {
		return input, nil
	}

	if err := json.Unmarshal([]byte(inputJSON), &input); err == nil {
		return input, nil
	}

	repaired, err := jsonrepair.JSONRepair(inputJSON)
	if err != nil {
		return input, fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &input); err != nil {
		return input, fmt.Errorf("decoding arguments: %w", err)
	}
	return input, nil
}

// schemaMap renders a reflected schema as the map form ToolDescription
// carries.
func schemaMap(schema *jsonschema.Schema) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object"}
	}
	encoded, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	return out
}
