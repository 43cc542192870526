package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"

	"github.com/manifold-ai/manifold/core/ai"
)

// Remote is a tool whose parameter schema and execution live elsewhere: the
// schema arrives ready-made (typically from an MCP server's tools/list) and
// Execute forwards the call to the remote side.
type Remote struct {
	Name        string
	Description string
	Parameters  map[string]any
	Execute     func(ctx context.Context, arguments map[string]any) (string, error)
}

// Info returns the [ai.ToolDescription] advertised to the model.
func (r *Remote) Info() ai.ToolDescription {
	parameters := r.Parameters
	if parameters == nil {
		parameters = map[string]any{"type": "object"}
	}
	return ai.ToolDescription{
		Name:        r.Name,
		Description: r.Description,
		Parameters:  parameters,
	}
}

// Call decodes the argument object and forwards it to Execute.
func (r *Remote) Call(ctx context.Context, inputJSON string) (string, error) {
	arguments, err := decodeArguments(inputJSON)
	if err != nil {
		return "", fmt.Errorf("tool %q: %w", r.Name, err)
	}
	return r.Execute(ctx, arguments)
}

// decodeArguments parses a model-produced argument string into a map,
// tolerating empty input and repairing near-JSON.
func decodeArguments(inputJSON string) (map[string]any, error) {
	if inputJSON == "" {
		return map[string]any{}, nil
	}

	var arguments map[string]any
	if err := json.Unmarshal([]byte(inputJSON), &arguments); err == nil {
		return arguments, nil
	}

	repaired, err := jsonrepair.JSONRepair(inputJSON)
	if err != nil {
		return nil, fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &arguments); err != nil {
		return nil, fmt.Errorf("decoding arguments: %w", err)
	}
	return arguments, nil
}
