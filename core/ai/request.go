package ai

import (
	"time"
)

// Request is the provider-agnostic input to Generate and Stream. Messages
// carry the conversation; Options carries the sampling and tooling knobs
// enumerated in [CallOptions].
type Request struct {
	Messages []Message   `json:"messages"`
	Options  CallOptions `json:"options,omitzero"`
}

// CallOptions enumerates every generation knob the core understands.
// Adapters translate the subset their service supports and record a warning
// on the response for knobs they had to drop. Pointer fields distinguish
// "unset" from an explicit zero (temperature 0 is meaningful).
type CallOptions struct {
	MaxOutputTokens  int      `json:"max_output_tokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	TopK             int      `json:"top_k,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	StopSequences    []string `json:"stop_sequences,omitempty"`
	Seed             *int     `json:"seed,omitempty"`

	// Tools the model may call, plus the policy for choosing among them.
	Tools      []ToolDescription `json:"tools,omitempty"`
	ToolChoice *ToolChoice       `json:"tool_choice,omitempty"`

	// ResponseFormat requests structured output where the service supports
	// server-side JSON mode.
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// RequestTimeout bounds a single non-streaming HTTP round trip.
	// Zero means the transport default (60 s).
	RequestTimeout time.Duration `json:"request_timeout,omitempty"`

	// ProviderOptions is an opaque nested map keyed by provider id. Each
	// adapter decodes its own entry into a typed options struct and ignores
	// the rest, so one Request can carry knobs for several providers at once
	// (useful behind a fallback registry).
	ProviderOptions map[string]map[string]any `json:"provider_options,omitempty"`

	// Headers are extra HTTP headers merged into the outbound request.
	Headers map[string]string `json:"headers,omitempty"`
}

// ToolDescription declares a callable tool to the model: a name, a
// human-readable description, and a JSON Schema for the argument object.
type ToolDescription struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolChoiceMode selects the tool-choice policy sent to the provider.
type ToolChoiceMode string

const (
	// ToolChoiceAuto lets the model decide whether to call a tool.
	ToolChoiceAuto ToolChoiceMode = "auto"
	// ToolChoiceRequired forces the model to call at least one tool.
	ToolChoiceRequired ToolChoiceMode = "required"
	// ToolChoiceNone forbids tool calls for this request.
	ToolChoiceNone ToolChoiceMode = "none"
	// ToolChoiceTool forces the model to call the specific tool named in
	// [ToolChoice].ToolName.
	ToolChoiceTool ToolChoiceMode = "tool"
)

// ToolChoice constrains which tool (if any) the model must call.
type ToolChoice struct {
	Mode     ToolChoiceMode `json:"mode"`
	ToolName string         `json:"tool_name,omitempty"` // Mode == ToolChoiceTool
}

// ResponseFormatType selects between free text and JSON output.
type ResponseFormatType string

const (
	// ResponseFormatText requests ordinary free-form text (the default).
	ResponseFormatText ResponseFormatType = "text"
	// ResponseFormatJSON requests a JSON object, optionally constrained by
	// Schema on services that support server-side schema enforcement.
	ResponseFormatJSON ResponseFormatType = "json"
)

// ResponseFormat requests structured output. Schema, when set, is a JSON
// Schema object; Name labels the schema for services that require one.
type ResponseFormat struct {
	Type   ResponseFormatType `json:"type"`
	Schema map[string]any     `json:"schema,omitempty"`
	Name   string             `json:"name,omitempty"`
}
