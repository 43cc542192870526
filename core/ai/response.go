package ai

import (
	"strings"
	"time"
)

// FinishReason is the canonical, closed set of reasons a generation stopped.
// Each adapter maps its provider's wire strings onto this set via a fixed
// table; unrecognised wire values map to [FinishOther].
type FinishReason string

const (
	FinishStop          FinishReason = "stop"           // Natural end of turn or stop sequence hit
	FinishLength        FinishReason = "length"         // Output token limit reached
	FinishContentFilter FinishReason = "content_filter" // Provider-side safety filter triggered
	FinishToolCalls     FinishReason = "tool_calls"     // Model requested one or more tool calls
	FinishError         FinishReason = "error"          // Provider reported a generation error
	FinishOther         FinishReason = "other"          // Provider reason outside the canonical set
	FinishUnknown       FinishReason = "unknown"        // Provider reported no reason at all
)

// Usage carries token accounting for a completed call. Adapters populate
// only the counters the service reports; consumers must tolerate absent
// fields. ReasoningTokens and CachedInputTokens are pointers because zero is
// a meaningful reported value for services that do surface them.
type Usage struct {
	PromptTokens     int  `json:"prompt_tokens,omitempty"`
	CompletionTokens int  `json:"completion_tokens,omitempty"`
	TotalTokens      int  `json:"total_tokens,omitempty"`
	ReasoningTokens  *int `json:"reasoning_tokens,omitempty"`
	CachedInputTokens *int `json:"cached_input_tokens,omitempty"`
}

// Add accumulates another usage record into this one, summing every counter
// that is present on the other side. Used by batched embeddings and by
// stream collection.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	if other.ReasoningTokens != nil {
		sum := other.ReasoningTokens
		if u.ReasoningTokens != nil {
			total := *u.ReasoningTokens + *other.ReasoningTokens
			sum = &total
		}
		u.ReasoningTokens = sum
	}
	if other.CachedInputTokens != nil {
		sum := other.CachedInputTokens
		if u.CachedInputTokens != nil {
			total := *u.CachedInputTokens + *other.CachedInputTokens
			sum = &total
		}
		u.CachedInputTokens = sum
	}
}

// RequestInfo echoes request-side metadata on a completed response: the
// client-assigned request id and coarse timing.
type RequestInfo struct {
	ID       string        `json:"id,omitempty"`
	Started  time.Time     `json:"started,omitzero"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ResponseInfo carries server-echoed metadata: the provider's response id,
// the concrete model id that served the request, and the server timestamp.
type ResponseInfo struct {
	ID      string    `json:"id,omitempty"`
	ModelID string    `json:"model_id,omitempty"`
	Created time.Time `json:"created,omitzero"`
}

// Response is the result of a non-streaming generate call. All fields are
// immutable once returned.
type Response struct {
	// Content is the full ordered content list produced by the model.
	Content []Part `json:"content"`

	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage,omitzero"`

	// ProviderMetadata is free-form key/value data under the provider's
	// namespace, e.g. {"deepseek": {"prompt_cache_hit_tokens": 12}}.
	ProviderMetadata map[string]map[string]any `json:"provider_metadata,omitempty"`

	Request  RequestInfo  `json:"request,omitzero"`
	Response ResponseInfo `json:"response,omitzero"`

	// Warnings lists request features the adapter had to drop or alter
	// because the service does not support them.
	Warnings []string `json:"warnings,omitempty"`
}

// Text returns the concatenation of all top-level text parts in order.
func (r *Response) Text() string {
	var builder strings.Builder
	for _, part := range r.Content {
		if part.Kind == PartText {
			builder.WriteString(part.Text)
		}
	}
	return builder.String()
}

// ReasoningText returns the concatenation of all reasoning parts in order.
func (r *Response) ReasoningText() string {
	var builder strings.Builder
	for _, part := range r.Content {
		if part.Kind == PartReasoning && part.Reasoning != nil {
			builder.WriteString(part.Reasoning.Text)
		}
	}
	return builder.String()
}

// ToolCalls returns the tool-call parts of the response in order.
func (r *Response) ToolCalls() []ToolCallData {
	var calls []ToolCallData
	for _, part := range r.Content {
		if part.Kind == PartToolCall && part.ToolCall != nil {
			calls = append(calls, *part.ToolCall)
		}
	}
	return calls
}

// Sources returns the citation parts of the response in order.
func (r *Response) Sources() []SourceData {
	var sources []SourceData
	for _, part := range r.Content {
		if part.Kind == PartSource && part.Source != nil {
			sources = append(sources, *part.Source)
		}
	}
	return sources
}
