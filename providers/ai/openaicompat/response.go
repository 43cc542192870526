package openaicompat

import (
	"encoding/json"
	"time"

	"github.com/manifold-ai/manifold/core/ai"
)

/*
	##### WIRE RESPONSE #####
*/

// ChatResponse is the OpenAI-compatible chat completions response body.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *ChatUsage   `json:"usage,omitempty"`

	// Citations is populated by search-augmented services (Perplexity).
	Citations []string `json:"citations,omitempty"`
}

// ChatChoice is one completion alternative; the core always reads the first.
type ChatChoice struct {
	Index        int                 `json:"index"`
	Message      ChatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

// ChatResponseMessage is the assistant message of a completed choice.
// Content is a string on most services but may be a content-part array.
type ChatResponseMessage struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content,omitempty"`
	ToolCalls []ChatToolCall  `json:"tool_calls,omitempty"`

	// ReasoningContent carries chain-of-thought on services that expose it
	// (DeepSeek reasoner, xAI grok-3-mini).
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// ChatUsage is the wire usage block, including the detail sub-objects newer
// services attach.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details,omitempty"`

	// DeepSeek-specific cache counters.
	PromptCacheHitTokens  int `json:"prompt_cache_hit_tokens,omitempty"`
	PromptCacheMissTokens int `json:"prompt_cache_miss_tokens,omitempty"`
}

/*
	##### CONVERSION #####
*/

// MapFinishReason converts an OpenAI-compatible finish_reason string onto
// the canonical closed set. The empty string maps to unknown; unrecognised
// values map to other.
func MapFinishReason(wire string) ai.FinishReason {
	switch wire {
	case "stop", "end_turn":
		return ai.FinishStop
	case "length", "max_tokens":
		return ai.FinishLength
	case "tool_calls", "function_call", "tool_use":
		return ai.FinishToolCalls
	case "content_filter":
		return ai.FinishContentFilter
	case "":
		return ai.FinishUnknown
	default:
		return ai.FinishOther
	}
}

// ParseResponse converts a wire response into the canonical result. The
// provider id namespaces any metadata the config's Metadata hook extracts.
func ParseResponse(config Config, response *ChatResponse) *ai.Response {
	result := &ai.Response{
		FinishReason: ai.FinishUnknown,
		Response: ai.ResponseInfo{
			ID:      response.ID,
			ModelID: response.Model,
		},
	}
	if response.Created > 0 {
		result.Response.Created = time.Unix(response.Created, 0).UTC()
	}

	if len(response.Choices) > 0 {
		choice := response.Choices[0]

		// Reasoning precedes text so the content order mirrors the order the
		// model produced it in.
		if choice.Message.ReasoningContent != "" {
			result.Content = append(result.Content, ai.Reasoning(choice.Message.ReasoningContent))
		}

		result.Content = append(result.Content, decodeContent(choice.Message.Content)...)

		for _, toolCall := range choice.Message.ToolCalls {
			result.Content = append(result.Content, ai.ToolCall(toolCall.ID, toolCall.Function.Name, json.RawMessage(toolCall.Function.Arguments)))
		}

		result.FinishReason = MapFinishReason(choice.FinishReason)
	}

	for _, citation := range response.Citations {
		result.Content = append(result.Content, ai.Source(citation, ""))
	}

	if response.Usage != nil {
		result.Usage = convertUsage(response.Usage)
	}

	if config.Metadata != nil {
		if metadata := config.Metadata(response); len(metadata) > 0 {
			result.ProviderMetadata = map[string]map[string]any{config.ProviderID: metadata}
		}
	}

	return result
}

// decodeContent handles the two shapes of the wire content field: a plain
// JSON string, or an array of {type:"text",text:...} parts.
func decodeContent(content json.RawMessage) []ai.Part {
	if len(content) == 0 || string(content) == "null" {
		return nil
	}

	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		if text == "" {
			return nil
		}
		return []ai.Part{ai.Text(text)}
	}

	var wireParts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &wireParts); err != nil {
		return nil
	}

	var parts []ai.Part
	for _, wirePart := range wireParts {
		if wirePart.Type == "text" && wirePart.Text != "" {
			parts = append(parts, ai.Text(wirePart.Text))
		}
	}
	return parts
}

// convertUsage maps wire usage counters onto the canonical Usage, lifting
// the optional detail sub-objects into the pointer fields.
func convertUsage(usage *ChatUsage) ai.Usage {
	converted := ai.Usage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
	if usage.CompletionTokensDetails != nil {
		reasoning := usage.CompletionTokensDetails.ReasoningTokens
		converted.ReasoningTokens = &reasoning
	}
	if usage.PromptTokensDetails != nil {
		cached := usage.PromptTokensDetails.CachedTokens
		converted.CachedInputTokens = &cached
	} else if usage.PromptCacheHitTokens > 0 {
		cached := usage.PromptCacheHitTokens
		converted.CachedInputTokens = &cached
	}
	return converted
}
