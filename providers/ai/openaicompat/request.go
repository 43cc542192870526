package openaicompat

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/manifold-ai/manifold/core/ai"
)

/*
	##### WIRE REQUEST #####
*/

// ChatRequest is the OpenAI-compatible chat completions request body. Wire
// types are exported so provider PrepareBody hooks can rewrite them (the o1
// family renames max_tokens, xAI attaches search parameters, and so on).
// Extra carries provider-native fields merged into the top-level JSON
// object at marshal time.
type ChatRequest struct {
	Model               string              `json:"model"`
	Messages            []ChatMessage       `json:"messages"`
	MaxTokens           *int                `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int                `json:"max_completion_tokens,omitempty"`
	Temperature         *float64            `json:"temperature,omitempty"`
	TopP                *float64            `json:"top_p,omitempty"`
	Stop                []string            `json:"stop,omitempty"`
	Stream              bool                `json:"stream,omitempty"`
	StreamOptions       *StreamOptions      `json:"stream_options,omitempty"`
	Tools               []ChatTool          `json:"tools,omitempty"`
	ToolChoice          any                 `json:"tool_choice,omitempty"`
	ResponseFormat      *ChatResponseFormat `json:"response_format,omitempty"`
	Seed                *int                `json:"seed,omitempty"`
	FrequencyPenalty    *float64            `json:"frequency_penalty,omitempty"`
	PresencePenalty     *float64            `json:"presence_penalty,omitempty"`

	Extra map[string]any `json:"-"`
}

// MarshalJSON merges Extra into the top-level object so provider-native
// knobs ride alongside the standard fields.
func (r ChatRequest) MarshalJSON() ([]byte, error) {
	type plain ChatRequest
	encoded, err := json.Marshal(plain(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return encoded, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(encoded, &merged); err != nil {
		return nil, err
	}
	for key, value := range r.Extra {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// ChatMessage is one wire message. Content is either a JSON string or an
// array of content-part objects, so it is kept as a pre-encoded RawMessage.
type ChatMessage struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	ToolCalls  []ChatToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

// ChatToolCall is an assistant-issued tool call on the wire. Arguments is a
// JSON-encoded string, per the OpenAI convention.
type ChatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ChatToolFunction `json:"function"`
}

// ChatToolFunction is the function payload of a tool call.
type ChatToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatTool declares a callable tool.
type ChatTool struct {
	Type     string       `json:"type"`
	Function ChatToolDecl `json:"function"`
}

// ChatToolDecl is the function declaration inside a ChatTool.
type ChatToolDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ChatResponseFormat selects JSON mode, optionally with a schema.
type ChatResponseFormat struct {
	Type       string          `json:"type"` // "text" | "json_object" | "json_schema"
	JSONSchema *ChatJSONSchema `json:"json_schema,omitempty"`
}

// ChatJSONSchema is the schema envelope for response_format json_schema.
type ChatJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict,omitempty"`
	Schema map[string]any `json:"schema,omitempty"`
}

// StreamOptions asks the service to append a usage chunk to the stream.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

/*
	##### CONVERSION #####
*/

// BuildChatRequest converts a provider-agnostic request into the
// OpenAI-compatible wire shape. Message invariants are assumed to have been
// validated by the caller.
func BuildChatRequest(modelID string, request *ai.Request) (ChatRequest, error) {
	body := ChatRequest{Model: modelID}

	for _, message := range request.Messages {
		wireMessages, err := convertMessage(message)
		if err != nil {
			return ChatRequest{}, err
		}
		body.Messages = append(body.Messages, wireMessages...)
	}

	options := request.Options
	if options.MaxOutputTokens > 0 {
		maxTokens := options.MaxOutputTokens
		body.MaxTokens = &maxTokens
	}
	body.Temperature = options.Temperature
	body.TopP = options.TopP
	body.FrequencyPenalty = options.FrequencyPenalty
	body.PresencePenalty = options.PresencePenalty
	body.Stop = options.StopSequences
	body.Seed = options.Seed

	for _, tool := range options.Tools {
		body.Tools = append(body.Tools, ChatTool{
			Type: "function",
			Function: ChatToolDecl{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	body.ToolChoice = convertToolChoice(options.ToolChoice)

	if format := options.ResponseFormat; format != nil && format.Type == ai.ResponseFormatJSON {
		if format.Schema != nil {
			name := format.Name
			if name == "" {
				name = "response"
			}
			body.ResponseFormat = &ChatResponseFormat{
				Type: "json_schema",
				JSONSchema: &ChatJSONSchema{
					Name:   name,
					Strict: true,
					Schema: format.Schema,
				},
			}
		} else {
			body.ResponseFormat = &ChatResponseFormat{Type: "json_object"}
		}
	}

	return body, nil
}

// convertMessage maps one canonical message onto its wire representation.
// Most messages convert 1:1; a message carrying several tool results
// expands into one wire message per result, because the OpenAI shape allows
// only a single tool_call_id per tool message.
func convertMessage(message ai.Message) ([]ChatMessage, error) {
	switch message.Role {
	case ai.RoleSystem:
		content, err := json.Marshal(message.Text())
		if err != nil {
			return nil, err
		}
		return []ChatMessage{{Role: "system", Content: content}}, nil

	case ai.RoleUser:
		content, err := encodeUserContent(message.Content)
		if err != nil {
			return nil, err
		}
		return []ChatMessage{{Role: "user", Content: content}}, nil

	case ai.RoleAssistant:
		wireMessage := ChatMessage{Role: "assistant"}

		if text := message.Text(); text != "" {
			content, err := json.Marshal(text)
			if err != nil {
				return nil, err
			}
			wireMessage.Content = content
		}

		for _, part := range message.Content {
			if part.Kind == ai.PartToolCall && part.ToolCall != nil {
				arguments := string(part.ToolCall.Arguments)
				if arguments == "" {
					arguments = "{}"
				}
				wireMessage.ToolCalls = append(wireMessage.ToolCalls, ChatToolCall{
					ID:   part.ToolCall.ID,
					Type: "function",
					Function: ChatToolFunction{
						Name:      part.ToolCall.Name,
						Arguments: arguments,
					},
				})
			}
		}
		return []ChatMessage{wireMessage}, nil

	case ai.RoleTool:
		var wireMessages []ChatMessage
		for _, part := range message.Content {
			if part.Kind != ai.PartToolResult || part.ToolResult == nil {
				continue
			}
			content, err := json.Marshal(part.ToolResult.Content)
			if err != nil {
				return nil, err
			}
			wireMessages = append(wireMessages, ChatMessage{
				Role:       "tool",
				ToolCallID: part.ToolResult.ToolCallID,
				Content:    content,
			})
		}
		return wireMessages, nil

	default:
		return nil, fmt.Errorf("unsupported message role %q", message.Role)
	}
}

// encodeUserContent encodes user message parts. A single text part encodes
// as a plain JSON string (smaller on the wire and accepted everywhere);
// anything multimodal becomes the content-part array form. Raw image bytes
// are carried as data URLs per the OpenAI convention.
func encodeUserContent(parts []ai.Part) (json.RawMessage, error) {
	if len(parts) == 1 && parts[0].Kind == ai.PartText {
		return json.Marshal(parts[0].Text)
	}

	var wireParts []map[string]any
	for _, part := range parts {
		switch part.Kind {
		case ai.PartText:
			wireParts = append(wireParts, map[string]any{"type": "text", "text": part.Text})

		case ai.PartImage:
			if part.Image == nil {
				continue
			}
			url := part.Image.URL
			if url == "" {
				url = fmt.Sprintf("data:%s;base64,%s", part.Image.MediaType, base64.StdEncoding.EncodeToString(part.Image.Data))
			}
			wireParts = append(wireParts, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": url},
			})

		case ai.PartFile:
			if part.File == nil {
				continue
			}
			wireParts = append(wireParts, map[string]any{
				"type": "file",
				"file": map[string]any{"file_id": part.File.URI},
			})

		default:
			// Tool calls and results never appear inside user messages;
			// reasoning and sources are output-only.
		}
	}

	return json.Marshal(wireParts)
}

// convertToolChoice maps the canonical tool choice onto the wire value:
// the strings "auto"/"required"/"none" or the forced-function object.
func convertToolChoice(choice *ai.ToolChoice) any {
	if choice == nil {
		return nil
	}
	switch choice.Mode {
	case ai.ToolChoiceAuto:
		return "auto"
	case ai.ToolChoiceRequired:
		return "required"
	case ai.ToolChoiceNone:
		return "none"
	case ai.ToolChoiceTool:
		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": choice.ToolName},
		}
	default:
		return nil
	}
}
