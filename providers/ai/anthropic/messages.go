package anthropic

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/manifold-ai/manifold/core/ai"
)

/*
	##### WIRE REQUEST #####
*/

type messagesRequest struct {
	Model         string         `json:"model"`
	MaxTokens     int            `json:"max_tokens"`
	Messages      []wireMessage  `json:"messages"`
	System        string         `json:"system,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	TopK          int            `json:"top_k,omitempty"`
	StopSequences []string       `json:"stop_sequences,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	Tools         []wireTool     `json:"tools,omitempty"`
	ToolChoice    map[string]any `json:"tool_choice,omitempty"`
}

type wireMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// contentBlock is the Messages API content block, a tagged union over Type:
// text, image, tool_use, tool_result, thinking.
type contentBlock struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	Source *imageSource `json:"source,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`

	Thinking string `json:"thinking,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

/*
	##### WIRE RESPONSE #####
*/

type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      *wireUsage     `json:"usage,omitempty"`
}

type wireUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
}

/*
	##### CONVERSION #####
*/

// buildRequest converts the canonical request into the Messages API shape.
// The system message becomes the top-level system field, and tool results
// ride inside user messages as tool_result blocks.
func buildRequest(modelID string, request *ai.Request) (messagesRequest, error) {
	systemPrompt, rest := ai.SplitSystemPrompt(request.Messages)

	body := messagesRequest{
		Model:     modelID,
		System:    systemPrompt,
		MaxTokens: defaultMaxTokens,
	}

	options := request.Options
	if options.MaxOutputTokens > 0 {
		body.MaxTokens = options.MaxOutputTokens
	}
	body.Temperature = options.Temperature
	body.TopP = options.TopP
	body.TopK = options.TopK
	body.StopSequences = options.StopSequences

	for _, message := range rest {
		wire, err := convertMessage(message)
		if err != nil {
			return messagesRequest{}, err
		}
		body.Messages = append(body.Messages, wire)
	}

	for _, tool := range options.Tools {
		schema := tool.Parameters
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		body.Tools = append(body.Tools, wireTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}
	body.ToolChoice = convertToolChoice(options.ToolChoice)

	return body, nil
}

func convertMessage(message ai.Message) (wireMessage, error) {
	switch message.Role {
	case ai.RoleUser, ai.RoleTool:
		// Tool results are user-role content blocks on this API.
		wire := wireMessage{Role: "user"}
		for _, part := range message.Content {
			block, err := convertPart(part)
			if err != nil {
				return wireMessage{}, err
			}
			wire.Content = append(wire.Content, block)
		}
		return wire, nil

	case ai.RoleAssistant:
		wire := wireMessage{Role: "assistant"}
		for _, part := range message.Content {
			block, err := convertPart(part)
			if err != nil {
				return wireMessage{}, err
			}
			wire.Content = append(wire.Content, block)
		}
		return wire, nil

	default:
		return wireMessage{}, fmt.Errorf("unsupported message role %q", message.Role)
	}
}

func convertPart(part ai.Part) (contentBlock, error) {
	switch part.Kind {
	case ai.PartText:
		return contentBlock{Type: "text", Text: part.Text}, nil

	case ai.PartImage:
		if part.Image == nil {
			return contentBlock{}, fmt.Errorf("image part without image data")
		}
		if part.Image.URL != "" {
			return contentBlock{Type: "image", Source: &imageSource{Type: "url", URL: part.Image.URL}}, nil
		}
		return contentBlock{Type: "image", Source: &imageSource{
			Type:      "base64",
			MediaType: part.Image.MediaType,
			Data:      base64.StdEncoding.EncodeToString(part.Image.Data),
		}}, nil

	case ai.PartToolCall:
		if part.ToolCall == nil {
			return contentBlock{}, fmt.Errorf("tool call part without call data")
		}
		input := part.ToolCall.Arguments
		if len(input) == 0 {
			input = json.RawMessage("{}")
		}
		return contentBlock{
			Type:  "tool_use",
			ID:    part.ToolCall.ID,
			Name:  part.ToolCall.Name,
			Input: input,
		}, nil

	case ai.PartToolResult:
		if part.ToolResult == nil {
			return contentBlock{}, fmt.Errorf("tool result part without result data")
		}
		return contentBlock{
			Type:      "tool_result",
			ToolUseID: part.ToolResult.ToolCallID,
			Content:   part.ToolResult.Content,
			IsError:   part.ToolResult.IsError,
		}, nil

	case ai.PartReasoning:
		if part.Reasoning == nil {
			return contentBlock{}, fmt.Errorf("reasoning part without reasoning data")
		}
		return contentBlock{Type: "thinking", Thinking: part.Reasoning.Text}, nil

	default:
		return contentBlock{}, fmt.Errorf("unsupported part kind %q", part.Kind)
	}
}

func convertToolChoice(choice *ai.ToolChoice) map[string]any {
	if choice == nil {
		return nil
	}
	switch choice.Mode {
	case ai.ToolChoiceAuto:
		return map[string]any{"type": "auto"}
	case ai.ToolChoiceRequired:
		return map[string]any{"type": "any"}
	case ai.ToolChoiceNone:
		return map[string]any{"type": "none"}
	case ai.ToolChoiceTool:
		return map[string]any{"type": "tool", "name": choice.ToolName}
	default:
		return nil
	}
}

// mapStopReason converts the Messages API stop_reason onto the canonical
// closed set.
func mapStopReason(wire string) ai.FinishReason {
	switch wire {
	case "end_turn", "stop_sequence":
		return ai.FinishStop
	case "max_tokens":
		return ai.FinishLength
	case "tool_use":
		return ai.FinishToolCalls
	case "":
		return ai.FinishUnknown
	default:
		return ai.FinishOther
	}
}

// parseResponse converts a wire response into the canonical result.
func parseResponse(response *messagesResponse) *ai.Response {
	result := &ai.Response{
		FinishReason: mapStopReason(response.StopReason),
		Response: ai.ResponseInfo{
			ID:      response.ID,
			ModelID: response.Model,
			Created: time.Now().UTC(),
		},
	}

	for _, block := range response.Content {
		switch block.Type {
		case "text":
			result.Content = append(result.Content, ai.Text(block.Text))
		case "thinking":
			result.Content = append(result.Content, ai.Reasoning(block.Thinking))
		case "tool_use":
			result.Content = append(result.Content, ai.ToolCall(block.ID, block.Name, block.Input))
		}
	}

	if response.Usage != nil {
		result.Usage = convertUsage(response.Usage)
	}

	return result
}

func convertUsage(usage *wireUsage) ai.Usage {
	converted := ai.Usage{
		PromptTokens:     usage.InputTokens,
		CompletionTokens: usage.OutputTokens,
		TotalTokens:      usage.InputTokens + usage.OutputTokens,
	}
	if usage.CacheReadInputTokens > 0 {
		cached := usage.CacheReadInputTokens
		converted.CachedInputTokens = &cached
	}
	return converted
}
