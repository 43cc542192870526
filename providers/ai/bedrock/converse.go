package bedrock

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
)

/*
	##### WIRE REQUEST #####
*/

type converseRequest struct {
	Messages        []converseMessage `json:"messages"`
	System          []systemBlock     `json:"system,omitempty"`
	InferenceConfig *inferenceConfig  `json:"inferenceConfig,omitempty"`
	ToolConfig      *converseTools    `json:"toolConfig,omitempty"`

	AdditionalModelRequestFields map[string]any `json:"additionalModelRequestFields,omitempty"`
}

type systemBlock struct {
	Text string `json:"text"`
}

type converseMessage struct {
	Role    string          `json:"role"`
	Content []converseBlock `json:"content"`
}

// converseBlock is the Converse content union: exactly one field is set.
type converseBlock struct {
	Text string `json:"text,omitempty"`

	Image *struct {
		Format string `json:"format"`
		Source struct {
			Bytes []byte `json:"bytes"`
		} `json:"source"`
	} `json:"image,omitempty"`

	ToolUse *struct {
		ToolUseID string         `json:"toolUseId"`
		Name      string         `json:"name"`
		Input     map[string]any `json:"input"`
	} `json:"toolUse,omitempty"`

	ToolResult *struct {
		ToolUseID string `json:"toolUseId"`
		Content   []struct {
			Text string `json:"text"`
		} `json:"content"`
		Status string `json:"status,omitempty"`
	} `json:"toolResult,omitempty"`
}

type inferenceConfig struct {
	MaxTokens     int      `json:"maxTokens,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"topP,omitempty"`
	StopSequences []string `json:"stopSequences,omitempty"`
}

type converseTools struct {
	Tools      []converseTool `json:"tools"`
	ToolChoice map[string]any `json:"toolChoice,omitempty"`
}

type converseTool struct {
	ToolSpec toolSpec `json:"toolSpec"`
}

type toolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema"`
}

/*
	##### WIRE RESPONSE #####
*/

type converseResponse struct {
	Output struct {
		Message *converseMessage `json:"message,omitempty"`
	} `json:"output"`
	StopReason string `json:"stopReason"`
	Usage      *struct {
		InputTokens  int `json:"inputTokens"`
		OutputTokens int `json:"outputTokens"`
		TotalTokens  int `json:"totalTokens"`
	} `json:"usage,omitempty"`
}

/*
	##### CONVERSION #####
*/

// providerOptions are the Bedrock-native knobs accepted under
// provider_options["bedrock"].
type providerOptions struct {
	// AdditionalModelRequestFields passes provider-native parameters through
	// the Converse envelope untouched.
	AdditionalModelRequestFields map[string]any `mapstructure:"additional_model_request_fields"`
}

// buildRequest converts the canonical request into the Converse envelope.
func buildRequest(request *ai.Request) (converseRequest, error) {
	systemPrompt, rest := ai.SplitSystemPrompt(request.Messages)

	body := converseRequest{}
	if systemPrompt != "" {
		body.System = []systemBlock{{Text: systemPrompt}}
	}

	for _, message := range rest {
		wire, err := convertMessage(message)
		if err != nil {
			return converseRequest{}, err
		}
		body.Messages = append(body.Messages, wire)
	}

	options := request.Options
	if options.MaxOutputTokens > 0 || options.Temperature != nil || options.TopP != nil || len(options.StopSequences) > 0 {
		body.InferenceConfig = &inferenceConfig{
			MaxTokens:     options.MaxOutputTokens,
			Temperature:   options.Temperature,
			TopP:          options.TopP,
			StopSequences: options.StopSequences,
		}
	}

	if len(options.Tools) > 0 {
		tools := &converseTools{}
		for _, tool := range options.Tools {
			schema := tool.Parameters
			if schema == nil {
				schema = map[string]any{"type": "object"}
			}
			tools.Tools = append(tools.Tools, converseTool{ToolSpec: toolSpec{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: map[string]any{"json": schema},
			}})
		}
		tools.ToolChoice = convertToolChoice(options.ToolChoice)
		body.ToolConfig = tools
	}

	if raw, ok := options.ProviderOptions[ProviderID]; ok {
		var extras providerOptions
		if err := mapstructure.Decode(raw, &extras); err != nil {
			return converseRequest{}, &aierr.ConfigError{
				Provider: ProviderID,
				Message:  fmt.Sprintf("invalid provider options: %v", err),
			}
		}
		body.AdditionalModelRequestFields = extras.AdditionalModelRequestFields
	}

	return body, nil
}

func convertMessage(message ai.Message) (converseMessage, error) {
	role := "user"
	if message.Role == ai.RoleAssistant {
		role = "assistant"
	}

	wire := converseMessage{Role: role}
	for _, part := range message.Content {
		block, err := convertPart(part)
		if err != nil {
			return converseMessage{}, err
		}
		wire.Content = append(wire.Content, block)
	}
	return wire, nil
}

func convertPart(part ai.Part) (converseBlock, error) {
	switch part.Kind {
	case ai.PartText:
		return converseBlock{Text: part.Text}, nil

	case ai.PartImage:
		if part.Image == nil || len(part.Image.Data) == 0 {
			return converseBlock{}, fmt.Errorf("bedrock images require raw bytes")
		}
		block := converseBlock{}
		block.Image = &struct {
			Format string `json:"format"`
			Source struct {
				Bytes []byte `json:"bytes"`
			} `json:"source"`
		}{Format: imageFormat(part.Image.MediaType)}
		block.Image.Source.Bytes = part.Image.Data
		return block, nil

	case ai.PartToolCall:
		if part.ToolCall == nil {
			return converseBlock{}, fmt.Errorf("tool call part without call data")
		}
		input, err := part.ToolCall.ArgumentsMap()
		if err != nil {
			return converseBlock{}, err
		}
		block := converseBlock{}
		block.ToolUse = &struct {
			ToolUseID string         `json:"toolUseId"`
			Name      string         `json:"name"`
			Input     map[string]any `json:"input"`
		}{ToolUseID: part.ToolCall.ID, Name: part.ToolCall.Name, Input: input}
		return block, nil

	case ai.PartToolResult:
		if part.ToolResult == nil {
			return converseBlock{}, fmt.Errorf("tool result part without result data")
		}
		block := converseBlock{}
		status := ""
		if part.ToolResult.IsError {
			status = "error"
		}
		block.ToolResult = &struct {
			ToolUseID string `json:"toolUseId"`
			Content   []struct {
				Text string `json:"text"`
			} `json:"content"`
			Status string `json:"status,omitempty"`
		}{
			ToolUseID: part.ToolResult.ToolCallID,
			Content: []struct {
				Text string `json:"text"`
			}{{Text: part.ToolResult.Content}},
			Status: status,
		}
		return block, nil

	default:
		return converseBlock{}, fmt.Errorf("unsupported part kind %q", part.Kind)
	}
}

func imageFormat(mediaType string) string {
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

func convertToolChoice(choice *ai.ToolChoice) map[string]any {
	if choice == nil {
		return nil
	}
	switch choice.Mode {
	case ai.ToolChoiceAuto:
		return map[string]any{"auto": map[string]any{}}
	case ai.ToolChoiceRequired:
		return map[string]any{"any": map[string]any{}}
	case ai.ToolChoiceTool:
		return map[string]any{"tool": map[string]any{"name": choice.ToolName}}
	default:
		// Converse has no "none" mode; omitting toolConfig entirely is the
		// closest equivalent, handled by the caller.
		return nil
	}
}

// mapStopReason converts a Converse stopReason onto the canonical closed
// set.
func mapStopReason(wire string) ai.FinishReason {
	switch wire {
	case "end_turn", "stop_sequence":
		return ai.FinishStop
	case "max_tokens":
		return ai.FinishLength
	case "tool_use":
		return ai.FinishToolCalls
	case "content_filtered":
		return ai.FinishContentFilter
	case "":
		return ai.FinishUnknown
	default:
		return ai.FinishOther
	}
}

// parseResponse converts a Converse response into the canonical result.
func parseResponse(modelID string, response *converseResponse) *ai.Response {
	result := &ai.Response{
		FinishReason: mapStopReason(response.StopReason),
		Response:     ai.ResponseInfo{ModelID: modelID},
	}

	if response.Output.Message != nil {
		for _, block := range response.Output.Message.Content {
			switch {
			case block.ToolUse != nil:
				args, err := json.Marshal(block.ToolUse.Input)
				if err != nil {
					args = []byte("{}")
				}
				result.Content = append(result.Content, ai.ToolCall(block.ToolUse.ToolUseID, block.ToolUse.Name, args))
			case block.Text != "":
				result.Content = append(result.Content, ai.Text(block.Text))
			}
		}
	}

	if response.Usage != nil {
		result.Usage = ai.Usage{
			PromptTokens:     response.Usage.InputTokens,
			CompletionTokens: response.Usage.OutputTokens,
			TotalTokens:      response.Usage.TotalTokens,
		}
	}

	return result
}
