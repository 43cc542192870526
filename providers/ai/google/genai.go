package google

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
)

/*
	##### WIRE REQUEST #####
*/

type generateRequest struct {
	SystemInstruction *wireContent      `json:"systemInstruction,omitempty"`
	Contents          []wireContent     `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	SafetySettings    []map[string]any  `json:"safetySettings,omitempty"`
	Tools             []wireToolSet     `json:"tools,omitempty"`
	ToolConfig        *toolConfig       `json:"toolConfig,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

// wirePart is the GenerateContent part union. Thought marks reasoning text
// on thinking models.
type wirePart struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`

	InlineData *struct {
		MimeType string `json:"mimeType"`
		Data     string `json:"data"`
	} `json:"inlineData,omitempty"`

	FileData *struct {
		MimeType string `json:"mimeType,omitempty"`
		FileURI  string `json:"fileUri"`
	} `json:"fileData,omitempty"`

	FunctionCall *struct {
		Name string         `json:"name"`
		Args map[string]any `json:"args,omitempty"`
	} `json:"functionCall,omitempty"`

	FunctionResponse *struct {
		Name     string         `json:"name"`
		Response map[string]any `json:"response"`
	} `json:"functionResponse,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	TopP             *float64       `json:"topP,omitempty"`
	TopK             int            `json:"topK,omitempty"`
	StopSequences    []string       `json:"stopSequences,omitempty"`
	Seed             *int           `json:"seed,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
	ThinkingConfig   map[string]any `json:"thinkingConfig,omitempty"`
}

type wireToolSet struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type toolConfig struct {
	FunctionCallingConfig functionCallingConfig `json:"functionCallingConfig"`
}

type functionCallingConfig struct {
	Mode                 string   `json:"mode"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

/*
	##### WIRE RESPONSE #####
*/

type generateResponse struct {
	Candidates []struct {
		Content      *wireContent `json:"content,omitempty"`
		FinishReason string       `json:"finishReason,omitempty"`
	} `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
	ResponseID    string         `json:"responseId,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount        int `json:"promptTokenCount"`
	CandidatesTokenCount    int `json:"candidatesTokenCount"`
	TotalTokenCount         int `json:"totalTokenCount"`
	ThoughtsTokenCount      int `json:"thoughtsTokenCount,omitempty"`
	CachedContentTokenCount int `json:"cachedContentTokenCount,omitempty"`
}

/*
	##### CONVERSION #####
*/

// providerOptions are the Google-native knobs accepted under
// provider_options["google"] (and "vertex" on the Vertex provider).
type providerOptions struct {
	SafetySettings []map[string]any `mapstructure:"safety_settings"`
	ThinkingConfig map[string]any   `mapstructure:"thinking_config"`
}

// buildRequest converts the canonical request into the GenerateContent
// shape. The system message becomes systemInstruction; roles map
// user→user, assistant→model; tool results become functionResponse parts
// carrying the name of the function that produced them.
func buildRequest(config Config, request *ai.Request) (generateRequest, error) {
	systemPrompt, rest := ai.SplitSystemPrompt(request.Messages)

	body := generateRequest{}
	if systemPrompt != "" {
		body.SystemInstruction = &wireContent{Parts: []wirePart{{Text: systemPrompt}}}
	}

	// functionResponse blocks name the function, not the call id; recover
	// the name from the originating tool call.
	callNames := map[string]string{}
	for _, message := range rest {
		for _, part := range message.Content {
			if part.Kind == ai.PartToolCall && part.ToolCall != nil {
				callNames[part.ToolCall.ID] = part.ToolCall.Name
			}
		}
	}

	for _, message := range rest {
		content, err := convertMessage(message, callNames)
		if err != nil {
			return generateRequest{}, err
		}
		body.Contents = append(body.Contents, content)
	}

	options := request.Options
	generation := &generationConfig{
		MaxOutputTokens: options.MaxOutputTokens,
		Temperature:     options.Temperature,
		TopP:            options.TopP,
		TopK:            options.TopK,
		StopSequences:   options.StopSequences,
		Seed:            options.Seed,
	}
	if format := options.ResponseFormat; format != nil && format.Type == ai.ResponseFormatJSON {
		generation.ResponseMimeType = "application/json"
		generation.ResponseSchema = format.Schema
	}

	if raw, ok := options.ProviderOptions[config.ProviderID]; ok {
		var extras providerOptions
		if err := mapstructure.Decode(raw, &extras); err != nil {
			return generateRequest{}, &aierr.ConfigError{
				Provider: config.ProviderID,
				Message:  fmt.Sprintf("invalid provider options: %v", err),
			}
		}
		body.SafetySettings = extras.SafetySettings
		generation.ThinkingConfig = extras.ThinkingConfig
	}
	body.GenerationConfig = generation

	if len(options.Tools) > 0 {
		toolSet := wireToolSet{}
		for _, tool := range options.Tools {
			toolSet.FunctionDeclarations = append(toolSet.FunctionDeclarations, functionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			})
		}
		body.Tools = []wireToolSet{toolSet}
	}
	body.ToolConfig = convertToolChoice(options.ToolChoice)

	return body, nil
}

func convertMessage(message ai.Message, callNames map[string]string) (wireContent, error) {
	role := "user"
	if message.Role == ai.RoleAssistant {
		role = "model"
	}

	content := wireContent{Role: role}
	for _, part := range message.Content {
		wire, err := convertPart(part, callNames)
		if err != nil {
			return wireContent{}, err
		}
		content.Parts = append(content.Parts, wire)
	}
	return content, nil
}

func convertPart(part ai.Part, callNames map[string]string) (wirePart, error) {
	switch part.Kind {
	case ai.PartText:
		return wirePart{Text: part.Text}, nil

	case ai.PartImage:
		if part.Image == nil {
			return wirePart{}, fmt.Errorf("image part without image data")
		}
		if len(part.Image.Data) > 0 {
			wire := wirePart{}
			wire.InlineData = &struct {
				MimeType string `json:"mimeType"`
				Data     string `json:"data"`
			}{MimeType: part.Image.MediaType, Data: base64.StdEncoding.EncodeToString(part.Image.Data)}
			return wire, nil
		}
		wire := wirePart{}
		wire.FileData = &struct {
			MimeType string `json:"mimeType,omitempty"`
			FileURI  string `json:"fileUri"`
		}{MimeType: part.Image.MediaType, FileURI: part.Image.URL}
		return wire, nil

	case ai.PartFile:
		if part.File == nil {
			return wirePart{}, fmt.Errorf("file part without file data")
		}
		wire := wirePart{}
		wire.FileData = &struct {
			MimeType string `json:"mimeType,omitempty"`
			FileURI  string `json:"fileUri"`
		}{MimeType: part.File.MediaType, FileURI: part.File.URI}
		return wire, nil

	case ai.PartToolCall:
		if part.ToolCall == nil {
			return wirePart{}, fmt.Errorf("tool call part without call data")
		}
		args, err := part.ToolCall.ArgumentsMap()
		if err != nil {
			return wirePart{}, err
		}
		wire := wirePart{}
		wire.FunctionCall = &struct {
			Name string         `json:"name"`
			Args map[string]any `json:"args,omitempty"`
		}{Name: part.ToolCall.Name, Args: args}
		return wire, nil

	case ai.PartToolResult:
		if part.ToolResult == nil {
			return wirePart{}, fmt.Errorf("tool result part without result data")
		}
		name := callNames[part.ToolResult.ToolCallID]
		if name == "" {
			name = part.ToolResult.ToolCallID
		}
		wire := wirePart{}
		wire.FunctionResponse = &struct {
			Name     string         `json:"name"`
			Response map[string]any `json:"response"`
		}{Name: name, Response: map[string]any{"result": part.ToolResult.Content}}
		return wire, nil

	case ai.PartReasoning:
		if part.Reasoning == nil {
			return wirePart{}, fmt.Errorf("reasoning part without reasoning data")
		}
		return wirePart{Text: part.Reasoning.Text, Thought: true}, nil

	default:
		return wirePart{}, fmt.Errorf("unsupported part kind %q", part.Kind)
	}
}

func convertToolChoice(choice *ai.ToolChoice) *toolConfig {
	if choice == nil {
		return nil
	}
	switch choice.Mode {
	case ai.ToolChoiceAuto:
		return &toolConfig{FunctionCallingConfig: functionCallingConfig{Mode: "AUTO"}}
	case ai.ToolChoiceRequired:
		return &toolConfig{FunctionCallingConfig: functionCallingConfig{Mode: "ANY"}}
	case ai.ToolChoiceNone:
		return &toolConfig{FunctionCallingConfig: functionCallingConfig{Mode: "NONE"}}
	case ai.ToolChoiceTool:
		return &toolConfig{FunctionCallingConfig: functionCallingConfig{
			Mode:                 "ANY",
			AllowedFunctionNames: []string{choice.ToolName},
		}}
	default:
		return nil
	}
}

// mapFinishReason converts a GenerateContent finishReason onto the
// canonical closed set.
func mapFinishReason(wire string) ai.FinishReason {
	switch wire {
	case "STOP":
		return ai.FinishStop
	case "MAX_TOKENS":
		return ai.FinishLength
	case "SAFETY", "RECITATION", "PROHIBITED_CONTENT", "BLOCKLIST":
		return ai.FinishContentFilter
	case "":
		return ai.FinishUnknown
	default:
		return ai.FinishOther
	}
}

// parseResponse converts a wire response into the canonical result.
// Function calls carry no wire id; ids are synthesised by the caller via
// newCallID so streaming and non-streaming paths share the scheme.
func parseResponse(response *generateResponse, newCallID func() string) *ai.Response {
	result := &ai.Response{
		FinishReason: ai.FinishUnknown,
		Response: ai.ResponseInfo{
			ID:      response.ResponseID,
			ModelID: response.ModelVersion,
		},
	}

	if len(response.Candidates) > 0 {
		candidate := response.Candidates[0]
		result.FinishReason = mapFinishReason(candidate.FinishReason)

		if candidate.Content != nil {
			sawFunctionCall := false
			for _, part := range candidate.Content.Parts {
				switch {
				case part.FunctionCall != nil:
					sawFunctionCall = true
					args, err := json.Marshal(part.FunctionCall.Args)
					if err != nil {
						args = []byte("{}")
					}
					result.Content = append(result.Content, ai.ToolCall(newCallID(), part.FunctionCall.Name, args))

				case part.Thought && part.Text != "":
					result.Content = append(result.Content, ai.Reasoning(part.Text))

				case part.Text != "":
					result.Content = append(result.Content, ai.Text(part.Text))
				}
			}
			// The API reports STOP even when the turn ended in tool calls.
			if sawFunctionCall && result.FinishReason == ai.FinishStop {
				result.FinishReason = ai.FinishToolCalls
			}
		}
	}

	if response.UsageMetadata != nil {
		result.Usage = convertUsage(response.UsageMetadata)
	}

	return result
}

func convertUsage(metadata *usageMetadata) ai.Usage {
	usage := ai.Usage{
		PromptTokens:     metadata.PromptTokenCount,
		CompletionTokens: metadata.CandidatesTokenCount,
		TotalTokens:      metadata.TotalTokenCount,
	}
	if metadata.ThoughtsTokenCount > 0 {
		thoughts := metadata.ThoughtsTokenCount
		usage.ReasoningTokens = &thoughts
	}
	if metadata.CachedContentTokenCount > 0 {
		cached := metadata.CachedContentTokenCount
		usage.CachedInputTokens = &cached
	}
	return usage
}
