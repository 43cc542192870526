package openaicompat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
)

func testConfig(serverURL string) Config {
	return Config{
		ProviderID: "openai",
		BaseURL:    serverURL,
		APIKey:     "test-key",
	}
}

func TestGenerate_SimpleText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/chat/completions", request.URL.Path)
		assert.Equal(t, "Bearer test-key", request.Header.Get("Authorization"))

		body, _ := io.ReadAll(request.Body)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(body, &decoded))
		assert.Equal(t, "gpt-4o-mini", decoded["model"])

		writer.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1700000000, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4}
		}`))
	}))
	defer server.Close()

	model := NewLanguageModel(testConfig(server.URL), "gpt-4o-mini")
	response, err := model.Generate(context.Background(), &ai.Request{
		Messages: []ai.Message{ai.UserText("Say hi")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hi", response.Text())
	assert.Equal(t, ai.FinishStop, response.FinishReason)
	assert.Equal(t, 4, response.Usage.TotalTokens)
	assert.Equal(t, response.Usage.TotalTokens, response.Usage.PromptTokens+response.Usage.CompletionTokens)
	assert.Equal(t, "chatcmpl-1", response.Response.ID)
	assert.Equal(t, "gpt-4o-mini", response.Response.ModelID)
}

func TestGenerate_ToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte(`{
			"id": "chatcmpl-2", "model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": null,
				"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\":\"Rome\"}"}}]},
				"finish_reason": "tool_calls"}]
		}`))
	}))
	defer server.Close()

	model := NewLanguageModel(testConfig(server.URL), "gpt-4o-mini")
	response, err := model.Generate(context.Background(), &ai.Request{
		Messages: []ai.Message{ai.UserText("weather in Rome?")},
		Options: ai.CallOptions{
			Tools: []ai.ToolDescription{{Name: "get_weather", Parameters: map[string]any{"type": "object"}}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, ai.FinishToolCalls, response.FinishReason)
	calls := response.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.JSONEq(t, `{"city":"Rome"}`, string(calls[0].Arguments))
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	model := NewLanguageModel(Config{ProviderID: "openai", BaseURL: "https://unused"}, "gpt-4o-mini")
	_, err := model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("hi")}})
	require.Error(t, err)

	var configErr *aierr.ConfigError
	assert.ErrorAs(t, err, &configErr)
}

func TestGenerate_EmptyMessages(t *testing.T) {
	model := NewLanguageModel(testConfig("https://unused"), "gpt-4o-mini")
	_, err := model.Generate(context.Background(), &ai.Request{})
	assert.ErrorIs(t, err, ai.ErrInvalidMessages)
}

func TestGenerate_ReasoningContentSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte(`{
			"id": "x", "model": "deepseek-reasoner",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "4", "reasoning_content": "2+2 is 4"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.ProviderID = "deepseek"
	model := NewLanguageModel(config, "deepseek-reasoner")
	response, err := model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("2+2")}})
	require.NoError(t, err)

	assert.Equal(t, "4", response.Text())
	assert.Equal(t, "2+2 is 4", response.ReasoningText())
	// Reasoning precedes text in content order.
	assert.Equal(t, ai.PartReasoning, response.Content[0].Kind)
}

// Message list → request body → parsed canned echo keeps roles, content and
// tool-call ids structurally intact.
func TestRequestConversion_RoundTrip(t *testing.T) {
	messages := []ai.Message{
		ai.SystemMessage("be helpful"),
		ai.UserText("what is the weather?"),
		ai.AssistantMessage(ai.Text("checking"), ai.ToolCall("call_9", "get_weather", json.RawMessage(`{"city":"Oslo"}`))),
		ai.ToolMessage("call_9", "sunny", false),
	}

	body, err := BuildChatRequest("gpt-4o", &ai.Request{Messages: messages})
	require.NoError(t, err)
	require.Len(t, body.Messages, 4)

	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "user", body.Messages[1].Role)

	assistant := body.Messages[2]
	assert.Equal(t, "assistant", assistant.Role)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_9", assistant.ToolCalls[0].ID)
	assert.Equal(t, "get_weather", assistant.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"city":"Oslo"}`, assistant.ToolCalls[0].Function.Arguments)

	tool := body.Messages[3]
	assert.Equal(t, "tool", tool.Role)
	assert.Equal(t, "call_9", tool.ToolCallID)
	assert.Equal(t, `"sunny"`, string(tool.Content))
}

func TestRequestConversion_ImageBytesBecomeDataURL(t *testing.T) {
	body, err := BuildChatRequest("gpt-4o", &ai.Request{
		Messages: []ai.Message{ai.UserMessage(
			ai.Text("what is this?"),
			ai.ImageBytes([]byte{0x89, 0x50}, "image/png"),
		)},
	})
	require.NoError(t, err)

	var parts []map[string]any
	require.NoError(t, json.Unmarshal(body.Messages[0].Content, &parts))
	require.Len(t, parts, 2)

	imageURL := parts[1]["image_url"].(map[string]any)["url"].(string)
	assert.Contains(t, imageURL, "data:image/png;base64,")
}

func TestChatRequest_ExtraFieldsMerge(t *testing.T) {
	request := ChatRequest{Model: "grok-3", Extra: map[string]any{"search_parameters": map[string]any{"mode": "auto"}}}
	encoded, err := json.Marshal(request)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, "grok-3", decoded["model"])
	assert.Contains(t, decoded, "search_parameters")
}

func TestMapFinishReason_Table(t *testing.T) {
	tests := map[string]ai.FinishReason{
		"stop":           ai.FinishStop,
		"end_turn":       ai.FinishStop,
		"length":         ai.FinishLength,
		"max_tokens":     ai.FinishLength,
		"tool_calls":     ai.FinishToolCalls,
		"function_call":  ai.FinishToolCalls,
		"tool_use":       ai.FinishToolCalls,
		"content_filter": ai.FinishContentFilter,
		"":               ai.FinishUnknown,
		"weird_reason":   ai.FinishOther,
	}
	for wire, expected := range tests {
		assert.Equal(t, expected, MapFinishReason(wire), "wire value %q", wire)
	}
}
