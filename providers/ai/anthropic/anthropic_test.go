package anthropic

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
)

func testProvider(serverURL string) *Provider {
	return New(WithAPIKey("test-key"), WithBaseURL(serverURL))
}

func TestGenerate_SystemBecomesTopLevelField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/messages", request.URL.Path)
		assert.Equal(t, "test-key", request.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, request.Header.Get("anthropic-version"))

		body, _ := io.ReadAll(request.Body)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(body, &decoded))

		assert.Equal(t, "be terse", decoded["system"])
		messages := decoded["messages"].([]any)
		require.Len(t, messages, 1)
		assert.Equal(t, "user", messages[0].(map[string]any)["role"])
		assert.Equal(t, float64(defaultMaxTokens), decoded["max_tokens"])

		writer.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4",
			"content": [{"type": "text", "text": "ok"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 1}
		}`))
	}))
	defer server.Close()

	model, err := testProvider(server.URL).LanguageModel("claude-sonnet-4")
	require.NoError(t, err)

	response, err := model.Generate(context.Background(), &ai.Request{
		Messages: []ai.Message{ai.SystemMessage("be terse"), ai.UserText("hi")},
	})
	require.NoError(t, err)

	assert.Equal(t, "ok", response.Text())
	assert.Equal(t, ai.FinishStop, response.FinishReason)
	assert.Equal(t, 11, response.Usage.TotalTokens)
}

func TestGenerate_ToolResultRidesInUserMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		var decoded struct {
			Messages []wireMessage `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(body, &decoded))
		require.Len(t, decoded.Messages, 3)

		assistant := decoded.Messages[1]
		assert.Equal(t, "assistant", assistant.Role)
		require.Len(t, assistant.Content, 1)
		assert.Equal(t, "tool_use", assistant.Content[0].Type)
		assert.Equal(t, "toolu_1", assistant.Content[0].ID)

		toolTurn := decoded.Messages[2]
		assert.Equal(t, "user", toolTurn.Role)
		require.Len(t, toolTurn.Content, 1)
		assert.Equal(t, "tool_result", toolTurn.Content[0].Type)
		assert.Equal(t, "toolu_1", toolTurn.Content[0].ToolUseID)
		assert.Equal(t, "42", toolTurn.Content[0].Content)

		writer.Write([]byte(`{
			"id": "msg_2", "model": "claude-sonnet-4",
			"content": [{"type": "text", "text": "the answer is 42"}],
			"stop_reason": "end_turn"
		}`))
	}))
	defer server.Close()

	model, err := testProvider(server.URL).LanguageModel("claude-sonnet-4")
	require.NoError(t, err)

	_, err = model.Generate(context.Background(), &ai.Request{
		Messages: []ai.Message{
			ai.UserText("what is the answer?"),
			ai.AssistantMessage(ai.ToolCall("toolu_1", "oracle", json.RawMessage(`{}`))),
			ai.ToolMessage("toolu_1", "42", false),
		},
	})
	require.NoError(t, err)
}

func TestGenerate_ToolUseResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte(`{
			"id": "msg_3", "model": "claude-sonnet-4",
			"content": [
				{"type": "text", "text": "let me check"},
				{"type": "tool_use", "id": "toolu_2", "name": "get_weather", "input": {"city": "Rome"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 20, "output_tokens": 15}
		}`))
	}))
	defer server.Close()

	model, err := testProvider(server.URL).LanguageModel("claude-sonnet-4")
	require.NoError(t, err)

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
	assert.Equal(t, "toolu_2", calls[0].ID)
	assert.JSONEq(t, `{"city":"Rome"}`, string(calls[0].Arguments))
}

func TestConvertPart_ImageBytesBecomeBase64Source(t *testing.T) {
	block, err := convertPart(ai.ImageBytes([]byte{0x89, 0x50}, "image/png"))
	require.NoError(t, err)

	assert.Equal(t, "image", block.Type)
	require.NotNil(t, block.Source)
	assert.Equal(t, "base64", block.Source.Type)
	assert.Equal(t, "image/png", block.Source.MediaType)
	assert.Equal(t, "iVA=", block.Source.Data)
}

func TestMapStopReason_Table(t *testing.T) {
	tests := map[string]ai.FinishReason{
		"end_turn":      ai.FinishStop,
		"stop_sequence": ai.FinishStop,
		"max_tokens":    ai.FinishLength,
		"tool_use":      ai.FinishToolCalls,
		"":              ai.FinishUnknown,
		"pause_turn":    ai.FinishOther,
	}
	for wire, expected := range tests {
		assert.Equal(t, expected, mapStopReason(wire), "wire value %q", wire)
	}
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	model, err := New(WithAPIKey("")).LanguageModel("claude-sonnet-4")
	require.NoError(t, err)

	_, err = model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("hi")}})
	assert.Error(t, err)
}
