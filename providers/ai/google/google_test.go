package google

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

func TestGenerate_RolesAndSystemInstruction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", request.URL.Path)
		assert.Equal(t, "test-key", request.Header.Get("x-goog-api-key"))

		body, _ := io.ReadAll(request.Body)
		var decoded generateRequest
		require.NoError(t, json.Unmarshal(body, &decoded))

		require.NotNil(t, decoded.SystemInstruction)
		assert.Equal(t, "be brief", decoded.SystemInstruction.Parts[0].Text)

		require.Len(t, decoded.Contents, 2)
		assert.Equal(t, "user", decoded.Contents[0].Role)
		assert.Equal(t, "model", decoded.Contents[1].Role)

		writer.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "short answer"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 8, "candidatesTokenCount": 2, "totalTokenCount": 10}
		}`))
	}))
	defer server.Close()

	model, err := testProvider(server.URL).LanguageModel("gemini-2.0-flash")
	require.NoError(t, err)

	response, err := model.Generate(context.Background(), &ai.Request{
		Messages: []ai.Message{
			ai.SystemMessage("be brief"),
			ai.UserText("question"),
			ai.AssistantMessage(ai.Text("earlier answer")),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "short answer", response.Text())
	assert.Equal(t, ai.FinishStop, response.FinishReason)
	assert.Equal(t, 10, response.Usage.TotalTokens)
}

func TestGenerate_FunctionCallGetsSynthesisedID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [
				{"functionCall": {"name": "get_weather", "args": {"city": "Rome"}}}
			]}, "finishReason": "STOP"}]
		}`))
	}))
	defer server.Close()

	model, err := testProvider(server.URL).LanguageModel("gemini-2.0-flash")
	require.NoError(t, err)

	response, err := model.Generate(context.Background(), &ai.Request{
		Messages: []ai.Message{ai.UserText("weather?")},
		Options:  ai.CallOptions{Tools: []ai.ToolDescription{{Name: "get_weather"}}},
	})
	require.NoError(t, err)

	// STOP with a function call present normalises to tool_calls.
	assert.Equal(t, ai.FinishToolCalls, response.FinishReason)
	calls := response.ToolCalls()
	require.Len(t, calls, 1)
	assert.NotEmpty(t, calls[0].ID)
	assert.JSONEq(t, `{"city":"Rome"}`, string(calls[0].Arguments))
}

func TestBuildRequest_ProviderOptionsOnTheWire(t *testing.T) {
	body, err := buildRequest(testProvider("https://unused").config(), &ai.Request{
		Messages: []ai.Message{ai.UserText("hi")},
		Options: ai.CallOptions{
			ProviderOptions: map[string]map[string]any{ProviderID: {
				"safety_settings": []map[string]any{{"category": "HARM_CATEGORY_HARASSMENT", "threshold": "BLOCK_NONE"}},
				"thinking_config": map[string]any{"thinkingBudget": 1024},
			}},
		},
	})
	require.NoError(t, err)

	require.Len(t, body.SafetySettings, 1)
	assert.Equal(t, "BLOCK_NONE", body.SafetySettings[0]["threshold"])
	require.NotNil(t, body.GenerationConfig)
	assert.Equal(t, 1024, body.GenerationConfig.ThinkingConfig["thinkingBudget"])
}

func TestBuildRequest_ToolResultCarriesFunctionName(t *testing.T) {
	body, err := buildRequest(testProvider("https://unused").config(), &ai.Request{
		Messages: []ai.Message{
			ai.UserText("weather?"),
			ai.AssistantMessage(ai.ToolCall("call-7", "get_weather", json.RawMessage(`{"city":"Oslo"}`))),
			ai.ToolMessage("call-7", "sunny", false),
		},
	})
	require.NoError(t, err)

	require.Len(t, body.Contents, 3)
	result := body.Contents[2].Parts[0].FunctionResponse
	require.NotNil(t, result)
	assert.Equal(t, "get_weather", result.Name)
}

func TestMapFinishReason_Table(t *testing.T) {
	tests := map[string]ai.FinishReason{
		"STOP":       ai.FinishStop,
		"MAX_TOKENS": ai.FinishLength,
		"SAFETY":     ai.FinishContentFilter,
		"RECITATION": ai.FinishContentFilter,
		"":           ai.FinishUnknown,
		"OTHER":      ai.FinishOther,
	}
	for wire, expected := range tests {
		assert.Equal(t, expected, mapFinishReason(wire), "wire value %q", wire)
	}
}

func TestStream_JSONArrayFraming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:streamGenerateContent", request.URL.Path)
		// The wire format is a JSON array split across lines.
		io.WriteString(writer, "[{\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"Hel\"}]}}]}\n")
		io.WriteString(writer, ",{\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"lo\"}]},\"finishReason\":\"STOP\"}],\"usageMetadata\":{\"promptTokenCount\":3,\"candidatesTokenCount\":2,\"totalTokenCount\":5}}\n")
		io.WriteString(writer, "]\n")
	}))
	defer server.Close()

	model, err := testProvider(server.URL).LanguageModel("gemini-2.0-flash")
	require.NoError(t, err)

	stream, err := model.Stream(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("hi")}})
	require.NoError(t, err)

	response, err := stream.Collect()
	require.NoError(t, err)

	assert.Equal(t, "Hello", response.Text())
	assert.Equal(t, ai.FinishStop, response.FinishReason)
	assert.Equal(t, 5, response.Usage.TotalTokens)
}

func TestEmbed_Batch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/models/text-embedding-004:batchEmbedContents", request.URL.Path)

		body, _ := io.ReadAll(request.Body)
		var decoded embedBatchRequest
		require.NoError(t, json.Unmarshal(body, &decoded))
		require.Len(t, decoded.Requests, 2)
		assert.Equal(t, "models/text-embedding-004", decoded.Requests[0].Model)

		writer.Write([]byte(`{"embeddings": [{"values": [0.1, 0.2]}, {"values": [0.3, 0.4]}]}`))
	}))
	defer server.Close()

	model, err := testProvider(server.URL).EmbeddingModel("text-embedding-004")
	require.NoError(t, err)

	result, err := model.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, result.Vectors, 2)
	assert.Equal(t, []float64{0.3, 0.4}, result.Vectors[1])
}
