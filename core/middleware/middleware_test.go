package middleware

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manifold-ai/manifold/core/ai"
)

// fakeModel is a scriptable LanguageModel for middleware tests.
type fakeModel struct {
	generateCalls atomic.Int32
	response      *ai.Response
	err           error
	lastRequest   *ai.Request
	events        []ai.StreamEvent
}

func (m *fakeModel) ProviderID() string { return "fake" }
func (m *fakeModel) ModelID() string    { return "fake-1" }

func (m *fakeModel) Generate(_ context.Context, request *ai.Request) (*ai.Response, error) {
	m.generateCalls.Add(1)
	m.lastRequest = request
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *fakeModel) Stream(_ context.Context, request *ai.Request) (*ai.Stream, error) {
	m.lastRequest = request
	if m.err != nil {
		return nil, m.err
	}
	events := m.events
	return ai.NewStream(func(yield func(ai.StreamEvent, error) bool) {
		for _, event := range events {
			if !yield(event, nil) {
				return
			}
		}
	}), nil
}

func textResponse(text string) *ai.Response {
	return &ai.Response{
		Content:      []ai.Part{ai.Text(text)},
		FinishReason: ai.FinishStop,
		Usage:        ai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func TestWrapLanguageModel_Identity(t *testing.T) {
	model := &fakeModel{response: textResponse("hi")}
	assert.Same(t, ai.LanguageModel(model), WrapLanguageModel(model))
}

func TestWrapLanguageModel_Ordering(t *testing.T) {
	var trace []string

	named := func(name string) Middleware {
		return Middleware{
			TransformParams: func(_ context.Context, request *ai.Request, _ OpType, _ ai.LanguageModel) (*ai.Request, error) {
				trace = append(trace, "transform:"+name)
				return request, nil
			},
			WrapGenerate: func(next GenerateFunc, _ ai.LanguageModel) GenerateFunc {
				return func(ctx context.Context, request *ai.Request) (*ai.Response, error) {
					trace = append(trace, "enter:"+name)
					response, err := next(ctx, request)
					trace = append(trace, "exit:"+name)
					return response, err
				}
			},
		}
	}

	model := WrapLanguageModel(&fakeModel{response: textResponse("hi")}, named("outer"), named("inner"))
	_, err := model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("q")}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"transform:outer", "transform:inner",
		"enter:outer", "enter:inner",
		"exit:inner", "exit:outer",
	}, trace)
}

func TestCaching_HitSkipsAdapter(t *testing.T) {
	inner := &fakeModel{response: textResponse("cached answer")}
	model := WrapLanguageModel(inner, Caching(NewMemoryStore(), time.Minute))
	request := &ai.Request{Messages: []ai.Message{ai.UserText("q")}}

	first, err := model.Generate(context.Background(), request)
	require.NoError(t, err)
	second, err := model.Generate(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, first.Text(), second.Text())
	assert.Equal(t, int32(1), inner.generateCalls.Load())
}

func TestCaching_DistinctRequestsMiss(t *testing.T) {
	inner := &fakeModel{response: textResponse("a")}
	model := WrapLanguageModel(inner, Caching(NewMemoryStore(), time.Minute))

	_, err := model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("one")}})
	require.NoError(t, err)
	_, err = model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("two")}})
	require.NoError(t, err)

	assert.Equal(t, int32(2), inner.generateCalls.Load())
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), time.Millisecond))

	_, found, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, found)

	time.Sleep(5 * time.Millisecond)
	_, found, err = store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheKey_Deterministic(t *testing.T) {
	request := &ai.Request{
		Messages: []ai.Message{ai.UserText("q")},
		Options: ai.CallOptions{ProviderOptions: map[string]map[string]any{
			"x": {"b": 2, "a": 1},
		}},
	}
	assert.Equal(t, CacheKey("p", "m", request), CacheKey("p", "m", request))
	assert.NotEqual(t, CacheKey("p", "m", request), CacheKey("p", "other", request))
}

func TestDefaultSettings_FillsUnsetOnly(t *testing.T) {
	temperature := 0.2
	inner := &fakeModel{response: textResponse("hi")}
	model := WrapLanguageModel(inner, DefaultSettings(DefaultSettingsConfig{
		Options:      ai.CallOptions{MaxOutputTokens: 512, Temperature: &temperature},
		SystemPrompt: "be brief",
	}))

	callerTemperature := 0.9
	_, err := model.Generate(context.Background(), &ai.Request{
		Messages: []ai.Message{ai.UserText("q")},
		Options:  ai.CallOptions{Temperature: &callerTemperature},
	})
	require.NoError(t, err)

	sent := inner.lastRequest
	assert.Equal(t, ai.RoleSystem, sent.Messages[0].Role)
	assert.Equal(t, "be brief", sent.Messages[0].Text())
	assert.Equal(t, 512, sent.Options.MaxOutputTokens)
	assert.Equal(t, 0.9, *sent.Options.Temperature)
}

func TestDefaultSettings_KeepsExistingSystemMessage(t *testing.T) {
	inner := &fakeModel{response: textResponse("hi")}
	model := WrapLanguageModel(inner, DefaultSettings(DefaultSettingsConfig{SystemPrompt: "default"}))

	_, err := model.Generate(context.Background(), &ai.Request{
		Messages: []ai.Message{ai.SystemMessage("custom"), ai.UserText("q")},
	})
	require.NoError(t, err)

	assert.Len(t, inner.lastRequest.Messages, 2)
	assert.Equal(t, "custom", inner.lastRequest.Messages[0].Text())
}

func TestTelemetry_GenerateRecord(t *testing.T) {
	var records []TelemetryRecord
	inner := &fakeModel{response: textResponse("hi")}
	model := WrapLanguageModel(inner, Telemetry(func(record TelemetryRecord) {
		records = append(records, record)
	}))

	_, err := model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("q")}})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "fake", records[0].Provider)
	assert.Equal(t, OpGenerate, records[0].Op)
	assert.Equal(t, "ok", records[0].Status)
	assert.Equal(t, 10, records[0].InputTokens)
	assert.Equal(t, 5, records[0].OutputTokens)
}

func TestTelemetry_StreamRecordAfterFinish(t *testing.T) {
	var records []TelemetryRecord
	inner := &fakeModel{events: []ai.StreamEvent{
		{Type: ai.EventTextStart, ID: "0"},
		{Type: ai.EventTextDelta, ID: "0", Delta: "hi"},
		{Type: ai.EventTextEnd, ID: "0"},
		{Type: ai.EventFinish, FinishReason: ai.FinishStop, Usage: &ai.Usage{PromptTokens: 3, CompletionTokens: 1}},
	}}
	model := WrapLanguageModel(inner, Telemetry(func(record TelemetryRecord) {
		records = append(records, record)
	}))

	stream, err := model.Stream(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("q")}})
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = stream.Collect()
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, OpStream, records[0].Op)
	assert.Equal(t, 3, records[0].InputTokens)
}

func TestExtractReasoning(t *testing.T) {
	inner := &fakeModel{response: &ai.Response{
		Content:      []ai.Part{ai.Text("<think>step one</think>\nThe answer is 4.")},
		FinishReason: ai.FinishStop,
	}}
	model := WrapLanguageModel(inner, ExtractReasoning("think"))

	response, err := model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("2+2?")}})
	require.NoError(t, err)

	require.Len(t, response.Content, 2)
	assert.Equal(t, ai.PartText, response.Content[0].Kind)
	assert.Equal(t, "The answer is 4.", response.Content[0].Text)
	assert.Equal(t, ai.PartReasoning, response.Content[1].Kind)
	assert.Equal(t, "step one", response.Content[1].Reasoning.Text)
}

func TestExtractReasoning_SurroundingTextJoined(t *testing.T) {
	inner := &fakeModel{response: &ai.Response{
		Content:      []ai.Part{ai.Text("before<thinking>because</thinking>after")},
		FinishReason: ai.FinishStop,
	}}
	model := WrapLanguageModel(inner, ExtractReasoning("thinking"))

	response, err := model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("q")}})
	require.NoError(t, err)

	require.Len(t, response.Content, 2)
	assert.Equal(t, "before\nafter", response.Content[0].Text)
	assert.Equal(t, "because", response.Content[1].Reasoning.Text)
	assert.Equal(t, "before\nafter", response.Text())
}

func TestExtractReasoning_UnclosedTag(t *testing.T) {
	inner := &fakeModel{response: &ai.Response{
		Content:      []ai.Part{ai.Text("prefix <think>cut off")},
		FinishReason: ai.FinishLength,
	}}
	model := WrapLanguageModel(inner, ExtractReasoning("think"))

	response, err := model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("q")}})
	require.NoError(t, err)

	require.Len(t, response.Content, 2)
	assert.Equal(t, "prefix", response.Content[0].Text)
	assert.Equal(t, "cut off", response.Content[1].Reasoning.Text)
}

func TestSimulateStreaming_CanonicalSequence(t *testing.T) {
	inner := &fakeModel{response: &ai.Response{
		Content: []ai.Part{
			ai.Reasoning("thinking"),
			ai.Text("answer"),
			ai.ToolCall("call-1", "lookup", []byte(`{"q":1}`)),
		},
		FinishReason: ai.FinishToolCalls,
		Usage:        ai.Usage{PromptTokens: 2, CompletionTokens: 3, TotalTokens: 5},
		Response:     ai.ResponseInfo{ID: "resp-1", ModelID: "fake-1"},
	}}
	model := WrapLanguageModel(inner, SimulateStreaming())

	stream, err := model.Stream(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("q")}})
	require.NoError(t, err)

	var types []ai.StreamEventType
	for event, iterErr := range stream.Events() {
		require.NoError(t, iterErr)
		types = append(types, event.Type)
	}

	assert.Equal(t, []ai.StreamEventType{
		ai.EventResponseMetadata,
		ai.EventReasoningStart, ai.EventReasoningDelta, ai.EventReasoningEnd,
		ai.EventTextStart, ai.EventTextDelta, ai.EventTextEnd,
		ai.EventToolInputStart, ai.EventToolInputDelta, ai.EventToolInputEnd, ai.EventToolCall,
		ai.EventFinish,
	}, types)
	assert.Equal(t, int32(1), inner.generateCalls.Load())
}

func TestSimulateStreaming_CollectRoundTrip(t *testing.T) {
	inner := &fakeModel{response: textResponse("round trip")}
	model := WrapLanguageModel(inner, SimulateStreaming())

	stream, err := model.Stream(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("q")}})
	require.NoError(t, err)

	collected, err := stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, "round trip", collected.Text())
	assert.Equal(t, ai.FinishStop, collected.FinishReason)
	assert.Equal(t, 15, collected.Usage.TotalTokens)
}
