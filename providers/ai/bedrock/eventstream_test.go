package bedrock

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manifold-ai/manifold/core/ai"
)

// encodeFrame builds one event-stream frame with a string :event-type
// header. CRC fields are zeroed; the reader skips them.
func encodeFrame(eventType string, payload []byte) []byte {
	var headers bytes.Buffer
	name := ":event-type"
	headers.WriteByte(byte(len(name)))
	headers.WriteString(name)
	headers.WriteByte(headerTypeString)
	binary.Write(&headers, binary.BigEndian, uint16(len(eventType)))
	headers.WriteString(eventType)

	totalLength := 12 + headers.Len() + len(payload) + 4

	var frame bytes.Buffer
	binary.Write(&frame, binary.BigEndian, uint32(totalLength))
	binary.Write(&frame, binary.BigEndian, uint32(headers.Len()))
	binary.Write(&frame, binary.BigEndian, uint32(0)) // prelude CRC
	frame.Write(headers.Bytes())
	frame.Write(payload)
	binary.Write(&frame, binary.BigEndian, uint32(0)) // message CRC
	return frame.Bytes()
}

func TestEventStreamReader_Frames(t *testing.T) {
	var wire bytes.Buffer
	wire.Write(encodeFrame("messageStart", []byte(`{"role":"assistant"}`)))
	wire.Write(encodeFrame("messageStop", []byte(`{"stopReason":"end_turn"}`)))

	reader := newEventStreamReader(&wire)

	first, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "messageStart", first.EventType())
	assert.JSONEq(t, `{"role":"assistant"}`, string(first.Payload))

	second, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "messageStop", second.EventType())

	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}

func TestEventStreamReader_TruncatedPrelude(t *testing.T) {
	frame := encodeFrame("messageStart", []byte(`{"role":"assistant"}`))

	reader := newEventStreamReader(bytes.NewReader(frame[:7]))
	_, err := reader.Next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestEventStreamReader_InvalidLength(t *testing.T) {
	var wire bytes.Buffer
	binary.Write(&wire, binary.BigEndian, uint32(4)) // impossible total length
	binary.Write(&wire, binary.BigEndian, uint32(0))
	binary.Write(&wire, binary.BigEndian, uint32(0))

	reader := newEventStreamReader(&wire)
	_, err := reader.Next()
	assert.Error(t, err)
}

func TestStream_ConverseEventSequence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/model/anthropic.claude-3-sonnet/converse-stream", request.URL.Path)

		writer.Write(encodeFrame("messageStart", []byte(`{"role":"assistant"}`)))
		writer.Write(encodeFrame("contentBlockDelta", []byte(`{"contentBlockIndex":0,"delta":{"text":"Hel"}}`)))
		writer.Write(encodeFrame("contentBlockDelta", []byte(`{"contentBlockIndex":0,"delta":{"text":"lo"}}`)))
		writer.Write(encodeFrame("contentBlockStop", []byte(`{"contentBlockIndex":0}`)))
		writer.Write(encodeFrame("messageStop", []byte(`{"stopReason":"end_turn"}`)))
		writer.Write(encodeFrame("metadata", []byte(`{"usage":{"inputTokens":3,"outputTokens":2,"totalTokens":5}}`)))
	}))
	defer server.Close()

	model, err := testProvider(server.URL).LanguageModel("anthropic.claude-3-sonnet")
	require.NoError(t, err)

	stream, err := model.Stream(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("hi")}})
	require.NoError(t, err)

	var events []ai.StreamEvent
	for event, iterErr := range stream.Events() {
		require.NoError(t, iterErr)
		events = append(events, event)
	}

	types := make([]ai.StreamEventType, len(events))
	for i, event := range events {
		types[i] = event.Type
	}
	assert.Equal(t, []ai.StreamEventType{
		ai.EventResponseMetadata,
		ai.EventTextStart, ai.EventTextDelta, ai.EventTextDelta, ai.EventTextEnd,
		ai.EventFinish,
	}, types)

	finish := events[len(events)-1]
	assert.Equal(t, ai.FinishStop, finish.FinishReason)
	require.NotNil(t, finish.Usage)
	assert.Equal(t, 5, finish.Usage.TotalTokens)
}

func TestStream_ToolUseAccumulation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write(encodeFrame("messageStart", []byte(`{"role":"assistant"}`)))
		writer.Write(encodeFrame("contentBlockStart", []byte(`{"contentBlockIndex":0,"start":{"toolUse":{"toolUseId":"use-9","name":"add"}}}`)))
		writer.Write(encodeFrame("contentBlockDelta", []byte(`{"contentBlockIndex":0,"delta":{"toolUse":{"input":"{\"a\":2,"}}}`)))
		writer.Write(encodeFrame("contentBlockDelta", []byte(`{"contentBlockIndex":0,"delta":{"toolUse":{"input":"\"b\":3}"}}}`)))
		writer.Write(encodeFrame("contentBlockStop", []byte(`{"contentBlockIndex":0}`)))
		writer.Write(encodeFrame("messageStop", []byte(`{"stopReason":"tool_use"}`)))
	}))
	defer server.Close()

	model, err := testProvider(server.URL).LanguageModel("anthropic.claude-3-sonnet")
	require.NoError(t, err)

	stream, err := model.Stream(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("2+3")}})
	require.NoError(t, err)

	response, err := stream.Collect()
	require.NoError(t, err)

	assert.Equal(t, ai.FinishToolCalls, response.FinishReason)
	calls := response.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "use-9", calls[0].ID)
	assert.JSONEq(t, `{"a":2,"b":3}`, string(calls[0].Arguments))
}
