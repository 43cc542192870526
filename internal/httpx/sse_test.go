package httpx

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEScanner_UntypedFrames(t *testing.T) {
	input := "data: {\"a\":1}\n\n: keep-alive comment\n\ndata: {\"b\":2}\n\ndata: [DONE]\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	event, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, event.Data)
	assert.Empty(t, event.Type)

	event, err = scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, event.Data)

	_, err = scanner.Next()
	assert.Equal(t, io.EOF, err)
}

func TestSSEScanner_TypedFrames(t *testing.T) {
	input := "event: message_start\ndata: {\"type\":\"message_start\"}\n\nevent: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	event, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, "message_start", event.Type)
	assert.Equal(t, `{"type":"message_start"}`, event.Data)

	event, err = scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, "message_stop", event.Type)

	_, err = scanner.Next()
	assert.Equal(t, io.EOF, err)
}

func TestSSEScanner_MultiLineData(t *testing.T) {
	input := "data: line one\ndata: line two\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	event, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", event.Data)
}

func TestSSEScanner_UnterminatedFinalEvent(t *testing.T) {
	scanner := NewSSEScanner(strings.NewReader("data: {\"tail\":true}\n"))

	event, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"tail":true}`, event.Data)

	_, err = scanner.Next()
	assert.Equal(t, io.EOF, err)
}

func TestJSONLScanner_StripsArrayFraming(t *testing.T) {
	input := "[{\"n\":1}\n,{\"n\":2}\n]\n"
	scanner := NewJSONLScanner(strings.NewReader(input))

	line, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"n":1}`, line)

	line, err = scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"n":2}`, line)

	_, err = scanner.Next()
	assert.Equal(t, io.EOF, err)
}

func TestJSONLScanner_PlainObjectsPerLine(t *testing.T) {
	input := "{\"n\":1}\n{\"n\":2}\n"
	scanner := NewJSONLScanner(strings.NewReader(input))

	line, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"n":1}`, line)

	line, err = scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"n":2}`, line)
}
