package ai

import (
	"encoding/json"
	"iter"
	"strings"
)

// StreamEventType identifies the kind of payload carried by a [StreamEvent].
type StreamEventType string

const (
	// EventResponseMetadata carries server-echoed response metadata and, when
	// present, appears before any block event.
	EventResponseMetadata StreamEventType = "response_metadata"

	// EventTextStart opens a text block.
	EventTextStart StreamEventType = "text_start"
	// EventTextDelta appends a fragment to an open text block.
	EventTextDelta StreamEventType = "text_delta"
	// EventTextEnd closes a text block.
	EventTextEnd StreamEventType = "text_end"

	// EventReasoningStart opens a reasoning block.
	EventReasoningStart StreamEventType = "reasoning_start"
	// EventReasoningDelta appends a fragment to an open reasoning block.
	EventReasoningDelta StreamEventType = "reasoning_delta"
	// EventReasoningEnd closes a reasoning block.
	EventReasoningEnd StreamEventType = "reasoning_end"

	// EventToolInputStart opens a tool-input block and names the tool.
	EventToolInputStart StreamEventType = "tool_input_start"
	// EventToolInputDelta appends a JSON argument fragment to a tool-input block.
	EventToolInputDelta StreamEventType = "tool_input_delta"
	// EventToolInputEnd closes a tool-input block.
	EventToolInputEnd StreamEventType = "tool_input_end"
	// EventToolCall carries the consolidated tool call after its input block
	// has closed.
	EventToolCall StreamEventType = "tool_call"

	// EventSource carries a citation from a search-augmented provider.
	EventSource StreamEventType = "source"

	// EventFinish terminates the stream with the finish reason and final
	// usage. Exactly one finish event appears per stream, and it is last.
	EventFinish StreamEventType = "finish"
)

// StreamEvent is one element of the ordered event sequence produced by a
// streaming generation. Events form block-structured runs: start/delta/end
// events for the same block share an ID assigned by the adapter. Blocks may
// interleave, so consumers must key accumulation by ID rather than assuming
// contiguous arrival.
type StreamEvent struct {
	Type StreamEventType `json:"type"`

	// ID is the block id for block-scoped events (text, reasoning, tool input).
	ID string `json:"id,omitempty"`

	// Delta is the payload fragment for delta events. Concatenating the
	// deltas of one block reconstructs the block's full payload.
	Delta string `json:"delta,omitempty"`

	// ToolName names the tool on EventToolInputStart.
	ToolName string `json:"tool_name,omitempty"`

	// ToolCall is the consolidated call on EventToolCall.
	ToolCall *ToolCallData `json:"tool_call,omitempty"`

	// Source is the citation on EventSource.
	Source *SourceData `json:"source,omitempty"`

	// Response is the server metadata on EventResponseMetadata.
	Response *ResponseInfo `json:"response,omitempty"`

	// FinishReason and Usage are populated on EventFinish.
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	Usage        *Usage       `json:"usage,omitempty"`
}

// Stream is the lazy, single-consumer event sequence returned by a streaming
// generation. Callers must consume it — either by ranging over Events()
// (breaking early is fine and releases the underlying connection) or by
// calling Collect(). A Stream that is never iterated leaks the provider's
// open HTTP response body.
type Stream struct {
	events iter.Seq2[StreamEvent, error]
}

// NewStream wraps a raw event iterator. The iterator yields events with a
// nil error for normal progress and a non-nil error exactly once to signal a
// mid-stream failure, after which it returns.
func NewStream(events iter.Seq2[StreamEvent, error]) *Stream {
	return &Stream{events: events}
}

// Events returns the underlying iterator for use with range-over-func
// loops:
//
//	for event, err := range stream.Events() {
//	    if err != nil { ... }
//	    switch event.Type { ... }
//	}
func (s *Stream) Events() iter.Seq2[StreamEvent, error] {
	return s.events
}

// Collect drains the stream and reassembles it into a [Response]. Block
// deltas are accumulated by id, tool calls are taken from their consolidated
// EventToolCall events, and the finish event supplies the finish reason and
// usage. A mid-stream error terminates collection and returns the partial
// response alongside the error; events already folded in remain valid.
func (s *Stream) Collect() (*Response, error) {
	response := &Response{FinishReason: FinishUnknown}

	// Open blocks are accumulated here, keyed by block id. Each block also
	// remembers the index of its placeholder in response.Content so the final
	// payload lands at the position the block was opened, preserving order
	// even when blocks interleave.
	type openBlock struct {
		partIndex int
		buf       strings.Builder
	}
	textBlocks := map[string]*openBlock{}
	reasoningBlocks := map[string]*openBlock{}
	toolNames := map[string]string{}
	toolArgs := map[string]*strings.Builder{}
	toolPartIndex := map[string]int{}

	for event, err := range s.events {
		if err != nil {
			return response, err
		}

		switch event.Type {
		case EventResponseMetadata:
			if event.Response != nil {
				response.Response = *event.Response
			}

		case EventTextStart:
			response.Content = append(response.Content, Text(""))
			textBlocks[event.ID] = &openBlock{partIndex: len(response.Content) - 1}

		case EventTextDelta:
			if block := textBlocks[event.ID]; block != nil {
				block.buf.WriteString(event.Delta)
			}

		case EventTextEnd:
			if block := textBlocks[event.ID]; block != nil {
				response.Content[block.partIndex].Text = block.buf.String()
				delete(textBlocks, event.ID)
			}

		case EventReasoningStart:
			response.Content = append(response.Content, Reasoning(""))
			reasoningBlocks[event.ID] = &openBlock{partIndex: len(response.Content) - 1}

		case EventReasoningDelta:
			if block := reasoningBlocks[event.ID]; block != nil {
				block.buf.WriteString(event.Delta)
			}

		case EventReasoningEnd:
			if block := reasoningBlocks[event.ID]; block != nil {
				response.Content[block.partIndex].Reasoning.Text = block.buf.String()
				delete(reasoningBlocks, event.ID)
			}

		case EventToolInputStart:
			toolNames[event.ID] = event.ToolName
			toolArgs[event.ID] = &strings.Builder{}
			response.Content = append(response.Content, ToolCall(event.ID, event.ToolName, nil))
			toolPartIndex[event.ID] = len(response.Content) - 1

		case EventToolInputDelta:
			if buf := toolArgs[event.ID]; buf != nil {
				buf.WriteString(event.Delta)
			}

		case EventToolInputEnd:
			// Arguments are finalised by the consolidated EventToolCall that
			// follows; nothing to do here.

		case EventToolCall:
			if event.ToolCall != nil {
				if index, ok := toolPartIndex[event.ToolCall.ID]; ok {
					response.Content[index].ToolCall = event.ToolCall
				} else {
					// Consolidated call without a preceding input block
					// (providers that send tool calls whole).
					response.Content = append(response.Content, Part{Kind: PartToolCall, ToolCall: event.ToolCall})
				}
			}

		case EventSource:
			if event.Source != nil {
				response.Content = append(response.Content, Part{Kind: PartSource, Source: event.Source})
			}

		case EventFinish:
			response.FinishReason = event.FinishReason
			if event.Usage != nil {
				response.Usage = *event.Usage
			}
		}
	}

	// Flush blocks the stream never closed (truncated streams) so partial
	// content is not lost.
	for id, block := range textBlocks {
		response.Content[block.partIndex].Text = block.buf.String()
		delete(textBlocks, id)
	}
	for id, block := range reasoningBlocks {
		response.Content[block.partIndex].Reasoning.Text = block.buf.String()
		delete(reasoningBlocks, id)
	}
	for id, buf := range toolArgs {
		index := toolPartIndex[id]
		if response.Content[index].ToolCall != nil && len(response.Content[index].ToolCall.Arguments) == 0 && buf.Len() > 0 {
			response.Content[index].ToolCall.Arguments = json.RawMessage(buf.String())
		}
	}

	return response, nil
}
