package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/internal/httpx"
)

/*
	##### WIRE STREAM #####
*/

// streamEvent is the envelope of one Messages API stream event. The API
// uses typed SSE events; Type discriminates which payload fields are set.
type streamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	Message *struct {
		ID    string     `json:"id"`
		Model string     `json:"model"`
		Usage *wireUsage `json:"usage,omitempty"`
	} `json:"message,omitempty"`

	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"content_block,omitempty"`

	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text,omitempty"`
		Thinking    string `json:"thinking,omitempty"`
		PartialJSON string `json:"partial_json,omitempty"`
		StopReason  string `json:"stop_reason,omitempty"`
	} `json:"delta,omitempty"`

	Usage *wireUsage `json:"usage,omitempty"`

	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Stream implements the streaming generation operation. Blocks are keyed by
// the server-assigned content index, stringified, so deltas and their
// start/stop events share an id.
func (m *LanguageModel) Stream(ctx context.Context, request *ai.Request) (*ai.Stream, error) {
	body, err := m.prepare(request)
	if err != nil {
		return nil, err
	}
	body.Stream = true

	m.enrichSpan(ctx, true)

	streamCtx, guard := httpx.NewInactivityGuard(ctx, m.provider.inactivityTimeout)

	response, err := httpx.PostStream(streamCtx, m.provider.client, ProviderID,
		m.provider.baseURL+"/messages", m.provider.headers(&request.Options), body)
	if err != nil {
		guard.Stop()
		return nil, err
	}

	scanner := httpx.NewSSEScanner(response.Body)
	decoder := newStreamDecoder()

	iterator := func(yield func(ai.StreamEvent, error) bool) {
		defer guard.Stop()
		defer httpx.CloseWithLog(response.Body)

		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			frame, scanErr := scanner.Next()
			if scanErr == io.EOF {
				for _, event := range decoder.finish() {
					if !yield(event, nil) {
						return
					}
				}
				return
			}
			if scanErr != nil {
				yield(ai.StreamEvent{}, &aierr.TransportError{
					Provider: ProviderID, Method: "POST", URL: m.provider.baseURL + "/messages", Err: scanErr,
				})
				return
			}
			guard.Touch()

			var wireEvent streamEvent
			if parseErr := json.Unmarshal([]byte(frame.Data), &wireEvent); parseErr != nil {
				yield(ai.StreamEvent{}, &aierr.DecodeError{
					Provider: ProviderID,
					Message:  "parsing stream event",
					Err:      parseErr,
				})
				return
			}

			if wireEvent.Type == "error" || wireEvent.Error != nil {
				message := "stream error"
				if wireEvent.Error != nil {
					message = wireEvent.Error.Message
				}
				yield(ai.StreamEvent{}, &aierr.DecodeError{Provider: ProviderID, Message: message})
				return
			}

			for _, event := range decoder.feed(&wireEvent) {
				if !yield(event, nil) {
					return
				}
			}
		}
	}

	return ai.NewStream(iterator), nil
}

// openBlock tracks one in-flight content block.
type openBlock struct {
	kind     string // "text" | "thinking" | "tool_use"
	toolID   string
	toolName string
	input    strings.Builder
}

type streamDecoder struct {
	blocks     map[int]*openBlock
	stopReason ai.FinishReason
	usage      *ai.Usage
	finished   bool
}

func newStreamDecoder() *streamDecoder {
	return &streamDecoder{
		blocks:     map[int]*openBlock{},
		stopReason: ai.FinishUnknown,
	}
}

func blockID(index int) string { return strconv.Itoa(index) }

// feed converts one wire event into zero or more canonical events.
func (d *streamDecoder) feed(wireEvent *streamEvent) []ai.StreamEvent {
	switch wireEvent.Type {
	case "message_start":
		info := &ai.ResponseInfo{}
		if wireEvent.Message != nil {
			info.ID = wireEvent.Message.ID
			info.ModelID = wireEvent.Message.Model
			if wireEvent.Message.Usage != nil {
				usage := convertUsage(wireEvent.Message.Usage)
				d.usage = &usage
			}
		}
		return []ai.StreamEvent{{Type: ai.EventResponseMetadata, Response: info}}

	case "content_block_start":
		if wireEvent.ContentBlock == nil {
			return nil
		}
		block := &openBlock{kind: wireEvent.ContentBlock.Type}
		d.blocks[wireEvent.Index] = block

		switch block.kind {
		case "text":
			return []ai.StreamEvent{{Type: ai.EventTextStart, ID: blockID(wireEvent.Index)}}
		case "thinking":
			return []ai.StreamEvent{{Type: ai.EventReasoningStart, ID: blockID(wireEvent.Index)}}
		case "tool_use":
			block.toolID = wireEvent.ContentBlock.ID
			block.toolName = wireEvent.ContentBlock.Name
			return []ai.StreamEvent{{
				Type:     ai.EventToolInputStart,
				ID:       blockID(wireEvent.Index),
				ToolName: block.toolName,
			}}
		}
		return nil

	case "content_block_delta":
		block := d.blocks[wireEvent.Index]
		if block == nil || wireEvent.Delta == nil {
			return nil
		}
		switch wireEvent.Delta.Type {
		case "text_delta":
			return []ai.StreamEvent{{Type: ai.EventTextDelta, ID: blockID(wireEvent.Index), Delta: wireEvent.Delta.Text}}
		case "thinking_delta":
			return []ai.StreamEvent{{Type: ai.EventReasoningDelta, ID: blockID(wireEvent.Index), Delta: wireEvent.Delta.Thinking}}
		case "input_json_delta":
			block.input.WriteString(wireEvent.Delta.PartialJSON)
			return []ai.StreamEvent{{Type: ai.EventToolInputDelta, ID: blockID(wireEvent.Index), Delta: wireEvent.Delta.PartialJSON}}
		}
		return nil

	case "content_block_stop":
		block := d.blocks[wireEvent.Index]
		if block == nil {
			return nil
		}
		delete(d.blocks, wireEvent.Index)

		switch block.kind {
		case "text":
			return []ai.StreamEvent{{Type: ai.EventTextEnd, ID: blockID(wireEvent.Index)}}
		case "thinking":
			return []ai.StreamEvent{{Type: ai.EventReasoningEnd, ID: blockID(wireEvent.Index)}}
		case "tool_use":
			input := block.input.String()
			if input == "" {
				input = "{}"
			}
			return []ai.StreamEvent{
				{Type: ai.EventToolInputEnd, ID: blockID(wireEvent.Index)},
				{Type: ai.EventToolCall, ToolCall: &ai.ToolCallData{
					ID:        block.toolID,
					Name:      block.toolName,
					Arguments: json.RawMessage(input),
				}},
			}
		}
		return nil

	case "message_delta":
		if wireEvent.Delta != nil && wireEvent.Delta.StopReason != "" {
			d.stopReason = mapStopReason(wireEvent.Delta.StopReason)
		}
		if wireEvent.Usage != nil {
			if d.usage == nil {
				d.usage = &ai.Usage{}
			}
			d.usage.CompletionTokens = wireEvent.Usage.OutputTokens
			d.usage.TotalTokens = d.usage.PromptTokens + d.usage.CompletionTokens
		}
		return nil

	case "message_stop":
		return d.finish()
	}

	// ping and unknown event types are ignored.
	return nil
}

// finish closes any still-open blocks and emits the terminal finish event.
func (d *streamDecoder) finish() []ai.StreamEvent {
	if d.finished {
		return nil
	}
	d.finished = true

	var events []ai.StreamEvent
	for index, block := range d.blocks {
		switch block.kind {
		case "text":
			events = append(events, ai.StreamEvent{Type: ai.EventTextEnd, ID: blockID(index)})
		case "thinking":
			events = append(events, ai.StreamEvent{Type: ai.EventReasoningEnd, ID: blockID(index)})
		case "tool_use":
			input := block.input.String()
			if input == "" {
				input = "{}"
			}
			events = append(events,
				ai.StreamEvent{Type: ai.EventToolInputEnd, ID: blockID(index)},
				ai.StreamEvent{Type: ai.EventToolCall, ToolCall: &ai.ToolCallData{
					ID:        block.toolID,
					Name:      block.toolName,
					Arguments: json.RawMessage(input),
				}},
			)
		}
	}
	d.blocks = map[int]*openBlock{}

	events = append(events, ai.StreamEvent{
		Type:         ai.EventFinish,
		FinishReason: d.stopReason,
		Usage:        d.usage,
	})
	return events
}
