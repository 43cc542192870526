package bedrock

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

// streamPayload is the JSON payload of one converse-stream event. The
// :event-type header discriminates which fields are meaningful.
type streamPayload struct {
	ContentBlockIndex int `json:"contentBlockIndex"`

	Role string `json:"role,omitempty"`

	Start *struct {
		ToolUse *struct {
			ToolUseID string `json:"toolUseId"`
			Name      string `json:"name"`
		} `json:"toolUse,omitempty"`
	} `json:"start,omitempty"`

	Delta *struct {
		Text    string `json:"text,omitempty"`
		ToolUse *struct {
			Input string `json:"input"`
		} `json:"toolUse,omitempty"`
		ReasoningContent *struct {
			Text string `json:"text,omitempty"`
		} `json:"reasoningContent,omitempty"`
	} `json:"delta,omitempty"`

	StopReason string `json:"stopReason,omitempty"`

	Usage *struct {
		InputTokens  int `json:"inputTokens"`
		OutputTokens int `json:"outputTokens"`
		TotalTokens  int `json:"totalTokens"`
	} `json:"usage,omitempty"`

	Message string `json:"message,omitempty"`
}

// Stream implements the streaming generation operation over the
// converse-stream endpoint, decoding the binary event-stream framing into
// canonical events. Blocks are keyed by the wire contentBlockIndex.
func (m *LanguageModel) Stream(ctx context.Context, request *ai.Request) (*ai.Stream, error) {
	body, err := m.prepare(request)
	if err != nil {
		return nil, err
	}

	m.enrichSpan(ctx, true)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &aierr.ConfigError{Provider: ProviderID, Model: m.modelID, Message: err.Error()}
	}

	url := m.provider.modelURL(m.modelID, "converse-stream")
	response, err := m.provider.send(ctx, url, payload, "application/vnd.amazon.eventstream")
	if err != nil {
		return nil, err
	}

	reader := newEventStreamReader(response.Body)
	decoder := &streamDecoder{modelID: m.modelID, stopReason: ai.FinishUnknown}

	iterator := func(yield func(ai.StreamEvent, error) bool) {
		defer httpx.CloseWithLog(response.Body)

		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			frame, readErr := reader.Next()
			if readErr == io.EOF {
				for _, event := range decoder.finish() {
					if !yield(event, nil) {
						return
					}
				}
				return
			}
			if readErr != nil {
				yield(ai.StreamEvent{}, &aierr.TransportError{
					Provider: ProviderID, Method: "POST", URL: url, Err: readErr,
				})
				return
			}

			eventType := frame.EventType()
			if strings.HasSuffix(eventType, "Exception") {
				var wirePayload streamPayload
				_ = json.Unmarshal(frame.Payload, &wirePayload)
				yield(ai.StreamEvent{}, &aierr.DecodeError{
					Provider: ProviderID,
					Message:  eventType + ": " + wirePayload.Message,
				})
				return
			}

			var wirePayload streamPayload
			if parseErr := json.Unmarshal(frame.Payload, &wirePayload); parseErr != nil {
				yield(ai.StreamEvent{}, &aierr.DecodeError{
					Provider: ProviderID,
					Message:  "parsing stream event",
					Err:      parseErr,
				})
				return
			}

			for _, event := range decoder.feed(eventType, &wirePayload) {
				if !yield(event, nil) {
					return
				}
			}
		}
	}

	return ai.NewStream(iterator), nil
}

// streamBlock tracks one in-flight content block.
type streamBlock struct {
	kind     string // "text" | "reasoning" | "tool_use"
	toolID   string
	toolName string
	input    strings.Builder
}

type streamDecoder struct {
	modelID string

	metadataSent bool
	blocks       map[int]*streamBlock
	blockOrder   []int

	stopReason ai.FinishReason
	usage      *ai.Usage
	finished   bool
}

func blockID(index int) string { return strconv.Itoa(index) }

// openBlock returns the tracked block for an index, creating it with the
// given kind and emitting its start event when unseen.
func (d *streamDecoder) openBlock(index int, kind string, events *[]ai.StreamEvent) *streamBlock {
	if d.blocks == nil {
		d.blocks = map[int]*streamBlock{}
	}
	if block, ok := d.blocks[index]; ok {
		return block
	}
	block := &streamBlock{kind: kind}
	d.blocks[index] = block
	d.blockOrder = append(d.blockOrder, index)

	switch kind {
	case "text":
		*events = append(*events, ai.StreamEvent{Type: ai.EventTextStart, ID: blockID(index)})
	case "reasoning":
		*events = append(*events, ai.StreamEvent{Type: ai.EventReasoningStart, ID: blockID(index)})
	}
	return block
}

func (d *streamDecoder) feed(eventType string, payload *streamPayload) []ai.StreamEvent {
	var events []ai.StreamEvent

	switch eventType {
	case "messageStart":
		if !d.metadataSent {
			d.metadataSent = true
			events = append(events, ai.StreamEvent{
				Type:     ai.EventResponseMetadata,
				Response: &ai.ResponseInfo{ModelID: d.modelID},
			})
		}

	case "contentBlockStart":
		if payload.Start != nil && payload.Start.ToolUse != nil {
			if d.blocks == nil {
				d.blocks = map[int]*streamBlock{}
			}
			block := &streamBlock{
				kind:     "tool_use",
				toolID:   payload.Start.ToolUse.ToolUseID,
				toolName: payload.Start.ToolUse.Name,
			}
			d.blocks[payload.ContentBlockIndex] = block
			d.blockOrder = append(d.blockOrder, payload.ContentBlockIndex)
			events = append(events, ai.StreamEvent{
				Type:     ai.EventToolInputStart,
				ID:       blockID(payload.ContentBlockIndex),
				ToolName: block.toolName,
			})
		}

	case "contentBlockDelta":
		if payload.Delta == nil {
			break
		}
		index := payload.ContentBlockIndex
		switch {
		case payload.Delta.ToolUse != nil:
			block := d.openBlock(index, "tool_use", &events)
			block.input.WriteString(payload.Delta.ToolUse.Input)
			events = append(events, ai.StreamEvent{
				Type:  ai.EventToolInputDelta,
				ID:    blockID(index),
				Delta: payload.Delta.ToolUse.Input,
			})
		case payload.Delta.ReasoningContent != nil && payload.Delta.ReasoningContent.Text != "":
			d.openBlock(index, "reasoning", &events)
			events = append(events, ai.StreamEvent{
				Type:  ai.EventReasoningDelta,
				ID:    blockID(index),
				Delta: payload.Delta.ReasoningContent.Text,
			})
		case payload.Delta.Text != "":
			d.openBlock(index, "text", &events)
			events = append(events, ai.StreamEvent{
				Type:  ai.EventTextDelta,
				ID:    blockID(index),
				Delta: payload.Delta.Text,
			})
		}

	case "contentBlockStop":
		index := payload.ContentBlockIndex
		block := d.blocks[index]
		if block == nil {
			break
		}
		delete(d.blocks, index)
		events = append(events, d.closeBlock(index, block)...)

	case "messageStop":
		if payload.StopReason != "" {
			d.stopReason = mapStopReason(payload.StopReason)
		}

	case "metadata":
		if payload.Usage != nil {
			d.usage = &ai.Usage{
				PromptTokens:     payload.Usage.InputTokens,
				CompletionTokens: payload.Usage.OutputTokens,
				TotalTokens:      payload.Usage.TotalTokens,
			}
		}
	}

	return events
}

func (d *streamDecoder) closeBlock(index int, block *streamBlock) []ai.StreamEvent {
	switch block.kind {
	case "text":
		return []ai.StreamEvent{{Type: ai.EventTextEnd, ID: blockID(index)}}
	case "reasoning":
		return []ai.StreamEvent{{Type: ai.EventReasoningEnd, ID: blockID(index)}}
	case "tool_use":
		input := block.input.String()
		if input == "" {
			input = "{}"
		}
		return []ai.StreamEvent{
			{Type: ai.EventToolInputEnd, ID: blockID(index)},
			{Type: ai.EventToolCall, ToolCall: &ai.ToolCallData{
				ID:        block.toolID,
				Name:      block.toolName,
				Arguments: json.RawMessage(input),
			}},
		}
	}
	return nil
}

// finish closes any still-open blocks and emits the terminal finish event.
func (d *streamDecoder) finish() []ai.StreamEvent {
	if d.finished {
		return nil
	}
	d.finished = true

	var events []ai.StreamEvent
	for _, index := range d.blockOrder {
		block := d.blocks[index]
		if block == nil {
			continue
		}
		events = append(events, d.closeBlock(index, block)...)
	}
	d.blocks = nil

	events = append(events, ai.StreamEvent{
		Type:         ai.EventFinish,
		FinishReason: d.stopReason,
		Usage:        d.usage,
	})
	return events
}
