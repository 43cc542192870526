package openaicompat

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/internal/httpx"
)

/*
	##### WIRE STREAM #####
*/

// chatStreamChunk is one SSE payload of a streaming chat completion.
type chatStreamChunk struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int             `json:"index"`
		Delta        chatStreamDelta `json:"delta"`
		FinishReason *string         `json:"finish_reason"`
	} `json:"choices"`
	Usage *ChatUsage `json:"usage,omitempty"`

	Citations []string `json:"citations,omitempty"`
}

// chatStreamDelta is the incremental payload of one chunk.
type chatStreamDelta struct {
	Content          *string               `json:"content"`
	ReasoningContent *string               `json:"reasoning_content"`
	ToolCalls        []chatStreamToolCall  `json:"tool_calls"`
}

// chatStreamToolCall is an incremental tool-call fragment. ID and the
// function name appear only on the first fragment for a given index;
// continuation fragments carry argument text keyed by Index alone, which is
// why accumulation keys on the index rather than the id.
type chatStreamToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

/*
	##### DECODER #####
*/

// Stream implements the streaming generation operation. It decodes the SSE
// chunk sequence into the canonical block-structured event grammar:
// response metadata first, interleaved text/reasoning/tool-input blocks,
// and exactly one finish event carrying the final usage.
func (m *LanguageModel) Stream(ctx context.Context, request *ai.Request) (*ai.Stream, error) {
	body, _, err := m.prepare(request)
	if err != nil {
		return nil, err
	}
	body.Stream = true
	body.StreamOptions = &StreamOptions{IncludeUsage: true}

	m.enrichSpan(ctx, true)

	streamCtx, guard := httpx.NewInactivityGuard(ctx, m.config.StreamInactivityTimeout)

	response, err := httpx.PostStream(streamCtx, m.config.HTTPClient, m.config.ProviderID,
		m.config.chatURL(), m.config.requestHeaders(&request.Options), body)
	if err != nil {
		guard.Stop()
		return nil, err
	}

	scanner := httpx.NewSSEScanner(response.Body)
	decoder := newStreamDecoder(m.config)

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
				// Either the [DONE] sentinel or a clean connection close:
				// flush open blocks and emit the single finish event.
				for _, event := range decoder.finish() {
					if !yield(event, nil) {
						return
					}
				}
				return
			}
			if scanErr != nil {
				yield(ai.StreamEvent{}, &aierr.TransportError{
					Provider: m.config.ProviderID, Method: "POST", URL: m.config.chatURL(), Err: scanErr,
				})
				return
			}
			guard.Touch()

			var chunk chatStreamChunk
			if parseErr := json.Unmarshal([]byte(frame.Data), &chunk); parseErr != nil {
				yield(ai.StreamEvent{}, &aierr.DecodeError{
					Provider: m.config.ProviderID,
					Message:  "parsing stream chunk",
					Err:      parseErr,
				})
				return
			}

			for _, event := range decoder.feed(&chunk) {
				if !yield(event, nil) {
					return
				}
			}
		}
	}

	return ai.NewStream(iterator), nil
}

// toolCallBuilder accumulates incremental tool-call fragments for one index
// position within delta.tool_calls.
type toolCallBuilder struct {
	blockID   string
	name      string
	arguments strings.Builder
	open      bool
}

// streamDecoder folds raw chunks into canonical stream events. It carries
// the per-stream state: which blocks are open, the tool-call builders keyed
// by index, and the finish reason and usage seen so far.
type streamDecoder struct {
	config Config

	metadataSent     bool
	textBlockID      string
	reasoningBlockID string
	toolBuilders     map[int]*toolCallBuilder
	toolOrder        []int

	finishReason ai.FinishReason
	usage        *ai.Usage
	finished     bool
}

func newStreamDecoder(config Config) *streamDecoder {
	return &streamDecoder{
		config:       config,
		toolBuilders: map[int]*toolCallBuilder{},
		finishReason: ai.FinishUnknown,
	}
}

// feed converts one chunk into zero or more canonical events.
func (d *streamDecoder) feed(chunk *chatStreamChunk) []ai.StreamEvent {
	var events []ai.StreamEvent

	if !d.metadataSent {
		d.metadataSent = true
		info := &ai.ResponseInfo{ID: chunk.ID, ModelID: chunk.Model}
		if chunk.Created > 0 {
			info.Created = time.Unix(chunk.Created, 0).UTC()
		}
		events = append(events, ai.StreamEvent{Type: ai.EventResponseMetadata, Response: info})
	}

	if chunk.Usage != nil {
		usage := convertUsage(chunk.Usage)
		d.usage = &usage
	}

	for _, choice := range chunk.Choices {
		delta := choice.Delta

		if delta.ReasoningContent != nil && *delta.ReasoningContent != "" {
			if d.reasoningBlockID == "" {
				d.reasoningBlockID = uuid.NewString()
				events = append(events, ai.StreamEvent{Type: ai.EventReasoningStart, ID: d.reasoningBlockID})
			}
			events = append(events, ai.StreamEvent{Type: ai.EventReasoningDelta, ID: d.reasoningBlockID, Delta: *delta.ReasoningContent})
		}

		if delta.Content != nil && *delta.Content != "" {
			if d.textBlockID == "" {
				d.textBlockID = uuid.NewString()
				events = append(events, ai.StreamEvent{Type: ai.EventTextStart, ID: d.textBlockID})
			}
			events = append(events, ai.StreamEvent{Type: ai.EventTextDelta, ID: d.textBlockID, Delta: *delta.Content})
		}

		for _, fragment := range delta.ToolCalls {
			builder := d.toolBuilders[fragment.Index]
			if builder == nil {
				builder = &toolCallBuilder{}
				d.toolBuilders[fragment.Index] = builder
				d.toolOrder = append(d.toolOrder, fragment.Index)
			}
			if fragment.ID != "" {
				builder.blockID = fragment.ID
			}
			if fragment.Function.Name != "" {
				builder.name = fragment.Function.Name
			}

			// The block opens once the id is known; continuation fragments
			// carry neither id nor name.
			if !builder.open && builder.blockID != "" {
				builder.open = true
				events = append(events, ai.StreamEvent{
					Type:     ai.EventToolInputStart,
					ID:       builder.blockID,
					ToolName: builder.name,
				})
			}

			if fragment.Function.Arguments != "" {
				builder.arguments.WriteString(fragment.Function.Arguments)
				if builder.open {
					events = append(events, ai.StreamEvent{
						Type:  ai.EventToolInputDelta,
						ID:    builder.blockID,
						Delta: fragment.Function.Arguments,
					})
				}
			}
		}

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			d.finishReason = MapFinishReason(*choice.FinishReason)
		}
	}

	for _, citation := range chunk.Citations {
		events = append(events, ai.StreamEvent{Type: ai.EventSource, Source: &ai.SourceData{URL: citation}})
	}

	return events
}

// finish closes any open blocks, consolidates accumulated tool calls, and
// emits the terminal finish event. A stream that ended without reporting a
// finish reason finishes as unknown.
func (d *streamDecoder) finish() []ai.StreamEvent {
	if d.finished {
		return nil
	}
	d.finished = true

	var events []ai.StreamEvent

	if d.reasoningBlockID != "" {
		events = append(events, ai.StreamEvent{Type: ai.EventReasoningEnd, ID: d.reasoningBlockID})
		d.reasoningBlockID = ""
	}
	if d.textBlockID != "" {
		events = append(events, ai.StreamEvent{Type: ai.EventTextEnd, ID: d.textBlockID})
		d.textBlockID = ""
	}

	for _, index := range d.toolOrder {
		builder := d.toolBuilders[index]
		if builder == nil || !builder.open {
			continue
		}
		arguments := builder.arguments.String()
		if arguments == "" {
			arguments = "{}"
		}
		events = append(events,
			ai.StreamEvent{Type: ai.EventToolInputEnd, ID: builder.blockID},
			ai.StreamEvent{Type: ai.EventToolCall, ToolCall: &ai.ToolCallData{
				ID:        builder.blockID,
				Name:      builder.name,
				Arguments: json.RawMessage(arguments),
			}},
		)
	}

	events = append(events, ai.StreamEvent{
		Type:         ai.EventFinish,
		FinishReason: d.finishReason,
		Usage:        d.usage,
	})
	return events
}
