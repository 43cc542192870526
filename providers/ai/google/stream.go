package google

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/internal/httpx"
)

// Stream implements the streaming generation operation. The wire transport
// is line-delimited JSON rather than SSE: each line is a partial response
// with the same shape as the non-streaming one.
func (m *LanguageModel) Stream(ctx context.Context, request *ai.Request) (*ai.Stream, error) {
	body, headers, err := m.prepare(ctx, request)
	if err != nil {
		return nil, err
	}

	m.enrichSpan(ctx, true)

	streamCtx, guard := httpx.NewInactivityGuard(ctx, m.config.StreamInactivityTimeout)

	url := m.config.ModelURL(m.modelID, "streamGenerateContent")
	response, err := httpx.PostStream(streamCtx, m.config.HTTPClient, m.config.ProviderID, url, headers, body)
	if err != nil {
		guard.Stop()
		return nil, err
	}

	scanner := httpx.NewJSONLScanner(response.Body)
	decoder := &streamDecoder{modelID: m.modelID, finishReason: ai.FinishUnknown}

	iterator := func(yield func(ai.StreamEvent, error) bool) {
		defer guard.Stop()
		defer httpx.CloseWithLog(response.Body)

		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			line, scanErr := scanner.Next()
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
					Provider: m.config.ProviderID, Method: "POST", URL: url, Err: scanErr,
				})
				return
			}
			guard.Touch()

			var chunk generateResponse
			if parseErr := json.Unmarshal([]byte(line), &chunk); parseErr != nil {
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

// streamDecoder folds partial responses into canonical events. Text
// accumulates into one block per modality; function calls arrive whole in a
// single frame and emit their block lifecycle immediately.
type streamDecoder struct {
	modelID string

	metadataSent     bool
	textBlockID      string
	reasoningBlockID string

	sawFunctionCall bool
	finishReason    ai.FinishReason
	usage           *ai.Usage
	finished        bool
}

func (d *streamDecoder) feed(chunk *generateResponse) []ai.StreamEvent {
	var events []ai.StreamEvent

	if !d.metadataSent {
		d.metadataSent = true
		modelID := chunk.ModelVersion
		if modelID == "" {
			modelID = d.modelID
		}
		events = append(events, ai.StreamEvent{
			Type:     ai.EventResponseMetadata,
			Response: &ai.ResponseInfo{ID: chunk.ResponseID, ModelID: modelID},
		})
	}

	if chunk.UsageMetadata != nil {
		usage := convertUsage(chunk.UsageMetadata)
		d.usage = &usage
	}

	if len(chunk.Candidates) > 0 {
		candidate := chunk.Candidates[0]

		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				switch {
				case part.FunctionCall != nil:
					d.sawFunctionCall = true
					args, err := json.Marshal(part.FunctionCall.Args)
					if err != nil {
						args = []byte("{}")
					}
					callID := uuid.NewString()
					events = append(events,
						ai.StreamEvent{Type: ai.EventToolInputStart, ID: callID, ToolName: part.FunctionCall.Name},
						ai.StreamEvent{Type: ai.EventToolInputDelta, ID: callID, Delta: string(args)},
						ai.StreamEvent{Type: ai.EventToolInputEnd, ID: callID},
						ai.StreamEvent{Type: ai.EventToolCall, ToolCall: &ai.ToolCallData{
							ID:        callID,
							Name:      part.FunctionCall.Name,
							Arguments: args,
						}},
					)

				case part.Thought && part.Text != "":
					if d.reasoningBlockID == "" {
						d.reasoningBlockID = uuid.NewString()
						events = append(events, ai.StreamEvent{Type: ai.EventReasoningStart, ID: d.reasoningBlockID})
					}
					events = append(events, ai.StreamEvent{Type: ai.EventReasoningDelta, ID: d.reasoningBlockID, Delta: part.Text})

				case part.Text != "":
					if d.textBlockID == "" {
						d.textBlockID = uuid.NewString()
						events = append(events, ai.StreamEvent{Type: ai.EventTextStart, ID: d.textBlockID})
					}
					events = append(events, ai.StreamEvent{Type: ai.EventTextDelta, ID: d.textBlockID, Delta: part.Text})
				}
			}
		}

		if candidate.FinishReason != "" {
			d.finishReason = mapFinishReason(candidate.FinishReason)
			if d.sawFunctionCall && d.finishReason == ai.FinishStop {
				d.finishReason = ai.FinishToolCalls
			}
		}
	}

	return events
}

func (d *streamDecoder) finish() []ai.StreamEvent {
	if d.finished {
		return nil
	}
	d.finished = true

	var events []ai.StreamEvent
	if d.reasoningBlockID != "" {
		events = append(events, ai.StreamEvent{Type: ai.EventReasoningEnd, ID: d.reasoningBlockID})
	}
	if d.textBlockID != "" {
		events = append(events, ai.StreamEvent{Type: ai.EventTextEnd, ID: d.textBlockID})
	}
	events = append(events, ai.StreamEvent{
		Type:         ai.EventFinish,
		FinishReason: d.finishReason,
		Usage:        d.usage,
	})
	return events
}
