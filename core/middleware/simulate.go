package middleware

import (
	"context"
	"strconv"

	"github.com/manifold-ai/manifold/core/ai"
)

// SimulateStreaming makes Stream work against adapters or wrappers that only
// implement Generate sensibly: it performs a non-streaming generate through
// the wrapped chain and replays the finished response as the canonical event
// sequence. Each content part becomes one block with a single delta.
//
// Place it innermost so outer streaming middleware observe the synthetic
// events.
func SimulateStreaming() Middleware {
	return Middleware{
		WrapStream: func(_ StreamFunc, model ai.LanguageModel) StreamFunc {
			return func(ctx context.Context, request *ai.Request) (*ai.Stream, error) {
				response, err := model.Generate(ctx, request)
				if err != nil {
					return nil, err
				}
				return ai.NewStream(replay(response)), nil
			}
		},
	}
}

func replay(response *ai.Response) func(yield func(ai.StreamEvent, error) bool) {
	return func(yield func(ai.StreamEvent, error) bool) {
		emit := func(event ai.StreamEvent) bool { return yield(event, nil) }

		if response.Response != (ai.ResponseInfo{}) {
			info := response.Response
			if !emit(ai.StreamEvent{Type: ai.EventResponseMetadata, Response: &info}) {
				return
			}
		}

		for index, part := range response.Content {
			id := strconv.Itoa(index)

			switch part.Kind {
			case ai.PartText:
				if !emit(ai.StreamEvent{Type: ai.EventTextStart, ID: id}) ||
					!emit(ai.StreamEvent{Type: ai.EventTextDelta, ID: id, Delta: part.Text}) ||
					!emit(ai.StreamEvent{Type: ai.EventTextEnd, ID: id}) {
					return
				}

			case ai.PartReasoning:
				if part.Reasoning == nil {
					continue
				}
				if !emit(ai.StreamEvent{Type: ai.EventReasoningStart, ID: id}) ||
					!emit(ai.StreamEvent{Type: ai.EventReasoningDelta, ID: id, Delta: part.Reasoning.Text}) ||
					!emit(ai.StreamEvent{Type: ai.EventReasoningEnd, ID: id}) {
					return
				}

			case ai.PartToolCall:
				if part.ToolCall == nil {
					continue
				}
				call := *part.ToolCall
				if !emit(ai.StreamEvent{Type: ai.EventToolInputStart, ID: call.ID, ToolName: call.Name}) ||
					!emit(ai.StreamEvent{Type: ai.EventToolInputDelta, ID: call.ID, Delta: string(call.Arguments)}) ||
					!emit(ai.StreamEvent{Type: ai.EventToolInputEnd, ID: call.ID}) ||
					!emit(ai.StreamEvent{Type: ai.EventToolCall, ToolCall: &call}) {
					return
				}

			case ai.PartSource:
				if part.Source == nil {
					continue
				}
				source := *part.Source
				if !emit(ai.StreamEvent{Type: ai.EventSource, Source: &source}) {
					return
				}
			}
		}

		usage := response.Usage
		emit(ai.StreamEvent{
			Type:         ai.EventFinish,
			FinishReason: response.FinishReason,
			Usage:        &usage,
		})
	}
}
