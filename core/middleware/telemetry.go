package middleware

import (
	"context"
	"time"

	"github.com/manifold-ai/manifold/core/ai"
)

// TelemetryRecord is one observed model call, handed to the sink after the
// call completes (for streams, after the iterator is drained).
type TelemetryRecord struct {
	Provider  string
	Model     string
	Op        OpType
	Timestamp time.Time
	Duration  time.Duration

	// Status is "ok" or "error".
	Status string
	Error  error

	InputTokens  int
	OutputTokens int
}

// TelemetrySink receives completed records. Implementations must be safe for
// concurrent use; the middleware calls the sink from whichever goroutine
// consumed the call or stream.
type TelemetrySink func(record TelemetryRecord)

// Telemetry records per-call accounting and hands each record to sink.
func Telemetry(sink TelemetrySink) Middleware {
	return Middleware{
		WrapGenerate: func(next GenerateFunc, model ai.LanguageModel) GenerateFunc {
			return func(ctx context.Context, request *ai.Request) (*ai.Response, error) {
				record := TelemetryRecord{
					Provider:  model.ProviderID(),
					Model:     model.ModelID(),
					Op:        OpGenerate,
					Timestamp: time.Now(),
				}

				response, err := next(ctx, request)
				record.Duration = time.Since(record.Timestamp)

				if err != nil {
					record.Status = "error"
					record.Error = err
				} else {
					record.Status = "ok"
					record.InputTokens = response.Usage.PromptTokens
					record.OutputTokens = response.Usage.CompletionTokens
				}
				sink(record)

				return response, err
			}
		},

		WrapStream: func(next StreamFunc, model ai.LanguageModel) StreamFunc {
			return func(ctx context.Context, request *ai.Request) (*ai.Stream, error) {
				record := TelemetryRecord{
					Provider:  model.ProviderID(),
					Model:     model.ModelID(),
					Op:        OpStream,
					Timestamp: time.Now(),
				}

				stream, err := next(ctx, request)
				if err != nil {
					record.Duration = time.Since(record.Timestamp)
					record.Status = "error"
					record.Error = err
					sink(record)
					return nil, err
				}

				inner := stream.Events()
				observed := func(yield func(ai.StreamEvent, error) bool) {
					recorded := false
					emit := func(status string, failure error, usage *ai.Usage) {
						if recorded {
							return
						}
						recorded = true
						record.Duration = time.Since(record.Timestamp)
						record.Status = status
						record.Error = failure
						if usage != nil {
							record.InputTokens = usage.PromptTokens
							record.OutputTokens = usage.CompletionTokens
						}
						sink(record)
					}

					for event, iterErr := range inner {
						if iterErr != nil {
							emit("error", iterErr, nil)
						} else if event.Type == ai.EventFinish {
							emit("ok", nil, event.Usage)
						}
						if !yield(event, iterErr) {
							return
						}
					}
				}
				return ai.NewStream(observed), nil
			}
		},
	}
}
