package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/providers/observability"
)

// LogLevel controls how much detail the logging middleware emits per call.
type LogLevel int

const (
	// LogLevelMinimal logs only the model, duration and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds the message count and finish reason. The
	// recommended default.
	LogLevelStandard

	// LogLevelVerbose adds the first message and the response text, each
	// truncated to 500 characters.
	//
	// WARNING: DO NOT use LogLevelVerbose in production. It logs raw prompt
	// and response text, which may contain sensitive user data or PII.
	LogLevelVerbose
)

const logTruncateLen = 500

// Logging emits structured slog entries around every generate and stream
// call. It never mutates the request or the result. For streams the
// completion entry is emitted once the iterator is fully consumed.
//
// logger must not be nil; pass slog.Default() if no custom logger is
// configured.
func Logging(logger *slog.Logger, level LogLevel) Middleware {
	return Middleware{
		WrapGenerate: func(next GenerateFunc, model ai.LanguageModel) GenerateFunc {
			return func(ctx context.Context, request *ai.Request) (*ai.Response, error) {
				logStart(ctx, logger, level, model, "generate", request)

				start := time.Now()
				response, err := next(ctx, request)
				duration := time.Since(start)

				if err != nil {
					logger.ErrorContext(ctx, "ai.generate failed",
						"provider", model.ProviderID(),
						"model", model.ModelID(),
						"duration_ms", duration.Milliseconds(),
						"error", err.Error(),
					)
					return nil, err
				}

				attrs := []any{
					"provider", model.ProviderID(),
					"model", model.ModelID(),
					"duration_ms", duration.Milliseconds(),
					"prompt_tokens", response.Usage.PromptTokens,
					"completion_tokens", response.Usage.CompletionTokens,
				}
				if level >= LogLevelStandard {
					attrs = append(attrs, "finish_reason", string(response.FinishReason))
				}
				if level >= LogLevelVerbose {
					attrs = append(attrs, "response_text", observability.TruncateString(response.Text(), logTruncateLen))
				}
				logger.InfoContext(ctx, "ai.generate completed", attrs...)

				return response, nil
			}
		},

		WrapStream: func(next StreamFunc, model ai.LanguageModel) StreamFunc {
			return func(ctx context.Context, request *ai.Request) (*ai.Stream, error) {
				logStart(ctx, logger, level, model, "stream", request)

				start := time.Now()
				stream, err := next(ctx, request)
				if err != nil {
					logger.ErrorContext(ctx, "ai.stream failed",
						"provider", model.ProviderID(),
						"model", model.ModelID(),
						"duration_ms", time.Since(start).Milliseconds(),
						"error", err.Error(),
					)
					return nil, err
				}

				inner := stream.Events()
				logged := func(yield func(ai.StreamEvent, error) bool) {
					for event, iterErr := range inner {
						if iterErr != nil {
							logger.ErrorContext(ctx, "ai.stream failed mid-stream",
								"provider", model.ProviderID(),
								"model", model.ModelID(),
								"duration_ms", time.Since(start).Milliseconds(),
								"error", iterErr.Error(),
							)
						} else if event.Type == ai.EventFinish {
							attrs := []any{
								"provider", model.ProviderID(),
								"model", model.ModelID(),
								"duration_ms", time.Since(start).Milliseconds(),
							}
							if event.Usage != nil {
								attrs = append(attrs,
									"prompt_tokens", event.Usage.PromptTokens,
									"completion_tokens", event.Usage.CompletionTokens,
								)
							}
							if level >= LogLevelStandard {
								attrs = append(attrs, "finish_reason", string(event.FinishReason))
							}
							logger.InfoContext(ctx, "ai.stream completed", attrs...)
						}
						if !yield(event, iterErr) {
							return
						}
					}
				}
				return ai.NewStream(logged), nil
			}
		},
	}
}

func logStart(ctx context.Context, logger *slog.Logger, level LogLevel, model ai.LanguageModel, op string, request *ai.Request) {
	attrs := []any{
		"provider", model.ProviderID(),
		"model", model.ModelID(),
	}
	if level >= LogLevelStandard {
		attrs = append(attrs, "messages", len(request.Messages))
	}
	if level >= LogLevelVerbose && len(request.Messages) > 0 {
		attrs = append(attrs, "first_message", observability.TruncateString(request.Messages[0].Text(), logTruncateLen))
	}
	logger.DebugContext(ctx, "ai."+op+" starting", attrs...)
}
