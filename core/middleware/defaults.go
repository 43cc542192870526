package middleware

import (
	"context"

	"github.com/manifold-ai/manifold/core/ai"
)

// DefaultSettingsConfig declares the values [DefaultSettings] injects.
type DefaultSettingsConfig struct {
	// Options supplies defaults for sampling knobs the caller left unset.
	// Only unset fields are filled; explicit caller values always win.
	Options ai.CallOptions

	// SystemPrompt, when non-empty, is prepended as a system message if the
	// conversation has none.
	SystemPrompt string
}

// DefaultSettings fills unset request parameters with configured defaults.
func DefaultSettings(config DefaultSettingsConfig) Middleware {
	return Middleware{
		TransformParams: func(_ context.Context, request *ai.Request, _ OpType, _ ai.LanguageModel) (*ai.Request, error) {
			out := cloneRequest(request)

			if config.SystemPrompt != "" {
				hasSystem := len(out.Messages) > 0 && out.Messages[0].Role == ai.RoleSystem
				if !hasSystem {
					out.Messages = append([]ai.Message{ai.SystemMessage(config.SystemPrompt)}, out.Messages...)
				}
			}

			defaults := config.Options
			options := &out.Options
			if options.MaxOutputTokens == 0 {
				options.MaxOutputTokens = defaults.MaxOutputTokens
			}
			if options.Temperature == nil {
				options.Temperature = defaults.Temperature
			}
			if options.TopP == nil {
				options.TopP = defaults.TopP
			}
			if options.TopK == 0 {
				options.TopK = defaults.TopK
			}
			if options.FrequencyPenalty == nil {
				options.FrequencyPenalty = defaults.FrequencyPenalty
			}
			if options.PresencePenalty == nil {
				options.PresencePenalty = defaults.PresencePenalty
			}
			if options.StopSequences == nil {
				options.StopSequences = defaults.StopSequences
			}
			if options.Seed == nil {
				options.Seed = defaults.Seed
			}
			if options.RequestTimeout == 0 {
				options.RequestTimeout = defaults.RequestTimeout
			}

			return out, nil
		},
	}
}
