package bedrock

import (
	"context"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
)

// embeddingModel computes embeddings with Titan text-embedding models via
// the invoke endpoint. Titan accepts exactly one input per request.
type embeddingModel struct {
	provider *Provider
	modelID  string
}

func (m *embeddingModel) ProviderID() string { return ProviderID }
func (m *embeddingModel) ModelID() string    { return m.modelID }

// MaxBatchSize returns 1: the invoke body carries a single inputText.
func (m *embeddingModel) MaxBatchSize() int { return 1 }

// SupportsParallelCalls reports that single-input requests may run
// concurrently.
func (m *embeddingModel) SupportsParallelCalls() bool { return true }

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// Embed computes the embedding for a single value.
func (m *embeddingModel) Embed(ctx context.Context, values []string) (*ai.Embeddings, error) {
	if err := m.provider.checkAuth(m.modelID); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, &aierr.ConfigError{Provider: ProviderID, Model: m.modelID, Message: "no values to embed"}
	}
	if len(values) > 1 {
		return nil, &aierr.ConfigError{
			Provider: ProviderID,
			Model:    m.modelID,
			Message:  "Titan embeddings accept one input per request (use EmbedMany)",
		}
	}

	wireResponse, err := postJSON[titanEmbedResponse](ctx, m.provider,
		m.provider.modelURL(m.modelID, "invoke"), titanEmbedRequest{InputText: values[0]}, 0)
	if err != nil {
		return nil, err
	}

	return &ai.Embeddings{
		Vectors: [][]float64{wireResponse.Embedding},
		Usage: ai.Usage{
			PromptTokens: wireResponse.InputTextTokenCount,
			TotalTokens:  wireResponse.InputTextTokenCount,
		},
	}, nil
}
