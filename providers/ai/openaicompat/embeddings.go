package openaicompat

import (
	"context"
	"fmt"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/internal/httpx"
)

// EmbeddingModel is an [ai.EmbeddingModel] speaking the OpenAI-compatible
// embeddings protocol. MaxBatch is the provider's documented per-request
// input limit; [ai.EmbedMany] uses it to batch transparently.
type EmbeddingModel struct {
	config   Config
	modelID  string
	maxBatch int
	parallel bool
}

// NewEmbeddingModel binds a model id to an OpenAI-compatible embeddings
// configuration. maxBatch <= 0 defaults to a single-input batch.
func NewEmbeddingModel(config Config, modelID string, maxBatch int, parallel bool) *EmbeddingModel {
	if maxBatch <= 0 {
		maxBatch = 1
	}
	return &EmbeddingModel{config: config, modelID: modelID, maxBatch: maxBatch, parallel: parallel}
}

// ProviderID returns the configured provider id.
func (m *EmbeddingModel) ProviderID() string { return m.config.ProviderID }

// ModelID returns the bound model id.
func (m *EmbeddingModel) ModelID() string { return m.modelID }

// MaxBatchSize returns the per-request input limit.
func (m *EmbeddingModel) MaxBatchSize() int { return m.maxBatch }

// SupportsParallelCalls reports whether batches may run concurrently.
func (m *EmbeddingModel) SupportsParallelCalls() bool { return m.parallel }

// embeddingsRequest is the wire request body.
type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingsResponse is the wire response body.
type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage *struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// Embed computes embeddings for up to MaxBatchSize values in one request.
func (m *EmbeddingModel) Embed(ctx context.Context, values []string) (*ai.Embeddings, error) {
	if m.config.APIKey == "" {
		return nil, &aierr.ConfigError{Provider: m.config.ProviderID, Model: m.modelID, Message: "API key is not set"}
	}
	if len(values) == 0 {
		return nil, &aierr.ConfigError{Provider: m.config.ProviderID, Model: m.modelID, Message: "no values to embed"}
	}
	if len(values) > m.maxBatch {
		return nil, &aierr.ConfigError{
			Provider: m.config.ProviderID,
			Model:    m.modelID,
			Message:  fmt.Sprintf("batch of %d exceeds provider limit of %d (use EmbedMany)", len(values), m.maxBatch),
		}
	}

	wireResponse, err := httpx.PostJSON[embeddingsResponse](ctx, m.config.HTTPClient, m.config.ProviderID,
		m.config.embeddingsURL(), m.config.requestHeaders(nil), embeddingsRequest{Model: m.modelID, Input: values}, 0)
	if err != nil {
		return nil, err
	}

	if len(wireResponse.Data) != len(values) {
		return nil, &aierr.DecodeError{
			Provider: m.config.ProviderID,
			Message:  fmt.Sprintf("expected %d embeddings, got %d", len(values), len(wireResponse.Data)),
		}
	}

	// The service reports an index per vector; honour it so results are in
	// input order even if the array arrives shuffled.
	result := &ai.Embeddings{Vectors: make([][]float64, len(values))}
	for _, entry := range wireResponse.Data {
		if entry.Index < 0 || entry.Index >= len(values) {
			return nil, &aierr.DecodeError{
				Provider: m.config.ProviderID,
				Message:  fmt.Sprintf("embedding index %d out of range", entry.Index),
			}
		}
		result.Vectors[entry.Index] = entry.Embedding
	}

	if wireResponse.Usage != nil {
		result.Usage = ai.Usage{
			PromptTokens: wireResponse.Usage.PromptTokens,
			TotalTokens:  wireResponse.Usage.TotalTokens,
		}
	}

	return result, nil
}
