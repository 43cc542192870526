package google

import (
	"context"
	"fmt"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/internal/httpx"
)

// EmbeddingModel computes embeddings via batchEmbedContents.
type EmbeddingModel struct {
	config  Config
	modelID string
}

// NewEmbeddingModel binds a model id to a GenerateContent configuration.
func NewEmbeddingModel(config Config, modelID string) *EmbeddingModel {
	return &EmbeddingModel{config: config, modelID: modelID}
}

// ProviderID returns the configured provider id.
func (m *EmbeddingModel) ProviderID() string { return m.config.ProviderID }

// ModelID returns the bound model id.
func (m *EmbeddingModel) ModelID() string { return m.modelID }

// MaxBatchSize returns the configured per-request input limit.
func (m *EmbeddingModel) MaxBatchSize() int { return m.config.EmbeddingBatchLimit }

// SupportsParallelCalls reports that batches may run concurrently.
func (m *EmbeddingModel) SupportsParallelCalls() bool { return true }

type embedBatchRequest struct {
	Requests []embedRequest `json:"requests"`
}

type embedRequest struct {
	Model   string      `json:"model"`
	Content wireContent `json:"content"`
}

type embedBatchResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

// Embed computes embeddings for up to MaxBatchSize values in one request.
func (m *EmbeddingModel) Embed(ctx context.Context, values []string) (*ai.Embeddings, error) {
	headers, err := m.config.Headers(ctx)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, &aierr.ConfigError{Provider: m.config.ProviderID, Model: m.modelID, Message: "no values to embed"}
	}
	if limit := m.config.EmbeddingBatchLimit; limit > 0 && len(values) > limit {
		return nil, &aierr.ConfigError{
			Provider: m.config.ProviderID,
			Model:    m.modelID,
			Message:  fmt.Sprintf("batch of %d exceeds provider limit of %d (use EmbedMany)", len(values), limit),
		}
	}

	body := embedBatchRequest{}
	for _, value := range values {
		body.Requests = append(body.Requests, embedRequest{
			Model:   "models/" + m.modelID,
			Content: wireContent{Parts: []wirePart{{Text: value}}},
		})
	}

	wireResponse, err := httpx.PostJSON[embedBatchResponse](ctx, m.config.HTTPClient, m.config.ProviderID,
		m.config.ModelURL(m.modelID, "batchEmbedContents"), headers, body, 0)
	if err != nil {
		return nil, err
	}

	if len(wireResponse.Embeddings) != len(values) {
		return nil, &aierr.DecodeError{
			Provider: m.config.ProviderID,
			Message:  fmt.Sprintf("expected %d embeddings, got %d", len(values), len(wireResponse.Embeddings)),
		}
	}

	result := &ai.Embeddings{Vectors: make([][]float64, len(values))}
	for i, embedding := range wireResponse.Embeddings {
		result.Vectors[i] = embedding.Values
	}
	return result, nil
}
