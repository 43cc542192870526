// Package deepinfra is the DeepInfra provider: OpenAI-compatible chat
// completions and embeddings.
package deepinfra

import (
	"net/http"
	"os"
	"strings"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

// ProviderID is the canonical provider id.
const ProviderID = "deepinfra"

const (
	defaultBaseURL = "https://api.deepinfra.com/v1/openai"

	// embeddingBatchLimit is DeepInfra's documented per-request input cap.
	embeddingBatchLimit = 96
)

// Provider serves DeepInfra-hosted models.
type Provider struct {
	openaicompat.UnsupportedModels

	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures a [Provider].
type Option func(*Provider)

// WithAPIKey overrides the DEEPINFRA_API_KEY environment variable.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) { p.apiKey = apiKey }
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient sets the HTTP client shared by this provider's models.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// New creates a DeepInfra provider. Credentials default to
// DEEPINFRA_API_KEY.
func New(opts ...Option) *Provider {
	provider := &Provider{
		UnsupportedModels: openaicompat.UnsupportedModels{Provider: ProviderID},
		apiKey:            os.Getenv("DEEPINFRA_API_KEY"),
		baseURL:           defaultBaseURL,
		client:            &http.Client{},
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// ID returns the canonical provider id.
func (p *Provider) ID() string { return ProviderID }

func (p *Provider) config() openaicompat.Config {
	return openaicompat.Config{
		ProviderID: ProviderID,
		BaseURL:    p.baseURL,
		APIKey:     p.apiKey,
		HTTPClient: p.client,
	}
}

// LanguageModel returns a chat completions model.
func (p *Provider) LanguageModel(modelID string) (ai.LanguageModel, error) {
	return openaicompat.NewLanguageModel(p.config(), modelID), nil
}

// EmbeddingModel returns an embeddings model. Batches are capped at 96
// inputs per request.
func (p *Provider) EmbeddingModel(modelID string) (ai.EmbeddingModel, error) {
	return openaicompat.NewEmbeddingModel(p.config(), modelID, embeddingBatchLimit, true), nil
}
