// Package cohere is the Cohere provider, speaking the v2 API: the chat
// endpoint lives at /chat rather than /chat/completions, and embeddings
// accept up to 96 inputs per request.
package cohere

import (
	"net/http"
	"os"
	"strings"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

// ProviderID is the canonical provider id.
const ProviderID = "cohere"

const (
	defaultBaseURL = "https://api.cohere.com/v2"

	// embeddingBatchLimit is Cohere's documented per-request input cap.
	embeddingBatchLimit = 96
)

// Provider serves Cohere command and embed models.
type Provider struct {
	openaicompat.UnsupportedModels

	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures a [Provider].
type Option func(*Provider)

// WithAPIKey overrides the COHERE_API_KEY environment variable.
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

// New creates a Cohere provider. Credentials default to COHERE_API_KEY.
func New(opts ...Option) *Provider {
	provider := &Provider{
		UnsupportedModels: openaicompat.UnsupportedModels{Provider: ProviderID},
		apiKey:            os.Getenv("COHERE_API_KEY"),
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
		ChatPath:   "/chat",
	}
}

// LanguageModel returns a chat model on the v2 /chat endpoint.
func (p *Provider) LanguageModel(modelID string) (ai.LanguageModel, error) {
	return openaicompat.NewLanguageModel(p.config(), modelID), nil
}

// EmbeddingModel returns an embeddings model. Batches are capped at 96
// inputs per request.
func (p *Provider) EmbeddingModel(modelID string) (ai.EmbeddingModel, error) {
	return openaicompat.NewEmbeddingModel(p.config(), modelID, embeddingBatchLimit, true), nil
}
