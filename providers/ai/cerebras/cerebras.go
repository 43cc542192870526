// Package cerebras is the Cerebras provider: OpenAI-compatible chat
// completions served from wafer-scale inference hardware.
package cerebras

import (
	"net/http"
	"os"
	"strings"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

// ProviderID is the canonical provider id.
const ProviderID = "cerebras"

const defaultBaseURL = "https://api.cerebras.ai/v1"

// Provider serves Cerebras-hosted models. Only text generation is offered.
type Provider struct {
	openaicompat.UnsupportedModels

	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures a [Provider].
type Option func(*Provider)

// WithAPIKey overrides the CEREBRAS_API_KEY environment variable.
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

// New creates a Cerebras provider. Credentials default to CEREBRAS_API_KEY.
func New(opts ...Option) *Provider {
	provider := &Provider{
		UnsupportedModels: openaicompat.UnsupportedModels{Provider: ProviderID},
		apiKey:            os.Getenv("CEREBRAS_API_KEY"),
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

// LanguageModel returns a chat completions model.
func (p *Provider) LanguageModel(modelID string) (ai.LanguageModel, error) {
	return openaicompat.NewLanguageModel(openaicompat.Config{
		ProviderID: ProviderID,
		BaseURL:    p.baseURL,
		APIKey:     p.apiKey,
		HTTPClient: p.client,
	}, modelID), nil
}
