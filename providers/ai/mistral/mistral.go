// Package mistral is the Mistral provider: OpenAI-compatible chat
// completions plus embeddings. Mistral-native knobs (safe_prompt,
// document_image_limit) pass through the provider-options namespace.
package mistral

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

// ProviderID is the canonical provider id.
const ProviderID = "mistral"

const (
	defaultBaseURL = "https://api.mistral.ai/v1"

	// embeddingBatchLimit is Mistral's documented per-request input cap.
	embeddingBatchLimit = 32
)

// Provider serves Mistral chat and embedding models.
type Provider struct {
	openaicompat.UnsupportedModels

	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures a [Provider].
type Option func(*Provider)

// WithAPIKey overrides the MISTRAL_API_KEY environment variable.
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

// New creates a Mistral provider. Credentials default to MISTRAL_API_KEY.
func New(opts ...Option) *Provider {
	provider := &Provider{
		UnsupportedModels: openaicompat.UnsupportedModels{Provider: ProviderID},
		apiKey:            os.Getenv("MISTRAL_API_KEY"),
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
		ProviderID:  ProviderID,
		BaseURL:     p.baseURL,
		APIKey:      p.apiKey,
		HTTPClient:  p.client,
		PrepareBody: applyOptions,
	}
}

// LanguageModel returns a chat completions model.
func (p *Provider) LanguageModel(modelID string) (ai.LanguageModel, error) {
	return openaicompat.NewLanguageModel(p.config(), modelID), nil
}

// EmbeddingModel returns an embeddings model. Batches are capped at 32
// inputs per request.
func (p *Provider) EmbeddingModel(modelID string) (ai.EmbeddingModel, error) {
	return openaicompat.NewEmbeddingModel(p.config(), modelID, embeddingBatchLimit, true), nil
}

// providerOptions are the Mistral-native knobs accepted under
// provider_options["mistral"].
type providerOptions struct {
	// SafePrompt injects Mistral's safety prompt ahead of the conversation.
	SafePrompt *bool `mapstructure:"safe_prompt"`

	// DocumentImageLimit caps how many images a document-understanding
	// request may carry.
	DocumentImageLimit *int `mapstructure:"document_image_limit"`
}

func applyOptions(body *openaicompat.ChatRequest, request *ai.Request) ([]string, error) {
	raw, ok := request.Options.ProviderOptions[ProviderID]
	if !ok {
		return nil, nil
	}

	var options providerOptions
	if err := mapstructure.Decode(raw, &options); err != nil {
		return nil, &aierr.ConfigError{
			Provider: ProviderID,
			Message:  fmt.Sprintf("invalid provider options: %v", err),
		}
	}

	if options.SafePrompt != nil {
		if body.Extra == nil {
			body.Extra = map[string]any{}
		}
		body.Extra["safe_prompt"] = *options.SafePrompt
	}
	if options.DocumentImageLimit != nil {
		if body.Extra == nil {
			body.Extra = map[string]any{}
		}
		body.Extra["document_image_limit"] = *options.DocumentImageLimit
	}

	return nil, nil
}
