// Package google is the Google Generative AI provider, speaking the
// GenerateContent API: roles user/model, typed content parts, safety
// settings, and line-delimited JSON streaming. The codec is parameterised
// by a [Config] so the Vertex AI provider can reuse it with its own
// endpoint scheme and OAuth2 credentials.
package google

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

// ProviderID is the canonical provider id.
const ProviderID = "google"

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Config parameterises the GenerateContent codec. ModelURL builds the full
// endpoint for a model and method; Headers supplies per-request
// authentication (a static API key here, a minted OAuth2 token on Vertex).
type Config struct {
	ProviderID string
	HTTPClient *http.Client

	ModelURL func(modelID, method string) string
	Headers  func(ctx context.Context) (map[string]string, error)

	// EmbeddingBatchLimit caps inputs per batchEmbedContents request.
	EmbeddingBatchLimit int

	StreamInactivityTimeout time.Duration
}

// Provider serves Gemini models through the public Generative Language API.
type Provider struct {
	openaicompat.UnsupportedModels

	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures a [Provider].
type Option func(*Provider)

// WithAPIKey overrides the GOOGLE_API_KEY / GEMINI_API_KEY environment
// variables.
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

// New creates a Google provider. Credentials default to GOOGLE_API_KEY,
// falling back to GEMINI_API_KEY.
func New(opts ...Option) *Provider {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	provider := &Provider{
		UnsupportedModels: openaicompat.UnsupportedModels{Provider: ProviderID},
		apiKey:            apiKey,
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

func (p *Provider) config() Config {
	apiKey := p.apiKey
	baseURL := p.baseURL
	return Config{
		ProviderID: ProviderID,
		HTTPClient: p.client,
		ModelURL: func(modelID, method string) string {
			return fmt.Sprintf("%s/models/%s:%s", baseURL, modelID, method)
		},
		Headers: func(context.Context) (map[string]string, error) {
			if apiKey == "" {
				return nil, &aierr.ConfigError{Provider: ProviderID, Message: "GOOGLE_API_KEY is not set"}
			}
			return map[string]string{"x-goog-api-key": apiKey}, nil
		},
		EmbeddingBatchLimit: 100,
	}
}

// LanguageModel returns a GenerateContent model.
func (p *Provider) LanguageModel(modelID string) (ai.LanguageModel, error) {
	return NewLanguageModel(p.config(), modelID), nil
}

// EmbeddingModel returns a batchEmbedContents model.
func (p *Provider) EmbeddingModel(modelID string) (ai.EmbeddingModel, error) {
	return NewEmbeddingModel(p.config(), modelID), nil
}
