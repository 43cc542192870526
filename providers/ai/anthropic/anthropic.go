// Package anthropic is the Anthropic provider, speaking the Messages API:
// system instructions as a top-level field, content blocks for text, images,
// tool use and tool results, and a typed SSE stream.
package anthropic

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

// ProviderID is the canonical provider id.
const ProviderID = "anthropic"

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"

	// defaultMaxTokens applies when the caller sets no output limit;
	// max_tokens is mandatory on the Messages API.
	defaultMaxTokens = 4096
)

// Provider serves Anthropic Claude models. Only text generation is offered.
type Provider struct {
	openaicompat.UnsupportedModels

	apiKey            string
	baseURL           string
	client            *http.Client
	inactivityTimeout time.Duration
}

// Option configures a [Provider].
type Option func(*Provider)

// WithAPIKey overrides the ANTHROPIC_API_KEY environment variable.
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

// WithStreamInactivityTimeout tears down a stream when no frame arrives
// within the window. Zero means unbounded.
func WithStreamInactivityTimeout(timeout time.Duration) Option {
	return func(p *Provider) { p.inactivityTimeout = timeout }
}

// New creates an Anthropic provider. Credentials default to
// ANTHROPIC_API_KEY.
func New(opts ...Option) *Provider {
	provider := &Provider{
		UnsupportedModels: openaicompat.UnsupportedModels{Provider: ProviderID},
		apiKey:            os.Getenv("ANTHROPIC_API_KEY"),
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

// LanguageModel returns a Messages API model.
func (p *Provider) LanguageModel(modelID string) (ai.LanguageModel, error) {
	return &LanguageModel{provider: p, modelID: modelID}, nil
}

// headers returns the Messages API authentication and version headers. The
// key rides in x-api-key rather than Authorization.
func (p *Provider) headers(options *ai.CallOptions) map[string]string {
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": apiVersion,
	}
	if options != nil {
		for key, value := range options.Headers {
			headers[key] = value
		}
	}
	return headers
}

func (p *Provider) requireKey(modelID string) error {
	if p.apiKey == "" {
		return &aierr.ConfigError{Provider: ProviderID, Model: modelID, Message: "ANTHROPIC_API_KEY is not set"}
	}
	return nil
}
