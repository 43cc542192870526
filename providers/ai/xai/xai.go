// Package xai is the xAI provider for Grok models. The service is
// OpenAI-compatible with two extras: live-search parameters on any model,
// and a reasoning-effort knob on the grok-3-mini family.
package xai

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
const ProviderID = "xai"

const defaultBaseURL = "https://api.x.ai/v1"

// Provider serves xAI Grok models.
type Provider struct {
	openaicompat.UnsupportedModels

	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures a [Provider].
type Option func(*Provider)

// WithAPIKey overrides the XAI_API_KEY environment variable.
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

// New creates an xAI provider. Credentials default to XAI_API_KEY.
func New(opts ...Option) *Provider {
	provider := &Provider{
		UnsupportedModels: openaicompat.UnsupportedModels{Provider: ProviderID},
		apiKey:            os.Getenv("XAI_API_KEY"),
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
		ProviderID:  ProviderID,
		BaseURL:     p.baseURL,
		APIKey:      p.apiKey,
		HTTPClient:  p.client,
		PrepareBody: applyOptions,
	}, modelID), nil
}

// providerOptions are the xAI-native knobs accepted under
// provider_options["xai"].
type providerOptions struct {
	// SearchParameters enables live search; passed through verbatim as the
	// search_parameters request field.
	SearchParameters map[string]any `mapstructure:"search_parameters"`

	// ReasoningEffort is "low" or "high". Only the grok-3-mini family
	// accepts it.
	ReasoningEffort string `mapstructure:"reasoning_effort"`
}

// applyOptions decodes the provider-options namespace and attaches the
// xAI-native fields to the request body.
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

	var warnings []string

	if options.SearchParameters != nil {
		if body.Extra == nil {
			body.Extra = map[string]any{}
		}
		body.Extra["search_parameters"] = options.SearchParameters
	}

	if options.ReasoningEffort != "" {
		switch options.ReasoningEffort {
		case "low", "high":
		default:
			return nil, &aierr.ConfigError{
				Provider: ProviderID,
				Message:  fmt.Sprintf("reasoning_effort must be %q or %q, got %q", "low", "high", options.ReasoningEffort),
			}
		}
		if strings.HasPrefix(body.Model, "grok-3-mini") {
			if body.Extra == nil {
				body.Extra = map[string]any{}
			}
			body.Extra["reasoning_effort"] = options.ReasoningEffort
		} else {
			warnings = append(warnings, fmt.Sprintf("reasoning_effort is only supported by grok-3-mini models, ignored for %s", body.Model))
		}
	}

	return warnings, nil
}
