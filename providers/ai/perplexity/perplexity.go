// Package perplexity is the Perplexity provider: search-augmented chat
// completions over the OpenAI-compatible protocol. Responses carry the web
// citations backing the answer; search scope narrows through the
// provider-options namespace.
package perplexity

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
const ProviderID = "perplexity"

const defaultBaseURL = "https://api.perplexity.ai"

// Provider serves Perplexity sonar models.
type Provider struct {
	openaicompat.UnsupportedModels

	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures a [Provider].
type Option func(*Provider)

// WithAPIKey overrides the PERPLEXITY_API_KEY environment variable.
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

// New creates a Perplexity provider. Credentials default to
// PERPLEXITY_API_KEY.
func New(opts ...Option) *Provider {
	provider := &Provider{
		UnsupportedModels: openaicompat.UnsupportedModels{Provider: ProviderID},
		apiKey:            os.Getenv("PERPLEXITY_API_KEY"),
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

// LanguageModel returns a chat completions model. Citations returned by the
// service surface as source parts on the response.
func (p *Provider) LanguageModel(modelID string) (ai.LanguageModel, error) {
	return openaicompat.NewLanguageModel(openaicompat.Config{
		ProviderID:  ProviderID,
		BaseURL:     p.baseURL,
		APIKey:      p.apiKey,
		HTTPClient:  p.client,
		PrepareBody: applyOptions,
		Metadata:    citationMetadata,
	}, modelID), nil
}

// providerOptions are the Perplexity-native knobs accepted under
// provider_options["perplexity"].
type providerOptions struct {
	// SearchDomainFilter allows or denies specific domains; prefix a domain
	// with "-" to exclude it.
	SearchDomainFilter []string `mapstructure:"search_domain_filter"`

	// SearchRecencyFilter restricts results by age: "month", "week", "day",
	// or "hour".
	SearchRecencyFilter string `mapstructure:"search_recency_filter"`
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

	if len(options.SearchDomainFilter) > 0 {
		if body.Extra == nil {
			body.Extra = map[string]any{}
		}
		body.Extra["search_domain_filter"] = options.SearchDomainFilter
	}
	if options.SearchRecencyFilter != "" {
		if body.Extra == nil {
			body.Extra = map[string]any{}
		}
		body.Extra["search_recency_filter"] = options.SearchRecencyFilter
	}

	return nil, nil
}

// citationMetadata mirrors the citation list into the provider metadata
// namespace alongside the source parts.
func citationMetadata(response *openaicompat.ChatResponse) map[string]any {
	if len(response.Citations) == 0 {
		return nil
	}
	return map[string]any{"citations": response.Citations}
}
