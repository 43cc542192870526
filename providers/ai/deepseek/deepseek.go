// Package deepseek is the DeepSeek provider. The service speaks the
// OpenAI-compatible protocol and additionally reports chain-of-thought via
// reasoning_content and prompt-cache hit counters, both surfaced in the
// provider metadata namespace.
package deepseek

import (
	"net/http"
	"os"
	"strings"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

// ProviderID is the canonical provider id.
const ProviderID = "deepseek"

const defaultBaseURL = "https://api.deepseek.com"

// Provider serves DeepSeek chat and reasoner models.
type Provider struct {
	openaicompat.UnsupportedModels

	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures a [Provider].
type Option func(*Provider)

// WithAPIKey overrides the DEEPSEEK_API_KEY environment variable.
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

// New creates a DeepSeek provider. Credentials default to DEEPSEEK_API_KEY.
func New(opts ...Option) *Provider {
	provider := &Provider{
		UnsupportedModels: openaicompat.UnsupportedModels{Provider: ProviderID},
		apiKey:            os.Getenv("DEEPSEEK_API_KEY"),
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
		Metadata:   cacheMetadata,
	}, modelID), nil
}

// cacheMetadata lifts the DeepSeek prompt-cache counters out of the usage
// block so callers can observe cache effectiveness per request.
func cacheMetadata(response *openaicompat.ChatResponse) map[string]any {
	if response.Usage == nil {
		return nil
	}
	usage := response.Usage
	if usage.PromptCacheHitTokens == 0 && usage.PromptCacheMissTokens == 0 {
		return nil
	}
	return map[string]any{
		"prompt_cache_hit_tokens":  usage.PromptCacheHitTokens,
		"prompt_cache_miss_tokens": usage.PromptCacheMissTokens,
	}
}
