package openaicompat

import (
	"net/http"
	"time"

	"github.com/manifold-ai/manifold/core/ai"
)

const (
	defaultChatPath       = "/chat/completions"
	defaultEmbeddingsPath = "/embeddings"
)

// Config parameterises the shared OpenAI-compatible codec. A dozen services
// speak this wire shape (OpenAI, Groq, DeepSeek, DeepInfra, Cerebras,
// Perplexity, Mistral, Together, xAI, Cohere v2); each provider package
// supplies a Config with its base URL, authentication, and hooks for the
// knobs that differ.
type Config struct {
	// ProviderID is the canonical provider id used in errors, metadata
	// namespaces, and registry identifiers.
	ProviderID string

	// BaseURL is the service root, e.g. "https://api.openai.com/v1".
	BaseURL string

	// APIKey authenticates requests. Sent as "Authorization: Bearer <key>"
	// unless AuthHeader overrides the header name.
	APIKey string

	// AuthHeader optionally replaces the Authorization header name (e.g.
	// Anthropic-style "x-api-key" lookalikes). When set, the key is sent
	// without the "Bearer " prefix.
	AuthHeader string

	// HTTPClient is shared across all requests of this provider. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client

	// ChatPath and EmbeddingsPath override the endpoint paths when a service
	// deviates from the OpenAI layout (Cohere v2 uses /chat).
	ChatPath       string
	EmbeddingsPath string

	// Headers are static extra headers attached to every request.
	Headers map[string]string

	// PrepareBody, when set, rewrites the wire request after the generic
	// conversion and before dispatch. Providers use it for model-family
	// parameter rewrites (OpenAI o1) and provider extras (xAI search
	// parameters). It returns warnings to surface on the response.
	PrepareBody func(body *ChatRequest, request *ai.Request) ([]string, error)

	// Metadata, when set, extracts provider-namespace metadata from a parsed
	// response (DeepSeek cache counters, Perplexity search data).
	Metadata func(response *ChatResponse) map[string]any

	// StreamInactivityTimeout tears down a stream when no frame arrives
	// within the window. Zero means unbounded.
	StreamInactivityTimeout time.Duration
}

// chatURL returns the chat completions endpoint for this config.
func (c Config) chatURL() string {
	path := c.ChatPath
	if path == "" {
		path = defaultChatPath
	}
	return c.BaseURL + path
}

// embeddingsURL returns the embeddings endpoint for this config.
func (c Config) embeddingsURL() string {
	path := c.EmbeddingsPath
	if path == "" {
		path = defaultEmbeddingsPath
	}
	return c.BaseURL + path
}

// requestHeaders merges authentication, static config headers, and
// per-request headers, in that order of increasing precedence.
func (c Config) requestHeaders(options *ai.CallOptions) map[string]string {
	headers := map[string]string{}

	if c.APIKey != "" {
		if c.AuthHeader != "" {
			headers[c.AuthHeader] = c.APIKey
		} else {
			headers["Authorization"] = "Bearer " + c.APIKey
		}
	}
	for key, value := range c.Headers {
		headers[key] = value
	}
	if options != nil {
		for key, value := range options.Headers {
			headers[key] = value
		}
	}

	return headers
}
