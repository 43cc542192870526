package openai

import (
	"net/http"
	"os"
	"strings"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

const (
	// ProviderID is the canonical provider id.
	ProviderID = "openai"

	defaultBaseURL = "https://api.openai.com/v1"
)

// Provider exposes the full OpenAI surface: chat completions, embeddings,
// DALL·E image generation, speech synthesis, and Whisper transcription.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures a [Provider].
type Option func(*Provider)

// WithAPIKey overrides the OPENAI_API_KEY environment variable.
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

// New creates an OpenAI provider. Credentials default to the
// OPENAI_API_KEY environment variable.
func New(opts ...Option) *Provider {
	provider := &Provider{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		provider.baseURL = strings.TrimSuffix(url, "/")
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

// LanguageModel returns a chat completions model. Reasoning-family models
// (o1, o3, o4, gpt-5) get their parameter set rewritten on every request;
// see [reasoningRewrite].
func (p *Provider) LanguageModel(modelID string) (ai.LanguageModel, error) {
	config := p.config()
	if isReasoningModel(modelID) {
		config.PrepareBody = reasoningRewrite
	}
	return openaicompat.NewLanguageModel(config, modelID), nil
}

// EmbeddingModel returns an embeddings model. The documented per-request
// input cap is 2048.
func (p *Provider) EmbeddingModel(modelID string) (ai.EmbeddingModel, error) {
	return openaicompat.NewEmbeddingModel(p.config(), modelID, 2048, true), nil
}

// ImageModel returns a DALL·E or gpt-image model.
func (p *Provider) ImageModel(modelID string) (ai.ImageModel, error) {
	return &imageModel{provider: p, modelID: modelID}, nil
}

// SpeechModel returns a text-to-speech model.
func (p *Provider) SpeechModel(modelID string) (ai.SpeechModel, error) {
	return &speechModel{provider: p, modelID: modelID}, nil
}

// TranscriptionModel returns a Whisper transcription model.
func (p *Provider) TranscriptionModel(modelID string) (ai.TranscriptionModel, error) {
	return &transcriptionModel{provider: p, modelID: modelID}, nil
}

func (p *Provider) requireKey(modelID string) error {
	if p.apiKey == "" {
		return &aierr.ConfigError{Provider: ProviderID, Model: modelID, Message: "OPENAI_API_KEY is not set"}
	}
	return nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.apiKey}
}

// isReasoningModel reports whether the model id belongs to the reasoning
// family, whose chat-completions dialect differs from the standard one.
func isReasoningModel(modelID string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(modelID, prefix) {
			return true
		}
	}
	return false
}

// reasoningRewrite adapts a standard chat completions body to the
// reasoning-model dialect: sampling parameters are rejected by the API and
// must be stripped, max_tokens is renamed max_completion_tokens, and
// system messages become developer messages.
func reasoningRewrite(body *openaicompat.ChatRequest, _ *ai.Request) ([]string, error) {
	var warnings []string

	if body.Temperature != nil || body.TopP != nil || body.FrequencyPenalty != nil || body.PresencePenalty != nil {
		warnings = append(warnings, "sampling parameters are not supported by reasoning models and were removed")
	}
	body.Temperature = nil
	body.TopP = nil
	body.FrequencyPenalty = nil
	body.PresencePenalty = nil

	if body.MaxTokens != nil {
		body.MaxCompletionTokens = body.MaxTokens
		body.MaxTokens = nil
	}

	for i := range body.Messages {
		if body.Messages[i].Role == "system" {
			body.Messages[i].Role = "developer"
		}
	}

	return warnings, nil
}
