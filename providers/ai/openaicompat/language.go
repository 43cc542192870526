package openaicompat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/internal/httpx"
	"github.com/manifold-ai/manifold/providers/observability"
)

// LanguageModel is an [ai.LanguageModel] speaking the OpenAI-compatible
// chat completions protocol, parameterised by a [Config]. It is safe for
// concurrent use; the configured HTTP client is shared across calls.
type LanguageModel struct {
	config  Config
	modelID string
}

// NewLanguageModel binds a model id to an OpenAI-compatible configuration.
func NewLanguageModel(config Config, modelID string) *LanguageModel {
	return &LanguageModel{config: config, modelID: modelID}
}

// ProviderID returns the configured provider id.
func (m *LanguageModel) ProviderID() string { return m.config.ProviderID }

// ModelID returns the bound model id.
func (m *LanguageModel) ModelID() string { return m.modelID }

// Generate implements the non-streaming generation operation.
func (m *LanguageModel) Generate(ctx context.Context, request *ai.Request) (*ai.Response, error) {
	body, warnings, err := m.prepare(request)
	if err != nil {
		return nil, err
	}

	m.enrichSpan(ctx, false)

	requestInfo := ai.RequestInfo{ID: uuid.NewString(), Started: time.Now().UTC()}

	wireResponse, err := httpx.PostJSON[ChatResponse](ctx, m.config.HTTPClient, m.config.ProviderID,
		m.config.chatURL(), m.config.requestHeaders(&request.Options), body, request.Options.RequestTimeout)
	if err != nil {
		return nil, err
	}

	requestInfo.Duration = time.Since(requestInfo.Started)

	response := ParseResponse(m.config, wireResponse)
	response.Request = requestInfo
	response.Warnings = warnings
	return response, nil
}

// prepare validates the request, converts it to the wire shape, and runs
// the provider's PrepareBody hook.
func (m *LanguageModel) prepare(request *ai.Request) (ChatRequest, []string, error) {
	if m.config.APIKey == "" {
		return ChatRequest{}, nil, &aierr.ConfigError{
			Provider: m.config.ProviderID,
			Model:    m.modelID,
			Message:  "API key is not set",
		}
	}
	if err := ai.ValidateMessages(request.Messages); err != nil {
		return ChatRequest{}, nil, err
	}

	body, err := BuildChatRequest(m.modelID, request)
	if err != nil {
		return ChatRequest{}, nil, &aierr.ConfigError{
			Provider: m.config.ProviderID,
			Model:    m.modelID,
			Message:  err.Error(),
		}
	}

	var warnings []string
	if m.config.PrepareBody != nil {
		warnings, err = m.config.PrepareBody(&body, request)
		if err != nil {
			return ChatRequest{}, nil, err
		}
	}

	return body, warnings, nil
}

// enrichSpan attaches provider/model attributes to the active span, if any.
func (m *LanguageModel) enrichSpan(ctx context.Context, streaming bool) {
	span := observability.SpanFromContext(ctx)
	if span == nil {
		return
	}
	span.AddEvent(observability.EventLLMRequestStart)
	span.SetAttributes(
		observability.String(observability.AttrLLMProvider, m.config.ProviderID),
		observability.String(observability.AttrLLMEndpoint, m.config.BaseURL),
		observability.String(observability.AttrLLMModel, m.modelID),
		observability.Bool("llm.streaming", streaming),
	)
}
