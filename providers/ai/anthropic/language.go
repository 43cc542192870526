package anthropic

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/internal/httpx"
	"github.com/manifold-ai/manifold/providers/observability"
)

// LanguageModel is an [ai.LanguageModel] speaking the Messages API. It is
// safe for concurrent use; the provider's HTTP client is shared across
// calls.
type LanguageModel struct {
	provider *Provider
	modelID  string
}

// ProviderID returns the canonical provider id.
func (m *LanguageModel) ProviderID() string { return ProviderID }

// ModelID returns the bound model id.
func (m *LanguageModel) ModelID() string { return m.modelID }

// Generate implements the non-streaming generation operation.
func (m *LanguageModel) Generate(ctx context.Context, request *ai.Request) (*ai.Response, error) {
	body, err := m.prepare(request)
	if err != nil {
		return nil, err
	}

	m.enrichSpan(ctx, false)

	requestInfo := ai.RequestInfo{ID: uuid.NewString(), Started: time.Now().UTC()}

	wireResponse, err := httpx.PostJSON[messagesResponse](ctx, m.provider.client, ProviderID,
		m.provider.baseURL+"/messages", m.provider.headers(&request.Options), body, request.Options.RequestTimeout)
	if err != nil {
		return nil, err
	}

	requestInfo.Duration = time.Since(requestInfo.Started)

	response := parseResponse(wireResponse)
	response.Request = requestInfo
	return response, nil
}

// prepare validates the request and converts it to the Messages API shape.
func (m *LanguageModel) prepare(request *ai.Request) (messagesRequest, error) {
	if err := m.provider.requireKey(m.modelID); err != nil {
		return messagesRequest{}, err
	}
	if err := ai.ValidateMessages(request.Messages); err != nil {
		return messagesRequest{}, err
	}

	body, err := buildRequest(m.modelID, request)
	if err != nil {
		return messagesRequest{}, &aierr.ConfigError{
			Provider: ProviderID,
			Model:    m.modelID,
			Message:  err.Error(),
		}
	}
	return body, nil
}

func (m *LanguageModel) enrichSpan(ctx context.Context, streaming bool) {
	span := observability.SpanFromContext(ctx)
	if span == nil {
		return
	}
	span.AddEvent(observability.EventLLMRequestStart)
	span.SetAttributes(
		observability.String(observability.AttrLLMProvider, ProviderID),
		observability.String(observability.AttrLLMEndpoint, m.provider.baseURL),
		observability.String(observability.AttrLLMModel, m.modelID),
		observability.Bool("llm.streaming", streaming),
	)
}
