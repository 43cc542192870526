package bedrock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/providers/observability"
)

// LanguageModel is an [ai.LanguageModel] speaking the Converse API.
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

	wireResponse, err := postJSON[converseResponse](ctx, m.provider,
		m.provider.modelURL(m.modelID, "converse"), body, request.Options.RequestTimeout)
	if err != nil {
		return nil, err
	}

	requestInfo.Duration = time.Since(requestInfo.Started)

	response := parseResponse(m.modelID, wireResponse)
	response.Request = requestInfo
	return response, nil
}

func (m *LanguageModel) prepare(request *ai.Request) (converseRequest, error) {
	if err := m.provider.checkAuth(m.modelID); err != nil {
		return converseRequest{}, err
	}
	if err := ai.ValidateMessages(request.Messages); err != nil {
		return converseRequest{}, err
	}

	body, err := buildRequest(request)
	if err != nil {
		if _, ok := err.(*aierr.ConfigError); ok {
			return converseRequest{}, err
		}
		return converseRequest{}, &aierr.ConfigError{
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
		observability.String(observability.AttrLLMModel, m.modelID),
		observability.Bool("llm.streaming", streaming),
	)
}
