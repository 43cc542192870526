package google

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/internal/httpx"
	"github.com/manifold-ai/manifold/providers/observability"
)

// LanguageModel is an [ai.LanguageModel] speaking the GenerateContent
// protocol, parameterised by a [Config]. Both the public Generative
// Language API and Vertex AI use this implementation.
type LanguageModel struct {
	config  Config
	modelID string
}

// NewLanguageModel binds a model id to a GenerateContent configuration.
func NewLanguageModel(config Config, modelID string) *LanguageModel {
	return &LanguageModel{config: config, modelID: modelID}
}

// ProviderID returns the configured provider id.
func (m *LanguageModel) ProviderID() string { return m.config.ProviderID }

// ModelID returns the bound model id.
func (m *LanguageModel) ModelID() string { return m.modelID }

// Generate implements the non-streaming generation operation.
func (m *LanguageModel) Generate(ctx context.Context, request *ai.Request) (*ai.Response, error) {
	body, headers, err := m.prepare(ctx, request)
	if err != nil {
		return nil, err
	}

	m.enrichSpan(ctx, false)

	requestInfo := ai.RequestInfo{ID: uuid.NewString(), Started: time.Now().UTC()}

	wireResponse, err := httpx.PostJSON[generateResponse](ctx, m.config.HTTPClient, m.config.ProviderID,
		m.config.ModelURL(m.modelID, "generateContent"), headers, body, request.Options.RequestTimeout)
	if err != nil {
		return nil, err
	}

	requestInfo.Duration = time.Since(requestInfo.Started)

	response := parseResponse(wireResponse, uuid.NewString)
	if response.Response.ModelID == "" {
		response.Response.ModelID = m.modelID
	}
	response.Request = requestInfo
	return response, nil
}

// prepare validates the request, converts it, and resolves per-request
// authentication headers.
func (m *LanguageModel) prepare(ctx context.Context, request *ai.Request) (generateRequest, map[string]string, error) {
	headers, err := m.config.Headers(ctx)
	if err != nil {
		return generateRequest{}, nil, err
	}
	if err := ai.ValidateMessages(request.Messages); err != nil {
		return generateRequest{}, nil, err
	}

	body, err := buildRequest(m.config, request)
	if err != nil {
		if _, ok := err.(*aierr.ConfigError); ok {
			return generateRequest{}, nil, err
		}
		return generateRequest{}, nil, &aierr.ConfigError{
			Provider: m.config.ProviderID,
			Model:    m.modelID,
			Message:  err.Error(),
		}
	}

	for key, value := range request.Options.Headers {
		headers[key] = value
	}
	return body, headers, nil
}

func (m *LanguageModel) enrichSpan(ctx context.Context, streaming bool) {
	span := observability.SpanFromContext(ctx)
	if span == nil {
		return
	}
	span.AddEvent(observability.EventLLMRequestStart)
	span.SetAttributes(
		observability.String(observability.AttrLLMProvider, m.config.ProviderID),
		observability.String(observability.AttrLLMModel, m.modelID),
		observability.Bool("llm.streaming", streaming),
	)
}
