package openai

import (
	"context"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/internal/httpx"
)

// speechModel synthesises audio through the /audio/speech endpoint. The
// response body is the audio payload itself, not JSON.
type speechModel struct {
	provider *Provider
	modelID  string
}

func (m *speechModel) ProviderID() string { return ProviderID }
func (m *speechModel) ModelID() string    { return m.modelID }

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

func (m *speechModel) GenerateSpeech(ctx context.Context, text string, options *ai.SpeechOptions) (*ai.GeneratedSpeech, error) {
	if err := m.provider.requireKey(m.modelID); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, &aierr.ConfigError{Provider: ProviderID, Model: m.modelID, Message: "input text is empty"}
	}

	body := speechRequest{Model: m.modelID, Input: text, Voice: "alloy"}
	if options != nil {
		if options.Voice != "" {
			body.Voice = options.Voice
		}
		body.ResponseFormat = options.Format
		body.Speed = options.Speed
	}

	audio, contentType, err := httpx.PostForBytes(ctx, m.provider.client, ProviderID,
		m.provider.baseURL+"/audio/speech", m.provider.headers(), body, 0)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return &ai.GeneratedSpeech{Audio: audio, MediaType: contentType}, nil
}
