package openai

import (
	"context"
	"mime"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/internal/httpx"
)

// transcriptionModel uploads audio to /audio/transcriptions as
// multipart/form-data. verbose_json is requested so segments, language and
// duration come back alongside the text.
type transcriptionModel struct {
	provider *Provider
	modelID  string
}

func (m *transcriptionModel) ProviderID() string { return ProviderID }
func (m *transcriptionModel) ModelID() string    { return m.modelID }

type transcriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments,omitempty"`
}

func (m *transcriptionModel) Transcribe(ctx context.Context, audio []byte, mediaType string, options *ai.TranscriptionOptions) (*ai.Transcription, error) {
	if err := m.provider.requireKey(m.modelID); err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, &aierr.ConfigError{Provider: ProviderID, Model: m.modelID, Message: "audio payload is empty"}
	}

	fields := map[string]string{
		"model":           m.modelID,
		"response_format": "verbose_json",
	}
	if options != nil && options.Language != "" {
		fields["language"] = options.Language
	}

	wireResponse, err := httpx.PostMultipart[transcriptionResponse](ctx, m.provider.client, ProviderID,
		m.provider.baseURL+"/audio/transcriptions", m.provider.headers(),
		fields, "file", "audio"+extensionFor(mediaType), audio, 0)
	if err != nil {
		return nil, err
	}

	result := &ai.Transcription{
		Text:     wireResponse.Text,
		Language: wireResponse.Language,
		Duration: wireResponse.Duration,
	}
	for _, segment := range wireResponse.Segments {
		result.Segments = append(result.Segments, ai.TranscriptionSegment{
			Text:  segment.Text,
			Start: segment.Start,
			End:   segment.End,
		})
	}
	return result, nil
}

// extensionFor picks a filename extension from the MIME type; the service
// uses it to sniff the container format.
func extensionFor(mediaType string) string {
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac":
		return ".flac"
	case "audio/webm":
		return ".webm"
	case "audio/mp4", "audio/m4a":
		return ".m4a"
	}
	if extensions, err := mime.ExtensionsByType(mediaType); err == nil && len(extensions) > 0 {
		return extensions[0]
	}
	return ".bin"
}
