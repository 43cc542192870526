package gladia

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/internal/httpx"
)

// transcriptionModel runs Gladia's three-step flow: upload the audio, create
// a pre-recorded transcription job, then poll the job's result URL until it
// reports done or error.
type transcriptionModel struct {
	provider *Provider
	modelID  string
}

func (m *transcriptionModel) ProviderID() string { return ProviderID }
func (m *transcriptionModel) ModelID() string    { return m.modelID }

// providerOptions are the gladia-specific per-call options, decoded from
// TranscriptionOptions.ProviderOptions["gladia"].
type providerOptions struct {
	PollIntervalMS int `mapstructure:"poll_interval_ms"`
	PollTimeoutMS  int `mapstructure:"poll_timeout_ms"`
}

type uploadResponse struct {
	AudioURL string `json:"audio_url"`
}

type jobRequest struct {
	AudioURL       string `json:"audio_url"`
	Language       string `json:"language,omitempty"`
	DetectLanguage *bool  `json:"detect_language,omitempty"`
}

type jobResponse struct {
	ID        string `json:"id"`
	ResultURL string `json:"result_url"`
}

type resultResponse struct {
	Status    string `json:"status"` // queued | processing | done | error
	ErrorCode any    `json:"error_code,omitempty"`

	Result *struct {
		Transcription struct {
			FullTranscript string   `json:"full_transcript"`
			Languages      []string `json:"languages,omitempty"`
			Utterances     []struct {
				Text  string  `json:"text"`
				Start float64 `json:"start"`
				End   float64 `json:"end"`
			} `json:"utterances,omitempty"`
		} `json:"transcription"`
		Metadata struct {
			AudioDuration float64 `json:"audio_duration,omitempty"`
		} `json:"metadata,omitzero"`
	} `json:"result,omitempty"`
}

func (m *transcriptionModel) Transcribe(ctx context.Context, audio []byte, mediaType string, options *ai.TranscriptionOptions) (*ai.Transcription, error) {
	if m.provider.apiKey == "" {
		return nil, &aierr.ConfigError{
			Provider: ProviderID,
			Model:    m.modelID,
			Message:  "missing API key: set GLADIA_API_KEY or use WithAPIKey",
		}
	}
	if len(audio) == 0 {
		return nil, &aierr.ConfigError{Provider: ProviderID, Model: m.modelID, Message: "audio payload is empty"}
	}

	interval, timeout, err := m.pollSettings(options)
	if err != nil {
		return nil, err
	}

	upload, err := httpx.PostMultipart[uploadResponse](ctx, m.provider.client, ProviderID,
		m.provider.baseURL+"/upload", m.provider.headers(),
		nil, "audio", "audio"+extensionFor(mediaType), audio, 0)
	if err != nil {
		return nil, err
	}

	job := jobRequest{AudioURL: upload.AudioURL}
	if options != nil && options.Language != "" {
		job.Language = options.Language
		detect := false
		job.DetectLanguage = &detect
	}

	created, err := httpx.PostJSON[jobResponse](ctx, m.provider.client, ProviderID,
		m.provider.baseURL+"/pre-recorded", m.provider.headers(), job, 0)
	if err != nil {
		return nil, err
	}
	if created.ResultURL == "" {
		return nil, &aierr.DecodeError{Provider: ProviderID, Message: "transcription job response missing result_url"}
	}

	result, err := m.poll(ctx, created.ResultURL, interval, timeout)
	if err != nil {
		return nil, err
	}
	return convertResult(result), nil
}

// poll fetches the result URL every interval until the job leaves the
// pending states or the overall deadline passes.
func (m *transcriptionModel) poll(ctx context.Context, resultURL string, interval, timeout time.Duration) (*resultResponse, error) {
	deadline := time.Now().Add(timeout)

	for {
		result, err := httpx.GetJSON[resultResponse](ctx, m.provider.client, ProviderID,
			resultURL, m.provider.headers(), 0)
		if err != nil {
			return nil, err
		}

		switch result.Status {
		case "done":
			if result.Result == nil {
				return nil, &aierr.DecodeError{Provider: ProviderID, Message: "done transcription carries no result"}
			}
			return result, nil
		case "error":
			return nil, &aierr.DecodeError{
				Provider: ProviderID,
				Message:  fmt.Sprintf("transcription failed: %v", result.ErrorCode),
			}
		}

		if time.Now().Add(interval).After(deadline) {
			return nil, &aierr.TransportError{
				Provider: ProviderID,
				Method:   "GET",
				URL:      resultURL,
				Err:      fmt.Errorf("transcription did not complete within %s", timeout),
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (m *transcriptionModel) pollSettings(options *ai.TranscriptionOptions) (time.Duration, time.Duration, error) {
	interval := m.provider.pollInterval
	timeout := m.provider.pollTimeout

	if options == nil || options.ProviderOptions[ProviderID] == nil {
		return interval, timeout, nil
	}

	var decoded providerOptions
	if err := mapstructure.Decode(options.ProviderOptions[ProviderID], &decoded); err != nil {
		return 0, 0, &aierr.ConfigError{
			Provider: ProviderID,
			Model:    m.modelID,
			Message:  "invalid provider options: " + err.Error(),
		}
	}
	if decoded.PollIntervalMS > 0 {
		interval = time.Duration(decoded.PollIntervalMS) * time.Millisecond
	}
	if decoded.PollTimeoutMS > 0 {
		timeout = time.Duration(decoded.PollTimeoutMS) * time.Millisecond
	}
	return interval, timeout, nil
}

func convertResult(result *resultResponse) *ai.Transcription {
	transcription := &ai.Transcription{
		Text:     result.Result.Transcription.FullTranscript,
		Duration: result.Result.Metadata.AudioDuration,
	}
	if languages := result.Result.Transcription.Languages; len(languages) > 0 {
		transcription.Language = languages[0]
	}
	for _, utterance := range result.Result.Transcription.Utterances {
		transcription.Segments = append(transcription.Segments, ai.TranscriptionSegment{
			Text:  utterance.Text,
			Start: utterance.Start,
			End:   utterance.End,
		})
	}
	return transcription
}

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
	return ".bin"
}
