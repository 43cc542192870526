package fal

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/internal/httpx"
)

// transcriptionModel submits audio to the fal queue as a data URI and polls
// the returned status URL until the job completes, then fetches the
// transcript from the response URL.
type transcriptionModel struct {
	provider *Provider
	modelID  string
}

func (m *transcriptionModel) ProviderID() string { return ProviderID }
func (m *transcriptionModel) ModelID() string    { return m.modelID }

// providerOptions are the fal-specific per-call options, decoded from
// TranscriptionOptions.ProviderOptions["fal"].
type providerOptions struct {
	PollIntervalMS int `mapstructure:"poll_interval_ms"`
	PollTimeoutMS  int `mapstructure:"poll_timeout_ms"`
}

type submitRequest struct {
	AudioURL string `json:"audio_url"`
	Language string `json:"language,omitempty"`
}

type submitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type statusResponse struct {
	Status string `json:"status"` // IN_QUEUE | IN_PROGRESS | COMPLETED
}

type resultResponse struct {
	Text   string `json:"text"`
	Chunks []struct {
		Text      string     `json:"text"`
		Timestamp [2]float64 `json:"timestamp"`
	} `json:"chunks,omitempty"`
	InferredLanguages []string `json:"inferred_languages,omitempty"`
}

func (m *transcriptionModel) Transcribe(ctx context.Context, audio []byte, mediaType string, options *ai.TranscriptionOptions) (*ai.Transcription, error) {
	if m.provider.apiKey == "" {
		return nil, &aierr.ConfigError{
			Provider: ProviderID,
			Model:    m.modelID,
			Message:  "missing API key: set FAL_KEY or use WithAPIKey",
		}
	}
	if len(audio) == 0 {
		return nil, &aierr.ConfigError{Provider: ProviderID, Model: m.modelID, Message: "audio payload is empty"}
	}

	interval, timeout, err := m.pollSettings(options)
	if err != nil {
		return nil, err
	}

	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	body := submitRequest{
		AudioURL: "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(audio),
	}
	if options != nil && options.Language != "" {
		body.Language = options.Language
	}

	submitted, err := httpx.PostJSON[submitResponse](ctx, m.provider.client, ProviderID,
		m.provider.baseURL+"/"+m.modelID, m.provider.headers(), body, 0)
	if err != nil {
		return nil, err
	}
	if submitted.StatusURL == "" || submitted.ResponseURL == "" {
		return nil, &aierr.DecodeError{Provider: ProviderID, Message: "queue submission missing status_url or response_url"}
	}

	if err := m.waitForCompletion(ctx, submitted.StatusURL, interval, timeout); err != nil {
		return nil, err
	}

	result, err := httpx.GetJSON[resultResponse](ctx, m.provider.client, ProviderID,
		submitted.ResponseURL, m.provider.headers(), 0)
	if err != nil {
		return nil, err
	}
	return convertResult(result), nil
}

// waitForCompletion polls the status URL every interval until the queue
// reports COMPLETED or the overall deadline passes. Failed jobs surface as
// an HTTP error from the status or response fetch.
func (m *transcriptionModel) waitForCompletion(ctx context.Context, statusURL string, interval, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		status, err := httpx.GetJSON[statusResponse](ctx, m.provider.client, ProviderID,
			statusURL, m.provider.headers(), 0)
		if err != nil {
			return err
		}
		if status.Status == "COMPLETED" {
			return nil
		}

		if time.Now().Add(interval).After(deadline) {
			return &aierr.TransportError{
				Provider: ProviderID,
				Method:   "GET",
				URL:      statusURL,
				Err:      fmt.Errorf("transcription did not complete within %s", timeout),
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
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
	transcription := &ai.Transcription{Text: result.Text}
	if len(result.InferredLanguages) > 0 {
		transcription.Language = result.InferredLanguages[0]
	}
	for _, chunk := range result.Chunks {
		transcription.Segments = append(transcription.Segments, ai.TranscriptionSegment{
			Text:  chunk.Text,
			Start: chunk.Timestamp[0],
			End:   chunk.Timestamp[1],
		})
	}
	if n := len(transcription.Segments); n > 0 {
		transcription.Duration = transcription.Segments[n-1].End
	}
	return transcription
}
