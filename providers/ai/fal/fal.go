// Package fal is the fal.ai provider: speech-to-text models (Whisper and
// friends) served through fal's asynchronous queue API. Only transcription
// is offered.
package fal

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

// ProviderID is the canonical provider id.
const ProviderID = "fal"

const defaultBaseURL = "https://queue.fal.run"

const (
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 5 * time.Minute
)

// Provider serves fal-hosted transcription models. A request is submitted to
// the queue, its status URL is polled until the job completes, and the
// result is fetched from the response URL.
type Provider struct {
	openaicompat.UnsupportedModels

	apiKey  string
	baseURL string
	client  *http.Client

	pollInterval time.Duration
	pollTimeout  time.Duration
}

// Option configures a [Provider].
type Option func(*Provider)

// WithAPIKey overrides the FAL_KEY environment variable.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) { p.apiKey = apiKey }
}

// WithBaseURL overrides the default queue base URL.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient sets the HTTP client shared by this provider's models.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// WithPollInterval overrides the 2 s delay between status polls.
func WithPollInterval(interval time.Duration) Option {
	return func(p *Provider) { p.pollInterval = interval }
}

// WithPollTimeout overrides the 5 min overall polling deadline.
func WithPollTimeout(timeout time.Duration) Option {
	return func(p *Provider) { p.pollTimeout = timeout }
}

// New creates a fal provider. Credentials default to FAL_KEY.
func New(opts ...Option) *Provider {
	provider := &Provider{
		UnsupportedModels: openaicompat.UnsupportedModels{Provider: ProviderID},
		apiKey:            os.Getenv("FAL_KEY"),
		baseURL:           defaultBaseURL,
		client:            &http.Client{},
		pollInterval:      defaultPollInterval,
		pollTimeout:       defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// ID returns the canonical provider id.
func (p *Provider) ID() string { return ProviderID }

// TranscriptionModel returns a transcription model for a queue application
// id such as "fal-ai/whisper".
func (p *Provider) TranscriptionModel(modelID string) (ai.TranscriptionModel, error) {
	return &transcriptionModel{provider: p, modelID: modelID}, nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"Authorization": "Key " + p.apiKey}
}
