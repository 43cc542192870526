// Package gladia is the Gladia provider: asynchronous audio transcription
// through the v2 upload + pre-recorded endpoints. Only transcription is
// offered.
package gladia

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

// ProviderID is the canonical provider id.
const ProviderID = "gladia"

const defaultBaseURL = "https://api.gladia.io/v2"

const (
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 5 * time.Minute
)

// Provider serves Gladia's transcription service. Jobs are asynchronous:
// the audio is uploaded, a transcription job is created, and the result URL
// is polled until the job reports done or error.
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

// WithAPIKey overrides the GLADIA_API_KEY environment variable.
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

// WithPollInterval overrides the 2 s delay between result polls.
func WithPollInterval(interval time.Duration) Option {
	return func(p *Provider) { p.pollInterval = interval }
}

// WithPollTimeout overrides the 5 min overall polling deadline.
func WithPollTimeout(timeout time.Duration) Option {
	return func(p *Provider) { p.pollTimeout = timeout }
}

// New creates a Gladia provider. Credentials default to GLADIA_API_KEY.
func New(opts ...Option) *Provider {
	provider := &Provider{
		UnsupportedModels: openaicompat.UnsupportedModels{Provider: ProviderID},
		apiKey:            os.Getenv("GLADIA_API_KEY"),
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

// TranscriptionModel returns a transcription model. Gladia has a single
// transcription pipeline; modelID is recorded for identification only.
func (p *Provider) TranscriptionModel(modelID string) (ai.TranscriptionModel, error) {
	return &transcriptionModel{provider: p, modelID: modelID}, nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"x-gladia-key": p.apiKey}
}
