// Package vertex is the Google Vertex AI provider. It reuses the
// GenerateContent codec from the google package but hosts it under Vertex
// endpoints, authenticating with OAuth2 bearer tokens minted from
// application-default or service-account credentials.
package vertex

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	oauth2google "golang.org/x/oauth2/google"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	googleai "github.com/manifold-ai/manifold/providers/ai/google"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

// ProviderID is the canonical provider id.
const ProviderID = "vertex"

// tokenScope is the OAuth2 scope Vertex endpoints require.
const tokenScope = "https://www.googleapis.com/auth/cloud-platform"

// Provider serves Gemini models hosted on Vertex AI.
type Provider struct {
	openaicompat.UnsupportedModels

	project  string
	location string
	endpoint string
	client   *http.Client

	tokenSource oauth2.TokenSource
	tokenOnce   sync.Once
	tokenErr    error
}

// Option configures a [Provider].
type Option func(*Provider)

// WithProject overrides the GOOGLE_VERTEX_PROJECT environment variable.
func WithProject(project string) Option {
	return func(p *Provider) { p.project = project }
}

// WithLocation overrides the GOOGLE_VERTEX_LOCATION environment variable.
func WithLocation(location string) Option {
	return func(p *Provider) { p.location = location }
}

// WithHTTPClient sets the HTTP client shared by this provider's models.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// WithEndpoint overrides the computed https://{host} endpoint root, keeping
// the project/location path scheme. Intended for private service connect
// deployments and tests.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) { p.endpoint = endpoint }
}

// WithTokenSource overrides credential discovery with an explicit token
// source. Tokens are reused until they expire.
func WithTokenSource(source oauth2.TokenSource) Option {
	return func(p *Provider) { p.tokenSource = source }
}

// New creates a Vertex AI provider. Project and location default to the
// GOOGLE_VERTEX_PROJECT and GOOGLE_VERTEX_LOCATION environment variables;
// location falls back to "global". Credentials come from the
// application-default chain (GOOGLE_APPLICATION_CREDENTIALS, gcloud, or
// the metadata server).
func New(opts ...Option) *Provider {
	provider := &Provider{
		UnsupportedModels: openaicompat.UnsupportedModels{Provider: ProviderID},
		project:           os.Getenv("GOOGLE_VERTEX_PROJECT"),
		location:          os.Getenv("GOOGLE_VERTEX_LOCATION"),
		client:            &http.Client{},
	}
	if provider.location == "" {
		provider.location = "global"
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// ID returns the canonical provider id.
func (p *Provider) ID() string { return ProviderID }

// host returns the regional API host. The pseudo-region "global" uses the
// global endpoint; every other location gets a regional prefix.
func (p *Provider) host() string {
	if p.location == "global" {
		return "aiplatform.googleapis.com"
	}
	return fmt.Sprintf("%s-aiplatform.googleapis.com", p.location)
}

// modelURL builds the publisher model endpoint for a model and method.
func (p *Provider) modelURL(modelID, method string) string {
	root := p.endpoint
	if root == "" {
		root = "https://" + p.host()
	}
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		root, p.project, p.location, modelID, method)
}

// headers mints (or reuses) an OAuth2 access token and returns the bearer
// header. Credential discovery runs once; token refresh is handled by the
// token source.
func (p *Provider) headers(ctx context.Context) (map[string]string, error) {
	if p.project == "" {
		return nil, &aierr.ConfigError{Provider: ProviderID, Message: "GOOGLE_VERTEX_PROJECT is not set"}
	}

	p.tokenOnce.Do(func() {
		if p.tokenSource != nil {
			return
		}
		credentials, err := oauth2google.FindDefaultCredentials(ctx, tokenScope)
		if err != nil {
			p.tokenErr = &aierr.ConfigError{
				Provider: ProviderID,
				Message:  fmt.Sprintf("resolving Google credentials: %v", err),
			}
			return
		}
		p.tokenSource = oauth2.ReuseTokenSource(nil, credentials.TokenSource)
	})
	if p.tokenErr != nil {
		return nil, p.tokenErr
	}

	token, err := p.tokenSource.Token()
	if err != nil {
		return nil, &aierr.ConfigError{
			Provider: ProviderID,
			Message:  fmt.Sprintf("minting access token: %v", err),
		}
	}
	return map[string]string{"Authorization": "Bearer " + token.AccessToken}, nil
}

func (p *Provider) config() googleai.Config {
	return googleai.Config{
		ProviderID:          ProviderID,
		HTTPClient:          p.client,
		ModelURL:            p.modelURL,
		Headers:             p.headers,
		EmbeddingBatchLimit: 250,
	}
}

// LanguageModel returns a Vertex-hosted GenerateContent model.
func (p *Provider) LanguageModel(modelID string) (ai.LanguageModel, error) {
	return googleai.NewLanguageModel(p.config(), modelID), nil
}

// EmbeddingModel returns a Vertex-hosted embeddings model. Batches are
// capped at 250 inputs per request.
func (p *Provider) EmbeddingModel(modelID string) (ai.EmbeddingModel, error) {
	return googleai.NewEmbeddingModel(p.config(), modelID), nil
}
