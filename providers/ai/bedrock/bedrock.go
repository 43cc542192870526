// Package bedrock is the AWS Bedrock provider, speaking the Converse API.
// Requests are signed with SigV4 from the standard AWS credential chain,
// or authenticated with the AWS_BEARER_TOKEN_BEDROCK bearer token when one
// is set. Streaming decodes the binary event-stream framing into the
// canonical event sequence.
package bedrock

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

// ProviderID is the canonical provider id.
const ProviderID = "bedrock"

const signingService = "bedrock"

// Provider serves Bedrock-hosted models through the Converse envelope.
type Provider struct {
	openaicompat.UnsupportedModels

	region      string
	bearerToken string
	endpoint    string
	client      *http.Client

	credentials aws.CredentialsProvider
	signer      *v4.Signer
}

// Option configures a [Provider].
type Option func(*Provider)

// WithRegion overrides the AWS_REGION environment variable.
func WithRegion(region string) Option {
	return func(p *Provider) { p.region = region }
}

// WithCredentials overrides the credential chain with explicit static keys.
func WithCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(p *Provider) {
		p.credentials = credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken)
	}
}

// WithBearerToken authenticates with a bearer token instead of SigV4.
func WithBearerToken(token string) Option {
	return func(p *Provider) { p.bearerToken = token }
}

// WithEndpoint overrides the computed regional endpoint. Intended for VPC
// endpoints and tests.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) { p.endpoint = strings.TrimSuffix(endpoint, "/") }
}

// WithHTTPClient sets the HTTP client shared by this provider's models.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// New creates a Bedrock provider. The region defaults to AWS_REGION;
// credentials to the AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY /
// AWS_SESSION_TOKEN environment variables, unless AWS_BEARER_TOKEN_BEDROCK
// provides a bearer token.
func New(opts ...Option) *Provider {
	provider := &Provider{
		UnsupportedModels: openaicompat.UnsupportedModels{Provider: ProviderID},
		region:            os.Getenv("AWS_REGION"),
		bearerToken:       os.Getenv("AWS_BEARER_TOKEN_BEDROCK"),
		client:            &http.Client{},
		signer:            v4.NewSigner(),
	}
	if accessKey := os.Getenv("AWS_ACCESS_KEY_ID"); accessKey != "" {
		provider.credentials = credentials.NewStaticCredentialsProvider(
			accessKey,
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			os.Getenv("AWS_SESSION_TOKEN"),
		)
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// ID returns the canonical provider id.
func (p *Provider) ID() string { return ProviderID }

// LanguageModel returns a Converse model.
func (p *Provider) LanguageModel(modelID string) (ai.LanguageModel, error) {
	return &LanguageModel{provider: p, modelID: modelID}, nil
}

// EmbeddingModel returns a Titan embeddings model. Titan accepts a single
// input per request; [ai.EmbedMany] handles larger inputs.
func (p *Provider) EmbeddingModel(modelID string) (ai.EmbeddingModel, error) {
	return &embeddingModel{provider: p, modelID: modelID}, nil
}

func (p *Provider) baseURL() string {
	if p.endpoint != "" {
		return p.endpoint
	}
	return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", p.region)
}

// modelURL builds the model action endpoint. Model ids may contain
// characters that need escaping (inference profile ARNs).
func (p *Provider) modelURL(modelID, action string) string {
	return fmt.Sprintf("%s/model/%s/%s", p.baseURL(), url.PathEscape(modelID), action)
}

func (p *Provider) checkAuth(modelID string) error {
	if p.bearerToken == "" && p.credentials == nil {
		return &aierr.ConfigError{
			Provider: ProviderID,
			Model:    modelID,
			Message:  "no AWS credentials: set AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY or AWS_BEARER_TOKEN_BEDROCK",
		}
	}
	if p.region == "" && p.endpoint == "" {
		return &aierr.ConfigError{Provider: ProviderID, Model: modelID, Message: "AWS_REGION is not set"}
	}
	return nil
}

// send builds, authenticates, and dispatches one request, classifying
// failures into the shared error taxonomy. The response is returned with
// its body open; the caller closes it.
func (p *Provider) send(ctx context.Context, requestURL string, payload []byte, accept string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, "POST", requestURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if accept != "" {
		request.Header.Set("Accept", accept)
	}

	if err := p.authenticate(ctx, request, payload); err != nil {
		return nil, err
	}

	response, err := p.client.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &aierr.TransportError{Provider: ProviderID, Method: "POST", URL: requestURL, Err: err}
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer response.Body.Close()
		errorBody, _ := io.ReadAll(io.LimitReader(response.Body, 1<<20))
		httpErr := &aierr.HTTPError{Provider: ProviderID, Method: "POST", URL: requestURL, Status: response.StatusCode}
		if json.Valid(errorBody) {
			httpErr.Body = json.RawMessage(errorBody)
		} else {
			httpErr.BodyText = string(errorBody)
		}
		return nil, httpErr
	}

	return response, nil
}

// authenticate attaches the bearer token, or SigV4-signs the request over
// the payload hash.
func (p *Provider) authenticate(ctx context.Context, request *http.Request, payload []byte) error {
	if p.bearerToken != "" {
		request.Header.Set("Authorization", "Bearer "+p.bearerToken)
		return nil
	}

	creds, err := p.credentials.Retrieve(ctx)
	if err != nil {
		return &aierr.ConfigError{
			Provider: ProviderID,
			Message:  fmt.Sprintf("resolving AWS credentials: %v", err),
		}
	}

	hash := sha256.Sum256(payload)
	region := p.region
	if region == "" {
		region = "us-east-1"
	}
	if err := p.signer.SignHTTP(ctx, creds, request, hex.EncodeToString(hash[:]), signingService, region, time.Now()); err != nil {
		return &aierr.ConfigError{Provider: ProviderID, Message: fmt.Sprintf("signing request: %v", err)}
	}
	return nil
}

// postJSON sends a JSON payload and decodes a JSON response.
func postJSON[T any](ctx context.Context, p *Provider, requestURL string, body any, timeout time.Duration) (*T, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	response, err := p.send(ctx, requestURL, payload, "application/json")
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &aierr.TransportError{Provider: ProviderID, Method: "POST", URL: requestURL, Err: err}
	}

	var parsed T
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &aierr.DecodeError{Provider: ProviderID, Message: "unmarshaling response", Err: err}
	}
	return &parsed, nil
}
