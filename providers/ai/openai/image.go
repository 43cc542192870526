package openai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/internal/httpx"
)

// imageModel generates images through the /images/generations endpoint.
// DALL·E 2/3 return URLs by default, so b64_json is requested explicitly;
// gpt-image models always return base64 and reject the parameter.
type imageModel struct {
	provider *Provider
	modelID  string
}

func (m *imageModel) ProviderID() string { return ProviderID }
func (m *imageModel) ModelID() string    { return m.modelID }

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json,omitempty"`
		URL     string `json:"url,omitempty"`
	} `json:"data"`
}

func (m *imageModel) GenerateImage(ctx context.Context, prompt string, options *ai.ImageOptions) (*ai.GeneratedImages, error) {
	if err := m.provider.requireKey(m.modelID); err != nil {
		return nil, err
	}
	if prompt == "" {
		return nil, &aierr.ConfigError{Provider: ProviderID, Model: m.modelID, Message: "prompt is empty"}
	}

	body := imageRequest{Model: m.modelID, Prompt: prompt}
	if options != nil {
		body.N = options.Count
		body.Size = options.Size
	}
	if !isGPTImageModel(m.modelID) {
		body.ResponseFormat = "b64_json"
	}

	wireResponse, err := httpx.PostJSON[imageResponse](ctx, m.provider.client, ProviderID,
		m.provider.baseURL+"/images/generations", m.provider.headers(), body, 0)
	if err != nil {
		return nil, err
	}

	result := &ai.GeneratedImages{MediaType: "image/png"}
	for _, entry := range wireResponse.Data {
		switch {
		case entry.B64JSON != "":
			decoded, decodeErr := base64.StdEncoding.DecodeString(entry.B64JSON)
			if decodeErr != nil {
				return nil, &aierr.DecodeError{Provider: ProviderID, Message: "decoding base64 image", Err: decodeErr}
			}
			result.Images = append(result.Images, decoded)

		case entry.URL != "":
			fetched, fetchErr := fetchImage(ctx, m.provider, entry.URL)
			if fetchErr != nil {
				return nil, fetchErr
			}
			result.Images = append(result.Images, fetched)
		}
	}

	if len(result.Images) == 0 {
		return nil, &aierr.DecodeError{Provider: ProviderID, Message: "image response carried no image data"}
	}
	return result, nil
}

// fetchImage downloads one generated image from its short-lived URL so the
// result always carries bytes.
func fetchImage(ctx context.Context, provider *Provider, url string) ([]byte, error) {
	payload, _, err := httpx.GetBytes(ctx, provider.client, ProviderID, url, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("downloading generated image: %w", err)
	}
	return payload, nil
}

func isGPTImageModel(modelID string) bool {
	return len(modelID) >= 9 && modelID[:9] == "gpt-image"
}
