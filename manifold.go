// Package manifold is a multi-provider client for AI inference services. It
// exposes one request/response model and one streaming event grammar across
// OpenAI-compatible services, Anthropic, Google, Vertex, Bedrock and audio
// specialists, with middleware, a provider registry, schema validation and
// an MCP client layered on top.
//
// The facade functions here cover the common calls; the typed model
// interfaces in core/ai remain the full surface.
package manifold

import (
	"context"
	"fmt"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/schema"
)

// GenerateText runs a non-streaming text generation. A nil options pointer
// means provider defaults.
func GenerateText(ctx context.Context, model ai.LanguageModel, messages []ai.Message, options *ai.CallOptions) (*ai.Response, error) {
	request := &ai.Request{Messages: messages}
	if options != nil {
		request.Options = *options
	}
	return model.Generate(ctx, request)
}

// StreamText runs a streaming text generation. Pre-stream failures return an
// error; mid-stream failures surface through the stream's iterator.
func StreamText(ctx context.Context, model ai.LanguageModel, messages []ai.Message, options *ai.CallOptions) (*ai.Stream, error) {
	request := &ai.Request{Messages: messages}
	if options != nil {
		request.Options = *options
	}
	return model.Stream(ctx, request)
}

// GenerateObject generates a value of type T: it derives a JSON schema from
// T, requests JSON output constrained by it, and validates the response text
// before decoding. The raw response is returned alongside the value so
// callers keep usage and metadata.
func GenerateObject[T any](ctx context.Context, model ai.LanguageModel, messages []ai.Message, options *ai.CallOptions) (T, *ai.Response, error) {
	var zero T

	validator, err := schema.ForStruct[T]()
	if err != nil {
		return zero, nil, err
	}

	request := &ai.Request{Messages: messages}
	if options != nil {
		request.Options = *options
	}
	request.Options.ResponseFormat = &ai.ResponseFormat{
		Type:   ai.ResponseFormatJSON,
		Schema: validator.JSONSchema(),
	}

	response, err := model.Generate(ctx, request)
	if err != nil {
		return zero, nil, err
	}

	result := schema.ValidateText(validator, response.Text())
	if !result.OK {
		return zero, response, result.Err
	}
	value, ok := result.Value.(T)
	if !ok {
		return zero, response, fmt.Errorf("manifold: validated value has type %T, want %T", result.Value, zero)
	}
	return value, response, nil
}

// GenerateEmbeddings embeds the values, batching by the model's limit and
// dispatching batches in parallel when the model allows it.
func GenerateEmbeddings(ctx context.Context, model ai.EmbeddingModel, values []string) (*ai.Embeddings, error) {
	return ai.EmbedMany(ctx, model, values)
}

// GenerateImage renders images for a prompt.
func GenerateImage(ctx context.Context, model ai.ImageModel, prompt string, options *ai.ImageOptions) (*ai.GeneratedImages, error) {
	return model.GenerateImage(ctx, prompt, options)
}

// GenerateSpeech synthesises audio for a text.
func GenerateSpeech(ctx context.Context, model ai.SpeechModel, text string, options *ai.SpeechOptions) (*ai.GeneratedSpeech, error) {
	return model.GenerateSpeech(ctx, text, options)
}

// Transcribe converts audio bytes into a transcript. mediaType tells the
// service what the bytes are, e.g. "audio/mpeg".
func Transcribe(ctx context.Context, model ai.TranscriptionModel, audio []byte, mediaType string, options *ai.TranscriptionOptions) (*ai.Transcription, error) {
	return model.Transcribe(ctx, audio, mediaType, options)
}
