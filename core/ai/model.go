package ai

import (
	"context"
)

// LanguageModel is a text-generation model bound to one provider and model
// id. Implementations are safe for concurrent use; every call accepts a
// context for cancellation and deadline propagation.
type LanguageModel interface {
	// ProviderID returns the id of the provider serving this model.
	ProviderID() string
	// ModelID returns the provider-side model identifier.
	ModelID() string

	// Generate performs a non-streaming generation and returns the completed
	// response. Pre-flight validation failures surface as configuration
	// errors before any network call.
	Generate(ctx context.Context, request *Request) (*Response, error)

	// Stream performs a streaming generation. Pre-stream errors (auth, bad
	// request, connection failure) are returned directly; mid-stream errors
	// are yielded through the returned stream's iterator.
	Stream(ctx context.Context, request *Request) (*Stream, error)
}

// Embeddings is the result of an embedding call: one float vector per input
// value, in input order, plus accumulated usage.
type Embeddings struct {
	Vectors [][]float64 `json:"vectors"`
	Usage   Usage       `json:"usage,omitzero"`
}

// EmbeddingModel computes vector embeddings for batches of input strings.
// Embed accepts at most MaxBatchSize values per call; use [EmbedMany] to
// embed arbitrarily large inputs with transparent batching.
type EmbeddingModel interface {
	ProviderID() string
	ModelID() string

	// MaxBatchSize returns the provider's per-request input limit.
	MaxBatchSize() int
	// SupportsParallelCalls reports whether batches may be dispatched
	// concurrently.
	SupportsParallelCalls() bool

	// Embed computes embeddings for up to MaxBatchSize values. Exceeding the
	// limit is a configuration error.
	Embed(ctx context.Context, values []string) (*Embeddings, error)
}

// ImageOptions carries optional image-generation parameters.
type ImageOptions struct {
	Count int    `json:"count,omitempty"` // Number of images; default 1
	Size  string `json:"size,omitempty"`  // Provider-specific size string, e.g. "1024x1024"

	ProviderOptions map[string]map[string]any `json:"provider_options,omitempty"`
}

// GeneratedImages is the normalised result of an image generation: raw image
// bytes regardless of whether the service returned base64 payloads or URLs.
type GeneratedImages struct {
	Images    [][]byte `json:"-"`
	MediaType string   `json:"media_type,omitempty"`
}

// ImageModel generates images from a text prompt.
type ImageModel interface {
	ProviderID() string
	ModelID() string

	GenerateImage(ctx context.Context, prompt string, options *ImageOptions) (*GeneratedImages, error)
}

// SpeechOptions carries optional speech-synthesis parameters.
type SpeechOptions struct {
	Voice  string  `json:"voice,omitempty"`
	Format string  `json:"format,omitempty"` // e.g. "mp3", "wav"
	Speed  float64 `json:"speed,omitempty"`

	ProviderOptions map[string]map[string]any `json:"provider_options,omitempty"`
}

// GeneratedSpeech is raw audio bytes plus the MIME type the service
// advertised for them.
type GeneratedSpeech struct {
	Audio     []byte `json:"-"`
	MediaType string `json:"media_type,omitempty"`
}

// SpeechModel synthesises speech audio from text.
type SpeechModel interface {
	ProviderID() string
	ModelID() string

	GenerateSpeech(ctx context.Context, text string, options *SpeechOptions) (*GeneratedSpeech, error)
}

// TranscriptionOptions carries optional transcription parameters.
type TranscriptionOptions struct {
	Language string `json:"language,omitempty"` // BCP-47 hint; empty lets the service detect

	ProviderOptions map[string]map[string]any `json:"provider_options,omitempty"`
}

// TranscriptionSegment is one time-aligned span of a transcript.
type TranscriptionSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"` // Seconds from the beginning of the audio
	End   float64 `json:"end"`
}

// Transcription is the result of transcribing an audio payload.
type Transcription struct {
	Text     string                 `json:"text"`
	Segments []TranscriptionSegment `json:"segments,omitempty"`
	Language string                 `json:"language,omitempty"`
	Duration float64                `json:"duration,omitempty"` // Seconds
}

// TranscriptionModel converts audio bytes into text. The core only moves
// opaque bytes; mediaType tells the service what it is receiving.
type TranscriptionModel interface {
	ProviderID() string
	ModelID() string

	Transcribe(ctx context.Context, audio []byte, mediaType string, options *TranscriptionOptions) (*Transcription, error)
}

// Provider is a factory producing typed model instances for a single
// backend service. Factories return an
// [github.com/manifold-ai/manifold/core/aierr.UnsupportedOperationError]
// for model types the service does not offer; the error carries the
// provider id and the requested operation so dispatch failures are
// self-describing.
type Provider interface {
	// ID returns the canonical provider id, e.g. "openai".
	ID() string

	LanguageModel(modelID string) (LanguageModel, error)
	EmbeddingModel(modelID string) (EmbeddingModel, error)
	ImageModel(modelID string) (ImageModel, error)
	SpeechModel(modelID string) (SpeechModel, error)
	TranscriptionModel(modelID string) (TranscriptionModel, error)
}
