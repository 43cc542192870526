package openaicompat

import (
	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
)

// UnsupportedModels is an embeddable default implementation of the
// [ai.Provider] factory methods. Provider packages embed it and override
// only the model types their service actually offers; the rest return an
// unsupported-operation error carrying the provider id.
type UnsupportedModels struct {
	// Provider is the id reported in the error.
	Provider string
}

func (u UnsupportedModels) unsupported(operation string) error {
	return &aierr.UnsupportedOperationError{Provider: u.Provider, Operation: operation}
}

func (u UnsupportedModels) LanguageModel(string) (ai.LanguageModel, error) {
	return nil, u.unsupported("text generation")
}

func (u UnsupportedModels) EmbeddingModel(string) (ai.EmbeddingModel, error) {
	return nil, u.unsupported("embeddings")
}

func (u UnsupportedModels) ImageModel(string) (ai.ImageModel, error) {
	return nil, u.unsupported("image generation")
}

func (u UnsupportedModels) SpeechModel(string) (ai.SpeechModel, error) {
	return nil, u.unsupported("speech synthesis")
}

func (u UnsupportedModels) TranscriptionModel(string) (ai.TranscriptionModel, error) {
	return nil, u.unsupported("transcription")
}
