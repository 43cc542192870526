package registry

import (
	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
)

// CustomProvider is an ai.Provider backed by explicit model maps, with an
// optional fallback provider consulted for ids the maps do not cover. Useful
// for pinning pre-configured (e.g. wrapped or mocked) model instances behind
// well-known names.
type CustomProvider struct {
	// ProviderID is the id reported by the provider and its models.
	ProviderID string

	// Fallback, when non-nil, serves lookups the maps miss.
	Fallback ai.Provider

	LanguageModels      map[string]ai.LanguageModel
	EmbeddingModels     map[string]ai.EmbeddingModel
	ImageModels         map[string]ai.ImageModel
	SpeechModels        map[string]ai.SpeechModel
	TranscriptionModels map[string]ai.TranscriptionModel
}

// ID returns the provider id.
func (p *CustomProvider) ID() string { return p.ProviderID }

// LanguageModel returns the pinned model for modelID, or delegates to the
// fallback.
func (p *CustomProvider) LanguageModel(modelID string) (ai.LanguageModel, error) {
	if model, ok := p.LanguageModels[modelID]; ok {
		return model, nil
	}
	if p.Fallback != nil {
		return p.Fallback.LanguageModel(modelID)
	}
	return nil, p.notFound(modelID)
}

// EmbeddingModel returns the pinned model for modelID, or delegates to the
// fallback.
func (p *CustomProvider) EmbeddingModel(modelID string) (ai.EmbeddingModel, error) {
	if model, ok := p.EmbeddingModels[modelID]; ok {
		return model, nil
	}
	if p.Fallback != nil {
		return p.Fallback.EmbeddingModel(modelID)
	}
	return nil, p.notFound(modelID)
}

// ImageModel returns the pinned model for modelID, or delegates to the
// fallback.
func (p *CustomProvider) ImageModel(modelID string) (ai.ImageModel, error) {
	if model, ok := p.ImageModels[modelID]; ok {
		return model, nil
	}
	if p.Fallback != nil {
		return p.Fallback.ImageModel(modelID)
	}
	return nil, p.notFound(modelID)
}

// SpeechModel returns the pinned model for modelID, or delegates to the
// fallback.
func (p *CustomProvider) SpeechModel(modelID string) (ai.SpeechModel, error) {
	if model, ok := p.SpeechModels[modelID]; ok {
		return model, nil
	}
	if p.Fallback != nil {
		return p.Fallback.SpeechModel(modelID)
	}
	return nil, p.notFound(modelID)
}

// TranscriptionModel returns the pinned model for modelID, or delegates to
// the fallback.
func (p *CustomProvider) TranscriptionModel(modelID string) (ai.TranscriptionModel, error) {
	if model, ok := p.TranscriptionModels[modelID]; ok {
		return model, nil
	}
	if p.Fallback != nil {
		return p.Fallback.TranscriptionModel(modelID)
	}
	return nil, p.notFound(modelID)
}

func (p *CustomProvider) notFound(modelID string) error {
	return &aierr.NoSuchModelError{
		ModelID: modelID,
		Reason:  "not registered with custom provider " + p.ProviderID,
	}
}
