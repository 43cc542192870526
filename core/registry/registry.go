// Package registry resolves "provider:model" identifiers to typed model
// instances across a named collection of providers, optionally applying
// middleware to every language model it hands out.
package registry

import (
	"sort"
	"strings"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/core/middleware"
)

// Registry is an immutable mapping from provider id to provider. Lookups
// split the model identifier on the configured separator (default ":") and
// dispatch to the matching provider's factory.
type Registry struct {
	providers  map[string]ai.Provider
	separator  string
	middleware []middleware.Middleware
}

// Option configures a [Registry].
type Option func(*Registry)

// WithSeparator overrides the ":" separator between provider and model ids.
func WithSeparator(separator string) Option {
	return func(r *Registry) { r.separator = separator }
}

// WithMiddleware applies the given middleware to every language model the
// registry returns. Other model types are unaffected.
func WithMiddleware(middlewares ...middleware.Middleware) Option {
	return func(r *Registry) { r.middleware = middlewares }
}

// New creates a registry over the given providers. The map is copied;
// mutating the argument afterwards does not affect the registry.
func New(providers map[string]ai.Provider, opts ...Option) *Registry {
	registry := &Registry{
		providers: make(map[string]ai.Provider, len(providers)),
		separator: ":",
	}
	for id, provider := range providers {
		registry.providers[id] = provider
	}
	for _, opt := range opts {
		opt(registry)
	}
	return registry
}

// Provider returns the registered provider for id.
func (r *Registry) Provider(id string) (ai.Provider, error) {
	provider, ok := r.providers[id]
	if !ok {
		return nil, &aierr.NoSuchProviderError{ProviderID: id, Available: r.providerIDs()}
	}
	return provider, nil
}

// LanguageModel resolves "provider<sep>model" to a language model with the
// registry's middleware applied.
func (r *Registry) LanguageModel(id string) (ai.LanguageModel, error) {
	provider, modelID, err := r.split(id)
	if err != nil {
		return nil, err
	}
	model, err := provider.LanguageModel(modelID)
	if err != nil {
		return nil, err
	}
	return middleware.WrapLanguageModel(model, r.middleware...), nil
}

// EmbeddingModel resolves "provider<sep>model" to an embedding model.
func (r *Registry) EmbeddingModel(id string) (ai.EmbeddingModel, error) {
	provider, modelID, err := r.split(id)
	if err != nil {
		return nil, err
	}
	return provider.EmbeddingModel(modelID)
}

// ImageModel resolves "provider<sep>model" to an image model.
func (r *Registry) ImageModel(id string) (ai.ImageModel, error) {
	provider, modelID, err := r.split(id)
	if err != nil {
		return nil, err
	}
	return provider.ImageModel(modelID)
}

// SpeechModel resolves "provider<sep>model" to a speech model.
func (r *Registry) SpeechModel(id string) (ai.SpeechModel, error) {
	provider, modelID, err := r.split(id)
	if err != nil {
		return nil, err
	}
	return provider.SpeechModel(modelID)
}

// TranscriptionModel resolves "provider<sep>model" to a transcription model.
func (r *Registry) TranscriptionModel(id string) (ai.TranscriptionModel, error) {
	provider, modelID, err := r.split(id)
	if err != nil {
		return nil, err
	}
	return provider.TranscriptionModel(modelID)
}

func (r *Registry) split(id string) (ai.Provider, string, error) {
	providerID, modelID, found := strings.Cut(id, r.separator)
	if !found || providerID == "" || modelID == "" {
		return nil, "", &aierr.NoSuchModelError{
			ModelID: id,
			Reason:  "identifier must be of the form provider" + r.separator + "model",
		}
	}

	provider, ok := r.providers[providerID]
	if !ok {
		return nil, "", &aierr.NoSuchProviderError{ProviderID: providerID, Available: r.providerIDs()}
	}
	return provider, modelID, nil
}

func (r *Registry) providerIDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
