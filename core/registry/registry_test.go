package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/core/middleware"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

// stubModel is a minimal language model recording its identity.
type stubModel struct {
	provider string
	model    string
}

func (m *stubModel) ProviderID() string { return m.provider }
func (m *stubModel) ModelID() string    { return m.model }

func (m *stubModel) Generate(context.Context, *ai.Request) (*ai.Response, error) {
	return &ai.Response{Content: []ai.Part{ai.Text("from " + m.model)}, FinishReason: ai.FinishStop}, nil
}

func (m *stubModel) Stream(context.Context, *ai.Request) (*ai.Stream, error) {
	return ai.NewStream(func(yield func(ai.StreamEvent, error) bool) {
		yield(ai.StreamEvent{Type: ai.EventFinish, FinishReason: ai.FinishStop}, nil)
	}), nil
}

// stubProvider serves stub language models for any model id.
type stubProvider struct {
	openaicompat.UnsupportedModels
	id string
}

func (p *stubProvider) ID() string { return p.id }

func (p *stubProvider) LanguageModel(modelID string) (ai.LanguageModel, error) {
	return &stubModel{provider: p.id, model: modelID}, nil
}

func newStubProvider(id string) *stubProvider {
	return &stubProvider{UnsupportedModels: openaicompat.UnsupportedModels{Provider: id}, id: id}
}

func TestRegistry_LanguageModelLookup(t *testing.T) {
	reg := New(map[string]ai.Provider{"alpha": newStubProvider("alpha")})

	model, err := reg.LanguageModel("alpha:gpt-x")
	require.NoError(t, err)
	assert.Equal(t, "alpha", model.ProviderID())
	assert.Equal(t, "gpt-x", model.ModelID())
}

func TestRegistry_UnknownProvider(t *testing.T) {
	reg := New(map[string]ai.Provider{
		"alpha": newStubProvider("alpha"),
		"beta":  newStubProvider("beta"),
	})

	_, err := reg.LanguageModel("gamma:m")
	var notFound *aierr.NoSuchProviderError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "gamma", notFound.ProviderID)
	assert.Equal(t, []string{"alpha", "beta"}, notFound.Available)
}

func TestRegistry_MalformedIdentifier(t *testing.T) {
	reg := New(map[string]ai.Provider{"alpha": newStubProvider("alpha")})

	for _, id := range []string{"no-separator", "alpha:", ":model"} {
		_, err := reg.LanguageModel(id)
		var notFound *aierr.NoSuchModelError
		assert.ErrorAs(t, err, &notFound, "id %q", id)
	}
}

func TestRegistry_CustomSeparator(t *testing.T) {
	reg := New(map[string]ai.Provider{"alpha": newStubProvider("alpha")}, WithSeparator("/"))

	model, err := reg.LanguageModel("alpha/m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", model.ModelID())
}

func TestRegistry_MiddlewareApplied(t *testing.T) {
	calls := 0
	mw := middleware.Middleware{
		WrapGenerate: func(next middleware.GenerateFunc, _ ai.LanguageModel) middleware.GenerateFunc {
			return func(ctx context.Context, request *ai.Request) (*ai.Response, error) {
				calls++
				return next(ctx, request)
			}
		},
	}
	reg := New(map[string]ai.Provider{"alpha": newStubProvider("alpha")}, WithMiddleware(mw))

	model, err := reg.LanguageModel("alpha:m")
	require.NoError(t, err)

	_, err = model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("q")}})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRegistry_NoMiddlewareReturnsUnwrapped(t *testing.T) {
	reg := New(map[string]ai.Provider{"alpha": newStubProvider("alpha")})

	model, err := reg.LanguageModel("alpha:m")
	require.NoError(t, err)
	_, isStub := model.(*stubModel)
	assert.True(t, isStub)
}

func TestRegistry_UnsupportedTypePropagates(t *testing.T) {
	reg := New(map[string]ai.Provider{"alpha": newStubProvider("alpha")})

	_, err := reg.ImageModel("alpha:m")
	var unsupported *aierr.UnsupportedOperationError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "alpha", unsupported.Provider)
}

func TestCustomProvider_MapThenFallback(t *testing.T) {
	pinned := &stubModel{provider: "custom", model: "pinned"}
	custom := &CustomProvider{
		ProviderID:     "custom",
		LanguageModels: map[string]ai.LanguageModel{"pinned": pinned},
		Fallback:       newStubProvider("fallback"),
	}

	model, err := custom.LanguageModel("pinned")
	require.NoError(t, err)
	assert.Same(t, ai.LanguageModel(pinned), model)

	model, err = custom.LanguageModel("other")
	require.NoError(t, err)
	assert.Equal(t, "fallback", model.ProviderID())
}

func TestCustomProvider_NotFoundWithoutFallback(t *testing.T) {
	custom := &CustomProvider{ProviderID: "custom"}

	_, err := custom.LanguageModel("missing")
	var notFound *aierr.NoSuchModelError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.ModelID)
}

func TestCustomProvider_InRegistry(t *testing.T) {
	custom := &CustomProvider{
		ProviderID: "custom",
		LanguageModels: map[string]ai.LanguageModel{
			"m": &stubModel{provider: "custom", model: "m"},
		},
	}
	reg := New(map[string]ai.Provider{"custom": custom})

	model, err := reg.LanguageModel("custom:m")
	require.NoError(t, err)

	response, err := model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("q")}})
	require.NoError(t, err)
	assert.Equal(t, "from m", response.Text())
}
