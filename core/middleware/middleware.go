// Package middleware composes interceptors around language models. A
// middleware is a triple of optional slots: a parameter transformer and
// wrappers for the generate and stream operations. WrapLanguageModel applies
// an ordered list of middleware to a model, producing a new model with the
// same surface.
package middleware

import (
	"context"

	"github.com/manifold-ai/manifold/core/ai"
)

// OpType identifies which operation a TransformParams call is preparing.
type OpType string

const (
	OpGenerate OpType = "generate"
	OpStream   OpType = "stream"
)

// GenerateFunc is the generate operation signature middleware wraps.
type GenerateFunc func(ctx context.Context, request *ai.Request) (*ai.Response, error)

// StreamFunc is the stream operation signature middleware wraps.
type StreamFunc func(ctx context.Context, request *ai.Request) (*ai.Stream, error)

// Middleware is a set of optional interceptors. Any slot may be nil; a nil
// slot passes the operation through untouched.
type Middleware struct {
	// TransformParams rewrites the request before the wrapped operation
	// chain runs. Transformers run in forward order: the first middleware
	// sees the caller's raw request, the last produces what the adapter
	// receives.
	TransformParams func(ctx context.Context, request *ai.Request, op OpType, model ai.LanguageModel) (*ai.Request, error)

	// WrapGenerate wraps the generate operation. Wrappers compose in
	// reverse order so the first middleware in the list is outermost.
	WrapGenerate func(next GenerateFunc, model ai.LanguageModel) GenerateFunc

	// WrapStream wraps the stream operation, composing like WrapGenerate.
	WrapStream func(next StreamFunc, model ai.LanguageModel) StreamFunc
}

// WrapLanguageModel applies middlewares to model. With no middleware the
// model is returned unchanged.
func WrapLanguageModel(model ai.LanguageModel, middlewares ...Middleware) ai.LanguageModel {
	if len(middlewares) == 0 {
		return model
	}

	generate := GenerateFunc(model.Generate)
	stream := StreamFunc(model.Stream)
	for i := len(middlewares) - 1; i >= 0; i-- {
		if wrap := middlewares[i].WrapGenerate; wrap != nil {
			generate = wrap(generate, model)
		}
		if wrap := middlewares[i].WrapStream; wrap != nil {
			stream = wrap(stream, model)
		}
	}

	return &wrappedModel{
		inner:       model,
		middlewares: middlewares,
		generate:    generate,
		stream:      stream,
	}
}

type wrappedModel struct {
	inner       ai.LanguageModel
	middlewares []Middleware
	generate    GenerateFunc
	stream      StreamFunc
}

func (m *wrappedModel) ProviderID() string { return m.inner.ProviderID() }
func (m *wrappedModel) ModelID() string    { return m.inner.ModelID() }

func (m *wrappedModel) Generate(ctx context.Context, request *ai.Request) (*ai.Response, error) {
	request, err := m.transform(ctx, request, OpGenerate)
	if err != nil {
		return nil, err
	}
	return m.generate(ctx, request)
}

func (m *wrappedModel) Stream(ctx context.Context, request *ai.Request) (*ai.Stream, error) {
	request, err := m.transform(ctx, request, OpStream)
	if err != nil {
		return nil, err
	}
	return m.stream(ctx, request)
}

func (m *wrappedModel) transform(ctx context.Context, request *ai.Request, op OpType) (*ai.Request, error) {
	for _, mw := range m.middlewares {
		if mw.TransformParams == nil {
			continue
		}
		transformed, err := mw.TransformParams(ctx, request, op, m.inner)
		if err != nil {
			return nil, err
		}
		request = transformed
	}
	return request, nil
}

// cloneRequest returns a shallow copy of the request with its own Messages
// slice and CallOptions, so transformers can modify them without mutating
// the caller's request.
func cloneRequest(request *ai.Request) *ai.Request {
	clone := *request
	clone.Messages = append([]ai.Message(nil), request.Messages...)
	return &clone
}
