package manifold

import (
	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/config"
	"github.com/manifold-ai/manifold/core/registry"
	"github.com/manifold-ai/manifold/providers/ai/anthropic"
	"github.com/manifold-ai/manifold/providers/ai/bedrock"
	"github.com/manifold-ai/manifold/providers/ai/cerebras"
	"github.com/manifold-ai/manifold/providers/ai/cohere"
	"github.com/manifold-ai/manifold/providers/ai/deepinfra"
	"github.com/manifold-ai/manifold/providers/ai/deepseek"
	"github.com/manifold-ai/manifold/providers/ai/fal"
	"github.com/manifold-ai/manifold/providers/ai/gladia"
	"github.com/manifold-ai/manifold/providers/ai/google"
	"github.com/manifold-ai/manifold/providers/ai/groq"
	"github.com/manifold-ai/manifold/providers/ai/mistral"
	"github.com/manifold-ai/manifold/providers/ai/openai"
	"github.com/manifold-ai/manifold/providers/ai/perplexity"
	"github.com/manifold-ai/manifold/providers/ai/together"
	"github.com/manifold-ai/manifold/providers/ai/vertex"
	"github.com/manifold-ai/manifold/providers/ai/xai"
)

// DefaultProviders returns every bundled provider, each configured from its
// own environment variables.
func DefaultProviders() map[string]ai.Provider {
	return map[string]ai.Provider{
		"openai":     openai.New(),
		"anthropic":  anthropic.New(),
		"google":     google.New(),
		"vertex":     vertex.New(),
		"bedrock":    bedrock.New(),
		"groq":       groq.New(),
		"deepseek":   deepseek.New(),
		"xai":        xai.New(),
		"mistral":    mistral.New(),
		"together":   together.New(),
		"deepinfra":  deepinfra.New(),
		"cerebras":   cerebras.New(),
		"perplexity": perplexity.New(),
		"cohere":     cohere.New(),
		"gladia":     gladia.New(),
		"fal":        fal.New(),
	}
}

// DefaultRegistry returns a registry over [DefaultProviders].
func DefaultRegistry(opts ...registry.Option) *registry.Registry {
	return registry.New(DefaultProviders(), opts...)
}

// DefaultBuilders returns a config.Builder for every bundled provider, for
// materialising a YAML manifest via config.BuildRegistry. Builders honor the
// manifest's api_key/api_key_env and base_url fields; Bedrock and Vertex
// read their cloud credentials from the environment, with base_url mapping
// to the endpoint override and the manifest options carrying "project" and
// "location" for Vertex.
func DefaultBuilders() map[string]config.Builder {
	builders := map[string]config.Builder{
		"bedrock": func(cfg *config.ProviderConfig) (ai.Provider, error) {
			var opts []bedrock.Option
			if cfg.BaseURL != "" {
				opts = append(opts, bedrock.WithEndpoint(cfg.BaseURL))
			}
			if region, ok := cfg.Options["region"].(string); ok && region != "" {
				opts = append(opts, bedrock.WithRegion(region))
			}
			return bedrock.New(opts...), nil
		},
		"vertex": func(cfg *config.ProviderConfig) (ai.Provider, error) {
			var opts []vertex.Option
			if cfg.BaseURL != "" {
				opts = append(opts, vertex.WithEndpoint(cfg.BaseURL))
			}
			if project, ok := cfg.Options["project"].(string); ok && project != "" {
				opts = append(opts, vertex.WithProject(project))
			}
			if location, ok := cfg.Options["location"].(string); ok && location != "" {
				opts = append(opts, vertex.WithLocation(location))
			}
			return vertex.New(opts...), nil
		},
	}

	keyed := map[string]func(apiKey, baseURL string) ai.Provider{
		"openai": func(apiKey, baseURL string) ai.Provider {
			return openai.New(optsFor(apiKey, baseURL, openai.WithAPIKey, openai.WithBaseURL)...)
		},
		"anthropic": func(apiKey, baseURL string) ai.Provider {
			return anthropic.New(optsFor(apiKey, baseURL, anthropic.WithAPIKey, anthropic.WithBaseURL)...)
		},
		"google": func(apiKey, baseURL string) ai.Provider {
			return google.New(optsFor(apiKey, baseURL, google.WithAPIKey, google.WithBaseURL)...)
		},
		"groq": func(apiKey, baseURL string) ai.Provider {
			return groq.New(optsFor(apiKey, baseURL, groq.WithAPIKey, groq.WithBaseURL)...)
		},
		"deepseek": func(apiKey, baseURL string) ai.Provider {
			return deepseek.New(optsFor(apiKey, baseURL, deepseek.WithAPIKey, deepseek.WithBaseURL)...)
		},
		"xai": func(apiKey, baseURL string) ai.Provider {
			return xai.New(optsFor(apiKey, baseURL, xai.WithAPIKey, xai.WithBaseURL)...)
		},
		"mistral": func(apiKey, baseURL string) ai.Provider {
			return mistral.New(optsFor(apiKey, baseURL, mistral.WithAPIKey, mistral.WithBaseURL)...)
		},
		"together": func(apiKey, baseURL string) ai.Provider {
			return together.New(optsFor(apiKey, baseURL, together.WithAPIKey, together.WithBaseURL)...)
		},
		"deepinfra": func(apiKey, baseURL string) ai.Provider {
			return deepinfra.New(optsFor(apiKey, baseURL, deepinfra.WithAPIKey, deepinfra.WithBaseURL)...)
		},
		"cerebras": func(apiKey, baseURL string) ai.Provider {
			return cerebras.New(optsFor(apiKey, baseURL, cerebras.WithAPIKey, cerebras.WithBaseURL)...)
		},
		"perplexity": func(apiKey, baseURL string) ai.Provider {
			return perplexity.New(optsFor(apiKey, baseURL, perplexity.WithAPIKey, perplexity.WithBaseURL)...)
		},
		"cohere": func(apiKey, baseURL string) ai.Provider {
			return cohere.New(optsFor(apiKey, baseURL, cohere.WithAPIKey, cohere.WithBaseURL)...)
		},
		"gladia": func(apiKey, baseURL string) ai.Provider {
			return gladia.New(optsFor(apiKey, baseURL, gladia.WithAPIKey, gladia.WithBaseURL)...)
		},
		"fal": func(apiKey, baseURL string) ai.Provider {
			return fal.New(optsFor(apiKey, baseURL, fal.WithAPIKey, fal.WithBaseURL)...)
		},
	}
	for kind, build := range keyed {
		build := build
		builders[kind] = func(cfg *config.ProviderConfig) (ai.Provider, error) {
			return build(cfg.ResolveAPIKey(), cfg.BaseURL), nil
		}
	}
	return builders
}

// optsFor assembles the key and base-URL options shared by the API-key
// providers. O is each package's functional option type.
func optsFor[O any](apiKey, baseURL string, withKey func(string) O, withBaseURL func(string) O) []O {
	var opts []O
	if apiKey != "" {
		opts = append(opts, withKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, withBaseURL(baseURL))
	}
	return opts
}
