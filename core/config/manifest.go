package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/registry"
)

// Manifest declares the providers a registry should expose. Example:
//
//	separator: ":"
//	providers:
//	  openai:
//	    api_key_env: OPENAI_API_KEY
//	  corp-gateway:
//	    type: openai
//	    base_url: https://llm.corp.example/v1
//	    api_key_env: CORP_GATEWAY_KEY
//
// The map key is the registry id; type selects the adapter (defaulting to
// the id itself), so one adapter can back several differently configured
// entries.
type Manifest struct {
	Separator string                     `yaml:"separator,omitempty"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig configures one provider entry.
type ProviderConfig struct {
	Type      string         `yaml:"type,omitempty"`
	APIKey    string         `yaml:"api_key,omitempty"`
	APIKeyEnv string         `yaml:"api_key_env,omitempty"`
	BaseURL   string         `yaml:"base_url,omitempty"`
	Options   map[string]any `yaml:"options,omitempty"`
}

// ResolveAPIKey returns the literal api_key if set, otherwise the value of
// the api_key_env variable. Empty means the adapter falls back to its own
// environment lookup.
func (p *ProviderConfig) ResolveAPIKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.APIKeyEnv != "" {
		return os.Getenv(p.APIKeyEnv)
	}
	return ""
}

// Builder constructs one provider from its manifest entry.
type Builder func(cfg *ProviderConfig) (ai.Provider, error)

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("config: parsing manifest: %w", err)
	}
	if len(manifest.Providers) == 0 {
		return nil, fmt.Errorf("config: manifest declares no providers")
	}
	return &manifest, nil
}

// LoadManifest reads and decodes a YAML manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// BuildRegistry materialises a manifest into a registry using the given
// builders, keyed by provider type. Every declared provider must have a
// builder.
func BuildRegistry(manifest *Manifest, builders map[string]Builder, opts ...registry.Option) (*registry.Registry, error) {
	providers := make(map[string]ai.Provider, len(manifest.Providers))

	ids := make([]string, 0, len(manifest.Providers))
	for id := range manifest.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		cfg := manifest.Providers[id]
		if cfg == nil {
			cfg = &ProviderConfig{}
		}
		kind := cfg.Type
		if kind == "" {
			kind = id
		}

		builder, ok := builders[kind]
		if !ok {
			return nil, fmt.Errorf("config: no builder for provider type %q (entry %q)", kind, id)
		}
		provider, err := builder(cfg)
		if err != nil {
			return nil, fmt.Errorf("config: building provider %q: %w", id, err)
		}
		providers[id] = provider
	}

	if manifest.Separator != "" {
		opts = append(opts, registry.WithSeparator(manifest.Separator))
	}
	return registry.New(providers, opts...), nil
}
