package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/providers/ai/openaicompat"
)

type manifestProvider struct {
	openaicompat.UnsupportedModels
	id      string
	apiKey  string
	baseURL string
}

func (p *manifestProvider) ID() string { return p.id }

func stubBuilder(id string) Builder {
	return func(cfg *ProviderConfig) (ai.Provider, error) {
		return &manifestProvider{id: id, apiKey: cfg.ResolveAPIKey(), baseURL: cfg.BaseURL}, nil
	}
}

func TestParseManifest(t *testing.T) {
	manifest, err := ParseManifest([]byte(`
separator: "/"
providers:
  openai:
    api_key_env: OPENAI_API_KEY
  corp-gateway:
    type: openai
    base_url: https://llm.corp.example/v1
    api_key: literal-key
`))
	require.NoError(t, err)

	assert.Equal(t, "/", manifest.Separator)
	require.Len(t, manifest.Providers, 2)
	assert.Equal(t, "OPENAI_API_KEY", manifest.Providers["openai"].APIKeyEnv)
	assert.Equal(t, "openai", manifest.Providers["corp-gateway"].Type)
	assert.Equal(t, "https://llm.corp.example/v1", manifest.Providers["corp-gateway"].BaseURL)
}

func TestParseManifest_Empty(t *testing.T) {
	_, err := ParseManifest([]byte("separator: ':'\n"))
	assert.ErrorContains(t, err, "no providers")
}

func TestParseManifest_Invalid(t *testing.T) {
	_, err := ParseManifest([]byte("providers: ["))
	assert.ErrorContains(t, err, "parsing manifest")
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("CONFIG_TEST_KEY", "from-env")

	assert.Equal(t, "literal", (&ProviderConfig{APIKey: "literal", APIKeyEnv: "CONFIG_TEST_KEY"}).ResolveAPIKey())
	assert.Equal(t, "from-env", (&ProviderConfig{APIKeyEnv: "CONFIG_TEST_KEY"}).ResolveAPIKey())
	assert.Empty(t, (&ProviderConfig{}).ResolveAPIKey())
}

func TestBuildRegistry(t *testing.T) {
	t.Setenv("CONFIG_TEST_KEY", "from-env")

	manifest, err := ParseManifest([]byte(`
providers:
  alpha:
    api_key_env: CONFIG_TEST_KEY
  mirror:
    type: alpha
    base_url: https://mirror.example
`))
	require.NoError(t, err)

	reg, err := BuildRegistry(manifest, map[string]Builder{"alpha": stubBuilder("alpha")})
	require.NoError(t, err)

	provider, err := reg.Provider("alpha")
	require.NoError(t, err)
	assert.Equal(t, "from-env", provider.(*manifestProvider).apiKey)

	mirror, err := reg.Provider("mirror")
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example", mirror.(*manifestProvider).baseURL)
}

func TestBuildRegistry_CustomSeparator(t *testing.T) {
	manifest, err := ParseManifest([]byte("separator: \"/\"\nproviders:\n  alpha: {}\n"))
	require.NoError(t, err)

	reg, err := BuildRegistry(manifest, map[string]Builder{"alpha": stubBuilder("alpha")})
	require.NoError(t, err)

	_, err = reg.LanguageModel("alpha/gpt-test")
	// The stub supports no model types; reaching the provider proves the
	// separator was honored.
	assert.ErrorContains(t, err, "does not support")
}

func TestBuildRegistry_MissingBuilder(t *testing.T) {
	manifest, err := ParseManifest([]byte("providers:\n  unknown: {}\n"))
	require.NoError(t, err)

	_, err = BuildRegistry(manifest, map[string]Builder{})
	assert.ErrorContains(t, err, `no builder for provider type "unknown"`)
}

func TestLoadManifest_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  alpha: {}\n"), 0o600))

	manifest, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Contains(t, manifest.Providers, "alpha")

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading manifest")
}

func TestParseEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GOOGLE_VERTEX_PROJECT", "proj-1")

	settings, err := ParseEnv()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", settings.OpenAIAPIKey)
	assert.Equal(t, "proj-1", settings.VertexProject)
}

func TestLoadEnv_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("GROQ_API_KEY=gsk-test\n"), 0o600))
	t.Setenv("GROQ_API_KEY", "")
	require.NoError(t, os.Unsetenv("GROQ_API_KEY"))

	settings, err := LoadEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "gsk-test", settings.GroqAPIKey)
}

func TestLoadEnv_MissingFileIgnored(t *testing.T) {
	_, err := LoadEnv(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
