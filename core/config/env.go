// Package config loads credentials from the environment and materialises a
// provider registry from a YAML manifest. Providers keep working without it,
// each reads its own environment variable, but the typed [Settings] block and
// the manifest give applications one place to wire everything.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Settings is the environment surface the providers read, gathered into one
// struct. Zero fields mean the variable is unset.
type Settings struct {
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	GroqAPIKey       string `env:"GROQ_API_KEY"`
	DeepSeekAPIKey   string `env:"DEEPSEEK_API_KEY"`
	XAIAPIKey        string `env:"XAI_API_KEY"`
	MistralAPIKey    string `env:"MISTRAL_API_KEY"`
	TogetherAPIKey   string `env:"TOGETHER_API_KEY"`
	DeepInfraAPIKey  string `env:"DEEPINFRA_API_KEY"`
	CerebrasAPIKey   string `env:"CEREBRAS_API_KEY"`
	PerplexityAPIKey string `env:"PERPLEXITY_API_KEY"`
	CohereAPIKey     string `env:"COHERE_API_KEY"`
	GoogleAPIKey     string `env:"GOOGLE_API_KEY"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GladiaAPIKey     string `env:"GLADIA_API_KEY"`
	FalAPIKey        string `env:"FAL_KEY"`

	AWSRegion          string `env:"AWS_REGION"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSSessionToken    string `env:"AWS_SESSION_TOKEN"`
	BedrockBearerToken string `env:"AWS_BEARER_TOKEN_BEDROCK"`

	VertexProject     string `env:"GOOGLE_VERTEX_PROJECT"`
	VertexLocation    string `env:"GOOGLE_VERTEX_LOCATION"`
	GoogleCredentials string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

// LoadEnv reads .env files into the process environment, then parses the
// settings block. Missing files are skipped; a file that exists but cannot
// be parsed is an error.
func LoadEnv(files ...string) (Settings, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Settings{}, fmt.Errorf("config: loading %s: %w", file, err)
		}
	}
	return ParseEnv()
}

// ParseEnv parses the settings block from the current process environment
// without touching any .env file.
func ParseEnv() (Settings, error) {
	var settings Settings
	if err := env.Parse(&settings); err != nil {
		return Settings{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return settings, nil
}
