// Package embed provides text embedding providers behind a single Provider
// interface. Providers are selected by configuration; construction fails
// fast with actionable errors when credentials are missing so callers can
// surface setup problems before any document is processed.
package embed

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Provider turns text into dense vectors. Implementations are safe for
// concurrent use.
type Provider interface {
	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments embeds a batch of document chunks. The result has one
	// vector per input, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// Model reports the model identifier in use.
	Model() string
}

// Provider type identifiers accepted by New.
const (
	TypeOpenAI = "openai"
	TypeCohere = "cohere"
	TypeGoogle = "google"
	TypeOllama = "ollama"
)

// Default models per provider.
const (
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultCohereModel = "embed-english-v3.0"
	DefaultGoogleModel = "text-embedding-004"
	DefaultOllamaModel = "nomic-embed-text"
)

const defaultHTTPTimeout = 60 * time.Second

// Config selects an embedding provider and its parameters.
type Config struct {
	Type       string            `yaml:"type" json:"type"`
	Model      string            `yaml:"model" json:"model"`
	APIKey     string            `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL    string            `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Dimensions int               `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
	Params     map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
}

// New creates the embedding provider selected by cfg.Type. API keys fall
// back to the provider's conventional environment variable when the config
// leaves them empty.
func New(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Type {
	case TypeOpenAI, "":
		key := keyOrEnv(cfg.APIKey, "OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("embeddings: OPENAI_API_KEY is not set and no api_key configured")
		}
		return newOpenAI(cfg, key), nil
	case TypeCohere:
		key := keyOrEnv(cfg.APIKey, "COHERE_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("embeddings: COHERE_API_KEY is not set and no api_key configured")
		}
		return newCohere(cfg, key), nil
	case TypeGoogle:
		key := keyOrEnv(cfg.APIKey, "GEMINI_API_KEY")
		if key == "" {
			key = os.Getenv("GOOGLE_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("embeddings: GEMINI_API_KEY is not set and no api_key configured")
		}
		return newGoogle(ctx, cfg, key)
	case TypeOllama:
		return newOllama(cfg), nil
	default:
		return nil, fmt.Errorf("embeddings: unsupported provider type: %q (supported: %s, %s, %s, %s)",
			cfg.Type, TypeOpenAI, TypeCohere, TypeGoogle, TypeOllama)
	}
}

func keyOrEnv(key, envVar string) string {
	if key != "" {
		return key
	}
	return os.Getenv(envVar)
}
