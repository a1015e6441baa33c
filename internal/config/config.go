// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.quarry/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Embedding: provider, model, endpoint (see pipeline.go)
//   - VectorStore: backend, collection, persistence (see pipeline.go)
//   - Retriever: strategy and its parameters (see pipeline.go)
//   - Postgres: connection for the pgvector backend (see storage.go)
//   - Server: HTTP serve mode settings (see server.go)
//   - Tracing: OTLP trace export (see server.go)
//
// Security: sensitive values (API keys, passwords) are masked in MarshalJSON
// and String; the config directory is created with 0750 permissions.
// Validation: range and enum checks in validation.go returning sentinel
// errors usable with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidEmbeddingType indicates an unsupported embedding provider.
	ErrInvalidEmbeddingType = errors.New("invalid embedding type")

	// ErrInvalidVectorStoreType indicates an unsupported vector store backend.
	ErrInvalidVectorStoreType = errors.New("invalid vector store type")

	// ErrInvalidRetrieverType indicates an unsupported retrieval strategy.
	ErrInvalidRetrieverType = errors.New("invalid retriever type")

	// ErrInvalidChunking indicates an invalid chunk size/overlap combination.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidTopK indicates the retriever top-k is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidScoreThreshold indicates a threshold outside (0, 1].
	ErrInvalidScoreThreshold = errors.New("invalid score threshold")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidServerPort indicates the HTTP server port is out of range.
	ErrInvalidServerPort = errors.New("invalid server port")
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update
// the masking there.
type Config struct {
	Embedding   EmbeddingConfig   `mapstructure:"embedding" json:"embedding"`
	VectorStore VectorStoreConfig `mapstructure:"vectorstore" json:"vectorstore"`
	Retriever   RetrieverConfig   `mapstructure:"retriever" json:"retriever"`
	Splitter    SplitterConfig    `mapstructure:"splitter" json:"splitter"`

	// Ingestion policy
	ValidateURLs    bool `mapstructure:"validate_urls" json:"validate_urls"`
	SkipInvalidDocs bool `mapstructure:"skip_invalid_docs" json:"skip_invalid_docs"`
	PrefilterByType bool `mapstructure:"prefilter_by_type" json:"prefilter_by_type"`

	// BlockPrivateURLs rejects http(s) resources on loopback or private
	// networks. Recommended whenever `quarry serve` is reachable by
	// untrusted clients.
	BlockPrivateURLs bool `mapstructure:"block_private_urls" json:"block_private_urls"`

	// PostgreSQL connection, used when vectorstore.type is "pgvector"
	// (see storage.go for the DSN helpers and DATABASE_URL handling)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	Server  ServerConfig  `mapstructure:"server" json:"server"`
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" json:"level"`
	// JSON switches from text to JSON output.
	JSON bool `mapstructure:"json" json:"json"`
}

// Load loads configuration from ~/.quarry/config.yaml, ./config.yaml, the
// environment, and defaults, in ascending priority.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".quarry")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	return load(v, configDir)
}

// LoadFile loads configuration from an explicit file path, still applying
// defaults and environment overrides.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v, filepath.Dir(path))
}

func load(v *viper.Viper, configDir string) (*Config, error) {
	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is not an error, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_path", configDir)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	// Embedding defaults: the local provider needs no API key, so a fresh
	// install works without credentials.
	v.SetDefault("embedding.type", "ollama")
	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("embedding.base_url", "http://localhost:11434")

	// Vector store defaults
	v.SetDefault("vectorstore.type", "chroma")
	v.SetDefault("vectorstore.collection_name", "rag_documents")
	v.SetDefault("vectorstore.persist_directory", filepath.Join(configDir, "rag_data"))

	// Retriever defaults
	v.SetDefault("retriever.type", "similarity")
	v.SetDefault("retriever.top_k", 4)

	// Splitter defaults
	v.SetDefault("splitter.type", "recursive_character")
	v.SetDefault("splitter.chunk_size", 1000)
	v.SetDefault("splitter.chunk_overlap", 200)

	// Ingestion policy defaults. Private URLs stay allowed by default so
	// local-first setups can ingest intranet wikis and localhost services.
	v.SetDefault("validate_urls", true)
	v.SetDefault("skip_invalid_docs", true)
	v.SetDefault("block_private_urls", false)

	// PostgreSQL defaults for a local pgvector instance
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "quarry")
	v.SetDefault("postgres_password", "quarry_dev_password")
	v.SetDefault("postgres_db_name", "quarry")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.rate_burst", 60)

	// Tracing defaults (disabled until an endpoint is set)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "quarry")
	v.SetDefault("tracing.environment", "dev")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", false)
}

// bindEnvVariables binds environment overrides explicitly.
//
// Provider API keys (OPENAI_API_KEY, COHERE_API_KEY, GEMINI_API_KEY,
// CONFLUENCE_API_TOKEN, JIRA_API_TOKEN) are read directly by the embed and
// loader packages, not via viper; they never live in the config file.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("embedding.type", "QUARRY_EMBEDDING_TYPE")
	mustBind("embedding.model", "QUARRY_EMBEDDING_MODEL")
	mustBind("embedding.base_url", "QUARRY_EMBEDDING_BASE_URL")

	mustBind("vectorstore.type", "QUARRY_VECTORSTORE_TYPE")
	mustBind("vectorstore.persist_directory", "QUARRY_PERSIST_DIR")

	mustBind("retriever.type", "QUARRY_RETRIEVER_TYPE")

	mustBind("block_private_urls", "QUARRY_BLOCK_PRIVATE_URLS")

	mustBind("server.cors_origins", "QUARRY_CORS_ORIGINS")
	mustBind("server.trust_proxy", "QUARRY_TRUST_PROXY")

	mustBind("tracing.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	mustBind("logging.level", "QUARRY_LOG_LEVEL")
}

// maskedValue is the placeholder for masked sensitive data. Full-width
// blocks avoid substring matches against the real secret.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 chars or
// fewer are fully masked; longer ones keep the first and last 2 characters
// for debug utility.
//
// THREAT MODEL: this defends against accidental logging of real secrets.
// If logs are compromised, rotate the secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field
// masking.
//
// Masked fields: PostgresPassword, Embedding.APIKey.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.Embedding.APIKey = maskSecret(a.Embedding.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
