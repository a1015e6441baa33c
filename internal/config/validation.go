package config

import (
	"fmt"
	"slices"
)

var (
	validEmbeddingTypes   = []string{"openai", "cohere", "google", "ollama"}
	validVectorStoreTypes = []string{"chroma", "pgvector", "memory"}
	validRetrieverTypes   = []string{
		"similarity", "mmr", "similarity_score_threshold",
		"ensemble", "multi_query", "parent_document",
	}
	validSplitterTypes = []string{"recursive_character", "character", "markdown", "token"}
	validSSLModes      = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
)

// Validate validates configuration values. Returns sentinel errors that can
// be checked with errors.Is(). Provider credentials are deliberately not
// checked here; the embedding factory reports missing keys with remediation
// hints at pipeline construction.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if !slices.Contains(validEmbeddingTypes, c.Embedding.Type) {
		return fmt.Errorf("%w: %q (supported: %v)", ErrInvalidEmbeddingType, c.Embedding.Type, validEmbeddingTypes)
	}

	if !slices.Contains(validVectorStoreTypes, c.VectorStore.Type) {
		return fmt.Errorf("%w: %q (supported: %v)", ErrInvalidVectorStoreType, c.VectorStore.Type, validVectorStoreTypes)
	}

	if !slices.Contains(validRetrieverTypes, c.Retriever.Type) {
		return fmt.Errorf("%w: %q (supported: %v)", ErrInvalidRetrieverType, c.Retriever.Type, validRetrieverTypes)
	}
	if c.Retriever.TopK < 1 || c.Retriever.TopK > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d", ErrInvalidTopK, c.Retriever.TopK)
	}
	if c.Retriever.Type == "similarity_score_threshold" &&
		(c.Retriever.ScoreThreshold <= 0 || c.Retriever.ScoreThreshold > 1) {
		return fmt.Errorf("%w: must be in (0, 1], got %g", ErrInvalidScoreThreshold, c.Retriever.ScoreThreshold)
	}

	if !slices.Contains(validSplitterTypes, c.Splitter.Type) {
		return fmt.Errorf("%w: unknown splitter type %q (supported: %v)", ErrInvalidChunking, c.Splitter.Type, validSplitterTypes)
	}
	if c.Splitter.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.Splitter.ChunkSize)
	}
	if c.Splitter.ChunkOverlap < 0 || c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d with chunk_size %d",
			ErrInvalidChunking, c.Splitter.ChunkOverlap, c.Splitter.ChunkSize)
	}

	// PostgreSQL settings matter only for the pgvector backend.
	if c.VectorStore.Type == "pgvector" {
		if c.PostgresHost == "" {
			return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
		}
		if c.PostgresDBName == "" {
			return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
		}
		if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
			return fmt.Errorf("%w: %q (supported: %v)", ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidServerPort, c.Server.Port)
	}

	return nil
}
