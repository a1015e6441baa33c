package config

import (
	"github.com/quarry-ai/quarry/internal/embed"
	"github.com/quarry-ai/quarry/internal/rag"
	"github.com/quarry-ai/quarry/internal/retriever"
	"github.com/quarry-ai/quarry/internal/splitter"
	"github.com/quarry-ai/quarry/internal/vectorstore"
)

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	// Type is one of openai, cohere, google, ollama.
	Type string `mapstructure:"type" json:"type"`
	// Model overrides the provider's default embedding model.
	Model string `mapstructure:"model" json:"model"`
	// APIKey overrides the provider's environment variable.
	APIKey string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	// BaseURL overrides the provider endpoint (self-hosted gateways, ollama).
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	// Dimensions truncates the embedding where the provider supports it.
	Dimensions int `mapstructure:"dimensions" json:"dimensions"`
}

// VectorStoreConfig selects the index backend.
type VectorStoreConfig struct {
	// Type is one of chroma, pgvector, memory.
	Type string `mapstructure:"type" json:"type"`
	// CollectionName scopes documents within the backend.
	CollectionName string `mapstructure:"collection_name" json:"collection_name"`
	// PersistDirectory is the on-disk location for the chroma backend.
	PersistDirectory string `mapstructure:"persist_directory" json:"persist_directory"`
}

// RetrieverConfig selects the retrieval strategy.
type RetrieverConfig struct {
	// Type is one of similarity, mmr, similarity_score_threshold, ensemble,
	// multi_query, parent_document.
	Type string `mapstructure:"type" json:"type"`
	// TopK is the result count per retrieval.
	TopK int `mapstructure:"top_k" json:"top_k"`
	// FetchK is the MMR candidate pool size.
	FetchK int `mapstructure:"fetch_k" json:"fetch_k"`
	// LambdaMult trades relevance against diversity for MMR.
	LambdaMult float64 `mapstructure:"lambda_mult" json:"lambda_mult"`
	// ScoreThreshold is the floor for similarity_score_threshold.
	ScoreThreshold float64 `mapstructure:"score_threshold" json:"score_threshold"`
	// Weights are the per-member weights for ensemble.
	Weights []float64 `mapstructure:"weights" json:"weights"`
	// Variants is the query expansion count for multi_query.
	Variants int `mapstructure:"variants" json:"variants"`
	// ChildSplitter is the child chunking for parent_document.
	ChildSplitter *SplitterConfig `mapstructure:"child_splitter" json:"child_splitter,omitempty"`
}

// SplitterConfig sets the default chunking for resources that do not
// override it.
type SplitterConfig struct {
	// Type is one of recursive_character, character, markdown, token.
	Type string `mapstructure:"type" json:"type"`
	// ChunkSize is the target chunk length.
	ChunkSize int `mapstructure:"chunk_size" json:"chunk_size"`
	// ChunkOverlap is the shared window between adjacent chunks.
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`
}

// RAG assembles the pipeline configuration the processor consumes. The
// pgvector connection string is derived from the postgres_* settings.
func (c *Config) RAG() rag.Config {
	return rag.Config{
		Embedding: embed.Config{
			Type:       c.Embedding.Type,
			Model:      c.Embedding.Model,
			APIKey:     c.Embedding.APIKey,
			BaseURL:    c.Embedding.BaseURL,
			Dimensions: c.Embedding.Dimensions,
		},
		VectorStore: vectorstore.Config{
			Type:             c.VectorStore.Type,
			CollectionName:   c.VectorStore.CollectionName,
			PersistDirectory: c.VectorStore.PersistDirectory,
			ConnString:       c.PostgresConnectionString(),
		},
		Retriever:        c.retrieverConfig(),
		ValidateURLs:     c.ValidateURLs,
		SkipInvalidDocs:  c.SkipInvalidDocs,
		PrefilterByType:  c.PrefilterByType,
		BlockPrivateURLs: c.BlockPrivateURLs,
	}
}

func (c *Config) retrieverConfig() retriever.Config {
	rc := retriever.Config{
		Type:           c.Retriever.Type,
		TopK:           c.Retriever.TopK,
		FetchK:         c.Retriever.FetchK,
		LambdaMult:     c.Retriever.LambdaMult,
		ScoreThreshold: float32(c.Retriever.ScoreThreshold),
		Weights:        c.Retriever.Weights,
		Variants:       c.Retriever.Variants,
	}
	if cs := c.Retriever.ChildSplitter; cs != nil {
		rc.ChildSplitter = &splitter.Config{
			Type:         cs.Type,
			ChunkSize:    cs.ChunkSize,
			ChunkOverlap: cs.ChunkOverlap,
		}
	}
	return rc
}

// DefaultSplitter returns the configured default chunking.
func (c *Config) DefaultSplitter() splitter.Config {
	return splitter.Config{
		Type:         c.Splitter.Type,
		ChunkSize:    c.Splitter.ChunkSize,
		ChunkOverlap: c.Splitter.ChunkOverlap,
	}
}
