package config

import (
	"errors"
	"testing"
)

// validConfig returns a configuration that passes Validate, for mutation in
// table tests.
func validConfig() Config {
	return Config{
		Embedding:   EmbeddingConfig{Type: "ollama", Model: "nomic-embed-text"},
		VectorStore: VectorStoreConfig{Type: "chroma", PersistDirectory: "/tmp/kb"},
		Retriever:   RetrieverConfig{Type: "similarity", TopK: 4},
		Splitter:    SplitterConfig{Type: "recursive_character", ChunkSize: 1000, ChunkOverlap: 200},

		PostgresHost:    "localhost",
		PostgresPort:    5432,
		PostgresUser:    "quarry",
		PostgresDBName:  "quarry",
		PostgresSSLMode: "disable",

		Server: ServerConfig{Host: "127.0.0.1", Port: 8080},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"unknown embedding type", func(c *Config) { c.Embedding.Type = "bert" }, ErrInvalidEmbeddingType},
		{"unknown vectorstore type", func(c *Config) { c.VectorStore.Type = "faiss" }, ErrInvalidVectorStoreType},
		{"unknown retriever type", func(c *Config) { c.Retriever.Type = "bm25" }, ErrInvalidRetrieverType},
		{"top_k zero", func(c *Config) { c.Retriever.TopK = 0 }, ErrInvalidTopK},
		{"top_k too large", func(c *Config) { c.Retriever.TopK = 500 }, ErrInvalidTopK},
		{
			"threshold strategy without threshold",
			func(c *Config) { c.Retriever.Type = "similarity_score_threshold" },
			ErrInvalidScoreThreshold,
		},
		{
			"threshold above one",
			func(c *Config) {
				c.Retriever.Type = "similarity_score_threshold"
				c.Retriever.ScoreThreshold = 1.5
			},
			ErrInvalidScoreThreshold,
		},
		{"unknown splitter type", func(c *Config) { c.Splitter.Type = "semantic" }, ErrInvalidChunking},
		{"zero chunk size", func(c *Config) { c.Splitter.ChunkSize = 0 }, ErrInvalidChunking},
		{
			"overlap not below size",
			func(c *Config) { c.Splitter.ChunkOverlap = c.Splitter.ChunkSize },
			ErrInvalidChunking,
		},
		{"server port out of range", func(c *Config) { c.Server.Port = 70000 }, ErrInvalidServerPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_PostgresOnlyForPgvector(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresHost = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("postgres settings must not matter for chroma: %v", err)
	}

	cfg.VectorStore.Type = "pgvector"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidPostgresHost) {
		t.Errorf("error = %v, want ErrInvalidPostgresHost", err)
	}

	cfg = validConfig()
	cfg.VectorStore.Type = "pgvector"
	cfg.PostgresPort = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidPostgresPort) {
		t.Errorf("error = %v, want ErrInvalidPostgresPort", err)
	}

	cfg = validConfig()
	cfg.VectorStore.Type = "pgvector"
	cfg.PostgresSSLMode = "maybe"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidPostgresSSLMode) {
		t.Errorf("error = %v, want ErrInvalidPostgresSSLMode", err)
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("error = %v, want ErrConfigNil", err)
	}
}

func TestRAG_AssemblesPipelineConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Retriever = RetrieverConfig{
		Type: "mmr", TopK: 6, FetchK: 30, LambdaMult: 0.7,
	}
	cfg.PrefilterByType = true

	rc := cfg.RAG()
	if rc.Embedding.Type != "ollama" {
		t.Errorf("embedding type = %q", rc.Embedding.Type)
	}
	if rc.VectorStore.PersistDirectory != "/tmp/kb" {
		t.Errorf("persist dir = %q", rc.VectorStore.PersistDirectory)
	}
	if rc.VectorStore.ConnString == "" {
		t.Error("pgvector conn string not derived")
	}
	if rc.Retriever.Type != "mmr" || rc.Retriever.FetchK != 30 {
		t.Errorf("retriever = %+v", rc.Retriever)
	}
	if !rc.PrefilterByType {
		t.Error("prefilter flag not carried")
	}
}
