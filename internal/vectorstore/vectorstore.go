// Package vectorstore persists embedded document chunks and answers
// similarity queries over them. Three backends are provided: a persistent
// local store (chromem), PostgreSQL with pgvector, and an in-memory store
// for tests and ephemeral runs.
package vectorstore

import (
	"context"
	"fmt"
	"math"

	"github.com/quarry-ai/quarry/internal/document"
	"github.com/quarry-ai/quarry/internal/embed"
)

// Result is a single similarity hit. Embedding is populated so re-ranking
// strategies can work with the raw vectors.
type Result struct {
	Document  document.Document
	Score     float32
	Embedding []float32
}

// Store indexes embedded chunks and serves similarity search. Implementations
// embed documents and queries through the provider given at construction.
type Store interface {
	// AddDocuments embeds and indexes the given chunks.
	AddDocuments(ctx context.Context, docs []document.Document) error

	// Search returns up to k hits for the query, most similar first.
	// A non-nil filter restricts hits to exact metadata matches.
	Search(ctx context.Context, query string, k int, filter map[string]string) ([]Result, error)

	// Clear removes every indexed document.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Counter is an optional Store capability for backends that can report how
// many chunks they hold. Stats reporting probes for it.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Backend type identifiers accepted by Create and Load.
const (
	TypeChroma   = "chroma"
	TypePgvector = "pgvector"
	TypeMemory   = "memory"
)

// DefaultCollection is the collection name used when config leaves it empty.
const DefaultCollection = "rag_documents"

// Config selects a vector store backend and its parameters.
type Config struct {
	Type             string `yaml:"type" json:"type"`
	CollectionName   string `yaml:"collection_name" json:"collection_name"`
	PersistDirectory string `yaml:"persist_directory,omitempty" json:"persist_directory,omitempty"`
	ConnString       string `yaml:"conn_string,omitempty" json:"conn_string,omitempty"`
}

func (c Config) collection() string {
	if c.CollectionName == "" {
		return DefaultCollection
	}
	return c.CollectionName
}

// Create builds a new store, creating backend state as needed.
func Create(ctx context.Context, cfg Config, provider embed.Provider) (Store, error) {
	switch cfg.Type {
	case TypeChroma, "":
		return newChromem(cfg, provider)
	case TypePgvector:
		return newPgvector(ctx, cfg, provider)
	case TypeMemory:
		return newMemory(provider), nil
	default:
		return nil, fmt.Errorf("vectorstore: unsupported type: %q (supported: %s, %s, %s)",
			cfg.Type, TypeChroma, TypePgvector, TypeMemory)
	}
}

// Load opens an existing store. It returns (nil, nil) when no persisted
// state exists yet, so callers can distinguish "not built" from "broken".
func Load(ctx context.Context, cfg Config, provider embed.Provider) (Store, error) {
	switch cfg.Type {
	case TypeChroma, "":
		s, err := loadChromem(cfg, provider)
		if err != nil || s == nil {
			return nil, err
		}
		return s, nil
	case TypePgvector:
		// The database either connects or it does not; there is no
		// separate "absent" state to detect.
		return newPgvector(ctx, cfg, provider)
	case TypeMemory:
		// Nothing to load, memory stores never persist.
		return nil, nil
	default:
		return nil, fmt.Errorf("vectorstore: unsupported type: %q", cfg.Type)
	}
}

// CosineSimilarity of two vectors. Returns 0 for mismatched or zero-length
// inputs rather than erroring, callers treat that as "no similarity".
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// matchesFilter reports whether every filter key has an exact match in meta.
func matchesFilter(meta, filter map[string]string) bool {
	for k, v := range filter {
		if meta[k] != v {
			return false
		}
	}
	return true
}
