// Package splitter breaks loaded documents into retrieval-sized chunks.
//
// Every strategy implements the single-method Splitter interface and returns
// uniform chunk documents: the splitter itself clones the parent document's
// metadata into each chunk and overlays any strategy-derived keys (heading
// titles, for example), so callers never have to distinguish "string" chunks
// from "document" chunks.
package splitter

import (
	"fmt"

	"github.com/quarry-ai/quarry/internal/document"
)

// Splitter cuts one document into chunk documents. Implementations must
// propagate the parent's metadata into every chunk; strategy-derived keys
// win over parent keys of the same name.
type Splitter interface {
	Split(doc document.Document) ([]document.Document, error)
}

// Strategy type identifiers accepted by New.
const (
	TypeRecursive = "recursive_character"
	TypeCharacter = "character"
	TypeMarkdown  = "markdown"
	TypeToken     = "token"
)

// Default chunking parameters, used when Config leaves them zero.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Config selects a splitting strategy and its parameters.
type Config struct {
	Type         string         `yaml:"type" json:"type"`
	ChunkSize    int            `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int            `yaml:"chunk_overlap" json:"chunk_overlap"`
	Params       map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// withDefaults fills zero values and validates the size/overlap relation.
func (c Config) withDefaults() (Config, error) {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap == 0 && c.ChunkSize > DefaultChunkOverlap {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	if c.ChunkSize < 1 {
		return c, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return c, fmt.Errorf("chunk_overlap must not be negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return c, fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return c, nil
}

// New creates the splitter strategy selected by cfg.Type. An empty type
// defaults to the recursive character splitter. Unsupported types fail with
// a descriptive error, never a silent fallback.
func New(cfg Config) (Splitter, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("splitter config: %w", err)
	}

	switch cfg.Type {
	case TypeRecursive, "":
		return newRecursive(cfg), nil
	case TypeCharacter:
		return newCharacter(cfg), nil
	case TypeMarkdown:
		return newMarkdown(cfg), nil
	case TypeToken:
		return newToken(cfg)
	default:
		return nil, fmt.Errorf("unsupported splitter type: %q (supported: %s, %s, %s, %s)",
			cfg.Type, TypeRecursive, TypeCharacter, TypeMarkdown, TypeToken)
	}
}
