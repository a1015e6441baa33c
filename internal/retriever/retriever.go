// Package retriever selects relevant chunks from a vector store. Strategies
// range from plain similarity search to MMR re-ranking, score thresholds,
// weighted ensembles, LLM query expansion, and parent document lookup.
package retriever

import (
	"context"
	"fmt"
	"sort"

	"github.com/quarry-ai/quarry/internal/document"
	"github.com/quarry-ai/quarry/internal/embed"
	"github.com/quarry-ai/quarry/internal/splitter"
	"github.com/quarry-ai/quarry/internal/vectorstore"
)

// Retriever returns up to k hits for a query, most relevant first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]vectorstore.Result, error)
}

// Indexer is an optional Retriever capability for strategies that must see
// documents at indexing time (parent document retrieval). Callers route
// additions through it when present.
type Indexer interface {
	AddDocuments(ctx context.Context, docs []document.Document) error
}

// Strategy type identifiers accepted by New.
const (
	TypeSimilarity     = "similarity"
	TypeMMR            = "mmr"
	TypeScoreThreshold = "similarity_score_threshold"
	TypeEnsemble       = "ensemble"
	TypeMultiQuery     = "multi_query"
	TypeParentDocument = "parent_document"
)

// Defaults used when Config leaves the corresponding field zero.
const (
	DefaultTopK       = 4
	DefaultFetchK     = 20
	DefaultLambdaMult = 0.5
	DefaultVariants   = 3
)

// QueryExpander generates query variants for multi-query retrieval. It is
// typically backed by an LLM.
type QueryExpander interface {
	ExpandQuery(ctx context.Context, query string, n int) ([]string, error)
}

// Config selects a retrieval strategy and its parameters.
type Config struct {
	Type           string            `yaml:"type" json:"type"`
	TopK           int               `yaml:"top_k,omitempty" json:"top_k,omitempty"`
	FetchK         int               `yaml:"fetch_k,omitempty" json:"fetch_k,omitempty"`
	LambdaMult     float64           `yaml:"lambda_mult,omitempty" json:"lambda_mult,omitempty"`
	ScoreThreshold float32           `yaml:"score_threshold,omitempty" json:"score_threshold,omitempty"`
	Weights        []float64         `yaml:"weights,omitempty" json:"weights,omitempty"`
	Variants       int               `yaml:"variants,omitempty" json:"variants,omitempty"`
	ChildSplitter  *splitter.Config  `yaml:"child_splitter,omitempty" json:"child_splitter,omitempty"`
	Params         map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
}

// Deps carries the collaborators retrievers draw on. Expander is optional
// and only required by the multi_query strategy.
type Deps struct {
	Store    vectorstore.Store
	Provider embed.Provider
	Expander QueryExpander
}

// New creates the retrieval strategy selected by cfg.Type. Strategies with
// unmet requirements (a multi-query retriever without an expander, a parent
// document retriever without a child splitter) fail here, not at query time.
func New(cfg Config, deps Deps) (Retriever, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("retriever: vector store is required")
	}

	switch cfg.Type {
	case TypeSimilarity, "":
		return &similarityRetriever{store: deps.Store}, nil
	case TypeMMR:
		if deps.Provider == nil {
			return nil, fmt.Errorf("retriever: mmr requires an embedding provider")
		}
		return newMMR(cfg, deps), nil
	case TypeScoreThreshold:
		if cfg.ScoreThreshold <= 0 {
			return nil, fmt.Errorf("retriever: %s requires a positive score_threshold", TypeScoreThreshold)
		}
		return &thresholdRetriever{store: deps.Store, threshold: cfg.ScoreThreshold}, nil
	case TypeEnsemble:
		return newEnsemble(cfg, deps)
	case TypeMultiQuery:
		if deps.Expander == nil {
			return nil, fmt.Errorf("retriever: %s requires an LLM query expander; configure one or use a different strategy", TypeMultiQuery)
		}
		return newMultiQuery(cfg, deps), nil
	case TypeParentDocument:
		if cfg.ChildSplitter == nil {
			return nil, fmt.Errorf("retriever: %s requires a child_splitter config", TypeParentDocument)
		}
		return newParentDocument(cfg, deps)
	default:
		return nil, fmt.Errorf("retriever: unsupported type: %q (supported: %s, %s, %s, %s, %s, %s)",
			cfg.Type, TypeSimilarity, TypeMMR, TypeScoreThreshold, TypeEnsemble, TypeMultiQuery, TypeParentDocument)
	}
}

// similarityRetriever is the plain top-k strategy.
type similarityRetriever struct {
	store vectorstore.Store
}

func (r *similarityRetriever) Retrieve(ctx context.Context, query string, k int) ([]vectorstore.Result, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	return r.store.Search(ctx, query, k, nil)
}

// thresholdRetriever drops hits scoring below the configured minimum.
type thresholdRetriever struct {
	store     vectorstore.Store
	threshold float32
}

func (r *thresholdRetriever) Retrieve(ctx context.Context, query string, k int) ([]vectorstore.Result, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	hits, err := r.store.Search(ctx, query, k, nil)
	if err != nil {
		return nil, err
	}
	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= r.threshold {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// resultKey identifies a hit for deduplication across strategies. Document
// IDs win when set; content is the fallback.
func resultKey(r vectorstore.Result) string {
	if r.Document.ID != "" {
		return r.Document.ID
	}
	return r.Document.Content
}

func sortByScore(results []vectorstore.Result) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}
