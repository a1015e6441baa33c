package retriever

import (
	"context"
	"fmt"

	"github.com/quarry-ai/quarry/internal/vectorstore"
)

// multiQueryRetriever expands the query into variants through an LLM, runs
// each variant, and merges the hits keeping the best score per chunk.
type multiQueryRetriever struct {
	store    vectorstore.Store
	expander QueryExpander
	variants int
}

func newMultiQuery(cfg Config, deps Deps) *multiQueryRetriever {
	variants := cfg.Variants
	if variants <= 0 {
		variants = DefaultVariants
	}
	return &multiQueryRetriever{
		store:    deps.Store,
		expander: deps.Expander,
		variants: variants,
	}
}

func (r *multiQueryRetriever) Retrieve(ctx context.Context, query string, k int) ([]vectorstore.Result, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	expanded, err := r.expander.ExpandQuery(ctx, query, r.variants)
	if err != nil {
		return nil, fmt.Errorf("retriever: expanding query: %w", err)
	}

	queries := append([]string{query}, expanded...)
	best := make(map[string]vectorstore.Result)
	var order []string

	for _, q := range queries {
		hits, err := r.store.Search(ctx, q, k, nil)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			key := resultKey(h)
			if existing, ok := best[key]; ok {
				if h.Score > existing.Score {
					best[key] = h
				}
				continue
			}
			best[key] = h
			order = append(order, key)
		}
	}

	results := make([]vectorstore.Result, 0, len(order))
	for _, key := range order {
		results = append(results, best[key])
	}
	sortByScore(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
