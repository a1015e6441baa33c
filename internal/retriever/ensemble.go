package retriever

import (
	"context"
	"fmt"

	"github.com/quarry-ai/quarry/internal/vectorstore"
)

// ensembleRetriever merges hits from several strategies with per-strategy
// weights. The default ensemble pairs similarity search with MMR at equal
// weight. Duplicate hits accumulate their weighted scores, so a chunk both
// strategies agree on ranks above one only a single strategy found.
type ensembleRetriever struct {
	retrievers []Retriever
	weights    []float64
}

func newEnsemble(cfg Config, deps Deps) (*ensembleRetriever, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("retriever: ensemble requires an embedding provider for its mmr member")
	}

	retrievers := []Retriever{
		&similarityRetriever{store: deps.Store},
		newMMR(cfg, deps),
	}

	weights := cfg.Weights
	if len(weights) == 0 {
		weights = []float64{0.5, 0.5}
	}
	if len(weights) != len(retrievers) {
		return nil, fmt.Errorf("retriever: ensemble needs %d weights, got %d", len(retrievers), len(weights))
	}

	return &ensembleRetriever{retrievers: retrievers, weights: weights}, nil
}

func (r *ensembleRetriever) Retrieve(ctx context.Context, query string, k int) ([]vectorstore.Result, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	type scored struct {
		result vectorstore.Result
		score  float64
	}
	merged := make(map[string]*scored)
	var order []string

	for i, sub := range r.retrievers {
		hits, err := sub.Retrieve(ctx, query, k)
		if err != nil {
			return nil, fmt.Errorf("retriever: ensemble member %d: %w", i, err)
		}
		for _, h := range hits {
			key := resultKey(h)
			if existing, ok := merged[key]; ok {
				existing.score += r.weights[i] * float64(h.Score)
				continue
			}
			merged[key] = &scored{result: h, score: r.weights[i] * float64(h.Score)}
			order = append(order, key)
		}
	}

	results := make([]vectorstore.Result, 0, len(order))
	for _, key := range order {
		s := merged[key]
		s.result.Score = float32(s.score)
		results = append(results, s.result)
	}
	sortByScore(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
