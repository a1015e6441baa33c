package retriever

import (
	"context"
	"fmt"

	"github.com/quarry-ai/quarry/internal/embed"
	"github.com/quarry-ai/quarry/internal/vectorstore"
)

// mmrRetriever applies maximal marginal relevance: it over-fetches
// candidates, then greedily picks hits that balance similarity to the query
// against similarity to already-picked hits. lambdaMult of 1 is pure
// relevance, 0 is pure diversity.
type mmrRetriever struct {
	store      vectorstore.Store
	provider   embed.Provider
	fetchK     int
	lambdaMult float64
}

func newMMR(cfg Config, deps Deps) *mmrRetriever {
	fetchK := cfg.FetchK
	if fetchK <= 0 {
		fetchK = DefaultFetchK
	}
	lambda := cfg.LambdaMult
	if lambda <= 0 || lambda > 1 {
		lambda = DefaultLambdaMult
	}
	return &mmrRetriever{
		store:      deps.Store,
		provider:   deps.Provider,
		fetchK:     fetchK,
		lambdaMult: lambda,
	}
}

func (r *mmrRetriever) Retrieve(ctx context.Context, query string, k int) ([]vectorstore.Result, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	fetchK := r.fetchK
	if fetchK < k {
		fetchK = k
	}

	candidates, err := r.store.Search(ctx, query, fetchK, nil)
	if err != nil {
		return nil, err
	}
	if len(candidates) <= k {
		return candidates, nil
	}

	queryVec, err := r.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retriever: embedding query for mmr: %w", err)
	}

	selected := make([]vectorstore.Result, 0, k)
	remaining := make([]vectorstore.Result, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestScore := float64(-1 << 30)
		for i, cand := range remaining {
			relevance := float64(vectorstore.CosineSimilarity(queryVec, cand.Embedding))
			redundancy := 0.0
			for _, s := range selected {
				if sim := float64(vectorstore.CosineSimilarity(cand.Embedding, s.Embedding)); sim > redundancy {
					redundancy = sim
				}
			}
			score := r.lambdaMult*relevance - (1-r.lambdaMult)*redundancy
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected, nil
}
