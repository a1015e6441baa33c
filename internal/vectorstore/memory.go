package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/quarry-ai/quarry/internal/document"
	"github.com/quarry-ai/quarry/internal/embed"
)

type memoryEntry struct {
	doc    document.Document
	vector []float32
}

// memoryStore keeps everything in process memory. Used for tests and
// throwaway sessions; nothing survives a restart.
type memoryStore struct {
	provider embed.Provider

	mu      sync.RWMutex
	entries []memoryEntry
}

func newMemory(provider embed.Provider) *memoryStore {
	return &memoryStore{provider: provider}
}

func (s *memoryStore) AddDocuments(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("vectorstore: embedding %d documents: %w", len(docs), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		s.entries = append(s.entries, memoryEntry{doc: d, vector: vectors[i]})
	}
	return nil
}

func (s *memoryStore) Search(ctx context.Context, query string, k int, filter map[string]string) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := s.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: embedding query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Result, 0, len(s.entries))
	for _, e := range s.entries {
		if len(filter) > 0 && !matchesFilter(e.doc.Metadata, filter) {
			continue
		}
		results = append(results, Result{
			Document:  e.doc,
			Score:     CosineSimilarity(queryVec, e.vector),
			Embedding: e.vector,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *memoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

func (s *memoryStore) Close() error { return nil }
