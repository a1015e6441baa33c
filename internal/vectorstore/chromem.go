package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/quarry-ai/quarry/internal/document"
	"github.com/quarry-ai/quarry/internal/embed"
)

// chromemStore is the default backend: an embedded vector database that
// persists to a local directory. A file lock guards the persist directory
// against concurrent writers from other processes.
type chromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	provider   embed.Provider
	name       string
	lock       *flock.Flock
}

func newChromem(cfg Config, provider embed.Provider) (*chromemStore, error) {
	var db *chromem.DB
	var lock *flock.Flock
	if cfg.PersistDirectory != "" {
		if err := os.MkdirAll(cfg.PersistDirectory, 0o755); err != nil {
			return nil, fmt.Errorf("vectorstore: creating persist directory: %w", err)
		}
		lock = flock.New(filepath.Join(cfg.PersistDirectory, ".quarry.lock"))
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("vectorstore: locking persist directory: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("vectorstore: persist directory %s is in use by another process", cfg.PersistDirectory)
		}
		db, err = chromem.NewPersistentDB(cfg.PersistDirectory, true)
		if err != nil {
			lock.Unlock()
			return nil, fmt.Errorf("vectorstore: opening persistent store: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	name := cfg.collection()
	collection, err := db.GetOrCreateCollection(name, nil, embeddingFunc(provider))
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, fmt.Errorf("vectorstore: opening collection %q: %w", name, err)
	}

	return &chromemStore{
		db:         db,
		collection: collection,
		provider:   provider,
		name:       name,
		lock:       lock,
	}, nil
}

// loadChromem opens an existing persisted store. A missing persist directory
// means no index has been built yet, reported as (nil, nil).
func loadChromem(cfg Config, provider embed.Provider) (*chromemStore, error) {
	if cfg.PersistDirectory == "" {
		return nil, nil
	}
	if _, err := os.Stat(cfg.PersistDirectory); os.IsNotExist(err) {
		return nil, nil
	}
	return newChromem(cfg, provider)
}

// embeddingFunc adapts an embed.Provider to chromem's query-time hook.
func embeddingFunc(provider embed.Provider) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return provider.EmbedQuery(ctx, text)
	}
}

func (s *chromemStore) AddDocuments(ctx context.Context, docs []document.Document) error {
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

	records := make([]chromem.Document, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		records[i] = chromem.Document{
			ID:        id,
			Content:   d.Content,
			Metadata:  d.Metadata,
			Embedding: vectors[i],
		}
	}

	if err := s.collection.AddDocuments(ctx, records, runtime.NumCPU()); err != nil {
		return fmt.Errorf("vectorstore: indexing documents: %w", err)
	}
	return nil
}

func (s *chromemStore) Search(ctx context.Context, query string, k int, filter map[string]string) ([]Result, error) {
	// chromem rejects nResults larger than the collection, so clamp.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	if k <= 0 {
		return nil, nil
	}

	hits, err := s.collection.Query(ctx, query, k, filter, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query failed: %w", err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			Document: document.Document{
				ID:       h.ID,
				Content:  h.Content,
				Metadata: h.Metadata,
			},
			Score:     h.Similarity,
			Embedding: h.Embedding,
		}
	}
	return results, nil
}

func (s *chromemStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

func (s *chromemStore) Clear(ctx context.Context) error {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("vectorstore: deleting collection %q: %w", s.name, err)
	}
	collection, err := s.db.GetOrCreateCollection(s.name, nil, embeddingFunc(s.provider))
	if err != nil {
		return fmt.Errorf("vectorstore: recreating collection %q: %w", s.name, err)
	}
	s.collection = collection
	return nil
}

func (s *chromemStore) Close() error {
	if s.lock != nil {
		return s.lock.Unlock()
	}
	return nil
}
