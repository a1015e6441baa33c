package retriever

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/quarry-ai/quarry/internal/document"
	"github.com/quarry-ai/quarry/internal/splitter"
	"github.com/quarry-ai/quarry/internal/vectorstore"
)

// metaParentID links an indexed child chunk back to its parent document.
const metaParentID = "parent_id"

// parentDocumentRetriever indexes small child chunks for precise matching
// but returns the full parent documents they came from. Parents live in an
// in-process docstore, so this strategy only spans a single run.
type parentDocumentRetriever struct {
	store         vectorstore.Store
	childSplitter splitter.Splitter

	mu      sync.RWMutex
	parents map[string]document.Document
}

func newParentDocument(cfg Config, deps Deps) (*parentDocumentRetriever, error) {
	child, err := splitter.New(*cfg.ChildSplitter)
	if err != nil {
		return nil, fmt.Errorf("retriever: child splitter: %w", err)
	}
	return &parentDocumentRetriever{
		store:         deps.Store,
		childSplitter: child,
		parents:       make(map[string]document.Document),
	}, nil
}

// AddDocuments splits each parent into child chunks tagged with the parent
// ID, indexes the children, and keeps the parents for retrieval.
func (r *parentDocumentRetriever) AddDocuments(ctx context.Context, docs []document.Document) error {
	var children []document.Document
	staged := make(map[string]document.Document, len(docs))

	for _, parent := range docs {
		if parent.ID == "" {
			parent.ID = uuid.NewString()
		}
		chunks, err := r.childSplitter.Split(parent)
		if err != nil {
			return fmt.Errorf("retriever: splitting parent %s: %w", parent.ID, err)
		}
		for i := range chunks {
			chunks[i].SetMeta(metaParentID, parent.ID)
		}
		children = append(children, chunks...)
		staged[parent.ID] = parent
	}

	if err := r.store.AddDocuments(ctx, children); err != nil {
		return err
	}

	r.mu.Lock()
	for id, parent := range staged {
		r.parents[id] = parent
	}
	r.mu.Unlock()
	return nil
}

func (r *parentDocumentRetriever) Retrieve(ctx context.Context, query string, k int) ([]vectorstore.Result, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	// Over-fetch children since several may share a parent.
	hits, err := r.store.Search(ctx, query, k*4, nil)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var results []vectorstore.Result
	for _, h := range hits {
		parentID := h.Document.Metadata[metaParentID]
		if parentID == "" || seen[parentID] {
			continue
		}
		parent, ok := r.parents[parentID]
		if !ok {
			continue
		}
		seen[parentID] = true
		results = append(results, vectorstore.Result{Document: parent, Score: h.Score})
		if len(results) == k {
			break
		}
	}
	return results, nil
}
