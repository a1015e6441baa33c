// Package rag orchestrates the ingestion pipeline: validate resources, load
// documents, split them into chunks, annotate metadata, embed, and index.
// It then serves similarity search over the result.
//
// A Processor owns its vector store and retriever exclusively. It is not
// safe for concurrent use; callers that ingest and search at the same time
// must serialize access themselves.
package rag

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/quarry-ai/quarry/internal/document"
	"github.com/quarry-ai/quarry/internal/embed"
	"github.com/quarry-ai/quarry/internal/loader"
	"github.com/quarry-ai/quarry/internal/log"
	"github.com/quarry-ai/quarry/internal/retriever"
	"github.com/quarry-ai/quarry/internal/security"
	"github.com/quarry-ai/quarry/internal/splitter"
	"github.com/quarry-ai/quarry/internal/vectorstore"
)

// DefaultSearchLimit is the result count used when a caller passes limit <= 0.
const DefaultSearchLimit = 5

// validateTimeout bounds the HEAD request in ValidateResource.
const validateTimeout = 10 * time.Second

// Config assembles the pipeline: which embedding provider, vector store
// backend, and retrieval strategy to use, plus the policy switches.
type Config struct {
	Embedding   embed.Config       `yaml:"embedding" json:"embedding"`
	VectorStore vectorstore.Config `yaml:"vectorstore" json:"vectorstore"`
	Retriever   retriever.Config   `yaml:"retriever" json:"retriever"`

	// ValidateURLs enables reachability checks before ingestion. Off for
	// bulk/offline runs.
	ValidateURLs bool `yaml:"validate_urls" json:"validate_urls"`

	// SkipInvalidDocs swallows per-resource load/split failures instead of
	// raising ProcessingError. A deployment-level policy, not per call.
	SkipInvalidDocs bool `yaml:"skip_invalid_docs" json:"skip_invalid_docs"`

	// PrefilterByType pushes the resource_type filter down to the vector
	// store instead of filtering after top-k retrieval. The post-hoc filter
	// can return fewer than limit results even when more matches exist
	// deeper in the index; prefiltering avoids that at the cost of plain
	// similarity semantics (the backend filter bypasses re-ranking
	// strategies).
	PrefilterByType bool `yaml:"prefilter_by_type" json:"prefilter_by_type"`

	// BlockPrivateURLs refuses http(s) resources that target loopback,
	// private, or link-local addresses. Meant for server deployments where
	// resource URLs arrive from untrusted API clients.
	BlockPrivateURLs bool `yaml:"block_private_urls" json:"block_private_urls"`
}

// Summary reports the outcome of one AddResources batch. Partial failure is
// the expected common case; Errors carries one entry per failed resource.
type Summary struct {
	TotalResources int      `json:"total_resources"`
	Successful     int      `json:"successful"`
	Failed         int      `json:"failed"`
	TotalDocuments int      `json:"total_documents"`
	Errors         []string `json:"errors"`
}

// SearchResult is one query hit.
type SearchResult struct {
	Content  string          `json:"content"`
	Score    float32         `json:"score"`
	Metadata *ResultMetadata `json:"metadata,omitempty"`
}

// ResultMetadata is the metadata sub-object attached when the caller asks
// for it.
type ResultMetadata struct {
	SourceURL    string   `json:"source_url"`
	ResourceType string   `json:"resource_type"`
	Tags         []string `json:"tags"`
	Priority     int      `json:"priority"`
}

// Stats describes the knowledge base. TotalDocuments is -1 when the backend
// cannot count.
type Stats struct {
	TotalDocuments  int    `json:"total_documents"`
	VectorstoreType string `json:"vectorstore_type"`
	EmbeddingModel  string `json:"embedding_model"`
	RetrieverType   string `json:"retriever_type"`
	Status          string `json:"status"`
}

// Knowledge base status values.
const (
	StatusEmpty  = "empty"
	StatusActive = "active"
)

// Processor drives the pipeline. Construct with New.
type Processor struct {
	cfg      Config
	logger   log.Logger
	provider embed.Provider
	store    vectorstore.Store
	retr     retriever.Retriever
	expander retriever.QueryExpander

	headClient *http.Client
	urlGuard   *security.URLGuard
}

// Option customizes a Processor.
type Option func(*Processor)

// WithQueryExpander supplies the LLM-backed expander required by the
// multi_query retrieval strategy.
func WithQueryExpander(e retriever.QueryExpander) Option {
	return func(p *Processor) { p.expander = e }
}

// New builds a Processor. Embedding construction failure is fatal and
// reclassified into a ConfigurationError with remediation hints; a persisted
// index is loaded when present, and load failures are logged and treated as
// "start from empty".
func New(ctx context.Context, cfg Config, logger log.Logger, opts ...Option) (*Processor, error) {
	p := &Processor{
		cfg:        cfg,
		logger:     logger,
		headClient: &http.Client{Timeout: validateTimeout},
	}
	if cfg.BlockPrivateURLs {
		p.urlGuard = security.NewURLGuard()
		p.headClient.Transport = p.urlGuard.SafeTransport()
	}
	for _, opt := range opts {
		opt(p)
	}

	provider, err := embed.New(ctx, cfg.Embedding)
	if err != nil {
		return nil, classifyInitError(err, cfg.Embedding.Type, cfg.Embedding.Model)
	}
	p.provider = provider

	store, err := vectorstore.Load(ctx, cfg.VectorStore, provider)
	if err != nil {
		logger.Warn("failed to load existing vector store, starting from empty",
			"error", err, "persist_directory", cfg.VectorStore.PersistDirectory)
	} else if store != nil {
		p.store = store
		retr, err := p.newRetriever()
		if err != nil {
			store.Close()
			return nil, err
		}
		p.retr = retr
		logger.Info("loaded existing vector store",
			"persist_directory", cfg.VectorStore.PersistDirectory)
	} else {
		logger.Debug("no existing vector store found")
	}

	return p, nil
}

// newRetriever wraps the current store in the configured strategy. Unmet
// strategy requirements surface as ConfigurationError.
func (p *Processor) newRetriever() (retriever.Retriever, error) {
	retr, err := retriever.New(p.cfg.Retriever, retriever.Deps{
		Store:    p.store,
		Provider: p.provider,
		Expander: p.expander,
	})
	if err != nil {
		return nil, &ConfigurationError{
			Message: fmt.Sprintf("Invalid retriever configuration (%s).", p.cfg.Retriever.Type),
			Hint:    err.Error(),
			Err:     err,
		}
	}
	return retr, nil
}

// ValidateResource checks a resource declaration and, when URL validation is
// enabled, its reachability: local paths must exist, http(s) URLs must
// answer a HEAD request with status < 400, special schemes are delegated.
func (p *Processor) ValidateResource(ctx context.Context, resource ResourceConfig) error {
	if err := resource.Validate(); err != nil {
		return &ValidationError{URL: resource.URL, Reason: err.Error()}
	}
	if p.urlGuard != nil && strings.HasPrefix(resource.URL, "http") {
		if err := p.urlGuard.Validate(resource.URL); err != nil {
			return &ValidationError{URL: resource.URL, Reason: err.Error()}
		}
	}
	if !p.cfg.ValidateURLs {
		return nil
	}

	u, err := url.Parse(resource.URL)
	if err != nil {
		return &ValidationError{URL: resource.URL, Reason: err.Error()}
	}

	switch u.Scheme {
	case "", "file":
		path := resource.URL
		if u.Scheme == "file" {
			path = u.Path
		}
		if _, err := os.Stat(path); err != nil {
			return &ValidationError{URL: resource.URL, Reason: "local path does not exist"}
		}
		return nil
	case "http", "https":
		ctx, cancel := context.WithTimeout(ctx, validateTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, resource.URL, nil)
		if err != nil {
			return &ValidationError{URL: resource.URL, Reason: err.Error()}
		}
		resp, err := p.headClient.Do(req)
		if err != nil {
			return &ValidationError{URL: resource.URL, Reason: fmt.Sprintf("failed to access URL: %v", err)}
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return &ValidationError{URL: resource.URL, Reason: fmt.Sprintf("URL returned status %d", resp.StatusCode)}
		}
		return nil
	case "confluence", "jira", "notion", "github":
		// Delegated to the loader's own client.
		return nil
	default:
		return &ValidationError{URL: resource.URL, Reason: fmt.Sprintf("unsupported URL scheme: %s", u.Scheme)}
	}
}

// ProcessResource runs one resource through validate, load, split, and
// annotate, returning the chunks ready for indexing. With SkipInvalidDocs
// set, failures are logged and an empty slice is returned; otherwise they
// surface as ProcessingError.
func (p *Processor) ProcessResource(ctx context.Context, resource ResourceConfig) ([]document.Document, error) {
	p.logger.Info("processing resource", "url", resource.URL)

	chunks, err := p.processResource(ctx, resource)
	if err != nil {
		if p.cfg.SkipInvalidDocs {
			p.logger.Error("failed to process resource, skipping",
				"url", resource.URL, "error", err)
			return nil, nil
		}
		return nil, &ProcessingError{URL: resource.URL, Err: err}
	}
	return chunks, nil
}

func (p *Processor) processResource(ctx context.Context, resource ResourceConfig) ([]document.Document, error) {
	if err := p.ValidateResource(ctx, resource); err != nil {
		return nil, err
	}

	loaderCfg := resource.Loader
	loaderCfg.BlockPrivateHosts = p.cfg.BlockPrivateURLs
	l, err := loader.New(loaderCfg, resource.URL)
	if err != nil {
		return nil, err
	}
	docs, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		p.logger.Warn("no documents loaded", "url", resource.URL)
		return nil, nil
	}
	p.logger.Debug("loaded documents", "url", resource.URL, "count", len(docs))

	s, err := splitter.New(resource.Splitter)
	if err != nil {
		return nil, err
	}

	var chunks []document.Document
	for _, doc := range docs {
		split, err := s.Split(doc)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, split...)
	}
	p.logger.Debug("split into chunks", "url", resource.URL, "count", len(chunks))

	p.annotate(chunks, resource)
	return chunks, nil
}

// annotate stamps resource-level metadata onto every chunk. The resource's
// own metadata map is applied last: it overrides loader- and splitter-derived
// keys of the same name, an explicit override order.
func (p *Processor) annotate(chunks []document.Document, resource ResourceConfig) {
	processedAt := time.Now().UTC().Format(time.RFC3339)
	resourceMeta := document.FlattenMetadata(resource.Metadata)

	for i := range chunks {
		chunks[i].SetMeta(document.MetaSourceURL, resource.URL)
		chunks[i].SetMeta(document.MetaResourceType, string(resource.ResourceType))
		chunks[i].SetMeta(document.MetaPriority, fmt.Sprintf("%d", resource.Priority))
		chunks[i].SetMeta(document.MetaTags, document.JoinTags(resource.Tags))
		chunks[i].SetMeta(document.MetaProcessedAt, processedAt)
		for k, v := range resourceMeta {
			chunks[i].SetMeta(k, v)
		}
	}
}

// AddResources ingests resources strictly sequentially, in input order. One
// bad resource never aborts the rest; all produced chunks are written to the
// vector store in a single batch at the end. The returned Summary reports
// per-resource outcomes; the error is non-nil only when the final batched
// write fails.
func (p *Processor) AddResources(ctx context.Context, resources []ResourceConfig) (Summary, error) {
	p.logger.Info("adding resources to knowledge base", "count", len(resources))

	summary := Summary{TotalResources: len(resources)}
	var all []document.Document

	for i, resource := range resources {
		p.logger.Info("processing resource",
			"index", i+1, "total", len(resources), "url", resource.URL)

		chunks, err := p.ProcessResource(ctx, resource)
		switch {
		case err != nil:
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", resource.URL, err))
			p.logger.Error("resource failed", "url", resource.URL, "error", err)
		case len(chunks) == 0:
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("No documents from %s", resource.URL))
		default:
			summary.Successful++
			summary.TotalDocuments += len(chunks)
			all = append(all, chunks...)
		}
	}

	if len(all) > 0 {
		p.logger.Info("writing documents to vector store", "count", len(all))
		if err := p.indexDocuments(ctx, all); err != nil {
			return summary, err
		}
	}

	p.logger.Info("completed processing",
		"successful", summary.Successful,
		"failed", summary.Failed,
		"total_documents", summary.TotalDocuments)
	return summary, nil
}

// indexDocuments writes one batch to the store, creating store and retriever
// on first use. Strategies that must see documents at indexing time (parent
// document retrieval) get them through their Indexer capability.
func (p *Processor) indexDocuments(ctx context.Context, docs []document.Document) error {
	if p.store == nil {
		store, err := vectorstore.Create(ctx, p.cfg.VectorStore, p.provider)
		if err != nil {
			return fmt.Errorf("creating vector store: %w", err)
		}
		p.store = store
		p.logger.Info("created new vector store", "type", p.cfg.VectorStore.Type)
	}

	if p.retr == nil {
		retr, err := p.newRetriever()
		if err != nil {
			return err
		}
		p.retr = retr
	}

	if indexer, ok := p.retr.(retriever.Indexer); ok {
		return indexer.AddDocuments(ctx, docs)
	}
	if err := p.store.AddDocuments(ctx, docs); err != nil {
		return err
	}

	// The wrapper is stateless, rebuilding keeps it bound to the current
	// store instance.
	retr, err := p.newRetriever()
	if err != nil {
		return err
	}
	p.retr = retr
	return nil
}

// Search retrieves up to limit hits for the query, optionally post-filtered
// by resource type. The filter runs after top-k retrieval, so a filtered
// search can return fewer than limit results even when more matching chunks
// exist deeper in the index (see Config.PrefilterByType for the alternative).
// Search fails when nothing has been ingested yet.
func (p *Processor) Search(ctx context.Context, query string, resourceType string, limit int, includeMetadata bool) ([]SearchResult, error) {
	if p.retr == nil {
		return nil, fmt.Errorf("no retriever available: add resources first")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var hits []vectorstore.Result
	var err error
	if p.cfg.PrefilterByType && resourceType != "" {
		hits, err = p.store.Search(ctx, query, limit,
			map[string]string{document.MetaResourceType: resourceType})
	} else {
		hits, err = p.retr.Retrieve(ctx, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		if !p.cfg.PrefilterByType && resourceType != "" &&
			h.Document.Metadata[document.MetaResourceType] != resourceType {
			continue
		}

		result := SearchResult{Content: h.Document.Content, Score: h.Score}
		if includeMetadata {
			priority := 0
			fmt.Sscanf(h.Document.Metadata[document.MetaPriority], "%d", &priority)
			result.Metadata = &ResultMetadata{
				SourceURL:    h.Document.Metadata[document.MetaSourceURL],
				ResourceType: h.Document.Metadata[document.MetaResourceType],
				Tags:         document.SplitTags(h.Document.Metadata[document.MetaTags]),
				Priority:     priority,
			}
		}
		results = append(results, result)
	}

	p.logger.Debug("search completed", "query", query, "results", len(results))
	return results, nil
}

// Stats reports the knowledge base state. The document count is best-effort:
// backends without the Counter capability report -1.
func (p *Processor) Stats(ctx context.Context) Stats {
	stats := Stats{
		VectorstoreType: p.cfg.VectorStore.Type,
		EmbeddingModel:  p.provider.Model(),
		RetrieverType:   p.cfg.Retriever.Type,
		Status:          StatusEmpty,
	}
	if p.store == nil {
		return stats
	}

	stats.Status = StatusActive
	if counter, ok := p.store.(vectorstore.Counter); ok {
		if n, err := counter.Count(ctx); err == nil {
			stats.TotalDocuments = n
		} else {
			p.logger.Warn("document count unavailable", "error", err)
			stats.TotalDocuments = -1
		}
	} else {
		stats.TotalDocuments = -1
	}
	return stats
}

// ClearKnowledgeBase deletes the persisted index and resets the processor to
// the index-absent state. Irreversible; confirmation is a caller concern.
func (p *Processor) ClearKnowledgeBase(ctx context.Context) error {
	p.logger.Warn("clearing knowledge base")

	if p.store != nil {
		if err := p.store.Clear(ctx); err != nil {
			p.logger.Warn("clearing store failed, removing persisted state anyway", "error", err)
		}
		if err := p.store.Close(); err != nil {
			p.logger.Warn("closing store failed", "error", err)
		}
		p.store = nil
		p.retr = nil
	}

	if dir := p.cfg.VectorStore.PersistDirectory; dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing persisted storage: %w", err)
		}
		p.logger.Info("deleted persistent storage", "persist_directory", dir)
	}
	return nil
}

// Close releases the vector store. The processor is unusable afterwards.
func (p *Processor) Close() error {
	if p.store == nil {
		return nil
	}
	err := p.store.Close()
	p.store = nil
	p.retr = nil
	return err
}
