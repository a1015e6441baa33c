// Package api provides the HTTP REST API for quarry.
//
// Endpoints:
//
//	POST   /api/resources       →  ingest resources
//	GET    /api/search          →  query the knowledge base
//	GET    /api/stats           →  knowledge base statistics
//	DELETE /api/knowledge-base  →  clear the knowledge base
//	GET    /health              →  liveness probe
//	GET    /ready               →  readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (recovery, logging, CORS)
//   - health.go: health check endpoints
//   - resources.go: ingestion endpoint
//   - search.go: search, stats, and clear endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/quarry-ai/quarry/internal/log"
	"github.com/quarry-ai/quarry/internal/rag"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Ingestion of large resources dominates this bound.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Knowledge is the pipeline surface the API serves. *rag.Processor
// implements it; tests substitute fakes.
type Knowledge interface {
	AddResources(ctx context.Context, resources []rag.ResourceConfig) (rag.Summary, error)
	Search(ctx context.Context, query, resourceType string, limit int, includeMetadata bool) ([]rag.SearchResult, error)
	Stats(ctx context.Context) rag.Stats
	ClearKnowledgeBase(ctx context.Context) error
}

// lockedKnowledge serializes access to the pipeline. The processor is
// single-threaded by contract; the HTTP layer is where concurrent callers
// meet it.
type lockedKnowledge struct {
	mu sync.Mutex
	kb Knowledge
}

func (l *lockedKnowledge) AddResources(ctx context.Context, resources []rag.ResourceConfig) (rag.Summary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kb.AddResources(ctx, resources)
}

func (l *lockedKnowledge) Search(ctx context.Context, query, resourceType string, limit int, includeMetadata bool) ([]rag.SearchResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kb.Search(ctx, query, resourceType, limit, includeMetadata)
}

func (l *lockedKnowledge) Stats(ctx context.Context) rag.Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kb.Stats(ctx)
}

func (l *lockedKnowledge) ClearKnowledgeBase(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kb.ClearKnowledgeBase(ctx)
}

// Config carries the server-level settings. Zero values are usable:
// no CORS origins, proxy headers untrusted, default rate limit burst.
type Config struct {
	// CORSOrigins lists the exact origins allowed to call the API.
	CORSOrigins []string

	// TrustProxy honors X-Real-IP/X-Forwarded-For when keying the rate
	// limiter. Enable only behind a reverse proxy that sets them.
	TrustProxy bool

	// RateBurst is the per-IP token bucket size, refilled at one token
	// per second. Zero means DefaultRateBurst.
	RateBurst int
}

// DefaultRateBurst is the per-IP burst allowance when Config leaves it unset.
const DefaultRateBurst = 60

// Server is the HTTP server for quarry's REST API.
type Server struct {
	mux     *http.ServeMux
	logger  log.Logger
	cfg     Config
	limiter *rateLimiter

	health    *HealthHandler
	resources *ResourceHandler
	search    *SearchHandler
}

// NewServer creates a new HTTP server with all routes registered. Concurrent
// requests are serialized onto the pipeline.
func NewServer(kb Knowledge, cfg Config, logger log.Logger) *Server {
	mux := http.NewServeMux()
	locked := &lockedKnowledge{kb: kb}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = DefaultRateBurst
	}

	s := &Server{
		mux:       mux,
		logger:    logger,
		cfg:       cfg,
		limiter:   newRateLimiter(1.0, burst),
		health:    NewHealthHandler(locked, logger),
		resources: NewResourceHandler(locked, logger),
		search:    NewSearchHandler(locked, logger),
	}

	s.health.RegisterRoutes(mux)
	s.resources.RegisterRoutes(mux)
	s.search.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → rate limit → logging → CORS → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		rateLimitMiddleware(s.limiter, s.cfg.TrustProxy, s.logger),
		loggingMiddleware(s.logger),
		corsMiddleware(s.cfg.CORSOrigins),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
