package api

import (
	"net/http"
	"strings"

	"github.com/quarry-ai/quarry/internal/log"
)

// Search bounds.
const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 50
)

// SearchHandler handles query, stats, and clear endpoints.
type SearchHandler struct {
	kb     Knowledge
	logger log.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(kb Knowledge, logger log.Logger) *SearchHandler {
	return &SearchHandler{kb: kb, logger: logger}
}

// RegisterRoutes registers search routes on the given mux.
func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/search", h.search)
	mux.HandleFunc("GET /api/stats", h.stats)
	mux.HandleFunc("DELETE /api/knowledge-base", h.clear)
}

// search runs a query against the knowledge base.
// Query parameters:
//   - q: the query text (required)
//   - type: resource type filter (optional)
//   - limit: result count (default 5, max 50)
//   - metadata: include per-result metadata (default true)
func (h *SearchHandler) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "q must not be empty", h.logger)
		return
	}

	resourceType := r.URL.Query().Get("type")
	limit := parseIntParam(r, "limit", DefaultSearchLimit, 1, MaxSearchLimit)
	includeMetadata := r.URL.Query().Get("metadata") != "false"

	results, err := h.kb.Search(r.Context(), query, resourceType, limit, includeMetadata)
	if err != nil {
		h.logger.Error("search failed", "query", query, "error", err)
		writeError(w, http.StatusConflict, "search_failed", err.Error(), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": results,
		"total":   len(results),
	}, h.logger)
}

// stats reports knowledge base statistics.
func (h *SearchHandler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.kb.Stats(r.Context()), h.logger)
}

// clear deletes the knowledge base. Irreversible; the HTTP layer performs no
// confirmation beyond requiring the DELETE method.
func (h *SearchHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.kb.ClearKnowledgeBase(r.Context()); err != nil {
		h.logger.Error("clear failed", "error", err)
		writeError(w, http.StatusInternalServerError, "clear_failed", err.Error(), h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"}, h.logger)
}
