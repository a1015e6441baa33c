package api

import (
	"net/http"

	"github.com/quarry-ai/quarry/internal/log"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	kb     Knowledge
	logger log.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(kb Knowledge, logger log.Logger) *HealthHandler {
	return &HealthHandler{kb: kb, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness returns 200 OK once the pipeline is constructed. An empty
// knowledge base is still ready; it just has nothing to search yet.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.kb == nil {
		http.Error(w, "pipeline not configured", http.StatusServiceUnavailable)
		return
	}
	stats := h.kb.Stats(r.Context())
	h.logger.Debug("readiness check", "status", stats.Status)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
