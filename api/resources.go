package api

import (
	"encoding/json"
	"net/http"

	"github.com/quarry-ai/quarry/internal/log"
	"github.com/quarry-ai/quarry/internal/rag"
)

// Ingestion bounds.
const (
	// MaxResourcesPerRequest caps one ingestion batch.
	MaxResourcesPerRequest = 100
	// MaxRequestBody caps the ingestion request body at 1 MiB; resources are
	// declarations, the content lives behind their URLs.
	MaxRequestBody = 1 << 20
)

// ResourceHandler handles ingestion endpoints.
type ResourceHandler struct {
	kb     Knowledge
	logger log.Logger
}

// NewResourceHandler creates a new resource handler.
func NewResourceHandler(kb Knowledge, logger log.Logger) *ResourceHandler {
	return &ResourceHandler{kb: kb, logger: logger}
}

// RegisterRoutes registers ingestion routes on the given mux.
func (h *ResourceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/resources", h.add)
}

// AddResourcesRequest is the request body for ingesting resources.
type AddResourcesRequest struct {
	Resources []rag.ResourceConfig `json:"resources"`
}

// add ingests the declared resources and returns the per-resource summary.
// Partial failure is a 200: the Summary carries the failed entries.
func (h *ResourceHandler) add(w http.ResponseWriter, r *http.Request) {
	var req AddResourcesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if len(req.Resources) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "resources must not be empty", h.logger)
		return
	}
	if len(req.Resources) > MaxResourcesPerRequest {
		writeError(w, http.StatusBadRequest, "invalid_request", "too many resources in one request", h.logger)
		return
	}

	for i := range req.Resources {
		req.Resources[i].ApplyDefaults()
		if err := req.Resources[i].Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_resource", err.Error(), h.logger)
			return
		}
	}

	summary, err := h.kb.AddResources(r.Context(), req.Resources)
	if err != nil {
		h.logger.Error("ingestion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ingestion_failed", err.Error(), h.logger)
		return
	}
	writeJSON(w, http.StatusOK, summary, h.logger)
}
