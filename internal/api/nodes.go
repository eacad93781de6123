package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nodewise/configplane/internal/metrics"
	"github.com/nodewise/configplane/internal/resolve"
)

// HandleListNodes lists all registered nodes
// GET /api/nodes
func (h *Handler) HandleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.registry.List(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "nodes")
		return
	}

	resp := make([]*NodeResponse, len(nodes))
	for i, n := range nodes {
		resp[i] = nodeResponse(n)
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": resp})
}

// HandleGetNode returns one node
// GET /api/nodes/{id}
func (h *Handler) HandleGetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err, "node")
		return
	}

	writeJSON(w, http.StatusOK, nodeResponse(node))
}

// AssignConfigurationRequest is the request body for
// PUT /api/nodes/{id}/configuration
type AssignConfigurationRequest struct {
	Configuration string `json:"configuration"`
}

// HandleAssignConfiguration points a node at a configuration by name
// PUT /api/nodes/{id}/configuration
func (h *Handler) HandleAssignConfiguration(w http.ResponseWriter, r *http.Request) {
	var req AssignConfigurationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Configuration == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "configuration is required")
		return
	}

	node, err := h.registry.AssignConfiguration(r.Context(), chi.URLParam(r, "id"), req.Configuration)
	if err != nil {
		h.writeDomainError(w, err, "node or configuration")
		return
	}

	writeJSON(w, http.StatusOK, nodeResponse(node))
}

// UpdateAttributesRequest is the request body for
// PUT /api/nodes/{id}/attributes
type UpdateAttributesRequest struct {
	Environment string `json:"environment"`
	Role        string `json:"role"`
}

// HandleUpdateNodeAttributes changes a node's environment and role
// PUT /api/nodes/{id}/attributes
func (h *Handler) HandleUpdateNodeAttributes(w http.ResponseWriter, r *http.Request) {
	var req UpdateAttributesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	node, err := h.registry.UpdateAttributes(r.Context(), chi.URLParam(r, "id"), req.Environment, req.Role)
	if err != nil {
		h.writeDomainError(w, err, "node")
		return
	}

	writeJSON(w, http.StatusOK, nodeResponse(node))
}

// HandleResolveParameters computes the merged parameter set for a node under
// a configuration, with per-key provenance
// GET /api/nodes/{id}/configurations/{name}/parameters
func (h *Handler) HandleResolveParameters(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.catalog.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeDomainError(w, err, "configuration")
		return
	}

	result, err := h.resolver.Resolve(r.Context(), chi.URLParam(r, "id"), cfg.ID)
	if err != nil {
		if errors.Is(err, resolve.ErrInvalidContent) {
			metrics.RecordResolution("invalid_content")
		} else {
			metrics.RecordResolution("error")
		}
		h.writeDomainError(w, err, "node or configuration")
		return
	}

	metrics.RecordResolution("ok")
	writeJSON(w, http.StatusOK, result)
}
