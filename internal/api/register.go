package api

import (
	"errors"
	"net/http"

	"github.com/nodewise/configplane/internal/auth"
	"github.com/nodewise/configplane/internal/storage"
)

// RegisterRequest is the request body for POST /register
type RegisterRequest struct {
	FQDN            string `json:"fqdn"`
	RegistrationKey string `json:"registration_key"`
	Environment     string `json:"environment,omitempty"`
	Role            string `json:"role,omitempty"`
}

// NodeResponse represents a node in API responses
type NodeResponse struct {
	ID              string `json:"id"`
	FQDN            string `json:"fqdn"`
	Environment     string `json:"environment,omitempty"`
	Role            string `json:"role,omitempty"`
	ConfigurationID string `json:"configuration_id,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func nodeResponse(n *storage.Node) *NodeResponse {
	return &NodeResponse{
		ID:              n.ID,
		FQDN:            n.FQDN,
		Environment:     n.Environment,
		Role:            n.Role,
		ConfigurationID: n.ConfigurationID,
		CreatedAt:       n.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// HandleRegister enrolls a node into the fleet
// POST /register
// Body: {"fqdn": "...", "registration_key": "...", "environment": "...", "role": "..."}
//
// Idempotent per FQDN. Responds 401 with a uniform body on any key failure.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.FQDN == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "fqdn is required")
		return
	}

	node, err := h.registry.Register(r.Context(), req.FQDN, req.Environment, req.Role, req.RegistrationKey)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidKey) {
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid registration key")
			return
		}
		h.writeDomainError(w, err, "node")
		return
	}

	writeJSON(w, http.StatusOK, nodeResponse(node))
}
