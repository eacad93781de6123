package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nodewise/configplane/internal/storage"
)

// CreateConfigurationRequest is the request body for POST /api/configurations
type CreateConfigurationRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	EntryPoint    string `json:"entry_point,omitempty"`
	ServerManaged bool   `json:"server_managed,omitempty"`
}

// ConfigurationResponse represents a configuration in API responses
type ConfigurationResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	EntryPoint    string `json:"entry_point,omitempty"`
	ServerManaged bool   `json:"server_managed"`
}

func configurationResponse(c *storage.Configuration) *ConfigurationResponse {
	return &ConfigurationResponse{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		EntryPoint:    c.EntryPoint,
		ServerManaged: c.ServerManaged,
	}
}

// HandleCreateConfiguration registers a named configuration
// POST /api/configurations
func (h *Handler) HandleCreateConfiguration(w http.ResponseWriter, r *http.Request) {
	var req CreateConfigurationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name is required")
		return
	}

	cfg, err := h.catalog.Create(r.Context(), req.Name, req.Description, req.EntryPoint, req.ServerManaged)
	if err != nil {
		h.writeDomainError(w, err, "configuration")
		return
	}

	writeJSON(w, http.StatusCreated, configurationResponse(cfg))
}

// HandleListConfigurations lists all configurations
// GET /api/configurations
func (h *Handler) HandleListConfigurations(w http.ResponseWriter, r *http.Request) {
	configs, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "configurations")
		return
	}

	resp := make([]*ConfigurationResponse, len(configs))
	for i, c := range configs {
		resp[i] = configurationResponse(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"configurations": resp})
}

// AddVersionRequest is the request body for
// POST /api/configurations/{name}/versions
type AddVersionRequest struct {
	Version string `json:"version"`
	Content string `json:"content"`
}

// VersionResponse represents a configuration version in API responses.
// Content is omitted from listings; the checksum identifies it.
type VersionResponse struct {
	Version   string `json:"version"`
	Checksum  string `json:"checksum"`
	CreatedAt string `json:"created_at"`
}

func versionResponse(v *storage.ConfigurationVersion) *VersionResponse {
	return &VersionResponse{
		Version:   v.Version,
		Checksum:  v.Checksum,
		CreatedAt: v.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// HandleAddVersion appends an immutable version to a configuration
// POST /api/configurations/{name}/versions
func (h *Handler) HandleAddVersion(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.catalog.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeDomainError(w, err, "configuration")
		return
	}

	var req AddVersionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Version == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "version is required")
		return
	}

	v, err := h.catalog.AddVersion(r.Context(), cfg.ID, req.Version, []byte(req.Content))
	if err != nil {
		h.writeDomainError(w, err, "configuration version")
		return
	}

	writeJSON(w, http.StatusCreated, versionResponse(v))
}

// HandleListVersions lists a configuration's version history
// GET /api/configurations/{name}/versions
func (h *Handler) HandleListVersions(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.catalog.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeDomainError(w, err, "configuration")
		return
	}

	versions, err := h.catalog.ListVersions(r.Context(), cfg.ID)
	if err != nil {
		h.writeDomainError(w, err, "versions")
		return
	}

	resp := make([]*VersionResponse, len(versions))
	for i, v := range versions {
		resp[i] = versionResponse(v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": resp})
}

// UploadParametersRequest is the request body for
// PUT /api/configurations/{name}/parameters
type UploadParametersRequest struct {
	ScopeType   string `json:"scope_type"`
	ScopeValue  string `json:"scope_value,omitempty"`
	Version     string `json:"version"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
	IsDraft     *bool  `json:"is_draft,omitempty"` // defaults to true
}

// ParameterFileResponse represents a parameter file in API responses
type ParameterFileResponse struct {
	ScopeType   string `json:"scope_type"`
	ScopeValue  string `json:"scope_value,omitempty"`
	Version     string `json:"version"`
	ContentType string `json:"content_type"`
	Checksum    string `json:"checksum"`
	IsDraft     bool   `json:"is_draft"`
	IsActive    bool   `json:"is_active"`
}

func parameterFileResponse(pf *storage.ParameterFile) *ParameterFileResponse {
	return &ParameterFileResponse{
		ScopeType:   pf.ScopeType,
		ScopeValue:  pf.ScopeValue,
		Version:     pf.Version,
		ContentType: pf.ContentType,
		Checksum:    pf.Checksum,
		IsDraft:     pf.IsDraft,
		IsActive:    pf.IsActive,
	}
}

// HandleUploadParameters creates or updates a draft parameter file version
// PUT /api/configurations/{name}/parameters
//
// Re-uploading an active version is refused with 409; activate a successor
// instead.
func (h *Handler) HandleUploadParameters(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.catalog.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeDomainError(w, err, "configuration")
		return
	}

	var req UploadParametersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ScopeType == "" || req.Version == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "scope_type and version are required")
		return
	}

	isDraft := true
	if req.IsDraft != nil {
		isDraft = *req.IsDraft
	}

	pf, err := h.catalog.UploadParameters(r.Context(), cfg.ID,
		req.ScopeType, req.ScopeValue, req.Version, req.ContentType, []byte(req.Content), isDraft)
	if err != nil {
		h.writeDomainError(w, err, "parameter file")
		return
	}

	writeJSON(w, http.StatusOK, parameterFileResponse(pf))
}

// ActivateParametersRequest is the request body for
// POST /api/configurations/{name}/parameters/activate
type ActivateParametersRequest struct {
	ScopeType  string `json:"scope_type"`
	ScopeValue string `json:"scope_value,omitempty"`
	Version    string `json:"version"`
}

// HandleActivateParameters makes a parameter version the active one for its
// scope tuple, superseding any prior active version
// POST /api/configurations/{name}/parameters/activate
func (h *Handler) HandleActivateParameters(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.catalog.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeDomainError(w, err, "configuration")
		return
	}

	var req ActivateParametersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ScopeType == "" || req.Version == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "scope_type and version are required")
		return
	}

	pf, err := h.catalog.ActivateParameters(r.Context(), cfg.ID, req.ScopeType, req.ScopeValue, req.Version)
	if err != nil {
		h.writeDomainError(w, err, "parameter file")
		return
	}

	writeJSON(w, http.StatusOK, parameterFileResponse(pf))
}

// HandleListParameters lists every parameter file version of a configuration
// GET /api/configurations/{name}/parameters
func (h *Handler) HandleListParameters(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.catalog.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeDomainError(w, err, "configuration")
		return
	}

	files, err := h.catalog.ListParameters(r.Context(), cfg.ID)
	if err != nil {
		h.writeDomainError(w, err, "parameter files")
		return
	}

	resp := make([]*ParameterFileResponse, len(files))
	for i, pf := range files {
		resp[i] = parameterFileResponse(pf)
	}
	writeJSON(w, http.StatusOK, map[string]any{"parameters": resp})
}

// HandleDeleteParameters removes an inactive parameter file version
// DELETE /api/configurations/{name}/parameters?scope_type=&scope_value=&version=
//
// Active versions are refused with 409.
func (h *Handler) HandleDeleteParameters(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.catalog.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeDomainError(w, err, "configuration")
		return
	}

	q := r.URL.Query()
	scopeType := q.Get("scope_type")
	version := q.Get("version")
	if scopeType == "" || version == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "scope_type and version query parameters are required")
		return
	}

	if err := h.catalog.DeleteParameters(r.Context(), cfg.ID, scopeType, q.Get("scope_value"), version); err != nil {
		h.writeDomainError(w, err, "parameter file")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
