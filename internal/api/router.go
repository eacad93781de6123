package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nodewise/configplane/internal/auth"
	"github.com/nodewise/configplane/internal/metrics"
	"github.com/nodewise/configplane/internal/middleware"
)

// maxBodyBytes caps request bodies; parameter and configuration uploads are
// the largest payloads and stay well under this.
const maxBodyBytes = 1 << 20

// NewRouter creates the API router
func (h *Handler) NewRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	r.Use(metrics.Middleware)
	r.Use(middleware.HTTPLogging(h.logger))

	// Public endpoints (no auth)
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)
	r.Post("/register", h.HandleRegister)

	// Control-plane API (PAT or bootstrap key auth)
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(h.tokens, h.keys, h.logger))

		// Whoami endpoint - available to any authenticated caller
		r.Get("/whoami", h.HandleWhoami)

		// Log level management
		r.Post("/loglevel", h.HandleSetLogLevel)

		// Accounts
		r.Post("/accounts", h.HandleCreateAccount)
		r.Put("/accounts/{id}/password", h.HandleChangePassword)
		r.Post("/accounts/{id}/deactivate", h.HandleDeactivateAccount)

		// Personal access tokens
		r.Get("/tokens", h.HandleListTokens)
		r.Post("/tokens", h.HandleCreateToken)
		r.Delete("/tokens/{id}", h.HandleRevokeToken)

		// Nodes
		r.Get("/nodes", h.HandleListNodes)
		r.Get("/nodes/{id}", h.HandleGetNode)
		r.Put("/nodes/{id}/configuration", h.HandleAssignConfiguration)
		r.Put("/nodes/{id}/attributes", h.HandleUpdateNodeAttributes)
		r.Get("/nodes/{id}/configurations/{name}/parameters", h.HandleResolveParameters)

		// Configuration catalog
		r.Get("/configurations", h.HandleListConfigurations)
		r.Post("/configurations", h.HandleCreateConfiguration)
		r.Get("/configurations/{name}/versions", h.HandleListVersions)
		r.Post("/configurations/{name}/versions", h.HandleAddVersion)
		r.Get("/configurations/{name}/parameters", h.HandleListParameters)
		r.Put("/configurations/{name}/parameters", h.HandleUploadParameters)
		r.Post("/configurations/{name}/parameters/activate", h.HandleActivateParameters)
		r.Delete("/configurations/{name}/parameters", h.HandleDeleteParameters)
	})

	return r
}
