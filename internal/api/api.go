// Package api provides the HTTP surface of the control plane: node
// registration, account and token management, the configuration catalog, and
// parameter resolution.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nodewise/configplane/internal/auth"
	"github.com/nodewise/configplane/internal/configstore"
	"github.com/nodewise/configplane/internal/crypto"
	"github.com/nodewise/configplane/internal/registry"
	"github.com/nodewise/configplane/internal/resolve"
	"github.com/nodewise/configplane/internal/storage"
)

// Storage is the subset of storage the handler uses directly; everything
// else goes through the domain services.
type Storage interface {
	Ping(ctx context.Context) error

	CreateAccount(ctx context.Context, account *storage.Account) error
	GetAccountByID(ctx context.Context, id string) (*storage.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*storage.Account, error)
	UpdateAccountPassword(ctx context.Context, id, hash, salt string) error
	DeactivateAccount(ctx context.Context, id string) error
}

// Handler provides the HTTP endpoints.
type Handler struct {
	storage  Storage
	tokens   *auth.TokenService
	keys     *auth.KeyValidator
	registry *registry.Registry
	catalog  *configstore.ConfigStore
	resolver *resolve.Resolver
	logger   *slog.Logger
	logLevel *slog.LevelVar

	// dummyHash and dummySalt are burned on credential checks for unknown
	// usernames so both failure paths cost a full hash
	dummyHash string
	dummySalt string
}

// NewHandler creates an API handler.
func NewHandler(
	store Storage,
	tokens *auth.TokenService,
	keys *auth.KeyValidator,
	reg *registry.Registry,
	catalog *configstore.ConfigStore,
	resolver *resolve.Resolver,
	logLevel *slog.LevelVar,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if logLevel == nil {
		logLevel = new(slog.LevelVar)
	}

	dummyHash, dummySalt, err := crypto.HashPassword("configplane-dummy-credential")
	if err != nil {
		// Only reachable when the system entropy source is broken
		logger.Error("failed to prepare dummy credential hash", "error", err)
	}

	return &Handler{
		storage:   store,
		tokens:    tokens,
		keys:      keys,
		registry:  reg,
		catalog:   catalog,
		resolver:  resolver,
		logger:    logger,
		logLevel:  logLevel,
		dummyHash: dummyHash,
		dummySalt: dummySalt,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Response write errors are unrecoverable
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON parses a request body, reporting invalid_request on failure.
// Returns false after writing the error response.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return false
	}
	return true
}

// parseLogLevel maps a level name to its slog level.
func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
