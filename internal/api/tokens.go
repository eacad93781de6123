package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nodewise/configplane/internal/auth"
	"github.com/nodewise/configplane/internal/crypto"
	"github.com/nodewise/configplane/internal/storage"
)

// CreateTokenRequest is the request body for POST /api/tokens.
// Username and password are required for bootstrap-key callers, which have
// no account of their own; token-authenticated callers mint tokens for the
// account behind their token.
type CreateTokenRequest struct {
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Username  string     `json:"username,omitempty"`
	Password  string     `json:"password,omitempty"`
}

// CreateTokenResponse carries the raw token. It is shown exactly once;
// afterwards only metadata is retrievable.
type CreateTokenResponse struct {
	Token    string              `json:"token"`
	Metadata *auth.TokenMetadata `json:"metadata"`
}

// HandleCreateToken issues a personal access token
// POST /api/tokens
func (h *Handler) HandleCreateToken(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "not authenticated")
		return
	}

	var req CreateTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Name == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name is required")
		return
	}

	accountID := identity.AccountID
	if identity.Bootstrap {
		account, ok := h.verifyCredentials(w, r, req.Username, req.Password)
		if !ok {
			return
		}
		accountID = account.ID
	}

	raw, metadata, err := h.tokens.CreateToken(r.Context(), accountID, req.Name, req.Scopes, req.ExpiresAt)
	if err != nil {
		h.writeDomainError(w, err, "token")
		return
	}

	writeJSON(w, http.StatusCreated, &CreateTokenResponse{Token: raw, Metadata: metadata})
}

// verifyCredentials checks a username/password pair, writing a uniform 401
// on any failure so probing cannot distinguish unknown users from wrong
// passwords.
func (h *Handler) verifyCredentials(w http.ResponseWriter, r *http.Request, username, password string) (*storage.Account, bool) {
	if username == "" || password == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "username and password are required for bootstrap token issuance")
		return nil, false
	}

	account, err := h.storage.GetAccountByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Burn a comparison anyway so the paths cost the same
			crypto.ValidatePassword(password, h.dummyHash, h.dummySalt)
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid credentials")
			return nil, false
		}
		h.writeDomainError(w, err, "account")
		return nil, false
	}

	if !account.Active || !crypto.ValidatePassword(password, account.PasswordHash, account.PasswordSalt) {
		WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid credentials")
		return nil, false
	}

	return account, true
}

// HandleListTokens lists the caller's token metadata
// GET /api/tokens
func (h *Handler) HandleListTokens(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil || identity.AccountID == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "token listing requires an account-backed token")
		return
	}

	tokens, err := h.tokens.ListTokens(r.Context(), identity.AccountID)
	if err != nil {
		h.writeDomainError(w, err, "tokens")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

// HandleRevokeToken revokes one of the caller's tokens
// DELETE /api/tokens/{id}
//
// Idempotent: revoking an already-revoked token succeeds without moving its
// revocation timestamp.
func (h *Handler) HandleRevokeToken(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil || identity.AccountID == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "token revocation requires an account-backed token")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid token ID")
		return
	}

	if err := h.tokens.RevokeToken(r.Context(), id, identity.AccountID); err != nil {
		h.writeDomainError(w, err, "token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// SetLogLevelRequest is the request body for POST /api/loglevel
type SetLogLevelRequest struct {
	Level string `json:"level"`
}

// HandleSetLogLevel changes runtime log level
// POST /api/loglevel
// Body: {"level": "debug|info|warn|error"}
func (h *Handler) HandleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req SetLogLevelRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	level, err := parseLogLevel(req.Level)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "level must be one of: debug, info, warn, error")
		return
	}

	h.logLevel.Set(level)
	h.logger.Info("log level changed", "new_level", req.Level)

	writeJSON(w, http.StatusOK, map[string]string{"level": req.Level})
}
