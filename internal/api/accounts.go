package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nodewise/configplane/internal/auth"
	"github.com/nodewise/configplane/internal/crypto"
	"github.com/nodewise/configplane/internal/storage"
)

// CreateAccountRequest is the request body for POST /api/accounts
type CreateAccountRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	Password    string `json:"password"`
	AccountType string `json:"account_type,omitempty"`
}

// AccountResponse represents an account in API responses.
// Password material never appears here.
type AccountResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	AccountType string `json:"account_type"`
	Active      bool   `json:"active"`
}

func accountResponse(a *storage.Account) *AccountResponse {
	return &AccountResponse{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		AccountType: a.AccountType,
		Active:      a.Active,
	}
}

// HandleCreateAccount creates an account
// POST /api/accounts
func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "username and password are required")
		return
	}

	accountType := req.AccountType
	switch accountType {
	case "":
		accountType = storage.AccountTypeUser
	case storage.AccountTypeUser, storage.AccountTypeService:
	default:
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "account_type must be user or service")
		return
	}

	hash, salt, err := crypto.HashPassword(req.Password)
	if err != nil {
		h.writeDomainError(w, err, "account")
		return
	}

	account := &storage.Account{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		PasswordSalt: salt,
		AccountType:  accountType,
		Active:       true,
	}
	if err := h.storage.CreateAccount(r.Context(), account); err != nil {
		h.writeDomainError(w, err, "account")
		return
	}

	h.logger.Info("account created", "username", req.Username, "account_id", account.ID)
	writeJSON(w, http.StatusCreated, accountResponse(account))
}

// HandleDeactivateAccount soft-deactivates an account and revokes all of its
// live tokens
// POST /api/accounts/{id}/deactivate
func (h *Handler) HandleDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.storage.DeactivateAccount(r.Context(), id); err != nil {
		h.writeDomainError(w, err, "account")
		return
	}

	h.logger.Info("account deactivated", "account_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// ChangePasswordRequest is the request body for
// PUT /api/accounts/{id}/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password,omitempty"`
	NewPassword     string `json:"new_password"`
}

// HandleChangePassword rehashes an account's password
// PUT /api/accounts/{id}/password
//
// Account-backed callers may only change their own password and must present
// the current one; bootstrap-key callers may reset any account.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "not authenticated")
		return
	}

	id := chi.URLParam(r, "id")

	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.NewPassword == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "new_password is required")
		return
	}

	if !identity.Bootstrap {
		if identity.AccountID != id {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		account, err := h.storage.GetAccountByID(r.Context(), id)
		if err != nil {
			h.writeDomainError(w, err, "account")
			return
		}
		if !crypto.ValidatePassword(req.CurrentPassword, account.PasswordHash, account.PasswordSalt) {
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid credentials")
			return
		}
	}

	hash, salt, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		h.writeDomainError(w, err, "account")
		return
	}
	if err := h.storage.UpdateAccountPassword(r.Context(), id, hash, salt); err != nil {
		h.writeDomainError(w, err, "account")
		return
	}

	h.logger.Info("account password changed", "account_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleWhoami reports the authenticated identity
// GET /api/whoami
func (h *Handler) HandleWhoami(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "not authenticated")
		return
	}

	resp := map[string]any{
		"bootstrap": identity.Bootstrap,
		"scopes":    identity.Scopes,
	}
	if identity.AccountID != "" {
		resp["account_id"] = identity.AccountID
		resp["token_id"] = identity.TokenID

		if account, err := h.storage.GetAccountByID(r.Context(), identity.AccountID); err == nil {
			resp["username"] = account.Username
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
