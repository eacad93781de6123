package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nodewise/configplane/internal/resolve"
	"github.com/nodewise/configplane/internal/storage"
)

// Standard error codes for API responses.
const (
	// ErrCodeInvalidRequest indicates a malformed request body.
	ErrCodeInvalidRequest = "invalid_request"

	// ErrCodeInvalidCredentials indicates an invalid token or registration key.
	ErrCodeInvalidCredentials = "invalid_credentials"

	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeConflict indicates the operation violates a uniqueness or
	// lifecycle rule, such as deleting an active parameter version.
	ErrCodeConflict = "conflict"

	// ErrCodeInvalidContent indicates a parameter body failed validation.
	ErrCodeInvalidContent = "invalid_content"

	// ErrCodeInternalError indicates a server error.
	ErrCodeInternalError = "internal_error"
)

// APIError is the standard error response format for JSON APIs.
type APIError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// WriteError writes a JSON error response with the given status code, error code, and message.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorWithHint(w, status, code, message, "")
}

// WriteErrorWithHint writes a JSON error response with an optional hint for resolving the error.
func WriteErrorWithHint(w http.ResponseWriter, status int, code, message, hint string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := APIError{
		Error:   code,
		Message: message,
		Hint:    hint,
	}
	//nolint:errcheck // Response write errors are unrecoverable
	_ = json.NewEncoder(w).Encode(resp)
}

// writeDomainError maps sentinel errors from the storage and domain layers
// to their HTTP responses. Anything unrecognized is a 500 and gets logged.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, message+" not found")
	case errors.Is(err, storage.ErrDuplicate):
		WriteError(w, http.StatusConflict, ErrCodeConflict, message+" already exists")
	case errors.Is(err, storage.ErrConflict):
		WriteError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, resolve.ErrInvalidContent):
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidContent, err.Error())
	default:
		h.logger.Error("request failed", "error", err, "context", message)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}
