package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nodewise/configplane/internal/metrics"
)

// Middleware returns chi-compatible middleware validating bearer PATs.
// When a key validator is supplied, the bootstrap registration key presented
// as X-Api-Key is accepted as an alternative credential, yielding an
// anonymous admin identity. That path exists so the first account and token
// can be created on a fresh install.
// On success the identity is attached to the request context.
func Middleware(svc *TokenService, keys *KeyValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearerToken(r)
			if raw == "" {
				if keys != nil {
					if apiKey := r.Header.Get("X-Api-Key"); apiKey != "" {
						if err := keys.ValidateKey(r.Context(), apiKey); err != nil {
							logger.Warn("invalid api key attempt", "remote_addr", r.RemoteAddr)
							metrics.RecordAuthFailure("invalid")
							writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
							return
						}
						ctx := WithIdentity(r.Context(), &Identity{Bootstrap: true, Scopes: []string{"admin"}})
						next.ServeHTTP(w, r.WithContext(ctx))
						return
					}
				}
				metrics.RecordAuthFailure("missing")
				writeJSONError(w, http.StatusUnauthorized, "missing token")
				return
			}

			identity, err := svc.ValidateToken(r.Context(), raw)
			if err != nil {
				if errors.Is(err, ErrInvalidToken) {
					// Uniform response regardless of why the token failed
					logger.Warn("invalid token attempt", "remote_addr", r.RemoteAddr)
					metrics.RecordAuthFailure("invalid")
					writeJSONError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				logger.Error("token validation error", "error", err)
				writeJSONError(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken gets the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// writeJSONError writes a minimal JSON error response.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Response write errors are unrecoverable
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
