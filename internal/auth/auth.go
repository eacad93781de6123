// Package auth handles personal access tokens and registration-key validation.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/nodewise/configplane/internal/crypto"
)

const (
	// TokenPrefix namespaces personal access tokens so they are recognizable
	// in logs and URLs.
	TokenPrefix = "pat_"

	// tokenRandomLength is the encoded length of the random part
	// (32 bytes base64url without padding).
	tokenRandomLength = 43

	// TokenLength is the total length of a raw token.
	TokenLength = len(TokenPrefix) + tokenRandomLength
)

// Errors for authentication failures. Validation failures are deliberately
// uniform: callers cannot distinguish an unknown token from a revoked or
// expired one.
var (
	// ErrInvalidToken indicates the presented token is unknown, revoked,
	// expired, or malformed.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrInvalidKey indicates the presented registration key is not valid.
	ErrInvalidKey = errors.New("auth: invalid registration key")
)

// GenerateToken creates a new raw personal access token and its storage hash.
// The raw token is pat_ followed by 43 base64url characters; only the SHA-256
// hash is ever persisted.
func GenerateToken() (raw, hash string, err error) {
	random, err := crypto.GenerateKey()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}

	raw = TokenPrefix + random
	return raw, HashToken(raw), nil
}

// HashToken computes the SHA-256 hash of a raw token for storage lookup.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
