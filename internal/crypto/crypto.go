// Package crypto provides the hashing and key-generation primitives used by
// account authentication, registration keys, and access tokens.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltLength is the number of random salt bytes per hashed secret.
	SaltLength = 16

	// HashLength is the derived key length in bytes.
	HashLength = 32

	// Iterations is the PBKDF2 iteration count.
	Iterations = 100_000

	// KeyLength is the number of random bytes in a generated key.
	KeyLength = 32
)

// HashPassword derives a salted hash from the plaintext.
// Returns the hash and the salt, both hex-encoded at fixed length
// (64 and 32 characters respectively). Every call draws a fresh salt, so two
// calls on the same input produce different hashes.
func HashPassword(plaintext string) (hash, salt string, err error) {
	saltBytes := make([]byte, SaltLength)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate salt: %w", err)
	}

	derived := pbkdf2.Key([]byte(plaintext), saltBytes, Iterations, HashLength, sha256.New)

	return hex.EncodeToString(derived), hex.EncodeToString(saltBytes), nil
}

// ValidatePassword recomputes the hash from the plaintext and stored salt and
// compares it against the stored hash in constant time.
// Returns false (never an error) for malformed salt or hash values, so callers
// can treat any mismatch uniformly.
func ValidatePassword(plaintext, hash, salt string) bool {
	saltBytes, err := hex.DecodeString(salt)
	if err != nil || len(saltBytes) != SaltLength {
		return false
	}

	hashBytes, err := hex.DecodeString(hash)
	if err != nil || len(hashBytes) != HashLength {
		return false
	}

	derived := pbkdf2.Key([]byte(plaintext), saltBytes, Iterations, HashLength, sha256.New)

	return subtle.ConstantTimeCompare(derived, hashBytes) == 1
}

// GenerateKey produces a cryptographically random key of KeyLength bytes,
// encoded as base64url without padding (43 characters). Used for bootstrap
// registration keys and as the entropy source inside token generation.
func GenerateKey() (string, error) {
	raw := make([]byte, KeyLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
