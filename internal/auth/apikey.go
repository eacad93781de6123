package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nodewise/configplane/internal/crypto"
	"github.com/nodewise/configplane/internal/storage"
)

// KeyStore is the subset of storage the key validator needs.
type KeyStore interface {
	GetRegistrationKeyHash(ctx context.Context) (hash, salt string, err error)
	SetRegistrationKeyHash(ctx context.Context, hash, salt string) error
}

// KeyValidator validates presented registration keys against the stored
// salted hash.
type KeyValidator struct {
	store KeyStore

	// dummyHash and dummySalt are compared against when no key record
	// exists, so a missing record costs the same as a wrong secret and
	// cannot be detected by timing.
	dummyHash string
	dummySalt string
}

// NewKeyValidator creates a registration key validator.
func NewKeyValidator(store KeyStore) (*KeyValidator, error) {
	dummyHash, dummySalt, err := crypto.HashPassword("configplane-dummy-secret")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &KeyValidator{
		store:     store,
		dummyHash: dummyHash,
		dummySalt: dummySalt,
	}, nil
}

// ValidateKey checks a presented registration key.
// Fails with ErrInvalidKey when the key does not match or no key is
// configured; the full hash-and-compare runs in both cases.
func (v *KeyValidator) ValidateKey(ctx context.Context, presented string) error {
	hash, salt, err := v.store.GetRegistrationKeyHash(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		// Burn the same work as a real comparison, then fail
		crypto.ValidatePassword(presented, v.dummyHash, v.dummySalt)
		return ErrInvalidKey
	}
	if err != nil {
		return fmt.Errorf("failed to load registration key: %w", err)
	}

	if !crypto.ValidatePassword(presented, hash, salt) {
		return ErrInvalidKey
	}

	return nil
}

// Bootstrap ensures a registration key exists. When configuredKey is
// non-empty its hash replaces any stored one, keeping the environment
// authoritative. Otherwise, if no key is stored yet, a random key is
// generated, stored hashed, and logged exactly once so the operator can
// capture it.
func Bootstrap(ctx context.Context, store KeyStore, configuredKey string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if configuredKey != "" {
		hash, salt, err := crypto.HashPassword(configuredKey)
		if err != nil {
			return fmt.Errorf("failed to hash registration key: %w", err)
		}
		if err := store.SetRegistrationKeyHash(ctx, hash, salt); err != nil {
			return err
		}
		logger.Info("registration key loaded from environment")
		return nil
	}

	_, _, err := store.GetRegistrationKeyHash(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to check registration key: %w", err)
	}

	generated, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	hash, salt, err := crypto.HashPassword(generated)
	if err != nil {
		return fmt.Errorf("failed to hash generated key: %w", err)
	}
	if err := store.SetRegistrationKeyHash(ctx, hash, salt); err != nil {
		return err
	}

	// The only time the raw key is ever emitted
	logger.Info("generated node registration key", "registration_key", generated)

	return nil
}
