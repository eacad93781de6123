package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/nodewise/configplane/internal/crypto"
	"github.com/nodewise/configplane/internal/storage"
)

func newTestKeyStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// TestValidateKey verifies correct and incorrect keys against a stored hash.
func TestValidateKey(t *testing.T) {
	store := newTestKeyStore(t)
	ctx := context.Background()

	hash, salt, err := crypto.HashPassword("the-registration-key")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if err := store.SetRegistrationKeyHash(ctx, hash, salt); err != nil {
		t.Fatalf("SetRegistrationKeyHash failed: %v", err)
	}

	v, err := NewKeyValidator(store)
	if err != nil {
		t.Fatalf("NewKeyValidator failed: %v", err)
	}

	if err := v.ValidateKey(ctx, "the-registration-key"); err != nil {
		t.Errorf("expected valid key to pass, got %v", err)
	}

	if err := v.ValidateKey(ctx, "wrong-key"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if err := v.ValidateKey(ctx, ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey for empty key, got %v", err)
	}
}

// TestValidateKeyNoRecord verifies that a missing key record fails with the
// same error as a wrong secret.
func TestValidateKeyNoRecord(t *testing.T) {
	store := newTestKeyStore(t)

	v, err := NewKeyValidator(store)
	if err != nil {
		t.Fatalf("NewKeyValidator failed: %v", err)
	}

	if err := v.ValidateKey(context.Background(), "anything"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey when no key is configured, got %v", err)
	}
}

// TestBootstrapFromEnvironment verifies a configured key is hashed and
// becomes valid.
func TestBootstrapFromEnvironment(t *testing.T) {
	store := newTestKeyStore(t)
	ctx := context.Background()

	if err := Bootstrap(ctx, store, "env-key", nil); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	v, err := NewKeyValidator(store)
	if err != nil {
		t.Fatalf("NewKeyValidator failed: %v", err)
	}
	if err := v.ValidateKey(ctx, "env-key"); err != nil {
		t.Errorf("expected bootstrapped key to validate, got %v", err)
	}

	// Raw key is never stored
	hash, _, err := store.GetRegistrationKeyHash(ctx)
	if err != nil {
		t.Fatalf("GetRegistrationKeyHash failed: %v", err)
	}
	if hash == "env-key" {
		t.Error("expected stored value to be a hash, not the raw key")
	}
}

// TestBootstrapGeneratesKey verifies a key is generated and stored when the
// environment does not provide one, and a later bootstrap keeps it.
func TestBootstrapGeneratesKey(t *testing.T) {
	store := newTestKeyStore(t)
	ctx := context.Background()

	if err := Bootstrap(ctx, store, "", nil); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	hash1, salt1, err := store.GetRegistrationKeyHash(ctx)
	if err != nil {
		t.Fatalf("expected a generated key to be stored: %v", err)
	}

	// A second bootstrap without a configured key must not rotate
	if err := Bootstrap(ctx, store, "", nil); err != nil {
		t.Fatalf("second Bootstrap failed: %v", err)
	}
	hash2, salt2, err := store.GetRegistrationKeyHash(ctx)
	if err != nil {
		t.Fatalf("GetRegistrationKeyHash failed: %v", err)
	}
	if hash1 != hash2 || salt1 != salt2 {
		t.Error("expected generated key to survive restart")
	}
}
