package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nodewise/configplane/internal/storage"
)

func newTestService(t *testing.T) (*TokenService, *storage.SQLiteStorage) {
	t.Helper()

	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return NewTokenService(store, nil), store
}

func newTestAccount(t *testing.T, store *storage.SQLiteStorage, username string) *storage.Account {
	t.Helper()

	account := &storage.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "aa",
		PasswordSalt: "bb",
		Active:       true,
	}
	if err := store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	return account
}

// TestCreateAndValidateToken verifies the create-then-validate round trip
// returns the original account and scopes.
func TestCreateAndValidateToken(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	account := newTestAccount(t, store, "alice")

	raw, meta, err := svc.CreateToken(ctx, account.ID, "deploy", []string{"nodes:read", "parameters:write"}, nil)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if meta.Name != "deploy" {
		t.Errorf("expected name deploy, got %q", meta.Name)
	}

	identity, err := svc.ValidateToken(ctx, raw)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if identity.AccountID != account.ID {
		t.Errorf("expected account %q, got %q", account.ID, identity.AccountID)
	}
	if len(identity.Scopes) != 2 || identity.Scopes[1] != "parameters:write" {
		t.Errorf("unexpected scopes: %v", identity.Scopes)
	}

	// Validation must record use
	stored, err := store.GetTokenByID(ctx, meta.ID)
	if err != nil {
		t.Fatalf("GetTokenByID failed: %v", err)
	}
	if stored.LastUsedAt == nil {
		t.Error("expected last_used_at to be set after validation")
	}
}

// TestValidateTokenFailures verifies that unknown, revoked, expired, and
// malformed tokens all fail with the same ErrInvalidToken.
func TestValidateTokenFailures(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	account := newTestAccount(t, store, "bob")

	// Malformed inputs
	for _, raw := range []string{"", "pat_short", "nopat_" + "x", "bearer junk"} {
		if _, err := svc.ValidateToken(ctx, raw); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken for %q, got %v", raw, err)
		}
	}

	// Unknown but well-formed token
	unknown, _, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, unknown); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for unknown token, got %v", err)
	}

	// Revoked token
	raw, meta, err := svc.CreateToken(ctx, account.ID, "ci", nil, nil)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if err := svc.RevokeToken(ctx, meta.ID, account.ID); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for revoked token, got %v", err)
	}

	// Expired token
	past := time.Now().Add(-time.Hour)
	rawExpired, _, err := svc.CreateToken(ctx, account.ID, "old", nil, &past)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, rawExpired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

// TestCreateTokenDeactivatedAccount verifies issuance is refused for
// deactivated accounts.
func TestCreateTokenDeactivatedAccount(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	account := newTestAccount(t, store, "carol")
	if err := store.DeactivateAccount(ctx, account.ID); err != nil {
		t.Fatalf("DeactivateAccount failed: %v", err)
	}

	if _, _, err := svc.CreateToken(ctx, account.ID, "nope", nil, nil); err == nil {
		t.Error("expected error creating token for deactivated account")
	}
}

// TestRevokeTokenOwnership verifies only the owner can revoke, and that
// revocation is idempotent.
func TestRevokeTokenOwnership(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	owner := newTestAccount(t, store, "owner")
	other := newTestAccount(t, store, "other")

	_, meta, err := svc.CreateToken(ctx, owner.ID, "ci", nil, nil)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	if err := svc.RevokeToken(ctx, meta.ID, other.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign revoke, got %v", err)
	}

	if err := svc.RevokeToken(ctx, meta.ID, owner.ID); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}
	// Second revoke still succeeds
	if err := svc.RevokeToken(ctx, meta.ID, owner.ID); err != nil {
		t.Errorf("expected idempotent revoke, got %v", err)
	}
}

// TestListTokensHidesSecrets verifies listing exposes metadata only.
func TestListTokensHidesSecrets(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	account := newTestAccount(t, store, "dave")

	if _, _, err := svc.CreateToken(ctx, account.ID, "one", []string{"read"}, nil); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if _, _, err := svc.CreateToken(ctx, account.ID, "two", nil, nil); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	list, err := svc.ListTokens(ctx, account.ID)
	if err != nil {
		t.Fatalf("ListTokens failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(list))
	}
	for _, meta := range list {
		if meta.Name == "" {
			t.Error("expected token name in metadata")
		}
	}
}
