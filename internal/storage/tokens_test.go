package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestCreateTokenAndLookup verifies hash lookup and scope round-trip.
func TestCreateTokenAndLookup(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	account := newTestAccount(t, s, "alice")

	expires := time.Now().Add(24 * time.Hour).UTC()
	created, err := s.CreateToken(ctx, &Token{
		AccountID: account.ID,
		Name:      "deploy",
		TokenHash: "abc123",
		Scopes:    []string{"nodes:read", "parameters:read"},
		ExpiresAt: &expires,
	})
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	if created.ID <= 0 {
		t.Errorf("expected positive ID, got %d", created.ID)
	}

	found, err := s.GetTokenByHash(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetTokenByHash failed: %v", err)
	}
	if found.AccountID != account.ID {
		t.Errorf("expected account %q, got %q", account.ID, found.AccountID)
	}
	if len(found.Scopes) != 2 || found.Scopes[0] != "nodes:read" {
		t.Errorf("unexpected scopes: %v", found.Scopes)
	}
	if found.ExpiresAt == nil {
		t.Error("expected expiry to be set")
	}
	if found.Revoked {
		t.Error("expected new token to be unrevoked")
	}
}

// TestCreateTokenDuplicateHash verifies the unique constraint on token hashes.
func TestCreateTokenDuplicateHash(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	account := newTestAccount(t, s, "bob")

	if _, err := s.CreateToken(ctx, &Token{AccountID: account.ID, Name: "one", TokenHash: "same"}); err != nil {
		t.Fatalf("first CreateToken failed: %v", err)
	}

	_, err := s.CreateToken(ctx, &Token{AccountID: account.ID, Name: "two", TokenHash: "same"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

// TestRevokeToken verifies ownership checks and idempotent revocation.
func TestRevokeToken(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	owner := newTestAccount(t, s, "carol")
	other := newTestAccount(t, s, "mallory")

	tok, err := s.CreateToken(ctx, &Token{AccountID: owner.ID, Name: "ci", TokenHash: "h1"})
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	// A different account cannot revoke the token
	if err := s.RevokeToken(ctx, tok.ID, other.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign account, got %v", err)
	}

	if err := s.RevokeToken(ctx, tok.ID, owner.ID); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}

	revoked, err := s.GetTokenByID(ctx, tok.ID)
	if err != nil {
		t.Fatalf("GetTokenByID failed: %v", err)
	}
	if !revoked.Revoked || revoked.RevokedAt == nil {
		t.Fatal("expected token to be revoked with a timestamp")
	}

	firstRevokedAt := *revoked.RevokedAt

	// Re-revocation succeeds but must not overwrite the original timestamp
	if err := s.RevokeToken(ctx, tok.ID, owner.ID); err != nil {
		t.Fatalf("second RevokeToken failed: %v", err)
	}

	again, err := s.GetTokenByID(ctx, tok.ID)
	if err != nil {
		t.Fatalf("GetTokenByID failed: %v", err)
	}
	if !again.RevokedAt.Equal(firstRevokedAt) {
		t.Errorf("expected revoked_at %v to be preserved, got %v", firstRevokedAt, *again.RevokedAt)
	}
}

// TestTouchToken verifies last_used_at updates.
func TestTouchToken(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	account := newTestAccount(t, s, "dave")

	tok, err := s.CreateToken(ctx, &Token{AccountID: account.ID, Name: "agent", TokenHash: "h2"})
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if tok.LastUsedAt != nil {
		t.Error("expected last_used_at to start unset")
	}

	if err := s.TouchToken(ctx, tok.ID); err != nil {
		t.Fatalf("TouchToken failed: %v", err)
	}

	touched, err := s.GetTokenByID(ctx, tok.ID)
	if err != nil {
		t.Fatalf("GetTokenByID failed: %v", err)
	}
	if touched.LastUsedAt == nil {
		t.Error("expected last_used_at to be set after touch")
	}
}

// TestListTokensForAccount verifies per-account listing.
func TestListTokensForAccount(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	alice := newTestAccount(t, s, "alice")
	bob := newTestAccount(t, s, "bob")

	for i, hash := range []string{"a1", "a2"} {
		if _, err := s.CreateToken(ctx, &Token{AccountID: alice.ID, Name: "t", TokenHash: hash}); err != nil {
			t.Fatalf("CreateToken %d failed: %v", i, err)
		}
	}
	if _, err := s.CreateToken(ctx, &Token{AccountID: bob.ID, Name: "t", TokenHash: "b1"}); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	tokens, err := s.ListTokensForAccount(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListTokensForAccount failed: %v", err)
	}
	if len(tokens) != 2 {
		t.Errorf("expected 2 tokens, got %d", len(tokens))
	}

	empty, err := s.ListTokensForAccount(ctx, "no-such-account")
	if err != nil {
		t.Fatalf("ListTokensForAccount failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty slice, got %v", empty)
	}
}
