package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nodewise/configplane/internal/storage"
)

// TokenStore is the subset of storage the token service needs.
type TokenStore interface {
	CreateToken(ctx context.Context, token *storage.Token) (*storage.Token, error)
	GetTokenByHash(ctx context.Context, tokenHash string) (*storage.Token, error)
	ListTokensForAccount(ctx context.Context, accountID string) ([]*storage.Token, error)
	RevokeToken(ctx context.Context, id int64, accountID string) error
	TouchToken(ctx context.Context, id int64) error
	GetAccountByID(ctx context.Context, id string) (*storage.Account, error)
}

// TokenService issues, validates, enumerates, and revokes personal access
// tokens.
type TokenService struct {
	store  TokenStore
	logger *slog.Logger
}

// NewTokenService creates a token service.
func NewTokenService(store TokenStore, logger *slog.Logger) *TokenService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenService{store: store, logger: logger}
}

// TokenMetadata is what callers see about a token. It never carries the raw
// token or its hash.
type TokenMetadata struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Scopes     []string   `json:"scopes"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	Revoked    bool       `json:"revoked"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func metadataFor(t *storage.Token) *TokenMetadata {
	return &TokenMetadata{
		ID:         t.ID,
		Name:       t.Name,
		Scopes:     t.Scopes,
		ExpiresAt:  t.ExpiresAt,
		LastUsedAt: t.LastUsedAt,
		Revoked:    t.Revoked,
		RevokedAt:  t.RevokedAt,
		CreatedAt:  t.CreatedAt,
	}
}

// CreateToken generates a new token for the account and stores its hash.
// Returns the raw token exactly once together with the stored metadata.
func (s *TokenService) CreateToken(ctx context.Context, accountID, name string, scopes []string, expiresAt *time.Time) (string, *TokenMetadata, error) {
	if name == "" {
		return "", nil, fmt.Errorf("token name is required")
	}

	account, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load account: %w", err)
	}
	if !account.Active {
		return "", nil, fmt.Errorf("account is deactivated")
	}

	raw, hash, err := GenerateToken()
	if err != nil {
		return "", nil, err
	}

	stored, err := s.store.CreateToken(ctx, &storage.Token{
		AccountID: accountID,
		Name:      name,
		TokenHash: hash,
		Scopes:    scopes,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to store token: %w", err)
	}

	s.logger.Info("token created", "account_id", accountID, "token_id", stored.ID, "name", name)

	return raw, metadataFor(stored), nil
}

// Identity is what a successful validation yields. Bootstrap identities come
// from the registration key rather than a PAT and carry no account.
type Identity struct {
	AccountID string
	TokenID   int64
	Scopes    []string
	Bootstrap bool
}

// ValidateToken checks a presented raw token. It fails with ErrInvalidToken
// for any reason - unknown hash, revocation, expiry, malformed input - so
// probing cannot distinguish the cases. On success the token's last-used
// timestamp is updated as a best-effort side write.
func (s *TokenService) ValidateToken(ctx context.Context, raw string) (*Identity, error) {
	if !strings.HasPrefix(raw, TokenPrefix) || len(raw) != TokenLength {
		return nil, ErrInvalidToken
	}

	token, err := s.store.GetTokenByHash(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if token.Revoked {
		return nil, ErrInvalidToken
	}
	if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
		return nil, ErrInvalidToken
	}

	// Best effort: a failed touch must not fail validation
	if err := s.store.TouchToken(ctx, token.ID); err != nil {
		s.logger.Warn("failed to update token last used", "token_id", token.ID, "error", err)
	}

	return &Identity{
		AccountID: token.AccountID,
		TokenID:   token.ID,
		Scopes:    token.Scopes,
	}, nil
}

// RevokeToken revokes a token owned by the requesting account. Revoking an
// already-revoked token reports success without changing the original
// revocation timestamp.
// Returns storage.ErrNotFound when the token doesn't exist or belongs to a
// different account.
func (s *TokenService) RevokeToken(ctx context.Context, tokenID int64, requestingAccountID string) error {
	if err := s.store.RevokeToken(ctx, tokenID, requestingAccountID); err != nil {
		return err
	}

	s.logger.Info("token revoked", "account_id", requestingAccountID, "token_id", tokenID)
	return nil
}

// ListTokens returns metadata for all of the account's tokens.
// Raw tokens and hashes are never included.
func (s *TokenService) ListTokens(ctx context.Context, accountID string) ([]*TokenMetadata, error) {
	tokens, err := s.store.ListTokensForAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	metadata := make([]*TokenMetadata, len(tokens))
	for i, t := range tokens {
		metadata[i] = metadataFor(t)
	}

	return metadata, nil
}
