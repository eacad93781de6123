package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// CreateToken inserts a new personal access token record.
// The raw token is never stored, only its hash.
// Returns ErrDuplicate if a token with this hash already exists.
func (s *SQLiteStorage) CreateToken(ctx context.Context, token *Token) (*Token, error) {
	scopesJSON, err := marshalStringArray(token.Scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scopes: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (account_id, name, token_hash, scopes, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		token.AccountID, token.Name, token.TokenHash, string(scopesJSON), nullTime(token.ExpiresAt))

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get insert ID: %w", err)
	}

	return s.GetTokenByID(ctx, id)
}

// GetTokenByHash retrieves a token by its hash.
// This is used during validation to look up the presented token.
// Returns ErrNotFound if the hash doesn't exist.
func (s *SQLiteStorage) GetTokenByHash(ctx context.Context, tokenHash string) (*Token, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, name, token_hash, scopes, expires_at, last_used_at, revoked, revoked_at, created_at
		FROM tokens WHERE token_hash = ?`, tokenHash)
	return scanToken(row)
}

// GetTokenByID retrieves a token by ID.
// Returns ErrNotFound if the token doesn't exist.
func (s *SQLiteStorage) GetTokenByID(ctx context.Context, id int64) (*Token, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, name, token_hash, scopes, expires_at, last_used_at, revoked, revoked_at, created_at
		FROM tokens WHERE id = ?`, id)
	return scanToken(row)
}

// ListTokensForAccount returns all tokens owned by an account, newest first.
// Returns empty slice if no tokens exist.
func (s *SQLiteStorage) ListTokensForAccount(ctx context.Context, accountID string) ([]*Token, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, name, token_hash, scopes, expires_at, last_used_at, revoked, revoked_at, created_at
		FROM tokens WHERE account_id = ? ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tokens []*Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}

	// Return empty slice instead of nil
	if tokens == nil {
		tokens = make([]*Token, 0)
	}

	return tokens, nil
}

// RevokeToken marks a token as revoked, checking ownership.
// Revoking an already-revoked token is a no-op that preserves the original
// revocation timestamp.
// Returns ErrNotFound if the token doesn't exist or belongs to another account.
func (s *SQLiteStorage) RevokeToken(ctx context.Context, id int64, accountID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var revoked bool
	err = tx.QueryRowContext(ctx,
		"SELECT revoked FROM tokens WHERE id = ? AND account_id = ?", id, accountID).
		Scan(&revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to check token: %w", err)
	}

	if !revoked {
		_, err = tx.ExecContext(ctx,
			"UPDATE tokens SET revoked = 1, revoked_at = CURRENT_TIMESTAMP WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit revocation: %w", err)
	}

	return nil
}

// TouchToken updates a token's last-used timestamp.
// Best effort: races between concurrent validations are acceptable.
func (s *SQLiteStorage) TouchToken(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE tokens SET last_used_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to update last used: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*Token, error) {
	var (
		t          Token
		scopesJSON string
		expiresAt  sql.NullTime
		lastUsedAt sql.NullTime
		revokedAt  sql.NullTime
	)

	err := row.Scan(&t.ID, &t.AccountID, &t.Name, &t.TokenHash, &scopesJSON,
		&expiresAt, &lastUsedAt, &t.Revoked, &revokedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan token row: %w", err)
	}

	if err := unmarshalStringArray(scopesJSON, &t.Scopes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scopes: %w", err)
	}

	t.ExpiresAt = scanNullTime(expiresAt)
	t.LastUsedAt = scanNullTime(lastUsedAt)
	t.RevokedAt = scanNullTime(revokedAt)

	return &t, nil
}

// marshalStringArray is a helper to marshal a string array to JSON.
func marshalStringArray(arr []string) ([]byte, error) {
	if arr == nil {
		arr = []string{}
	}
	return json.Marshal(arr)
}

// unmarshalStringArray is a helper to unmarshal a JSON string array.
func unmarshalStringArray(data string, arr *[]string) error {
	return json.Unmarshal([]byte(data), arr)
}
