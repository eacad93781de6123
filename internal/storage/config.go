package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SetRegistrationKeyHash stores the salted hash of the node registration key.
// If a key already exists, it is replaced.
func (s *SQLiteStorage) SetRegistrationKeyHash(ctx context.Context, hash, salt string) error {
	query := `INSERT OR REPLACE INTO config (id, registration_key_hash, registration_key_salt, updated_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)`
	if _, err := s.db.ExecContext(ctx, query, hash, salt); err != nil {
		return fmt.Errorf("failed to set registration key hash: %w", err)
	}
	return nil
}

// GetRegistrationKeyHash retrieves the stored registration key hash and salt.
// Returns ErrNotFound if no key has been configured.
func (s *SQLiteStorage) GetRegistrationKeyHash(ctx context.Context) (string, string, error) {
	var hash, salt string

	err := s.db.QueryRowContext(ctx,
		"SELECT registration_key_hash, registration_key_salt FROM config WHERE id = 1").
		Scan(&hash, &salt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrNotFound
		}
		return "", "", fmt.Errorf("failed to query registration key hash: %w", err)
	}

	return hash, salt, nil
}
