package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateAccount inserts a new account.
// Returns ErrDuplicate if the username is already taken.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *Account) error {
	if account.AccountType == "" {
		account.AccountType = AccountTypeUser
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, username, email, password_hash, password_salt, account_type, active, email_confirmed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.Username, account.Email,
		account.PasswordHash, account.PasswordSalt,
		account.AccountType, account.Active, account.EmailConfirmed)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccountByID retrieves an account by ID.
// Returns ErrNotFound if the account doesn't exist.
func (s *SQLiteStorage) GetAccountByID(ctx context.Context, id string) (*Account, error) {
	return s.getAccount(ctx, "id = ?", id)
}

// GetAccountByUsername retrieves an account by username.
// Returns ErrNotFound if the account doesn't exist.
func (s *SQLiteStorage) GetAccountByUsername(ctx context.Context, username string) (*Account, error) {
	return s.getAccount(ctx, "username = ?", username)
}

func (s *SQLiteStorage) getAccount(ctx context.Context, where string, arg any) (*Account, error) {
	var a Account

	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, password_salt, account_type, active, email_confirmed, created_at, updated_at
		FROM accounts WHERE `+where, arg).
		Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.PasswordSalt,
			&a.AccountType, &a.Active, &a.EmailConfirmed, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &a, nil
}

// UpdateAccountPassword replaces the account's password hash and salt.
// Returns ErrNotFound if the account doesn't exist.
func (s *SQLiteStorage) UpdateAccountPassword(ctx context.Context, id, hash, salt string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET password_hash = ?, password_salt = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		hash, salt, id)
	if err != nil {
		return fmt.Errorf("failed to update account password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeactivateAccount soft-deletes an account and revokes all of its
// unrevoked tokens in the same transaction.
// Returns ErrNotFound if the account doesn't exist.
func (s *SQLiteStorage) DeactivateAccount(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		"UPDATE accounts SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	// Cascade: revoke every live token owned by the account
	_, err = tx.ExecContext(ctx,
		"UPDATE tokens SET revoked = 1, revoked_at = CURRENT_TIMESTAMP WHERE account_id = ? AND revoked = 0", id)
	if err != nil {
		return fmt.Errorf("failed to revoke account tokens: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deactivation: %w", err)
	}

	return nil
}
