package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertParameterFile creates a parameter file version, or replaces the
// content of an existing non-active version (drafts are fully mutable via
// re-upload; a superseded version may also be re-uploaded).
// Returns ErrConflict when the targeted version is currently active: active
// versions are immutable and must be superseded instead.
func (s *SQLiteStorage) UpsertParameterFile(ctx context.Context, pf *ParameterFile) (*ParameterFile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		id     int64
		active bool
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, is_active FROM parameter_files
		WHERE configuration_id = ? AND scope_type = ? AND scope_value = ? AND version = ?`,
		pf.ConfigurationID, pf.ScopeType, pf.ScopeValue, pf.Version).
		Scan(&id, &active)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx,
			`INSERT INTO parameter_files (configuration_id, scope_type, scope_value, version, content, content_type, checksum, is_draft, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			pf.ConfigurationID, pf.ScopeType, pf.ScopeValue, pf.Version,
			pf.Content, pf.ContentType, pf.Checksum, pf.IsDraft)
		if err != nil {
			return nil, fmt.Errorf("failed to insert parameter file: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get insert ID: %w", err)
		}

	case err != nil:
		return nil, fmt.Errorf("failed to check parameter file: %w", err)

	case active:
		return nil, ErrConflict

	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE parameter_files
			SET content = ?, content_type = ?, checksum = ?, is_draft = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			pf.Content, pf.ContentType, pf.Checksum, pf.IsDraft, id)
		if err != nil {
			return nil, fmt.Errorf("failed to update parameter file: %w", err)
		}
	}

	stored, err := getParameterFileTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit parameter file: %w", err)
	}

	return stored, nil
}

// GetParameterFile retrieves a single parameter file version.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStorage) GetParameterFile(ctx context.Context, configurationID, scopeType, scopeValue, version string) (*ParameterFile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, configuration_id, scope_type, scope_value, version, content, content_type, checksum, is_draft, is_active, created_at, updated_at
		FROM parameter_files
		WHERE configuration_id = ? AND scope_type = ? AND scope_value = ? AND version = ?`,
		configurationID, scopeType, scopeValue, version)
	return scanParameterFile(row)
}

// ListParameterFiles returns every parameter file version for a configuration.
// Returns empty slice if none exist.
func (s *SQLiteStorage) ListParameterFiles(ctx context.Context, configurationID string) ([]*ParameterFile, error) {
	return s.listParameterFiles(ctx,
		`SELECT id, configuration_id, scope_type, scope_value, version, content, content_type, checksum, is_draft, is_active, created_at, updated_at
		FROM parameter_files WHERE configuration_id = ?
		ORDER BY scope_type ASC, scope_value ASC, version ASC`, configurationID)
}

// ListActiveParameterFiles returns the active parameter files for a
// configuration across all scope tuples. Drafts and superseded versions never
// appear here.
func (s *SQLiteStorage) ListActiveParameterFiles(ctx context.Context, configurationID string) ([]*ParameterFile, error) {
	return s.listParameterFiles(ctx,
		`SELECT id, configuration_id, scope_type, scope_value, version, content, content_type, checksum, is_draft, is_active, created_at, updated_at
		FROM parameter_files WHERE configuration_id = ? AND is_active = 1
		ORDER BY scope_type ASC, scope_value ASC`, configurationID)
}

func (s *SQLiteStorage) listParameterFiles(ctx context.Context, query, configurationID string) ([]*ParameterFile, error) {
	rows, err := s.db.QueryContext(ctx, query, configurationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameter files: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var files []*ParameterFile
	for rows.Next() {
		pf, err := scanParameterFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, pf)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parameter files: %w", err)
	}

	if files == nil {
		files = make([]*ParameterFile, 0)
	}

	return files, nil
}

// ActivateParameterFile atomically activates one version for a
// (configuration, scope type, scope value) tuple, deactivating any previously
// active version in the same transaction so the at-most-one-active invariant
// holds under concurrent requests. Activation clears the draft flag.
// Returns ErrNotFound if the targeted version doesn't exist.
func (s *SQLiteStorage) ActivateParameterFile(ctx context.Context, configurationID, scopeType, scopeValue, version string) (*ParameterFile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM parameter_files
		WHERE configuration_id = ? AND scope_type = ? AND scope_value = ? AND version = ?`,
		configurationID, scopeType, scopeValue, version).
		Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find parameter version: %w", err)
	}

	// Deactivate the prior active version, if any, before activating the new
	// one. The partial unique index rejects any interleaving that would leave
	// two rows active.
	_, err = tx.ExecContext(ctx,
		`UPDATE parameter_files SET is_active = 0, updated_at = CURRENT_TIMESTAMP
		WHERE configuration_id = ? AND scope_type = ? AND scope_value = ? AND is_active = 1`,
		configurationID, scopeType, scopeValue)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate prior version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE parameter_files SET is_active = 1, is_draft = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to activate version: %w", err)
	}

	stored, err := getParameterFileTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit activation: %w", err)
	}

	return stored, nil
}

// DeleteParameterFile removes a parameter file version.
// Returns ErrConflict if the version is active (it must be superseded or
// deactivated first) and ErrNotFound if it doesn't exist.
func (s *SQLiteStorage) DeleteParameterFile(ctx context.Context, configurationID, scopeType, scopeValue, version string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		id     int64
		active bool
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, is_active FROM parameter_files
		WHERE configuration_id = ? AND scope_type = ? AND scope_value = ? AND version = ?`,
		configurationID, scopeType, scopeValue, version).
		Scan(&id, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to find parameter version: %w", err)
	}

	if active {
		return ErrConflict
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM parameter_files WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete parameter file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deletion: %w", err)
	}

	return nil
}

func getParameterFileTx(ctx context.Context, tx *sql.Tx, id int64) (*ParameterFile, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, configuration_id, scope_type, scope_value, version, content, content_type, checksum, is_draft, is_active, created_at, updated_at
		FROM parameter_files WHERE id = ?`, id)
	return scanParameterFile(row)
}

func scanParameterFile(row rowScanner) (*ParameterFile, error) {
	var pf ParameterFile

	err := row.Scan(&pf.ID, &pf.ConfigurationID, &pf.ScopeType, &pf.ScopeValue,
		&pf.Version, &pf.Content, &pf.ContentType, &pf.Checksum,
		&pf.IsDraft, &pf.IsActive, &pf.CreatedAt, &pf.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan parameter file row: %w", err)
	}

	return &pf, nil
}
