package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateConfiguration inserts a new configuration.
// Returns ErrDuplicate if the name is already taken.
func (s *SQLiteStorage) CreateConfiguration(ctx context.Context, cfg *Configuration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO configurations (id, name, description, entry_point, server_managed)
		VALUES (?, ?, ?, ?, ?)`,
		cfg.ID, cfg.Name, cfg.Description, cfg.EntryPoint, cfg.ServerManaged)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create configuration: %w", err)
	}

	return nil
}

// GetConfigurationByID retrieves a configuration by ID.
// Returns ErrNotFound if the configuration doesn't exist.
func (s *SQLiteStorage) GetConfigurationByID(ctx context.Context, id string) (*Configuration, error) {
	return s.getConfiguration(ctx, "id = ?", id)
}

// GetConfigurationByName retrieves a configuration by its unique name.
// Returns ErrNotFound if the configuration doesn't exist.
func (s *SQLiteStorage) GetConfigurationByName(ctx context.Context, name string) (*Configuration, error) {
	return s.getConfiguration(ctx, "name = ?", name)
}

func (s *SQLiteStorage) getConfiguration(ctx context.Context, where string, arg any) (*Configuration, error) {
	var c Configuration

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, entry_point, server_managed, created_at
		FROM configurations WHERE `+where, arg).
		Scan(&c.ID, &c.Name, &c.Description, &c.EntryPoint, &c.ServerManaged, &c.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}

	return &c, nil
}

// ListConfigurations returns all configurations ordered by name.
// Returns empty slice if none exist.
func (s *SQLiteStorage) ListConfigurations(ctx context.Context) ([]*Configuration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, entry_point, server_managed, created_at
		FROM configurations ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query configurations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var configs []*Configuration
	for rows.Next() {
		var c Configuration
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.EntryPoint, &c.ServerManaged, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan configuration row: %w", err)
		}
		configs = append(configs, &c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating configurations: %w", err)
	}

	if configs == nil {
		configs = make([]*Configuration, 0)
	}

	return configs, nil
}

// AddConfigurationVersion appends an immutable version to a configuration.
// Versions are never replaced; returns ErrDuplicate if the version string
// already exists for this configuration.
func (s *SQLiteStorage) AddConfigurationVersion(ctx context.Context, v *ConfigurationVersion) (*ConfigurationVersion, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO configuration_versions (configuration_id, version, content, checksum)
		VALUES (?, ?, ?, ?)`,
		v.ConfigurationID, v.Version, v.Content, v.Checksum)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to add configuration version: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get insert ID: %w", err)
	}

	var stored ConfigurationVersion
	err = s.db.QueryRowContext(ctx,
		`SELECT id, configuration_id, version, content, checksum, created_at
		FROM configuration_versions WHERE id = ?`, id).
		Scan(&stored.ID, &stored.ConfigurationID, &stored.Version, &stored.Content, &stored.Checksum, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read back configuration version: %w", err)
	}

	return &stored, nil
}

// ListConfigurationVersions returns the ordered version history for a
// configuration, oldest first.
// Returns empty slice if no versions exist.
func (s *SQLiteStorage) ListConfigurationVersions(ctx context.Context, configurationID string) ([]*ConfigurationVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, configuration_id, version, content, checksum, created_at
		FROM configuration_versions WHERE configuration_id = ? ORDER BY id ASC`, configurationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query configuration versions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var versions []*ConfigurationVersion
	for rows.Next() {
		var v ConfigurationVersion
		if err := rows.Scan(&v.ID, &v.ConfigurationID, &v.Version, &v.Content, &v.Checksum, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan version row: %w", err)
		}
		versions = append(versions, &v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}

	if versions == nil {
		versions = make([]*ConfigurationVersion, 0)
	}

	return versions, nil
}
