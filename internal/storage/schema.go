// Package storage handles all database operations for the configplane server.
package storage

import (
	"database/sql"
	"fmt"
)

// InitSchema creates all required tables and indexes.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Execute all DDL statements
	ddlStatements := []string{
		// config table: stores the hashed registration key
		`CREATE TABLE IF NOT EXISTS config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			registration_key_hash TEXT NOT NULL,
			registration_key_salt TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// accounts table: user and service identities
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			password_salt TEXT NOT NULL,
			account_type TEXT NOT NULL DEFAULT 'user',
			active INTEGER NOT NULL DEFAULT 1,
			email_confirmed INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// tokens table: personal access tokens, hash only
		`CREATE TABLE IF NOT EXISTS tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id TEXT NOT NULL,
			name TEXT NOT NULL,
			token_hash TEXT NOT NULL UNIQUE,
			scopes TEXT NOT NULL,
			expires_at TIMESTAMP,
			last_used_at TIMESTAMP,
			revoked INTEGER NOT NULL DEFAULT 0,
			revoked_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
		)`,

		// Index on token_hash for fast validation lookups
		`CREATE INDEX IF NOT EXISTS idx_tokens_hash ON tokens(token_hash)`,

		// Index on account_id for listing
		`CREATE INDEX IF NOT EXISTS idx_tokens_account ON tokens(account_id)`,

		// configurations table: named configurations
		`CREATE TABLE IF NOT EXISTS configurations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			entry_point TEXT NOT NULL DEFAULT '',
			server_managed INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// configuration_versions table: immutable, append-only artifacts
		`CREATE TABLE IF NOT EXISTS configuration_versions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			configuration_id TEXT NOT NULL,
			version TEXT NOT NULL,
			content BLOB NOT NULL,
			checksum TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (configuration_id) REFERENCES configurations(id) ON DELETE CASCADE,
			UNIQUE (configuration_id, version)
		)`,

		// nodes table: registered fleet members
		`CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			fqdn TEXT NOT NULL UNIQUE,
			environment TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			configuration_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (configuration_id) REFERENCES configurations(id)
		)`,

		// Index on fqdn for registration lookups
		`CREATE INDEX IF NOT EXISTS idx_nodes_fqdn ON nodes(fqdn)`,

		// parameter_files table: versioned scope overlays.
		// scope_value = '' means the file applies to the whole scope level.
		`CREATE TABLE IF NOT EXISTS parameter_files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			configuration_id TEXT NOT NULL,
			scope_type TEXT NOT NULL,
			scope_value TEXT NOT NULL DEFAULT '',
			version TEXT NOT NULL,
			content BLOB NOT NULL,
			content_type TEXT NOT NULL,
			checksum TEXT NOT NULL,
			is_draft INTEGER NOT NULL DEFAULT 1,
			is_active INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (configuration_id) REFERENCES configurations(id) ON DELETE CASCADE,
			UNIQUE (configuration_id, scope_type, scope_value, version)
		)`,

		// Partial unique index enforcing at most one active version per
		// (configuration, scope type, scope value) tuple.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_parameter_files_active
			ON parameter_files(configuration_id, scope_type, scope_value)
			WHERE is_active = 1`,

		// Index for resolution queries
		`CREATE INDEX IF NOT EXISTS idx_parameter_files_config
			ON parameter_files(configuration_id)`,
	}

	// Execute each DDL statement
	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return nil
}
