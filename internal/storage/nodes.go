package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateNode inserts a new node.
// Returns ErrDuplicate if a node with this FQDN already exists.
func (s *SQLiteStorage) CreateNode(ctx context.Context, node *Node) error {
	var configID any
	if node.ConfigurationID != "" {
		configID = node.ConfigurationID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nodes (id, fqdn, environment, role, configuration_id)
		VALUES (?, ?, ?, ?, ?)`,
		node.ID, node.FQDN, node.Environment, node.Role, configID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create node: %w", err)
	}

	return nil
}

// GetNodeByID retrieves a node by ID.
// Returns ErrNotFound if the node doesn't exist.
func (s *SQLiteStorage) GetNodeByID(ctx context.Context, id string) (*Node, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, fqdn, environment, role, configuration_id, created_at, updated_at
		FROM nodes WHERE id = ?`, id)
	return scanNode(row)
}

// GetNodeByFQDN retrieves a node by its fully-qualified domain name.
// Returns ErrNotFound if the node doesn't exist.
func (s *SQLiteStorage) GetNodeByFQDN(ctx context.Context, fqdn string) (*Node, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, fqdn, environment, role, configuration_id, created_at, updated_at
		FROM nodes WHERE fqdn = ?`, fqdn)
	return scanNode(row)
}

// ListNodes returns all registered nodes ordered by FQDN.
// Returns empty slice if no nodes exist.
func (s *SQLiteStorage) ListNodes(ctx context.Context) ([]*Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fqdn, environment, role, configuration_id, created_at, updated_at
		FROM nodes ORDER BY fqdn ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var nodes []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	if nodes == nil {
		nodes = make([]*Node, 0)
	}

	return nodes, nil
}

// AssignNodeConfiguration sets the node's configuration reference.
// Returns ErrNotFound if the node doesn't exist.
func (s *SQLiteStorage) AssignNodeConfiguration(ctx context.Context, nodeID, configurationID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE nodes SET configuration_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		configurationID, nodeID)
	if err != nil {
		return fmt.Errorf("failed to assign configuration: %w", err)
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

// UpdateNodeAttributes sets the node's environment and role scope attributes.
// Returns ErrNotFound if the node doesn't exist.
func (s *SQLiteStorage) UpdateNodeAttributes(ctx context.Context, nodeID, environment, role string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE nodes SET environment = ?, role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		environment, role, nodeID)
	if err != nil {
		return fmt.Errorf("failed to update node attributes: %w", err)
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

func scanNode(row rowScanner) (*Node, error) {
	var (
		n        Node
		configID sql.NullString
	)

	err := row.Scan(&n.ID, &n.FQDN, &n.Environment, &n.Role, &configID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan node row: %w", err)
	}

	if configID.Valid {
		n.ConfigurationID = configID.String
	}

	return &n, nil
}
