// Package registry implements node registration and configuration
// assignment. Registration is gated by the fleet registration key and is
// idempotent per FQDN so agents can safely re-register on every boot.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nodewise/configplane/internal/auth"
	"github.com/nodewise/configplane/internal/storage"
)

// Store is the subset of storage the registry needs.
type Store interface {
	CreateNode(ctx context.Context, node *storage.Node) error
	GetNodeByID(ctx context.Context, id string) (*storage.Node, error)
	GetNodeByFQDN(ctx context.Context, fqdn string) (*storage.Node, error)
	ListNodes(ctx context.Context) ([]*storage.Node, error)
	AssignNodeConfiguration(ctx context.Context, nodeID, configurationID string) error
	UpdateNodeAttributes(ctx context.Context, nodeID, environment, role string) error
	GetConfigurationByName(ctx context.Context, name string) (*storage.Configuration, error)
}

// Registry manages fleet membership.
type Registry struct {
	store     Store
	validator *auth.KeyValidator
	logger    *slog.Logger
}

// New creates a registry.
func New(store Store, validator *auth.KeyValidator, logger *slog.Logger) *Registry {
	return &Registry{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// Register enrolls a node identified by FQDN. The caller must present the
// fleet registration key; auth.ErrInvalidKey is returned otherwise. When the
// FQDN is already registered the existing node is returned unchanged, so
// agents never need to track whether they registered before.
func (r *Registry) Register(ctx context.Context, fqdn, environment, role, registrationKey string) (*storage.Node, error) {
	if err := r.validator.ValidateKey(ctx, registrationKey); err != nil {
		r.logger.Warn("node registration rejected", "fqdn", fqdn)
		return nil, err
	}

	node := &storage.Node{
		ID:          uuid.NewString(),
		FQDN:        fqdn,
		Environment: environment,
		Role:        role,
	}

	err := r.store.CreateNode(ctx, node)
	if errors.Is(err, storage.ErrDuplicate) {
		existing, getErr := r.store.GetNodeByFQDN(ctx, fqdn)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load existing node: %w", getErr)
		}
		r.logger.Info("node re-registered", "fqdn", fqdn, "node_id", existing.ID)
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to register node: %w", err)
	}

	r.logger.Info("node registered", "fqdn", fqdn, "node_id", node.ID,
		"environment", environment, "role", role)
	return node, nil
}

// Get returns a node by ID.
func (r *Registry) Get(ctx context.Context, id string) (*storage.Node, error) {
	return r.store.GetNodeByID(ctx, id)
}

// List returns all registered nodes ordered by FQDN.
func (r *Registry) List(ctx context.Context) ([]*storage.Node, error) {
	return r.store.ListNodes(ctx)
}

// AssignConfiguration points a node at a configuration by name.
// Returns storage.ErrNotFound when either side does not exist.
func (r *Registry) AssignConfiguration(ctx context.Context, nodeID, configurationName string) (*storage.Node, error) {
	cfg, err := r.store.GetConfigurationByName(ctx, configurationName)
	if err != nil {
		return nil, err
	}

	if err := r.store.AssignNodeConfiguration(ctx, nodeID, cfg.ID); err != nil {
		return nil, err
	}

	r.logger.Info("configuration assigned", "node_id", nodeID, "configuration", configurationName)
	return r.store.GetNodeByID(ctx, nodeID)
}

// UpdateAttributes changes a node's environment and role, which shifts the
// parameter overlays that apply to it on the next resolution.
func (r *Registry) UpdateAttributes(ctx context.Context, nodeID, environment, role string) (*storage.Node, error) {
	if err := r.store.UpdateNodeAttributes(ctx, nodeID, environment, role); err != nil {
		return nil, err
	}

	return r.store.GetNodeByID(ctx, nodeID)
}
