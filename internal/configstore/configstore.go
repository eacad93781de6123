// Package configstore implements the configuration catalog: named
// configurations with append-only version histories, and the versioned
// parameter overlays attached to them.
package configstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nodewise/configplane/internal/resolve"
	"github.com/nodewise/configplane/internal/scope"
	"github.com/nodewise/configplane/internal/storage"
)

// Store is the subset of storage the catalog needs.
type Store interface {
	CreateConfiguration(ctx context.Context, cfg *storage.Configuration) error
	GetConfigurationByID(ctx context.Context, id string) (*storage.Configuration, error)
	GetConfigurationByName(ctx context.Context, name string) (*storage.Configuration, error)
	ListConfigurations(ctx context.Context) ([]*storage.Configuration, error)
	AddConfigurationVersion(ctx context.Context, v *storage.ConfigurationVersion) (*storage.ConfigurationVersion, error)
	ListConfigurationVersions(ctx context.Context, configurationID string) ([]*storage.ConfigurationVersion, error)

	UpsertParameterFile(ctx context.Context, pf *storage.ParameterFile) (*storage.ParameterFile, error)
	GetParameterFile(ctx context.Context, configurationID, scopeType, scopeValue, version string) (*storage.ParameterFile, error)
	ListParameterFiles(ctx context.Context, configurationID string) ([]*storage.ParameterFile, error)
	ActivateParameterFile(ctx context.Context, configurationID, scopeType, scopeValue, version string) (*storage.ParameterFile, error)
	DeleteParameterFile(ctx context.Context, configurationID, scopeType, scopeValue, version string) error
}

// ConfigStore is the configuration catalog service.
type ConfigStore struct {
	store  Store
	logger *slog.Logger
}

// New creates a catalog service.
func New(store Store, logger *slog.Logger) *ConfigStore {
	return &ConfigStore{store: store, logger: logger}
}

// Checksum returns the hex SHA-256 of content. Versions and parameter files
// store it so clients can verify downloads.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Create registers a new named configuration.
// Returns storage.ErrDuplicate when the name is taken.
func (c *ConfigStore) Create(ctx context.Context, name, description, entryPoint string, serverManaged bool) (*storage.Configuration, error) {
	cfg := &storage.Configuration{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   description,
		EntryPoint:    entryPoint,
		ServerManaged: serverManaged,
	}
	if err := c.store.CreateConfiguration(ctx, cfg); err != nil {
		return nil, err
	}

	c.logger.Info("configuration created", "name", name, "configuration_id", cfg.ID)
	return cfg, nil
}

// Get returns a configuration by ID.
func (c *ConfigStore) Get(ctx context.Context, id string) (*storage.Configuration, error) {
	return c.store.GetConfigurationByID(ctx, id)
}

// GetByName returns a configuration by its unique name.
func (c *ConfigStore) GetByName(ctx context.Context, name string) (*storage.Configuration, error) {
	return c.store.GetConfigurationByName(ctx, name)
}

// List returns all configurations ordered by name.
func (c *ConfigStore) List(ctx context.Context) ([]*storage.Configuration, error) {
	return c.store.ListConfigurations(ctx)
}

// AddVersion appends an immutable version to a configuration's history,
// computing its checksum. Version strings cannot be reused;
// storage.ErrDuplicate is returned on a second upload of the same version.
func (c *ConfigStore) AddVersion(ctx context.Context, configurationID, version string, content []byte) (*storage.ConfigurationVersion, error) {
	if _, err := c.store.GetConfigurationByID(ctx, configurationID); err != nil {
		return nil, err
	}

	stored, err := c.store.AddConfigurationVersion(ctx, &storage.ConfigurationVersion{
		ConfigurationID: configurationID,
		Version:         version,
		Content:         content,
		Checksum:        Checksum(content),
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("configuration version added",
		"configuration_id", configurationID, "version", version, "checksum", stored.Checksum)
	return stored, nil
}

// ListVersions returns a configuration's version history, newest first.
func (c *ConfigStore) ListVersions(ctx context.Context, configurationID string) ([]*storage.ConfigurationVersion, error) {
	if _, err := c.store.GetConfigurationByID(ctx, configurationID); err != nil {
		return nil, err
	}
	return c.store.ListConfigurationVersions(ctx, configurationID)
}

// UploadParameters stores a parameter file version, as a draft by default.
// The scope type must be a known level and the content must parse under the declared
// content type; resolve.ErrInvalidContent is returned otherwise, so broken
// overlays are rejected at upload rather than at resolution.
// Re-uploading a draft version replaces it; an active version is immutable
// and yields storage.ErrConflict.
func (c *ConfigStore) UploadParameters(ctx context.Context, configurationID, scopeType, scopeValue, version, contentType string, content []byte, isDraft bool) (*storage.ParameterFile, error) {
	if _, err := c.store.GetConfigurationByID(ctx, configurationID); err != nil {
		return nil, err
	}

	st, err := scope.Parse(scopeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", resolve.ErrInvalidContent, err)
	}
	if st == scope.Global && scopeValue != "" {
		return nil, fmt.Errorf("%w: global scope takes no scope value", resolve.ErrInvalidContent)
	}

	if err := resolve.CheckContent(content, contentType); err != nil {
		return nil, err
	}

	pf, err := c.store.UpsertParameterFile(ctx, &storage.ParameterFile{
		ConfigurationID: configurationID,
		ScopeType:       string(st),
		ScopeValue:      scopeValue,
		Version:         version,
		Content:         content,
		ContentType:     contentType,
		Checksum:        Checksum(content),
		IsDraft:         isDraft,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("parameter file uploaded", "configuration_id", configurationID,
		"scope_type", scopeType, "scope_value", scopeValue, "version", version)
	return pf, nil
}

// GetParameters returns one parameter file version.
func (c *ConfigStore) GetParameters(ctx context.Context, configurationID, scopeType, scopeValue, version string) (*storage.ParameterFile, error) {
	return c.store.GetParameterFile(ctx, configurationID, scopeType, scopeValue, version)
}

// ListParameters returns every parameter file version of a configuration.
func (c *ConfigStore) ListParameters(ctx context.Context, configurationID string) ([]*storage.ParameterFile, error) {
	if _, err := c.store.GetConfigurationByID(ctx, configurationID); err != nil {
		return nil, err
	}
	return c.store.ListParameterFiles(ctx, configurationID)
}

// ActivateParameters makes one version the active one for its scope tuple,
// superseding any previously active version in the same transaction.
func (c *ConfigStore) ActivateParameters(ctx context.Context, configurationID, scopeType, scopeValue, version string) (*storage.ParameterFile, error) {
	pf, err := c.store.ActivateParameterFile(ctx, configurationID, scopeType, scopeValue, version)
	if err != nil {
		return nil, err
	}

	c.logger.Info("parameter file activated", "configuration_id", configurationID,
		"scope_type", scopeType, "scope_value", scopeValue, "version", version)
	return pf, nil
}

// DeleteParameters removes an inactive parameter file version. Active
// versions cannot be deleted; deactivate by activating a successor first.
func (c *ConfigStore) DeleteParameters(ctx context.Context, configurationID, scopeType, scopeValue, version string) error {
	err := c.store.DeleteParameterFile(ctx, configurationID, scopeType, scopeValue, version)
	if errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("%w: version is active", storage.ErrConflict)
	}
	return err
}
