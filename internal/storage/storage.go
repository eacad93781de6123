// Package storage provides types and interfaces for SQLite persistence operations.
package storage

import (
	"context"
)

// Storage defines the interface for SQLite persistence operations.
type Storage interface {
	// Registration key operations
	SetRegistrationKeyHash(ctx context.Context, hash, salt string) error
	GetRegistrationKeyHash(ctx context.Context) (hash, salt string, err error)

	// Account operations
	CreateAccount(ctx context.Context, account *Account) error
	GetAccountByID(ctx context.Context, id string) (*Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*Account, error)
	UpdateAccountPassword(ctx context.Context, id, hash, salt string) error
	DeactivateAccount(ctx context.Context, id string) error

	// Token operations
	CreateToken(ctx context.Context, token *Token) (*Token, error)
	GetTokenByHash(ctx context.Context, tokenHash string) (*Token, error)
	GetTokenByID(ctx context.Context, id int64) (*Token, error)
	ListTokensForAccount(ctx context.Context, accountID string) ([]*Token, error)
	RevokeToken(ctx context.Context, id int64, accountID string) error
	TouchToken(ctx context.Context, id int64) error

	// Node operations
	CreateNode(ctx context.Context, node *Node) error
	GetNodeByID(ctx context.Context, id string) (*Node, error)
	GetNodeByFQDN(ctx context.Context, fqdn string) (*Node, error)
	ListNodes(ctx context.Context) ([]*Node, error)
	AssignNodeConfiguration(ctx context.Context, nodeID, configurationID string) error
	UpdateNodeAttributes(ctx context.Context, nodeID, environment, role string) error

	// Configuration operations
	CreateConfiguration(ctx context.Context, cfg *Configuration) error
	GetConfigurationByID(ctx context.Context, id string) (*Configuration, error)
	GetConfigurationByName(ctx context.Context, name string) (*Configuration, error)
	ListConfigurations(ctx context.Context) ([]*Configuration, error)
	AddConfigurationVersion(ctx context.Context, v *ConfigurationVersion) (*ConfigurationVersion, error)
	ListConfigurationVersions(ctx context.Context, configurationID string) ([]*ConfigurationVersion, error)

	// Parameter file operations
	UpsertParameterFile(ctx context.Context, pf *ParameterFile) (*ParameterFile, error)
	GetParameterFile(ctx context.Context, configurationID, scopeType, scopeValue, version string) (*ParameterFile, error)
	ListParameterFiles(ctx context.Context, configurationID string) ([]*ParameterFile, error)
	ListActiveParameterFiles(ctx context.Context, configurationID string) ([]*ParameterFile, error)
	ActivateParameterFile(ctx context.Context, configurationID, scopeType, scopeValue, version string) (*ParameterFile, error)
	DeleteParameterFile(ctx context.Context, configurationID, scopeType, scopeValue, version string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
