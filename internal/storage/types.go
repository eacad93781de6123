package storage

import "time"

// Account represents a user or service identity.
// Accounts are never physically deleted, only deactivated.
type Account struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	PasswordSalt   string
	AccountType    string // "user" or "service"
	Active         bool
	EmailConfirmed bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Account types.
const (
	AccountTypeUser    = "user"
	AccountTypeService = "service"
)

// Token represents a personal access token. Only the SHA-256 hash of the raw
// token is stored; the raw value is shown to the caller exactly once.
type Token struct {
	ID         int64
	AccountID  string
	Name       string
	TokenHash  string
	Scopes     []string
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	Revoked    bool
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// Node represents a registered fleet member, identified by its FQDN.
// Environment and Role are the node's scope attributes; empty means unset.
type Node struct {
	ID              string
	FQDN            string
	Environment     string
	Role            string
	ConfigurationID string // empty when no configuration is assigned
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Configuration represents a named configuration with an append-only version
// history.
type Configuration struct {
	ID            string
	Name          string
	Description   string
	EntryPoint    string
	ServerManaged bool
	CreatedAt     time.Time
}

// ConfigurationVersion is an immutable content-addressed artifact of a
// configuration. Checksum is the SHA-256 of Content.
type ConfigurationVersion struct {
	ID              int64
	ConfigurationID string
	Version         string
	Content         []byte
	Checksum        string
	CreatedAt       time.Time
}

// ParameterFile is a versioned parameter overlay for a (scope type,
// scope value, configuration) tuple. An empty ScopeValue means the file
// applies to the whole scope level. At most one version per tuple is active.
type ParameterFile struct {
	ID              int64
	ConfigurationID string
	ScopeType       string
	ScopeValue      string
	Version         string
	Content         []byte
	ContentType     string
	Checksum        string
	IsDraft         bool
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
