package storage

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicate is returned when attempting to create a resource that
	// already exists (unique name, fqdn, or version).
	ErrDuplicate = errors.New("resource already exists")

	// ErrConflict is returned when an operation would violate a lifecycle
	// invariant, such as deleting or overwriting an active parameter version.
	ErrConflict = errors.New("operation conflicts with resource state")
)
