package types

import "errors"

// EntityTypeManager hands out the Storage for an entity type.
// It is the single collaborator the entity driver is constructed with.
type EntityTypeManager interface {
	// Storage returns the Storage for the given entity type id.
	// Returns ErrEntityTypeNotFound if the type is not defined.
	Storage(entityTypeID string) (Storage, error)

	// Definitions lists the entity types known to the backend, ordered
	// by id.
	Definitions() []EntityTypeDefinition
}

// Backend is an EntityTypeManager with an attach/detach lifecycle.
type Backend interface {
	EntityTypeManager

	// Attach connects the backend to the storage described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, Storage returns ErrBackendDetached.
	Detach() error
}

// Backend lifecycle errors.
var (
	ErrBackendDetached    = errors.New("backend is detached")
	ErrAlreadyAttached    = errors.New("backend is already attached")
	ErrEntityTypeNotFound = errors.New("entity type not found")
)
