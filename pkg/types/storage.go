package types

import (
	"context"
	"errors"
)

// Storage provides the create, load and query operations for a single
// entity type.
type Storage interface {
	// EntityTypeID returns the id of the entity type this storage serves.
	EntityTypeID() string

	// Create instantiates a new, unsaved entity from the given field values.
	// Values are validated against the entity type schema.
	Create(values map[string]any) (Entity, error)

	// Save persists the entity. New entities receive their id on save.
	Save(ctx context.Context, e Entity) error

	// LoadMultiple loads the entities with the given ids. Ids that do not
	// exist are simply absent from the result. The result is in the
	// backend's native order, which need not match the order of ids.
	LoadMultiple(ctx context.Context, ids []any) ([]Entity, error)

	// Query starts an entity query whose conditions are combined with
	// the given conjunction.
	Query(conjunction Conjunction) QueryBuilder
}

// QueryBuilder is a chainable entity query. Errors from building the query
// (unknown field, invalid operator) surface from Execute.
type QueryBuilder interface {
	// Condition adds a condition. An empty operator means equality; an
	// empty langcode means any language.
	Condition(field string, value any, operator string, langcode string) QueryBuilder

	// AccessCheck toggles entity access checking for the query.
	AccessCheck(enabled bool) QueryBuilder

	// Execute runs the query and returns the matching entity ids in the
	// backend's execution order.
	Execute(ctx context.Context) ([]any, error)
}

// Storage and query errors.
var (
	ErrInvalidData        = errors.New("invalid entity data")
	ErrUnknownField       = errors.New("unknown field")
	ErrInvalidValue       = errors.New("invalid field value")
	ErrCardinality        = errors.New("too many values for field")
	ErrInvalidBundle      = errors.New("invalid bundle")
	ErrInvalidOperator    = errors.New("invalid query operator")
	ErrInvalidConjunction = errors.New("invalid query conjunction")
	ErrLinkGeneration     = errors.New("link generation failed")
)
