package types

import "context"

// Entity is a backend-managed structured record of a given type and bundle.
//
// Capabilities that only some entity types have (revisions, accounts,
// fields) are exposed as explicit checks rather than separate interfaces,
// so callers never need to type-assert.
type Entity interface {
	// ID returns the entity id, or nil for an unsaved entity.
	ID() any

	// Label returns the human-readable label.
	Label() string

	// EntityTypeID returns the entity type id, e.g. "node".
	EntityTypeID() string

	// Bundle returns the bundle (sub-type) id.
	Bundle() string

	// RevisionID returns the current revision id. ok is false when the
	// entity type is not revisionable.
	RevisionID() (id any, ok bool)

	// DisplayName returns the account display name. ok is false when the
	// entity is not an account.
	DisplayName() (name string, ok bool)

	// LinkTemplates returns the link template names declared by the entity
	// type.
	LinkTemplates() []string

	// URL generates the URL for the named link template.
	URL(linkName string) (string, error)

	// Fieldable reports whether the entity type has a field system.
	Fieldable() bool

	// FieldDefinitions returns the field definitions of the entity's bundle.
	// Nil for non-fieldable entities.
	FieldDefinitions() []FieldDefinition

	// ToMap converts the entity to its native flat field/value mapping.
	ToMap() map[string]any

	// ReferencedEntities resolves the entities referenced by the named
	// entity-reference field. Targets that no longer exist are omitted.
	ReferencedEntities(ctx context.Context, fieldName string) ([]Entity, error)
}
