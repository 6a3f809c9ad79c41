// Package types defines the entity subsystem contracts consumed by the
// entity driver: the EntityTypeManager, Storage, QueryBuilder and Entity
// interfaces, the entity type schema, the plain-data Record and Meta
// projections, configuration, and the standard sentinel errors.
//
// Backends implement the interfaces; the entitydriver package only ever
// talks to them through this package.
package types
