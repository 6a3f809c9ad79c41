package types

// MetaKey is the reserved record key holding the entity metadata.
const MetaKey = "_meta"

// Record is the flat, serialisable projection of an entity: field name to
// field value(s), plus the MetaKey entry.
type Record map[string]any

// Meta returns the record's metadata block, or nil if it has none.
func (r Record) Meta() map[string]any {
	m, _ := r[MetaKey].(map[string]any)
	return m
}

// Optional is a value that may be absent.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// Meta is the metadata derived for one entity.
type Meta struct {
	ID          any
	Label       string
	EntityType  string
	Bundle      string
	RevisionID  Optional[any]
	DisplayName Optional[string]
	// Links maps link template names to URLs. A nil URL means generation
	// failed for that template.
	Links map[string]*string
}

// Map converts the metadata to plain data. revision_id and display_name
// are present only when set; failed links map to nil.
func (m Meta) Map() map[string]any {
	out := map[string]any{
		"id":          m.ID,
		"label":       m.Label,
		"entity_type": m.EntityType,
		"bundle":      m.Bundle,
	}
	if v, ok := m.RevisionID.Get(); ok {
		out["revision_id"] = v
	}
	if v, ok := m.DisplayName.Get(); ok {
		out["display_name"] = v
	}
	links := make(map[string]any, len(m.Links))
	for name, url := range m.Links {
		if url == nil {
			links[name] = nil
			continue
		}
		links[name] = *url
	}
	out["links"] = links
	return out
}
