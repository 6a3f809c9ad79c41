package types

import (
	"errors"
	"fmt"
	"slices"
)

// Field types determine how a field's values are normalised and stored.
const (
	FieldTypeString          = "string"
	FieldTypeText            = "text"
	FieldTypeInteger         = "integer"
	FieldTypeFloat           = "float"
	FieldTypeBoolean         = "boolean"
	FieldTypeEntityReference = "entity_reference"
)

// validFieldTypes is the set of recognized field types.
var validFieldTypes = map[string]bool{
	FieldTypeString:          true,
	FieldTypeText:            true,
	FieldTypeInteger:         true,
	FieldTypeFloat:           true,
	FieldTypeBoolean:         true,
	FieldTypeEntityReference: true,
}

// CardinalityUnlimited marks a field that accepts any number of values.
const CardinalityUnlimited = -1

// FieldKind tags a field as holding scalar values or entity references.
type FieldKind int

const (
	// FieldScalar holds plain values (strings, numbers, booleans).
	FieldScalar FieldKind = iota
	// FieldEntityReference holds references to other entities.
	FieldEntityReference
)

func (k FieldKind) String() string {
	switch k {
	case FieldScalar:
		return "scalar"
	case FieldEntityReference:
		return "entity_reference"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// FieldDefinition describes one configurable field of an entity type.
type FieldDefinition struct {
	Name  string `yaml:"name" json:"name"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
	Type  string `yaml:"type" json:"type"`
	// TargetType is the referenced entity type for entity_reference fields.
	TargetType string `yaml:"target_type,omitempty" json:"target_type,omitempty"`
	// Cardinality is the maximum number of values; 0 and 1 both mean a
	// single value, CardinalityUnlimited means no limit.
	Cardinality int `yaml:"cardinality,omitempty" json:"cardinality,omitempty"`
	// Bundles restricts the field to the listed bundles. Empty means all.
	Bundles []string `yaml:"bundles,omitempty" json:"bundles,omitempty"`
}

// Kind returns the field's kind tag.
func (f FieldDefinition) Kind() FieldKind {
	if f.Type == FieldTypeEntityReference {
		return FieldEntityReference
	}
	return FieldScalar
}

// Multiple reports whether the field accepts more than one value.
func (f FieldDefinition) Multiple() bool {
	return f.Cardinality == CardinalityUnlimited || f.Cardinality > 1
}

// Accepts reports whether n values fit the field's cardinality.
func (f FieldDefinition) Accepts(n int) bool {
	switch {
	case f.Cardinality == CardinalityUnlimited:
		return true
	case f.Cardinality <= 1:
		return n <= 1
	default:
		return n <= f.Cardinality
	}
}

// InBundle reports whether the field is attached to the given bundle.
func (f FieldDefinition) InBundle(bundle string) bool {
	return len(f.Bundles) == 0 || slices.Contains(f.Bundles, bundle)
}

// EntityTypeDefinition describes an entity type: its keys, capabilities,
// link templates and fields.
type EntityTypeDefinition struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
	// LabelField names the field whose first value is the entity label.
	LabelField string `yaml:"label_field" json:"label_field"`
	// BundleKey is the name under which the bundle appears in values and
	// records. Types without bundles use the entity type id as bundle.
	BundleKey     string   `yaml:"bundle_key,omitempty" json:"bundle_key,omitempty"`
	Bundles       []string `yaml:"bundles,omitempty" json:"bundles,omitempty"`
	DefaultBundle string   `yaml:"default_bundle,omitempty" json:"default_bundle,omitempty"`
	Revisionable  bool     `yaml:"revisionable,omitempty" json:"revisionable,omitempty"`
	Account       bool     `yaml:"account,omitempty" json:"account,omitempty"`
	Fieldable     bool     `yaml:"fieldable,omitempty" json:"fieldable,omitempty"`
	// PublishedField names a boolean field; access-checked queries only
	// return entities where it is true.
	PublishedField string            `yaml:"published_field,omitempty" json:"published_field,omitempty"`
	LinkTemplates  map[string]string `yaml:"links,omitempty" json:"links,omitempty"`
	Fields         []FieldDefinition `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Field returns the named field definition.
func (d EntityTypeDefinition) Field(name string) (FieldDefinition, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// FieldsForBundle returns the field definitions attached to bundle, in
// declaration order.
func (d EntityTypeDefinition) FieldsForBundle(bundle string) []FieldDefinition {
	out := make([]FieldDefinition, 0, len(d.Fields))
	for _, f := range d.Fields {
		if f.InBundle(bundle) {
			out = append(out, f)
		}
	}
	return out
}

// HasBundle reports whether bundle is valid for this entity type.
func (d EntityTypeDefinition) HasBundle(bundle string) bool {
	if len(d.Bundles) == 0 {
		return bundle == d.ID
	}
	return slices.Contains(d.Bundles, bundle)
}

// FallbackBundle returns the bundle used when none is given on create.
func (d EntityTypeDefinition) FallbackBundle() string {
	switch {
	case d.DefaultBundle != "":
		return d.DefaultBundle
	case len(d.Bundles) > 0:
		return d.Bundles[0]
	default:
		return d.ID
	}
}

// LinkTemplateNames returns the declared link template names, sorted.
func (d EntityTypeDefinition) LinkTemplateNames() []string {
	names := make([]string, 0, len(d.LinkTemplates))
	for name := range d.LinkTemplates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks the definition in isolation. Cross-type references are
// checked by Schema.Validate.
func (d EntityTypeDefinition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: entity type id must not be empty", ErrInvalidSchema)
	}
	if d.DefaultBundle != "" && !d.HasBundle(d.DefaultBundle) {
		return fmt.Errorf("%w: %s: default bundle %q is not declared", ErrInvalidSchema, d.ID, d.DefaultBundle)
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s: field name must not be empty", ErrInvalidSchema, d.ID)
		}
		if reservedFieldNames[f.Name] || f.Name == d.BundleKey {
			return fmt.Errorf("%w: %s: field name %q is reserved", ErrInvalidSchema, d.ID, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidSchema, d.ID, f.Name)
		}
		seen[f.Name] = true
		if !validFieldTypes[f.Type] {
			return fmt.Errorf("%w: %s.%s: unknown field type %q", ErrInvalidSchema, d.ID, f.Name, f.Type)
		}
		if f.Kind() == FieldEntityReference && f.TargetType == "" {
			return fmt.Errorf("%w: %s.%s: entity_reference needs target_type", ErrInvalidSchema, d.ID, f.Name)
		}
		if f.Cardinality < CardinalityUnlimited {
			return fmt.Errorf("%w: %s.%s: invalid cardinality %d", ErrInvalidSchema, d.ID, f.Name, f.Cardinality)
		}
	}
	if d.LabelField != "" && !seen[d.LabelField] {
		return fmt.Errorf("%w: %s: label field %q is not defined", ErrInvalidSchema, d.ID, d.LabelField)
	}
	if d.PublishedField != "" {
		f, ok := d.Field(d.PublishedField)
		if !ok || f.Type != FieldTypeBoolean {
			return fmt.Errorf("%w: %s: published field %q must be a boolean field", ErrInvalidSchema, d.ID, d.PublishedField)
		}
	}
	return nil
}

// Base field names every entity carries. Configured fields may not reuse them.
const (
	BaseFieldID         = "id"
	BaseFieldUUID       = "uuid"
	BaseFieldRevisionID = "revision_id"
	BaseFieldLangcode   = "langcode"
)

var reservedFieldNames = map[string]bool{
	BaseFieldID:         true,
	BaseFieldUUID:       true,
	BaseFieldRevisionID: true,
	BaseFieldLangcode:   true,
	MetaKey:             true,
}

// Schema is the set of entity types a backend serves.
type Schema struct {
	EntityTypes []EntityTypeDefinition `yaml:"entity_types" json:"entity_types"`
}

// Validate checks every definition and that entity_reference targets exist.
func (s Schema) Validate() error {
	ids := make(map[string]bool, len(s.EntityTypes))
	for _, d := range s.EntityTypes {
		if err := d.Validate(); err != nil {
			return err
		}
		if ids[d.ID] {
			return fmt.Errorf("%w: duplicate entity type %q", ErrInvalidSchema, d.ID)
		}
		ids[d.ID] = true
	}
	for _, d := range s.EntityTypes {
		for _, f := range d.Fields {
			if f.Kind() == FieldEntityReference && !ids[f.TargetType] {
				return fmt.Errorf("%w: %s.%s: target type %q is not defined", ErrInvalidSchema, d.ID, f.Name, f.TargetType)
			}
		}
	}
	return nil
}

// ErrInvalidSchema is returned for malformed entity type definitions.
var ErrInvalidSchema = errors.New("invalid entity type schema")
