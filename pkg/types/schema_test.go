package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validNode() EntityTypeDefinition {
	return EntityTypeDefinition{
		ID:             "node",
		LabelField:     "title",
		BundleKey:      "type",
		Bundles:        []string{"article", "page"},
		DefaultBundle:  "article",
		Revisionable:   true,
		Fieldable:      true,
		PublishedField: "status",
		LinkTemplates:  map[string]string{"edit-form": "/node/{node}/edit", "canonical": "/node/{node}"},
		Fields: []FieldDefinition{
			{Name: "title", Type: FieldTypeString},
			{Name: "status", Type: FieldTypeBoolean},
			{Name: "uid", Type: FieldTypeEntityReference, TargetType: "user"},
			{Name: "body", Type: FieldTypeText, Bundles: []string{"page"}},
		},
	}
}

func TestFieldDefinition(t *testing.T) {
	single := FieldDefinition{Name: "a", Type: FieldTypeString}
	assert.Equal(t, FieldScalar, single.Kind())
	assert.False(t, single.Multiple())
	assert.True(t, single.Accepts(1))
	assert.False(t, single.Accepts(2))

	capped := FieldDefinition{Name: "b", Type: FieldTypeInteger, Cardinality: 3}
	assert.True(t, capped.Multiple())
	assert.True(t, capped.Accepts(3))
	assert.False(t, capped.Accepts(4))

	ref := FieldDefinition{Name: "c", Type: FieldTypeEntityReference, TargetType: "user", Cardinality: CardinalityUnlimited}
	assert.Equal(t, FieldEntityReference, ref.Kind())
	assert.True(t, ref.Accepts(100))
	assert.Equal(t, "entity_reference", ref.Kind().String())
}

func TestEntityTypeDefinition(t *testing.T) {
	d := validNode()

	assert.NoError(t, d.Validate())
	assert.Equal(t, []string{"canonical", "edit-form"}, d.LinkTemplateNames())
	assert.Equal(t, "article", d.FallbackBundle())
	assert.True(t, d.HasBundle("page"))
	assert.False(t, d.HasBundle("node"))
	assert.Len(t, d.FieldsForBundle("article"), 3)
	assert.Len(t, d.FieldsForBundle("page"), 4)

	_, ok := d.Field("uid")
	assert.True(t, ok)

	menu := EntityTypeDefinition{ID: "menu"}
	assert.Equal(t, "menu", menu.FallbackBundle())
	assert.True(t, menu.HasBundle("menu"))
}

func TestEntityTypeDefinitionValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *EntityTypeDefinition)
	}{
		{"empty id", func(d *EntityTypeDefinition) { d.ID = "" }},
		{"undeclared default bundle", func(d *EntityTypeDefinition) { d.DefaultBundle = "blog" }},
		{"reserved field name", func(d *EntityTypeDefinition) { d.Fields[0].Name = "uuid" }},
		{"field named like bundle key", func(d *EntityTypeDefinition) { d.Fields[0].Name = "type" }},
		{"duplicate field", func(d *EntityTypeDefinition) { d.Fields[1].Name = "title" }},
		{"unknown field type", func(d *EntityTypeDefinition) { d.Fields[0].Type = "blob" }},
		{"reference without target", func(d *EntityTypeDefinition) { d.Fields[2].TargetType = "" }},
		{"bad cardinality", func(d *EntityTypeDefinition) { d.Fields[0].Cardinality = -2 }},
		{"missing label field", func(d *EntityTypeDefinition) { d.LabelField = "name" }},
		{"non-boolean published field", func(d *EntityTypeDefinition) { d.PublishedField = "title" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validNode()
			tt.mutate(&d)
			assert.ErrorIs(t, d.Validate(), ErrInvalidSchema)
		})
	}
}

func TestSchemaValidate(t *testing.T) {
	user := EntityTypeDefinition{ID: "user", LabelField: "name", Fields: []FieldDefinition{{Name: "name", Type: FieldTypeString}}}

	assert.NoError(t, Schema{EntityTypes: []EntityTypeDefinition{validNode(), user}}.Validate())
	assert.ErrorIs(t, Schema{EntityTypes: []EntityTypeDefinition{validNode()}}.Validate(), ErrInvalidSchema, "missing reference target")
	assert.ErrorIs(t, Schema{EntityTypes: []EntityTypeDefinition{user, user}}.Validate(), ErrInvalidSchema, "duplicate type")
}
