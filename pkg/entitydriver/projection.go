package entitydriver

import (
	"context"

	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

// Project flattens an entity into a record: its native field values, a
// MetaKey block, and for every entity-reference field the metadata of the
// referenced entities in place of the raw reference data.
func (d *Driver) Project(ctx context.Context, e types.Entity) (types.Record, error) {
	record := types.Record(e.ToMap())
	if record == nil {
		record = types.Record{}
	}
	record[types.MetaKey] = d.DeriveMeta(e).Map()
	if !e.Fieldable() {
		return record, nil
	}
	if err := d.expandReferences(ctx, e, record); err != nil {
		return nil, err
	}
	return record, nil
}

// DeriveMeta computes the metadata block for an entity. A link template
// whose URL cannot be generated gets a nil entry; the remaining templates
// are unaffected.
func (d *Driver) DeriveMeta(e types.Entity) types.Meta {
	meta := types.Meta{
		ID:         e.ID(),
		Label:      e.Label(),
		EntityType: e.EntityTypeID(),
		Bundle:     e.Bundle(),
	}
	if rev, ok := e.RevisionID(); ok {
		meta.RevisionID = types.Some(rev)
	}
	if name, ok := e.DisplayName(); ok {
		meta.DisplayName = types.Some(name)
	}

	templates := e.LinkTemplates()
	meta.Links = make(map[string]*string, len(templates))
	for _, name := range templates {
		url, err := e.URL(name)
		if err != nil {
			d.logger.Debug("link generation failed",
				"entity_type", meta.EntityType, "id", meta.ID, "link", name, "error", err)
			meta.Links[name] = nil
			continue
		}
		meta.Links[name] = &url
	}
	return meta
}

// expandReferences replaces each entity-reference field value in record
// with the metadata of the currently resolvable referenced entities.
// Scalar fields keep the value produced by the native conversion.
func (d *Driver) expandReferences(ctx context.Context, e types.Entity, record types.Record) error {
	for _, def := range e.FieldDefinitions() {
		if def.Kind() != types.FieldEntityReference {
			continue
		}
		refs, err := e.ReferencedEntities(ctx, def.Name)
		if err != nil {
			return err
		}
		metas := make([]any, 0, len(refs))
		for _, ref := range refs {
			metas = append(metas, d.DeriveMeta(ref).Map())
		}
		record[def.Name] = metas
	}
	return nil
}
