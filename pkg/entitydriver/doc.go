// Package entitydriver is a thin access layer over an entity subsystem.
//
// A Driver creates, loads and queries entities through an injected
// types.EntityTypeManager and flattens each entity, its computed metadata
// and the metadata of the entities it references into a types.Record made
// only of maps, slices and scalars, ready for serialisation.
//
// The driver holds no state between calls and adds nothing to backend
// errors: whatever the backend returns is returned to the caller as is. The
// one failure it absorbs is URL generation for a single link template,
// which is recorded as a nil link.
//
// Queries always run with entity access checks disabled. Callers must gate
// who may reach a Driver.
//
//	backend := sqlite.NewBackend(nil)
//	if err := backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}); err != nil {
//	    return err
//	}
//	defer backend.Detach()
//
//	d := entitydriver.New(backend)
//	rec, err := d.Create(ctx, "node", map[string]any{"title": "Hello"})
package entitydriver
