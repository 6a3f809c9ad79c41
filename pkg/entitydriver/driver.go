package entitydriver

import (
	"context"
	"io"
	"log/slog"

	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

// Driver is the entity access facade.
type Driver struct {
	manager types.EntityTypeManager
	logger  *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger used for debug output. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New returns a Driver over the given entity type manager.
func New(manager types.EntityTypeManager, opts ...Option) *Driver {
	d := &Driver{
		manager: manager,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Create instantiates an entity of the given type from values, saves it and
// returns its projection. Values are validated by the backend only.
func (d *Driver) Create(ctx context.Context, entityTypeID string, values map[string]any) (types.Record, error) {
	storage, err := d.manager.Storage(entityTypeID)
	if err != nil {
		return nil, err
	}
	entity, err := storage.Create(values)
	if err != nil {
		return nil, err
	}
	if err := storage.Save(ctx, entity); err != nil {
		return nil, err
	}
	d.logger.Debug("entity created", "entity_type", entityTypeID, "id", entity.ID())
	return d.Project(ctx, entity)
}

// LoadOne loads a single entity. ok is false when no entity has that id;
// a missing entity is not an error.
func (d *Driver) LoadOne(ctx context.Context, entityTypeID string, id any) (types.Record, bool, error) {
	records, err := d.LoadMany(ctx, entityTypeID, []any{id})
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	return records[0], true, nil
}

// LoadMany loads and projects the entities with the given ids. Missing ids
// are skipped. Records come back in the backend's load order, which may
// differ from the order of ids; callers that depend on the backend order
// rely on it not being re-sorted here.
func (d *Driver) LoadMany(ctx context.Context, entityTypeID string, ids []any) ([]types.Record, error) {
	storage, err := d.manager.Storage(entityTypeID)
	if err != nil {
		return nil, err
	}
	entities, err := storage.LoadMultiple(ctx, ids)
	if err != nil {
		return nil, err
	}
	records := make([]types.Record, 0, len(entities))
	for _, e := range entities {
		rec, err := d.Project(ctx, e)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	d.logger.Debug("entities loaded", "entity_type", entityTypeID, "requested", len(ids), "found", len(records))
	return records, nil
}

// Query finds entities matching conditions combined with conjunction (the
// zero value means AND) and returns their projections in the order the
// query produced their ids. Access checks are always bypassed. No load
// happens when nothing matches.
func (d *Driver) Query(ctx context.Context, entityTypeID string, conditions []types.Condition, conjunction types.Conjunction) ([]types.Record, error) {
	if conjunction == "" {
		conjunction = types.ConjunctionAnd
	}
	storage, err := d.manager.Storage(entityTypeID)
	if err != nil {
		return nil, err
	}
	q := storage.Query(conjunction)
	for _, c := range conditions {
		q = q.Condition(c.Field, c.Value, c.Operator, c.Langcode)
	}
	ids, err := q.AccessCheck(false).Execute(ctx)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("entity query executed", "entity_type", entityTypeID, "conditions", len(conditions), "conjunction", string(conjunction), "matches", len(ids))
	if len(ids) == 0 {
		return []types.Record{}, nil
	}
	return d.LoadMany(ctx, entityTypeID, ids)
}
