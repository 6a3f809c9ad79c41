package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

// entityStorage implements types.Storage for one entity type.
type entityStorage struct {
	backend *Backend
	def     *types.EntityTypeDefinition
}

var _ types.Storage = (*entityStorage)(nil)

func newEntityStorage(b *Backend, def *types.EntityTypeDefinition) *entityStorage {
	return &entityStorage{backend: b, def: def}
}

func (s *entityStorage) EntityTypeID() string { return s.def.ID }

// Create builds an unsaved entity from values. The bundle comes from the
// bundle key or falls back to the type's default. Base fields uuid, langcode
// and id may be supplied; revision_id may not.
func (s *entityStorage) Create(values map[string]any) (types.Entity, error) {
	_, config, err := s.backend.handle()
	if err != nil {
		return nil, err
	}

	e := &entity{
		storage:  s,
		def:      s.def,
		isNew:    true,
		bundle:   s.def.FallbackBundle(),
		langcode: config.Langcode(),
		values:   make(map[string][]any),
	}

	if s.def.BundleKey != "" {
		if v, ok := values[s.def.BundleKey]; ok && v != nil {
			b, err := cast.ToStringE(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %v", types.ErrInvalidBundle, s.def.ID, s.def.BundleKey, err)
			}
			e.bundle = b
		}
	}
	if !s.def.HasBundle(e.bundle) {
		return nil, fmt.Errorf("%w: %s has no bundle %q", types.ErrInvalidBundle, s.def.ID, e.bundle)
	}

	for name, v := range values {
		switch {
		case name == s.def.BundleKey:
			continue
		case name == types.BaseFieldID:
			if v == nil {
				continue
			}
			id, err := parseEntityID(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.id: %v", types.ErrInvalidValue, s.def.ID, err)
			}
			e.id = id
		case name == types.BaseFieldUUID:
			if v == nil {
				continue
			}
			u, err := uuid.Parse(cast.ToString(v))
			if err != nil {
				return nil, fmt.Errorf("%w: %s.uuid: %v", types.ErrInvalidValue, s.def.ID, err)
			}
			e.uuid = u.String()
		case name == types.BaseFieldLangcode:
			lc, err := cast.ToStringE(v)
			if err != nil || lc == "" {
				return nil, fmt.Errorf("%w: %s.langcode: %v", types.ErrInvalidValue, s.def.ID, v)
			}
			e.langcode = lc
		case name == types.BaseFieldRevisionID:
			return nil, fmt.Errorf("%w: %s.revision_id is assigned on save", types.ErrInvalidData, s.def.ID)
		default:
			f, ok := s.def.Field(name)
			if !ok || !f.InBundle(e.bundle) {
				return nil, fmt.Errorf("%w: %s.%s", types.ErrUnknownField, s.def.ID, name)
			}
			normalized, err := normalizeFieldValues(s.def, f, v)
			if err != nil {
				return nil, err
			}
			e.values[name] = normalized
		}
	}

	return e, nil
}

// Save inserts or updates the entity and its field values in one
// transaction, then rewrites the JSONL files. New entities get the next
// integer id of their type and a UUID v7; revisionable types gain a new
// revision id on every save.
func (s *entityStorage) Save(ctx context.Context, e types.Entity) error {
	ent, ok := e.(*entity)
	if !ok || ent.def.ID != s.def.ID {
		return fmt.Errorf("%w: %s storage cannot save %T", types.ErrInvalidData, s.def.ID, e)
	}

	db, config, err := s.backend.handle()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	id := ent.id
	entityUUID := ent.uuid
	createdAt := ent.createdAt
	revisionID := ent.revisionID

	if ent.isNew {
		if id == 0 {
			err := tx.QueryRowContext(ctx,
				"SELECT COALESCE(MAX(entity_id), 0) + 1 FROM entities WHERE entity_type = ?", s.def.ID,
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("allocating %s id: %w", s.def.ID, err)
			}
		} else {
			exists, err := entityExists(ctx, tx, s.def.ID, id)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %s %d already exists", types.ErrInvalidData, s.def.ID, id)
			}
		}
		if entityUUID == "" {
			entityUUID = generateUUID()
		}
		createdAt = now
	}
	if s.def.Revisionable {
		revisionID++
	}

	var revision any
	if s.def.Revisionable {
		revision = revisionID
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO entities
    (entity_type, entity_id, uuid, bundle, revision_id, langcode, created_at, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(entity_type, entity_id) DO UPDATE SET
    bundle = excluded.bundle,
    revision_id = excluded.revision_id,
    langcode = excluded.langcode,
    updated_at = excluded.updated_at`,
		s.def.ID, id, entityUUID, ent.bundle, revision, ent.langcode,
		createdAt.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving %s %d: %w", s.def.ID, id, err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM field_values WHERE entity_type = ? AND entity_id = ?", s.def.ID, id,
	); err != nil {
		return fmt.Errorf("clearing %s %d field values: %w", s.def.ID, id, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO field_values
    (entity_type, entity_id, field_name, delta, langcode, value) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing field insert: %w", err)
	}
	defer stmt.Close()

	names := make([]string, 0, len(ent.values))
	for name := range ent.values {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		for delta, v := range ent.values[name] {
			if _, err := stmt.ExecContext(ctx, s.def.ID, id, name, delta, ent.langcode, sqlValue(v)); err != nil {
				return fmt.Errorf("saving %s %d field %s: %w", s.def.ID, id, name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s %d: %w", s.def.ID, id, err)
	}

	ent.id = id
	ent.uuid = entityUUID
	ent.createdAt = createdAt
	ent.updatedAt = now
	ent.revisionID = revisionID
	ent.isNew = false

	if err := persistAllJSONL(db, config.DataDir); err != nil {
		return err
	}

	s.backend.logger.Debug("entity saved", "entity_type", s.def.ID, "id", id, "revision_id", revision)
	return nil
}

// LoadMultiple loads the entities with the given ids in ascending id order.
// Ids that do not parse or do not exist are absent from the result.
func (s *entityStorage) LoadMultiple(ctx context.Context, ids []any) ([]types.Entity, error) {
	db, _, err := s.backend.handle()
	if err != nil {
		return nil, err
	}

	wanted := make([]int64, 0, len(ids))
	for _, raw := range ids {
		id, err := parseEntityID(raw)
		if err != nil {
			continue
		}
		if !slices.Contains(wanted, id) {
			wanted = append(wanted, id)
		}
	}
	if len(wanted) == 0 {
		return []types.Entity{}, nil
	}

	args := make([]any, 0, len(wanted)+1)
	args = append(args, s.def.ID)
	for _, id := range wanted {
		args = append(args, id)
	}
	in := placeholders(len(wanted))

	rows, err := db.QueryContext(ctx, `SELECT entity_id, uuid, bundle, revision_id, langcode, created_at, updated_at
    FROM entities WHERE entity_type = ? AND entity_id IN (`+in+`) ORDER BY entity_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.def.ID, err)
	}
	entities, err := s.scanEntities(rows)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return []types.Entity{}, nil
	}

	byID := make(map[int64]*entity, len(entities))
	for _, e := range entities {
		byID[e.id] = e
	}

	rows, err = db.QueryContext(ctx, `SELECT entity_id, field_name, value FROM field_values
    WHERE entity_type = ? AND entity_id IN (`+in+`) ORDER BY entity_id, field_name, delta`, args...)
	if err != nil {
		return nil, fmt.Errorf("loading %s field values: %w", s.def.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			name  string
			value any
		)
		if err := rows.Scan(&id, &name, &value); err != nil {
			return nil, fmt.Errorf("scanning %s field value: %w", s.def.ID, err)
		}
		e, ok := byID[id]
		if !ok {
			continue
		}
		f, ok := s.def.Field(name)
		if !ok {
			// Field removed from the schema since the value was written.
			continue
		}
		if raw, ok := value.([]byte); ok {
			value = string(raw)
		}
		v, err := normalizeScalar(f, value)
		if err != nil || v == nil {
			continue
		}
		e.values[name] = append(e.values[name], v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s field values: %w", s.def.ID, err)
	}

	out := make([]types.Entity, len(entities))
	for i, e := range entities {
		out[i] = e
	}
	return out, nil
}

// Query starts a query over this entity type.
func (s *entityStorage) Query(conjunction types.Conjunction) types.QueryBuilder {
	return &entityQuery{
		storage:     s,
		conjunction: conjunction,
		accessCheck: true,
	}
}

// scanEntities reads entities rows and closes them.
func (s *entityStorage) scanEntities(rows *sql.Rows) ([]*entity, error) {
	defer rows.Close()

	var out []*entity
	for rows.Next() {
		var (
			e                  = &entity{storage: s, def: s.def, values: make(map[string][]any)}
			revision           sql.NullInt64
			createdAt, updated string
		)
		if err := rows.Scan(&e.id, &e.uuid, &e.bundle, &revision, &e.langcode, &createdAt, &updated); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", s.def.ID, err)
		}
		e.revisionID = revision.Int64
		e.createdAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		e.updatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", s.def.ID, err)
	}
	return out, nil
}

// entityExists reports whether an entities row exists.
func entityExists(ctx context.Context, tx *sql.Tx, entityType string, id int64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		"SELECT 1 FROM entities WHERE entity_type = ? AND entity_id = ?", entityType, id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s %d: %w", entityType, id, err)
	}
	return true, nil
}

// placeholders returns n comma-separated bind markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
