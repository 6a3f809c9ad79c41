package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

// anonymousName is the display name of an account with an empty label.
const anonymousName = "Anonymous"

// entity is the in-memory form of one entities row plus its field values.
type entity struct {
	storage    *entityStorage
	def        *types.EntityTypeDefinition
	id         int64
	isNew      bool
	uuid       string
	bundle     string
	langcode   string
	revisionID int64
	createdAt  time.Time
	updatedAt  time.Time
	values     map[string][]any
}

var _ types.Entity = (*entity)(nil)

// ID returns the int64 id, or nil before the first save.
func (e *entity) ID() any {
	if e.id == 0 {
		return nil
	}
	return e.id
}

func (e *entity) Label() string {
	if e.def.LabelField == "" {
		return ""
	}
	values := e.values[e.def.LabelField]
	if len(values) == 0 {
		return ""
	}
	return cast.ToString(values[0])
}

func (e *entity) EntityTypeID() string { return e.def.ID }

func (e *entity) Bundle() string { return e.bundle }

// RevisionID reports the current revision for revisionable types. An unsaved
// revisionable entity has no revision yet: the id is nil but ok is true.
func (e *entity) RevisionID() (any, bool) {
	if !e.def.Revisionable {
		return nil, false
	}
	if e.revisionID == 0 {
		return nil, true
	}
	return e.revisionID, true
}

// DisplayName is only defined for account types.
func (e *entity) DisplayName() (string, bool) {
	if !e.def.Account {
		return "", false
	}
	if name := e.Label(); name != "" {
		return name, true
	}
	return anonymousName, true
}

func (e *entity) LinkTemplates() []string { return e.def.LinkTemplateNames() }

func (e *entity) Fieldable() bool { return e.def.Fieldable }

// FieldDefinitions returns the fields attached to the entity's bundle, or nil
// for non-fieldable types.
func (e *entity) FieldDefinitions() []types.FieldDefinition {
	if !e.def.Fieldable {
		return nil
	}
	return e.def.FieldsForBundle(e.bundle)
}

// ToMap renders base fields and every field of the bundle.
func (e *entity) ToMap() map[string]any {
	out := map[string]any{
		types.BaseFieldID:       e.ID(),
		types.BaseFieldUUID:     e.uuid,
		types.BaseFieldLangcode: e.langcode,
	}
	if e.def.BundleKey != "" {
		out[e.def.BundleKey] = e.bundle
	}
	if rev, ok := e.RevisionID(); ok {
		out[types.BaseFieldRevisionID] = rev
	}
	for _, f := range e.def.FieldsForBundle(e.bundle) {
		out[f.Name] = flattenValues(f, e.values[f.Name])
	}
	return out
}

// ReferencedEntities loads the targets of a reference field in delta order.
// Targets that no longer exist are left out.
func (e *entity) ReferencedEntities(ctx context.Context, fieldName string) ([]types.Entity, error) {
	f, ok := e.def.Field(fieldName)
	if !ok || f.Kind() != types.FieldEntityReference {
		return nil, fmt.Errorf("%w: %s.%s is not an entity reference field", types.ErrUnknownField, e.def.ID, fieldName)
	}

	targetIDs := e.values[fieldName]
	if len(targetIDs) == 0 {
		return []types.Entity{}, nil
	}

	target, err := e.storage.backend.Storage(f.TargetType)
	if err != nil {
		return nil, err
	}
	loaded, err := target.LoadMultiple(ctx, targetIDs)
	if err != nil {
		return nil, fmt.Errorf("loading %s references: %w", fieldName, err)
	}

	byID := make(map[int64]types.Entity, len(loaded))
	for _, t := range loaded {
		if id, ok := t.ID().(int64); ok {
			byID[id] = t
		}
	}
	out := make([]types.Entity, 0, len(targetIDs))
	for _, raw := range targetIDs {
		id, _ := raw.(int64)
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// URL expands the named link template and prefixes the configured base URL.
func (e *entity) URL(linkName string) (string, error) {
	tmpl, ok := e.def.LinkTemplates[linkName]
	if !ok {
		return "", fmt.Errorf("%w: %s has no %q link template", types.ErrLinkGeneration, e.def.ID, linkName)
	}
	if e.id == 0 {
		return "", fmt.Errorf("%w: %s %q: entity has no id", types.ErrLinkGeneration, e.def.ID, linkName)
	}

	var missing string
	path := placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := e.placeholder(key)
		if !ok {
			if missing == "" {
				missing = key
			}
			return m
		}
		return url.PathEscape(v)
	})
	if missing != "" {
		return "", fmt.Errorf("%w: %s %q: no value for {%s}", types.ErrLinkGeneration, e.def.ID, linkName, missing)
	}

	_, config, err := e.storage.backend.handle()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(config.BaseURL, "/") + path, nil
}

// placeholder resolves one route parameter of a link template.
func (e *entity) placeholder(key string) (string, bool) {
	switch key {
	case "id", e.def.ID:
		return strconv.FormatInt(e.id, 10), true
	case "uuid":
		return e.uuid, e.uuid != ""
	case "langcode":
		return e.langcode, e.langcode != ""
	case "bundle":
		return e.bundle, true
	case "revision_id", e.def.ID + "_revision":
		if !e.def.Revisionable || e.revisionID == 0 {
			return "", false
		}
		return strconv.FormatInt(e.revisionID, 10), true
	}
	if e.def.BundleKey != "" && key == e.def.BundleKey {
		return e.bundle, true
	}
	return "", false
}
