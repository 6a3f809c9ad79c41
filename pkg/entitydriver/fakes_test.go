package entitydriver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

// --- Fake entity subsystem ---

type fakeEntity struct {
	id          any
	label       string
	typeID      string
	bundle      string
	revision    any
	revisioned  bool
	displayName string
	account     bool
	links       map[string]string // name -> url; "" means generation fails
	fieldable   bool
	fields      []types.FieldDefinition
	values      map[string]any
	refs        map[string][]types.Entity
	refErr      error
}

func (e *fakeEntity) ID() any              { return e.id }
func (e *fakeEntity) Label() string        { return e.label }
func (e *fakeEntity) EntityTypeID() string { return e.typeID }
func (e *fakeEntity) Bundle() string       { return e.bundle }

func (e *fakeEntity) RevisionID() (any, bool)     { return e.revision, e.revisioned }
func (e *fakeEntity) DisplayName() (string, bool) { return e.displayName, e.account }

func (e *fakeEntity) LinkTemplates() []string {
	names := make([]string, 0, len(e.links))
	for name := range e.links {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *fakeEntity) URL(name string) (string, error) {
	url, ok := e.links[name]
	if !ok || url == "" {
		return "", fmt.Errorf("%w: %s", types.ErrLinkGeneration, name)
	}
	return url, nil
}

func (e *fakeEntity) Fieldable() bool                          { return e.fieldable }
func (e *fakeEntity) FieldDefinitions() []types.FieldDefinition { return e.fields }

func (e *fakeEntity) ToMap() map[string]any {
	out := map[string]any{"id": e.id}
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

func (e *fakeEntity) ReferencedEntities(_ context.Context, field string) ([]types.Entity, error) {
	if e.refErr != nil {
		return nil, e.refErr
	}
	return e.refs[field], nil
}

type fakeQuery struct {
	storage     *fakeStorage
	conjunction types.Conjunction
	conditions  []types.Condition
	accessCheck bool
}

func (q *fakeQuery) Condition(field string, value any, operator, langcode string) types.QueryBuilder {
	q.conditions = append(q.conditions, types.Condition{Field: field, Value: value, Operator: operator, Langcode: langcode})
	return q
}

func (q *fakeQuery) AccessCheck(enabled bool) types.QueryBuilder {
	q.accessCheck = enabled
	return q
}

func (q *fakeQuery) Execute(context.Context) ([]any, error) {
	if q.storage.queryErr != nil {
		return nil, q.storage.queryErr
	}
	return q.storage.queryResult, nil
}

type fakeStorage struct {
	typeID   string
	entities []*fakeEntity // native load order

	created   []*fakeEntity
	saved     []types.Entity
	createErr error
	saveErr   error
	loadErr   error
	loadCalls [][]any

	queries     []*fakeQuery
	queryResult []any
	queryErr    error
}

func (s *fakeStorage) EntityTypeID() string { return s.typeID }

func (s *fakeStorage) Create(values map[string]any) (types.Entity, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	label, _ := values["title"].(string)
	e := &fakeEntity{typeID: s.typeID, bundle: s.typeID, label: label, values: values}
	s.created = append(s.created, e)
	return e, nil
}

func (s *fakeStorage) Save(_ context.Context, e types.Entity) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	fe := e.(*fakeEntity)
	fe.id = len(s.entities) + 1
	s.entities = append(s.entities, fe)
	s.saved = append(s.saved, e)
	return nil
}

func (s *fakeStorage) LoadMultiple(_ context.Context, ids []any) ([]types.Entity, error) {
	s.loadCalls = append(s.loadCalls, ids)
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	wanted := make(map[any]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []types.Entity
	for _, e := range s.entities {
		if wanted[e.id] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStorage) Query(conjunction types.Conjunction) types.QueryBuilder {
	q := &fakeQuery{storage: s, conjunction: conjunction, accessCheck: true}
	s.queries = append(s.queries, q)
	return q
}

type fakeManager struct {
	storages map[string]*fakeStorage
}

var errUnknownType = errors.New("fake: unknown entity type")

func (m *fakeManager) Storage(id string) (types.Storage, error) {
	s, ok := m.storages[id]
	if !ok {
		return nil, errUnknownType
	}
	return s, nil
}

func (m *fakeManager) Definitions() []types.EntityTypeDefinition { return nil }

func newFakeManager(storages ...*fakeStorage) *fakeManager {
	m := &fakeManager{storages: make(map[string]*fakeStorage)}
	for _, s := range storages {
		m.storages[s.typeID] = s
	}
	return m
}
