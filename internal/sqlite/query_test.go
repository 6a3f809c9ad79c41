package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

// seedNodes saves users, tags and nodes used by the query tests.
//
//	node 1: "Go tips"       published, uid 1, tags [1]
//	node 2: "SQLite notes"  unpublished, uid 2, tags [1, 2]
//	node 3: "About us"      published, page, uid 1
//	node 4: "100% done"     published, no author
func seedNodes(t *testing.T, b *Backend) {
	t.Helper()
	mustSave(t, b, "user", map[string]any{"name": "alice"})
	mustSave(t, b, "user", map[string]any{"name": "bob"})
	mustSave(t, b, "taxonomy_term", map[string]any{"name": "go"})
	mustSave(t, b, "taxonomy_term", map[string]any{"name": "sqlite"})
	mustSave(t, b, "node", map[string]any{"title": "Go tips", "status": true, "uid": 1, "field_tags": []any{1}})
	mustSave(t, b, "node", map[string]any{"title": "SQLite notes", "status": false, "uid": 2, "field_tags": []any{1, 2}})
	mustSave(t, b, "node", map[string]any{"type": "page", "title": "About us", "status": true, "uid": 1})
	mustSave(t, b, "node", map[string]any{"title": "100% done", "status": true})
}

func TestQueryExecute(t *testing.T) {
	tests := []struct {
		name        string
		conjunction types.Conjunction
		conditions  []types.Condition
		accessCheck bool
		want        []any
		wantErr     error
	}{
		{
			name:        "no conditions returns every entity",
			conjunction: types.ConjunctionAnd,
			want:        []any{int64(1), int64(2), int64(3), int64(4)},
		},
		{
			name:        "equality on a string field",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "title", Value: "Go tips"}},
			want:        []any{int64(1)},
		},
		{
			name:        "boolean field accepts 1",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "status", Value: 1}},
			want:        []any{int64(1), int64(3), int64(4)},
		},
		{
			name:        "AND narrows",
			conjunction: types.ConjunctionAnd,
			conditions: []types.Condition{
				{Field: "status", Value: true},
				{Field: "uid", Value: 1},
			},
			want: []any{int64(1), int64(3)},
		},
		{
			name:        "OR widens",
			conjunction: types.ConjunctionOr,
			conditions: []types.Condition{
				{Field: "title", Value: "Go tips"},
				{Field: "title", Value: "About us"},
			},
			want: []any{int64(1), int64(3)},
		},
		{
			name:        "not equal",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "title", Value: "Go tips", Operator: "!="}},
			want:        []any{int64(2), int64(3), int64(4)},
		},
		{
			name:        "reference field with target_id property",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "field_tags.target_id", Value: 2}},
			want:        []any{int64(2)},
		},
		{
			name:        "IN over a multi-valued reference",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "field_tags", Value: []any{1, 2}, Operator: "IN"}},
			want:        []any{int64(1), int64(2)},
		},
		{
			name:        "empty IN matches nothing",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "uid", Value: []any{}, Operator: "IN"}},
			want:        []any{},
		},
		{
			name:        "NOT IN",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "id", Value: []int{1, 2}, Operator: "not in"}},
			want:        []any{int64(3), int64(4)},
		},
		{
			name:        "BETWEEN on the id base field",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "id", Value: []any{2, 3}, Operator: "BETWEEN"}},
			want:        []any{int64(2), int64(3)},
		},
		{
			name:        "greater than",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "id", Value: "2", Operator: ">"}},
			want:        []any{int64(3), int64(4)},
		},
		{
			name:        "CONTAINS is case-insensitive",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "title", Value: "sqlite", Operator: "CONTAINS"}},
			want:        []any{int64(2)},
		},
		{
			name:        "CONTAINS escapes wildcards",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "title", Value: "0%", Operator: "CONTAINS"}},
			want:        []any{int64(4)},
		},
		{
			name:        "STARTS_WITH",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "title", Value: "Go", Operator: "STARTS_WITH"}},
			want:        []any{int64(1)},
		},
		{
			name:        "ENDS_WITH",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "title", Value: "notes", Operator: "ENDS_WITH"}},
			want:        []any{int64(2)},
		},
		{
			name:        "LIKE uses the raw pattern",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "title", Value: "A_out%", Operator: "LIKE"}},
			want:        []any{int64(3)},
		},
		{
			name:        "IS NULL on a configured field",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "uid", Operator: "IS NULL"}},
			want:        []any{int64(4)},
		},
		{
			name:        "IS NOT NULL on a configured field",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "field_tags", Operator: "IS NOT NULL"}},
			want:        []any{int64(1), int64(2)},
		},
		{
			name:        "bundle key is queryable",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "type", Value: "page"}},
			want:        []any{int64(3)},
		},
		{
			name:        "langcode restricts the match",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "title", Value: "Go tips", Langcode: "fr"}},
			want:        []any{},
		},
		{
			name:        "langcode that matches",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "title", Value: "Go tips", Langcode: "en"}},
			want:        []any{int64(1)},
		},
		{
			name:        "access check hides unpublished nodes",
			conjunction: types.ConjunctionAnd,
			accessCheck: true,
			want:        []any{int64(1), int64(3), int64(4)},
		},
		{
			name:        "unknown field",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "subtitle", Value: "x"}},
			wantErr:     types.ErrUnknownField,
		},
		{
			name:        "unknown operator",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "title", Value: "x", Operator: "~="}},
			wantErr:     types.ErrInvalidOperator,
		},
		{
			name:        "unknown conjunction",
			conjunction: types.Conjunction("XOR"),
			wantErr:     types.ErrInvalidConjunction,
		},
		{
			name:        "BETWEEN needs two values",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "id", Value: []any{1}, Operator: "BETWEEN"}},
			wantErr:     types.ErrInvalidValue,
		},
		{
			name:        "value that does not fit the field type",
			conjunction: types.ConjunctionAnd,
			conditions:  []types.Condition{{Field: "id", Value: "abc"}},
			wantErr:     types.ErrInvalidValue,
		},
	}

	b := setupBackend(t)
	seedNodes(t, b)
	s, err := b.Storage("node")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := s.Query(tt.conjunction)
			for _, c := range tt.conditions {
				q = q.Condition(c.Field, c.Value, c.Operator, c.Langcode)
			}
			got, err := q.AccessCheck(tt.accessCheck).Execute(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryAccessCheckDefaultsOn(t *testing.T) {
	b := setupBackend(t)
	seedNodes(t, b)
	s, err := b.Storage("node")
	require.NoError(t, err)

	got, err := s.Query(types.ConjunctionAnd).Execute(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, got, int64(2))
}

func TestQueryAdminAccessSeesUnpublished(t *testing.T) {
	b := setupBackendWith(t, types.Config{
		Backend:     types.BackendSQLite,
		DataDir:     t.TempDir(),
		AdminAccess: true,
	})
	seedNodes(t, b)
	s, err := b.Storage("node")
	require.NoError(t, err)

	got, err := s.Query(types.ConjunctionAnd).AccessCheck(true).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4)}, got)
}

func TestQueryTypeWithoutPublishedField(t *testing.T) {
	b := setupBackend(t)
	seedNodes(t, b)
	s, err := b.Storage("user")
	require.NoError(t, err)

	got, err := s.Query(types.ConjunctionAnd).AccessCheck(true).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, got)
}
