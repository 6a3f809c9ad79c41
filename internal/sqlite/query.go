package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

// entityQuery implements types.QueryBuilder. Each condition compiles to a
// predicate on the entities row (base fields) or an EXISTS subquery over
// field_values (configured fields); predicates are joined with the query's
// conjunction.
type entityQuery struct {
	storage     *entityStorage
	conjunction types.Conjunction
	conditions  []types.Condition
	accessCheck bool
}

var _ types.QueryBuilder = (*entityQuery)(nil)

func (q *entityQuery) Condition(field string, value any, operator string, langcode string) types.QueryBuilder {
	q.conditions = append(q.conditions, types.Condition{
		Field:    field,
		Value:    value,
		Operator: operator,
		Langcode: langcode,
	})
	return q
}

// AccessCheck toggles published-state filtering. It is on by default.
func (q *entityQuery) AccessCheck(enabled bool) types.QueryBuilder {
	q.accessCheck = enabled
	return q
}

// Execute returns the matching ids in ascending order.
func (q *entityQuery) Execute(ctx context.Context) ([]any, error) {
	s := q.storage
	db, config, err := s.backend.handle()
	if err != nil {
		return nil, err
	}

	var joiner string
	switch q.conjunction {
	case types.ConjunctionAnd:
		joiner = " AND "
	case types.ConjunctionOr:
		joiner = " OR "
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidConjunction, q.conjunction)
	}

	sqlText := "SELECT e.entity_id FROM entities e WHERE e.entity_type = ?"
	args := []any{s.def.ID}

	if len(q.conditions) > 0 {
		clauses := make([]string, 0, len(q.conditions))
		for _, c := range q.conditions {
			clause, clauseArgs, err := q.compile(c)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, clause)
			args = append(args, clauseArgs...)
		}
		sqlText += " AND (" + strings.Join(clauses, joiner) + ")"
	}

	if q.accessCheck && s.def.PublishedField != "" && !config.AdminAccess {
		sqlText += ` AND EXISTS (SELECT 1 FROM field_values fv
    WHERE fv.entity_type = e.entity_type AND fv.entity_id = e.entity_id
    AND fv.field_name = ? AND fv.value = 1)`
		args = append(args, s.def.PublishedField)
	}
	sqlText += " ORDER BY e.entity_id"

	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.def.ID, err)
	}
	defer rows.Close()

	ids := []any{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning %s id: %w", s.def.ID, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s ids: %w", s.def.ID, err)
	}

	s.backend.logger.Debug("query executed",
		"entity_type", s.def.ID,
		"conjunction", string(q.conjunction),
		"conditions", len(q.conditions),
		"access_check", q.accessCheck,
		"matches", len(ids),
	)
	return ids, nil
}

// compile turns one condition into a SQL predicate and its arguments.
func (q *entityQuery) compile(c types.Condition) (string, []any, error) {
	def := q.storage.def
	op, ok := types.CanonicalOperator(c.Operator)
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", types.ErrInvalidOperator, c.Operator)
	}

	name := fieldName(c.Field)
	if column, f, ok := q.baseColumn(name); ok {
		pred, args, err := predicate(column, op, f, c.Value)
		if err != nil {
			return "", nil, fmt.Errorf("%s.%s: %w", def.ID, name, err)
		}
		if c.Langcode != "" {
			pred = "(" + pred + " AND e.langcode = ?)"
			args = append(args, c.Langcode)
		}
		return pred, args, nil
	}

	f, ok := def.Field(name)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s.%s", types.ErrUnknownField, def.ID, c.Field)
	}

	scope := `SELECT 1 FROM field_values fv
    WHERE fv.entity_type = e.entity_type AND fv.entity_id = e.entity_id AND fv.field_name = ?`
	args := []any{f.Name}
	if c.Langcode != "" {
		scope += " AND fv.langcode = ?"
		args = append(args, c.Langcode)
	}

	switch op {
	case types.OpIsNull:
		return "NOT EXISTS (" + scope + ")", args, nil
	case types.OpIsNotNull:
		return "EXISTS (" + scope + ")", args, nil
	}

	pred, predArgs, err := predicate("fv.value", op, f, c.Value)
	if err != nil {
		return "", nil, fmt.Errorf("%s.%s: %w", def.ID, name, err)
	}
	return "EXISTS (" + scope + " AND " + pred + ")", append(args, predArgs...), nil
}

// baseColumn maps a base field name to its entities column and the field
// definition used to normalise comparison values.
func (q *entityQuery) baseColumn(name string) (string, types.FieldDefinition, bool) {
	def := q.storage.def
	switch {
	case name == types.BaseFieldID:
		return "e.entity_id", types.FieldDefinition{Name: name, Type: types.FieldTypeInteger}, true
	case name == types.BaseFieldUUID:
		return "e.uuid", types.FieldDefinition{Name: name, Type: types.FieldTypeString}, true
	case name == types.BaseFieldLangcode:
		return "e.langcode", types.FieldDefinition{Name: name, Type: types.FieldTypeString}, true
	case name == types.BaseFieldRevisionID && def.Revisionable:
		return "e.revision_id", types.FieldDefinition{Name: name, Type: types.FieldTypeInteger}, true
	case def.BundleKey != "" && name == def.BundleKey:
		return "e.bundle", types.FieldDefinition{Name: name, Type: types.FieldTypeString}, true
	}
	return "", types.FieldDefinition{}, false
}

// fieldName strips a trailing property selector such as "uid.target_id" or
// "title.value".
func fieldName(field string) string {
	for _, suffix := range []string{".target_id", ".value"} {
		if name, ok := strings.CutSuffix(field, suffix); ok {
			return name
		}
	}
	return field
}

// predicate renders column <op> value with bind arguments.
func predicate(column, op string, f types.FieldDefinition, value any) (string, []any, error) {
	switch op {
	case types.OpIsNull:
		return column + " IS NULL", nil, nil
	case types.OpIsNotNull:
		return column + " IS NOT NULL", nil, nil

	case types.OpEqual, types.OpNotEqual, types.OpLess, types.OpLessEqual, types.OpGreater, types.OpGreaterEqual:
		v, err := compareValue(f, value)
		if err != nil {
			return "", nil, err
		}
		return column + " " + op + " ?", []any{v}, nil

	case types.OpIn, types.OpNotIn:
		items := toItems(value)
		if len(items) == 0 {
			if op == types.OpIn {
				return "0 = 1", nil, nil
			}
			return "1 = 1", nil, nil
		}
		args := make([]any, len(items))
		for i, item := range items {
			v, err := compareValue(f, item)
			if err != nil {
				return "", nil, err
			}
			args[i] = v
		}
		return column + " " + op + " (" + placeholders(len(args)) + ")", args, nil

	case types.OpBetween:
		items := toItems(value)
		if len(items) != 2 {
			return "", nil, fmt.Errorf("%w: BETWEEN needs exactly two values, got %d", types.ErrInvalidValue, len(items))
		}
		lo, err := compareValue(f, items[0])
		if err != nil {
			return "", nil, err
		}
		hi, err := compareValue(f, items[1])
		if err != nil {
			return "", nil, err
		}
		return column + " BETWEEN ? AND ?", []any{lo, hi}, nil

	case types.OpContains, types.OpStartsWith, types.OpEndsWith:
		s, err := cast.ToStringE(value)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", types.ErrInvalidValue, err)
		}
		pattern := escapeLike(s)
		switch op {
		case types.OpContains:
			pattern = "%" + pattern + "%"
		case types.OpStartsWith:
			pattern += "%"
		case types.OpEndsWith:
			pattern = "%" + pattern
		}
		return column + ` LIKE ? ESCAPE '\'`, []any{pattern}, nil

	case types.OpLike:
		s, err := cast.ToStringE(value)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", types.ErrInvalidValue, err)
		}
		return column + " LIKE ?", []any{s}, nil
	}
	return "", nil, fmt.Errorf("%w: %q", types.ErrInvalidOperator, op)
}

// compareValue normalises a comparison value to the field's storage form.
// Reference ids are compared as plain integers.
func compareValue(f types.FieldDefinition, value any) (any, error) {
	value = unwrapItem(value)
	if f.Kind() == types.FieldEntityReference {
		f.Type = types.FieldTypeInteger
	}
	v, err := normalizeScalar(f, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidValue, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: nil comparison value", types.ErrInvalidValue)
	}
	return sqlValue(v), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards in a literal.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
