package types

import (
	"errors"
	"fmt"
	"strings"
)

// Conjunction combines query conditions.
type Conjunction string

// Supported conjunctions. The zero value behaves as ConjunctionAnd.
const (
	ConjunctionAnd Conjunction = "AND"
	ConjunctionOr  Conjunction = "OR"
)

// ParseConjunction parses "AND" or "OR", case-insensitively. An empty
// string yields ConjunctionAnd.
func ParseConjunction(s string) (Conjunction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "AND":
		return ConjunctionAnd, nil
	case "OR":
		return ConjunctionOr, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidConjunction, s)
	}
}

// Query operators.
const (
	OpEqual        = "="
	OpNotEqual     = "<>"
	OpLess         = "<"
	OpLessEqual    = "<="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpIn           = "IN"
	OpNotIn        = "NOT IN"
	OpBetween      = "BETWEEN"
	OpContains     = "CONTAINS"
	OpStartsWith   = "STARTS_WITH"
	OpEndsWith     = "ENDS_WITH"
	OpLike         = "LIKE"
	OpIsNull       = "IS NULL"
	OpIsNotNull    = "IS NOT NULL"
)

// Operators lists every supported operator in canonical form.
var Operators = []string{
	OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual,
	OpIn, OpNotIn, OpBetween, OpContains, OpStartsWith, OpEndsWith, OpLike,
	OpIsNull, OpIsNotNull,
}

// CanonicalOperator maps an operator as written by a caller to its
// canonical form. The empty operator is equality and "!=" is "<>".
func CanonicalOperator(op string) (string, bool) {
	op = strings.Join(strings.Fields(strings.ToUpper(op)), " ")
	switch op {
	case "":
		return OpEqual, true
	case "!=":
		return OpNotEqual, true
	}
	for _, known := range Operators {
		if op == known {
			return op, true
		}
	}
	return "", false
}

// Condition is one query condition. Operator and Langcode are optional.
type Condition struct {
	Field    string
	Value    any
	Operator string
	Langcode string
}

// ConditionFromSlice builds a Condition from a positional tuple
// (field, value, operator, langcode). Missing trailing elements are
// treated as absent, as are nil operator and langcode elements.
func ConditionFromSlice(tuple []any) (Condition, error) {
	if len(tuple) == 0 || len(tuple) > 4 {
		return Condition{}, fmt.Errorf("%w: expected 1 to 4 elements, got %d", ErrInvalidCondition, len(tuple))
	}
	padded := make([]any, 4)
	copy(padded, tuple)

	field, ok := padded[0].(string)
	if !ok || field == "" {
		return Condition{}, fmt.Errorf("%w: field must be a non-empty string", ErrInvalidCondition)
	}
	c := Condition{Field: field, Value: padded[1]}
	if padded[2] != nil {
		op, ok := padded[2].(string)
		if !ok {
			return Condition{}, fmt.Errorf("%w: operator must be a string", ErrInvalidCondition)
		}
		c.Operator = op
	}
	if padded[3] != nil {
		lang, ok := padded[3].(string)
		if !ok {
			return Condition{}, fmt.Errorf("%w: langcode must be a string", ErrInvalidCondition)
		}
		c.Langcode = lang
	}
	return c, nil
}

// ErrInvalidCondition is returned for malformed condition tuples.
var ErrInvalidCondition = errors.New("invalid condition")
