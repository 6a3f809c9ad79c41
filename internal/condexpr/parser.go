// Package condexpr parses textual query conditions such as
//
//	status = 1
//	title@fr CONTAINS "chat"
//	uid IN (1, 2)
//	id BETWEEN 3 AND 9
//	field_tags IS NOT NULL
//
// into types.Condition values.
package condexpr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

// --- Participle grammar structs ---

// Expression parses: field [@langcode] operator [operand]
type Expression struct {
	Field    string   `parser:"@Ident"`
	Langcode string   `parser:"( '@' @Ident )?"`
	Operator string   `parser:"@Op"`
	Operand  *Operand `parser:"@@?"`
}

// Operand parses: value [AND value]
type Operand struct {
	Value *Value `parser:"@@"`
	Upper *Value `parser:"( And @@ )?"`
}

// Value is a parenthesised list or a single scalar.
type Value struct {
	List   *List   `parser:"  @@"`
	Scalar *Scalar `parser:"| @@"`
}

// List parses: ( scalar [, scalar]* )
type List struct {
	Items []*Scalar `parser:"'(' ( @@ ( ',' @@ )* )? ')'"`
}

// Scalar is a number, quoted string, boolean or null.
type Scalar struct {
	Number *string `parser:"  @Number"`
	String *string `parser:"| @String"`
	Bool   *string `parser:"| @Bool"`
	Null   bool    `parser:"| @Null"`
}

var conditionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`},
	{Name: "Number", Pattern: `[-+]?\d+(?:\.\d+)?`},
	{Name: "Op", Pattern: `(?i:\bNOT\s+IN\b|\bIS\s+NOT\s+NULL\b|\bIS\s+NULL\b|\bIN\b|\bBETWEEN\b|\bCONTAINS\b|\bSTARTS_WITH\b|\bENDS_WITH\b|\bLIKE\b)|<>|!=|<=|>=|=|<|>`},
	{Name: "And", Pattern: `(?i:\bAND\b)`},
	{Name: "Bool", Pattern: `(?i:\btrue\b|\bfalse\b)`},
	{Name: "Null", Pattern: `(?i:\bnull\b)`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)*`},
	{Name: "Punct", Pattern: `[@(),]`},
})

var parser = participle.MustBuild[Expression](
	participle.Lexer(conditionLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse parses one condition expression.
func Parse(input string) (types.Condition, error) {
	ast, err := parser.ParseString("condition", input)
	if err != nil {
		return types.Condition{}, fmt.Errorf("%w: %q: %v", types.ErrInvalidCondition, input, err)
	}
	c, err := ast.condition()
	if err != nil {
		return types.Condition{}, fmt.Errorf("%w: %q: %v", types.ErrInvalidCondition, input, err)
	}
	return c, nil
}

// ParseAll parses each expression in order.
func ParseAll(inputs []string) ([]types.Condition, error) {
	out := make([]types.Condition, 0, len(inputs))
	for _, in := range inputs {
		c, err := Parse(in)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// condition converts the parse tree, checking that the value shape fits the
// operator.
func (e *Expression) condition() (types.Condition, error) {
	op, ok := types.CanonicalOperator(e.Operator)
	if !ok {
		return types.Condition{}, fmt.Errorf("unknown operator %q", e.Operator)
	}
	c := types.Condition{Field: e.Field, Operator: op, Langcode: e.Langcode}
	operand := e.Operand

	switch op {
	case types.OpIsNull, types.OpIsNotNull:
		if operand != nil {
			return c, fmt.Errorf("%s takes no value", op)
		}
		return c, nil
	case types.OpBetween:
		return operand.between(c)
	}

	if operand == nil {
		return c, fmt.Errorf("%s needs a value", op)
	}
	if operand.Upper != nil {
		return c, fmt.Errorf("AND is only valid with BETWEEN")
	}

	v, err := operand.Value.value()
	if err != nil {
		return c, err
	}
	if op == types.OpIn || op == types.OpNotIn {
		if _, isList := v.([]any); !isList {
			v = []any{v}
		}
	} else if _, isList := v.([]any); isList {
		return c, fmt.Errorf("%s takes a single value", op)
	}
	c.Value = v
	return c, nil
}

// between accepts both "BETWEEN a AND b" and "BETWEEN (a, b)".
func (o *Operand) between(c types.Condition) (types.Condition, error) {
	if o == nil {
		return c, fmt.Errorf("BETWEEN needs two values")
	}
	lo, err := o.Value.value()
	if err != nil {
		return c, err
	}
	if o.Upper == nil {
		bounds, ok := lo.([]any)
		if !ok || len(bounds) != 2 {
			return c, fmt.Errorf("BETWEEN needs two values")
		}
		c.Value = bounds
		return c, nil
	}
	hi, err := o.Upper.value()
	if err != nil {
		return c, err
	}
	c.Value = []any{lo, hi}
	return c, nil
}

func (v *Value) value() (any, error) {
	if v.List != nil {
		out := make([]any, 0, len(v.List.Items))
		for _, item := range v.List.Items {
			s, err := item.value()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	return v.Scalar.value()
}

func (s *Scalar) value() (any, error) {
	switch {
	case s.Number != nil:
		if n, err := strconv.ParseInt(*s.Number, 10, 64); err == nil {
			return n, nil
		}
		return strconv.ParseFloat(*s.Number, 64)
	case s.String != nil:
		return unquote(*s.String)
	case s.Bool != nil:
		return strings.EqualFold(*s.Bool, "true"), nil
	default:
		return nil, nil
	}
}

// unquote strips double or single quotes and resolves escapes.
func unquote(raw string) (string, error) {
	if strings.HasPrefix(raw, "'") {
		inner := raw[1 : len(raw)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		return strings.ReplaceAll(inner, `\\`, `\`), nil
	}
	return strconv.Unquote(raw)
}
