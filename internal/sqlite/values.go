package sqlite

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

// Item keys accepted in place of a bare value, e.g. {"target_id": 3}.
var itemValueKeys = []string{"value", "target_id"}

// normalizeFieldValues turns a caller-supplied field value into the ordered
// list of normalised deltas. A nil value clears the field.
func normalizeFieldValues(def *types.EntityTypeDefinition, f types.FieldDefinition, value any) ([]any, error) {
	items := toItems(value)
	if !f.Accepts(len(items)) {
		return nil, fmt.Errorf("%w: %s.%s accepts %d, got %d",
			types.ErrCardinality, def.ID, f.Name, f.Cardinality, len(items))
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		v, err := normalizeScalar(f, unwrapItem(item))
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", types.ErrInvalidValue, def.ID, f.Name, err)
		}
		if v == nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// normalizeScalar coerces a single value to the Go type used for the field
// type: string, int64, float64 or bool. Entity references become positive
// int64 ids.
func normalizeScalar(f types.FieldDefinition, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case types.FieldTypeString, types.FieldTypeText:
		return cast.ToStringE(v)
	case types.FieldTypeInteger:
		return toInt64(v)
	case types.FieldTypeFloat:
		return cast.ToFloat64E(v)
	case types.FieldTypeBoolean:
		return cast.ToBoolE(v)
	case types.FieldTypeEntityReference:
		return parseEntityID(v)
	default:
		return nil, fmt.Errorf("unsupported field type %q", f.Type)
	}
}

// parseEntityID normalises an entity id. Ids are positive integers; decimal
// strings are accepted.
func parseEntityID(v any) (int64, error) {
	id, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("entity id must be positive, got %d", id)
	}
	return id, nil
}

// toInt64 converts v to an int64 without losing information. Integer kinds,
// integral floats (JSON numbers) and base-10 strings are accepted; booleans,
// fractional floats and anything else are rejected.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return uintToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case json.Number:
		return parseDecimal(string(n))
	case string:
		return parseDecimal(n)
	default:
		return 0, fmt.Errorf("cannot use %T %v as an integer", v, v)
	}
}

func uintToInt64(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("integer %d overflows int64", n)
	}
	return int64(n), nil
}

func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows int64", f)
	}
	return int64(f), nil
}

func parseDecimal(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a decimal integer", s)
	}
	return n, nil
}

// sqlValue converts a normalised value into its SQLite representation.
func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// flattenValues renders field deltas the way ToMap exposes them: a scalar
// (or nil) for single-valued fields, a list for multi-valued ones.
func flattenValues(f types.FieldDefinition, values []any) any {
	if f.Multiple() {
		out := make([]any, len(values))
		copy(out, values)
		return out
	}
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

// toItems spreads slices and arrays into individual items. Byte slices and
// scalars are a single item; nil is no item.
func toItems(value any) []any {
	if value == nil {
		return nil
	}
	if items, ok := value.([]any); ok {
		return items
	}
	rv := reflect.ValueOf(value)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items
	}
	return []any{value}
}

// unwrapItem accepts {"value": x} and {"target_id": x} item maps.
func unwrapItem(item any) any {
	m, ok := item.(map[string]any)
	if !ok {
		return item
	}
	for _, key := range itemValueKeys {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return item
}
