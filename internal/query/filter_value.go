package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"FleetAPI/internal/model"

	"github.com/Masterminds/squirrel"
)

// FilterValue is one structured (stage 1) filter value.
type FilterValue interface {
	condition(f model.Field) (squirrel.Sqlizer, error)
}

// Scalar matches a single value. A nil Value matches NULL.
type Scalar struct {
	Value any
}

// List matches any of the values (IN).
type List struct {
	Values []any
}

// Range is an inclusive numeric range, either bound optional.
type Range struct {
	Min *float64
	Max *float64
}

// DateRange is a date or timestamp range, either bound optional.
// A date-only End includes the whole day.
type DateRange struct {
	Start     *time.Time
	End       *time.Time
	EndIsDate bool
}

// DecodeFilters decodes the raw "filters" object of a request.
func DecodeFilters(raw map[string]json.RawMessage) (map[string]FilterValue, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]FilterValue, len(raw))
	for key, val := range raw {
		fv, err := DecodeFilterValue(val)
		if err != nil {
			return nil, &ValidationError{Param: "filters." + key, Reason: err.Error()}
		}
		out[key] = fv
	}
	return out, nil
}

// DecodeFilterValue picks the FilterValue shape from the JSON value.
func DecodeFilterValue(raw json.RawMessage) (FilterValue, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty value")
	}
	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, err
		}
		return decodeObject(obj)
	case '[':
		var items []any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		for i, it := range items {
			if !isScalar(it) || it == nil {
				return nil, fmt.Errorf("list item %d must be a string, number or bool", i)
			}
		}
		return List{Values: items}, nil
	default:
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return nil, err
		}
		return Scalar{Value: v}, nil
	}
}

func decodeObject(obj map[string]json.RawMessage) (FilterValue, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return nil, fmt.Errorf("empty object, expected {min,max} or {start,end}")
	}

	isRange, isDates := true, true
	for _, k := range keys {
		isRange = isRange && (k == "min" || k == "max")
		isDates = isDates && (k == "start" || k == "end")
	}

	switch {
	case isRange:
		var r Range
		var err error
		if r.Min, err = decodeBound(obj["min"]); err != nil {
			return nil, fmt.Errorf("min: %w", err)
		}
		if r.Max, err = decodeBound(obj["max"]); err != nil {
			return nil, fmt.Errorf("max: %w", err)
		}
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return nil, fmt.Errorf("min %v is greater than max %v", *r.Min, *r.Max)
		}
		return r, nil
	case isDates:
		var dr DateRange
		var err error
		if dr.Start, _, err = decodeDate(obj["start"]); err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		if dr.End, dr.EndIsDate, err = decodeDate(obj["end"]); err != nil {
			return nil, fmt.Errorf("end: %w", err)
		}
		if dr.Start != nil && dr.End != nil && dr.Start.After(*dr.End) {
			return nil, fmt.Errorf("start is after end")
		}
		return dr, nil
	default:
		return nil, fmt.Errorf("unsupported keys %s, expected {min,max} or {start,end}", strings.Join(keys, ","))
	}
}

func decodeBound(raw json.RawMessage) (*float64, error) {
	if raw == nil || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("must be a number")
	}
	return &f, nil
}

func decodeDate(raw json.RawMessage) (*time.Time, bool, error) {
	if raw == nil || string(bytes.TrimSpace(raw)) == "null" {
		return nil, false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("must be a date string")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false, fmt.Errorf("%q is neither YYYY-MM-DD nor RFC3339", s)
	}
	return &t, false, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, float64, bool:
		return true
	}
	return false
}

// normalizeScalar checks v against the column type; whole numbers become int64 for int columns.
func normalizeScalar(v any, typ string) (any, error) {
	switch typ {
	case model.TypeInt:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("expected an integer, got %v", v)
		}
		return int64(f), nil
	case model.TypeFloat:
		if _, ok := v.(float64); !ok {
			return nil, fmt.Errorf("expected a number, got %v", v)
		}
	case model.TypeBool:
		if _, ok := v.(bool); !ok {
			return nil, fmt.Errorf("expected a bool, got %v", v)
		}
	default:
		if _, ok := v.(string); !ok {
			return nil, fmt.Errorf("expected a string, got %v", v)
		}
	}
	return v, nil
}

func (s Scalar) condition(f model.Field) (squirrel.Sqlizer, error) {
	if s.Value == nil {
		return squirrel.Eq{f.SQL: nil}, nil
	}
	if !isScalar(s.Value) {
		return nil, fmt.Errorf("expected a scalar, list, {min,max} or {start,end}")
	}
	if f.Type == model.TypeStringArray {
		v, err := normalizeScalar(s.Value, model.TypeString)
		if err != nil {
			return nil, err
		}
		return squirrel.Expr(fmt.Sprintf("? = ANY(%s)", f.SQL), v), nil
	}
	v, err := normalizeScalar(s.Value, f.Type)
	if err != nil {
		return nil, err
	}
	return squirrel.Eq{f.SQL: v}, nil
}

func (l List) condition(f model.Field) (squirrel.Sqlizer, error) {
	typ := f.Type
	if typ == model.TypeStringArray {
		typ = model.TypeString
	}
	values := make([]any, 0, len(l.Values))
	for _, it := range l.Values {
		v, err := normalizeScalar(it, typ)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if f.Type == model.TypeStringArray {
		if len(values) == 0 {
			return squirrel.Expr("1=0"), nil
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
		return squirrel.Expr(fmt.Sprintf("%s && ARRAY[%s]::text[]", f.SQL, placeholders), values...), nil
	}
	return squirrel.Eq{f.SQL: values}, nil
}

func (r Range) condition(f model.Field) (squirrel.Sqlizer, error) {
	if f.Type != model.TypeInt && f.Type != model.TypeFloat {
		return nil, fmt.Errorf("{min,max} needs a numeric column, %s is %s", f.Path, f.Type)
	}
	var parts squirrel.And
	if r.Min != nil {
		parts = append(parts, squirrel.GtOrEq{f.SQL: *r.Min})
	}
	if r.Max != nil {
		parts = append(parts, squirrel.LtOrEq{f.SQL: *r.Max})
	}
	// {} без границ ничего не ограничивает
	if len(parts) == 0 {
		return squirrel.Expr("1=1"), nil
	}
	return parts, nil
}

func (d DateRange) condition(f model.Field) (squirrel.Sqlizer, error) {
	if f.Type != model.TypeDate && f.Type != model.TypeDatetime {
		return nil, fmt.Errorf("{start,end} needs a date column, %s is %s", f.Path, f.Type)
	}
	var parts squirrel.And
	if d.Start != nil {
		parts = append(parts, squirrel.GtOrEq{f.SQL: *d.Start})
	}
	if d.End != nil {
		if d.EndIsDate {
			parts = append(parts, squirrel.Lt{f.SQL: d.End.AddDate(0, 0, 1)})
		} else {
			parts = append(parts, squirrel.LtOrEq{f.SQL: *d.End})
		}
	}
	if len(parts) == 0 {
		return squirrel.Expr("1=1"), nil
	}
	return parts, nil
}
