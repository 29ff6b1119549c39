package fleet

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Row readers for the values pgx returns from rows.Values().
// A missing key reads as NULL.

func uuidValue(row map[string]any, key string) (uuid.UUID, error) {
	id, err := optUUID(row, key)
	if err != nil {
		return uuid.Nil, err
	}
	if id == nil {
		return uuid.Nil, fmt.Errorf("%s: unexpected NULL", key)
	}
	return *id, nil
}

func optUUID(row map[string]any, key string) (*uuid.UUID, error) {
	var id uuid.UUID
	switch v := row[key].(type) {
	case nil:
		return nil, nil
	case [16]byte:
		id = uuid.UUID(v)
	case uuid.UUID:
		id = v
	case string:
		parsed, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		id = parsed
	default:
		return nil, fmt.Errorf("%s: unexpected %T for UUID", key, v)
	}
	return &id, nil
}

func stringValue(row map[string]any, key string) (string, error) {
	switch v := row[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%s: unexpected %T for string", key, v)
	}
}

func intValue(row map[string]any, key string) (int, error) {
	switch v := row[key].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case int16:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s: unexpected %T for int", key, v)
	}
}

func timeValue(row map[string]any, key string) (time.Time, error) {
	t, err := optTime(row, key)
	if err != nil || t == nil {
		return time.Time{}, err
	}
	return *t, nil
}

func optTime(row map[string]any, key string) (*time.Time, error) {
	switch v := row[key].(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &v, nil
	default:
		return nil, fmt.Errorf("%s: unexpected %T for time", key, v)
	}
}

// stringsValue reads text[]; pgx hands arrays over as []any.
func stringsValue(row map[string]any, key string) ([]string, error) {
	switch v := row[key].(type) {
	case nil:
		return []string{}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, el := range v {
			s, ok := el.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: unexpected %T for string", key, i, el)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: unexpected %T for string array", key, v)
	}
}

// reader collects the first conversion error so mappers stay linear.
type reader struct {
	row map[string]any
	err error
}

func (r *reader) id(key string) uuid.UUID {
	v, err := uuidValue(r.row, key)
	r.keep(err)
	return v
}

func (r *reader) optID(key string) *uuid.UUID {
	v, err := optUUID(r.row, key)
	r.keep(err)
	return v
}

func (r *reader) str(key string) string {
	v, err := stringValue(r.row, key)
	r.keep(err)
	return v
}

func (r *reader) num(key string) int {
	v, err := intValue(r.row, key)
	r.keep(err)
	return v
}

func (r *reader) at(key string) time.Time {
	v, err := timeValue(r.row, key)
	r.keep(err)
	return v
}

func (r *reader) optAt(key string) *time.Time {
	v, err := optTime(r.row, key)
	r.keep(err)
	return v
}

func (r *reader) list(key string) []string {
	v, err := stringsValue(r.row, key)
	r.keep(err)
	return v
}

func (r *reader) keep(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}
