package business

import (
	"encoding/json"
	"fmt"
)

// Filter is one parsed business filter, ready to run.
type Filter[T any] struct {
	Name  string
	Value json.RawMessage
	match Predicate[T]
}

// Parsed is the ordered result of Registry.Parse.
type Parsed[T any] []Filter[T]

func (p Parsed[T]) Names() []string {
	names := make([]string, len(p))
	for i, f := range p {
		names[i] = f.Name
	}
	return names
}

// Apply keeps the items for which every filter matches, in input order.
// items is never modified. The first predicate failure aborts with an *InternalError.
func Apply[T any](items []T, parsed Parsed[T]) ([]T, error) {
	if len(parsed) == 0 {
		return items, nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		keep, err := matchAll(item, parsed)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, item)
		}
	}
	return out, nil
}

func matchAll[T any](item T, parsed Parsed[T]) (bool, error) {
	for _, f := range parsed {
		ok, err := f.run(item)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (f Filter[T]) run(item T) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			ok, err = false, &InternalError{Filter: f.Name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	ok, err = f.match(item)
	if err != nil {
		return false, &InternalError{Filter: f.Name, Err: err}
	}
	return ok, nil
}
