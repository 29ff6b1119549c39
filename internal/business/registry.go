package business

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Predicate reports whether item passes one business filter.
type Predicate[T any] func(item T) (bool, error)

// Resolver decodes the client value of one business filter into a predicate.
// Decode runs at parse time, so a malformed value never reaches the predicate.
type Resolver[T any] interface {
	Decode(raw json.RawMessage) (Predicate[T], error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc[T any] func(raw json.RawMessage) (Predicate[T], error)

func (f ResolverFunc[T]) Decode(raw json.RawMessage) (Predicate[T], error) {
	return f(raw)
}

// Descriptor is one named entry of a Registry.
type Descriptor[T any] struct {
	Name        string
	Description string
	Resolver    Resolver[T]
}

// Description is the client facing part of a Descriptor.
type Description struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry maps business filter names of one entity type to resolvers.
// It is filled at process start and only read afterwards, so it is safe for concurrent use.
type Registry[T any] struct {
	entity string
	byName map[string]Descriptor[T]
	sealed bool
}

func NewRegistry[T any](entity string) *Registry[T] {
	return &Registry[T]{entity: entity, byName: map[string]Descriptor[T]{}}
}

func (r *Registry[T]) Entity() string {
	return r.entity
}

// Register adds d. Duplicate names and registration after Validate are errors.
func (r *Registry[T]) Register(d Descriptor[T]) error {
	if r.sealed {
		return fmt.Errorf("business filters of %s: registry is sealed, cannot add %q", r.entity, d.Name)
	}
	if d.Name == "" || d.Resolver == nil {
		return fmt.Errorf("business filters of %s: name and resolver are required", r.entity)
	}
	if _, exists := r.byName[d.Name]; exists {
		return fmt.Errorf("business filters of %s: duplicate filter %q", r.entity, d.Name)
	}
	r.byName[d.Name] = d
	return nil
}

// MustRegister is Register for process start: a duplicate is a programming error.
func (r *Registry[T]) MustRegister(ds ...Descriptor[T]) *Registry[T] {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Names returns the registered names sorted.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry[T]) Descriptions() []Description {
	out := make([]Description, 0, len(r.byName))
	for _, name := range r.Names() {
		out = append(out, Description{Name: name, Description: r.byName[name].Description})
	}
	return out
}

// Validate checks the registry against the names the entity declares and seals it.
// Both directions must match: nothing declared is left unregistered and nothing extra is exposed.
func (r *Registry[T]) Validate(declared []string) error {
	want := map[string]bool{}
	for _, name := range declared {
		want[name] = true
	}
	var missing, extra []string
	for name := range want {
		if _, ok := r.byName[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name := range r.byName {
		if !want[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "declared but not registered: "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		problems = append(problems, "registered but not declared: "+strings.Join(extra, ", "))
	}
	if len(problems) > 0 {
		return fmt.Errorf("business filters of %s: %s", r.entity, strings.Join(problems, "; "))
	}
	r.sealed = true
	return nil
}

// Parse resolves a client payload. Unknown names fail the whole payload before any value is decoded.
func (r *Registry[T]) Parse(raw map[string]json.RawMessage) (Parsed[T], error) {
	if len(raw) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(raw))
	var invalid []string
	for name := range raw {
		if _, ok := r.byName[name]; !ok {
			invalid = append(invalid, name)
			continue
		}
		names = append(names, name)
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, &ValidationError{Entity: r.entity, InvalidKeys: invalid, Allowed: r.Names()}
	}
	sort.Strings(names)

	parsed := make(Parsed[T], 0, len(names))
	for _, name := range names {
		pred, err := r.byName[name].Resolver.Decode(raw[name])
		if err != nil {
			return nil, &ValidationError{Entity: r.entity, Filter: name, Reason: err.Error()}
		}
		parsed = append(parsed, Filter[T]{Name: name, Value: raw[name], match: pred})
	}
	return parsed, nil
}
