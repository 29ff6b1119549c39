package model

import (
	"fmt"
	"sort"
	"strings"
)

// ResolveField turns "column" or "relation.column" into its SQL expression.
// Paths deeper than one relation hop are rejected.
func (e *Entity) ResolveField(path string) (Field, error) {
	parts := strings.Split(path, ".")
	switch len(parts) {
	case 1:
		col := e.GetColumn(parts[0])
		if col == nil {
			return Field{}, fmt.Errorf("unknown column %q", path)
		}
		return Field{Path: path, SQL: col.sql(parts[0]), Type: col.Type}, nil
	case 2:
		rel := e.GetRelation(parts[0])
		if rel == nil {
			return Field{}, fmt.Errorf("unknown relation %q in %q", parts[0], path)
		}
		typ, ok := rel.Columns[parts[1]]
		if !ok {
			return Field{}, fmt.Errorf("relation %q has no column %q", parts[0], parts[1])
		}
		return Field{Path: path, SQL: rel.Alias() + "." + parts[1], Type: typ, Relation: rel}, nil
	default:
		return Field{}, fmt.Errorf("field %q is more than one relation hop deep", path)
	}
}

// Field returns a field declared in filterable, searchable or sortable.
func (e *Entity) Field(path string) (Field, bool) {
	f, ok := e._fields[path]
	return f, ok
}

// SearchableFields returns the search field set in declaration order.
func (e *Entity) SearchableFields() []Field {
	out := make([]Field, 0, len(e.Searchable))
	for _, p := range e.Searchable {
		out = append(out, e._fields[p])
	}
	return out
}

// ColumnNames returns output column names sorted, so SELECT lists are stable.
func (e *Entity) ColumnNames() []string {
	names := make([]string, 0, len(e.Columns))
	for name := range e.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectColumns returns `expr AS "name"` for every column.
func (e *Entity) SelectColumns() []string {
	names := e.ColumnNames()
	cols := make([]string, 0, len(names))
	for _, name := range names {
		cols = append(cols, fmt.Sprintf("%s AS %q", e.Columns[name].sql(name), name))
	}
	return cols
}

func (c *Column) sql(name string) string {
	if c.Expr != "" {
		return c.Expr
	}
	src := c.Source
	if src == "" {
		src = name
	}
	return "main." + src
}

// link validates the definition and precomputes the declared field paths.
func (e *Entity) link() error {
	if e.Table == "" {
		return fmt.Errorf("table is required")
	}
	if len(e.Columns) == 0 {
		return fmt.Errorf("at least one column is required")
	}
	for name, col := range e.Columns {
		if col == nil || col.Type == "" {
			return fmt.Errorf("column %q: type is required", name)
		}
	}
	pk := e.GetPrimaryKey()
	if e.GetColumn(pk) == nil {
		return fmt.Errorf("primary key %q must be declared as a column", pk)
	}

	for name, rel := range e.Relations {
		if rel == nil {
			return fmt.Errorf("relation %q is empty", name)
		}
		rel.name = name
		if rel.Type != BelongsTo && rel.Type != HasMany {
			return fmt.Errorf("relation %q: unsupported type %q (allowed: %s, %s)", name, rel.Type, BelongsTo, HasMany)
		}
		if rel.Table == "" || rel.FK == "" {
			return fmt.Errorf("relation %q: table and fk are required", name)
		}
		if rel.PK == "" {
			if rel.Type == HasMany {
				rel.PK = pk
			} else {
				rel.PK = "id"
			}
		}
		if len(rel.Columns) == 0 {
			return fmt.Errorf("relation %q: columns are required", name)
		}
	}

	e._fields = map[string]Field{}
	resolve := func(kind string, paths StringList, check func(Field) error) error {
		seen := map[string]bool{}
		for _, p := range paths {
			if seen[p] {
				return fmt.Errorf("%s: duplicate field %q", kind, p)
			}
			seen[p] = true
			f, err := e.ResolveField(p)
			if err != nil {
				return fmt.Errorf("%s: %w", kind, err)
			}
			if check != nil {
				if err := check(f); err != nil {
					return fmt.Errorf("%s: field %q %w", kind, p, err)
				}
			}
			e._fields[p] = f
		}
		return nil
	}

	if err := resolve("filterable", e.Filterable, nil); err != nil {
		return err
	}
	if err := resolve("searchable", e.Searchable, func(f Field) error {
		if f.Type != TypeString {
			return fmt.Errorf("must be of type string, got %s", f.Type)
		}
		return nil
	}); err != nil {
		return err
	}
	if err := resolve("sortable", e.Sortable, func(f Field) error {
		if f.Relation != nil && f.Relation.Type == HasMany {
			return fmt.Errorf("cannot sort by a has_many relation")
		}
		if f.Type == TypeStringArray {
			return fmt.Errorf("cannot sort by an array column")
		}
		return nil
	}); err != nil {
		return err
	}

	if e.DefaultSort.Field == "" {
		e.DefaultSort.Field = pk
	}
	if !e.Sortable.Contains(e.DefaultSort.Field) && e.DefaultSort.Field != pk {
		return fmt.Errorf("default_sort: field %q must be sortable", e.DefaultSort.Field)
	}
	if _, ok := e._fields[pk]; !ok {
		f, _ := e.ResolveField(pk)
		e._fields[pk] = f
	}
	switch order := strings.ToLower(e.DefaultSort.Order); order {
	case "":
		e.DefaultSort.Order = "desc"
	case "asc", "desc":
		e.DefaultSort.Order = order
	default:
		return fmt.Errorf("default_sort: order must be asc or desc, got %q", e.DefaultSort.Order)
	}

	seen := map[string]bool{}
	for _, name := range e.BusinessFilters {
		if seen[name] {
			return fmt.Errorf("business_filters: duplicate %q", name)
		}
		seen[name] = true
	}
	return nil
}
