package query

import (
	"fmt"
	"sort"
	"strings"

	"FleetAPI/internal/logger"
	"FleetAPI/internal/model"

	"github.com/Masterminds/squirrel"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// QuerySpec is the normalized list request. It lives for one request only.
type QuerySpec struct {
	Search  string
	Filters map[string]FilterValue
	Sort    *Sort
	Skip    int
	Take    int
}

type Sort struct {
	Field string
	Order string
}

// Query holds the storage arguments built from a QuerySpec.
type Query struct {
	Entity  *model.Entity
	Skip    uint64
	Take    uint64
	Where   squirrel.Sqlizer // nil when nothing is filtered
	OrderBy []string
	Joins   []string
}

type Options struct {
	DefaultTake int
	MaxTake     int
	// StrictSort turns an unknown sort field into a ValidationError instead of the default sort.
	StrictSort bool
}

type Builder struct {
	opts Options
}

func NewBuilder(opts Options) *Builder {
	if opts.MaxTake <= 0 {
		opts.MaxTake = 100
	}
	if opts.DefaultTake <= 0 || opts.DefaultTake > opts.MaxTake {
		opts.DefaultTake = min(20, opts.MaxTake)
	}
	return &Builder{opts: opts}
}

// Paginate clamps pagination instead of failing.
func (b *Builder) Paginate(skip, take int) (uint64, uint64) {
	if skip < 0 {
		skip = 0
	}
	switch {
	case take <= 0:
		take = b.opts.DefaultTake
	case take > b.opts.MaxTake:
		take = b.opts.MaxTake
	}
	return uint64(skip), uint64(take)
}

// Build translates spec into storage arguments for entity e.
func (b *Builder) Build(spec QuerySpec, e *model.Entity) (Query, error) {
	q := Query{Entity: e}
	q.Skip, q.Take = b.Paginate(spec.Skip, spec.Take)

	joins := map[string]*model.Relation{}
	var conds []squirrel.Sqlizer

	// 1. Структурные фильтры, в стабильном порядке ключей
	keys := make([]string, 0, len(spec.Filters))
	for k := range spec.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !e.Filterable.Contains(key) {
			return Query{}, &ValidationError{Param: "filters." + key, Reason: "field is not filterable"}
		}
		f, _ := e.Field(key)
		cond, err := spec.Filters[key].condition(f)
		if err != nil {
			return Query{}, &ValidationError{Param: "filters." + key, Reason: err.Error()}
		}
		scoped, err := scope(f, cond, joins)
		if err != nil {
			return Query{}, err
		}
		conds = append(conds, scoped)
	}

	// 2. Поиск: OR по полям, AND со всеми фильтрами
	if term := strings.TrimSpace(spec.Search); term != "" {
		search, err := searchCondition(term, e.SearchableFields(), joins)
		if err != nil {
			return Query{}, err
		}
		conds = append(conds, search)
	}
	if len(conds) > 0 {
		q.Where = squirrel.And(conds)
	}

	// 3. ORDER BY
	orderBy, err := b.orderBy(spec.Sort, e, joins)
	if err != nil {
		return Query{}, err
	}
	q.OrderBy = orderBy

	names := make([]string, 0, len(joins))
	for name := range joins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rel := joins[name]
		q.Joins = append(q.Joins, fmt.Sprintf("%s AS %s ON %s.%s = main.%s",
			rel.Table, rel.Alias(), rel.Alias(), rel.PK, rel.FK))
	}
	return q, nil
}

// searchCondition ORs a case-insensitive contains match over fields.
func searchCondition(term string, fields []model.Field, joins map[string]*model.Relation) (squirrel.Sqlizer, error) {
	if len(fields) == 0 {
		return squirrel.Expr("1=0"), nil
	}
	pattern := "%" + escapeLike(term) + "%"
	ors := make(squirrel.Or, 0, len(fields))
	for _, f := range fields {
		cond, err := scope(f, squirrel.ILike{f.SQL: pattern}, joins)
		if err != nil {
			return nil, err
		}
		ors = append(ors, cond)
	}
	return ors, nil
}

// scope makes cond usable from main: belongs_to needs a join, has_many becomes EXISTS.
func scope(f model.Field, cond squirrel.Sqlizer, joins map[string]*model.Relation) (squirrel.Sqlizer, error) {
	rel := f.Relation
	if rel == nil {
		return cond, nil
	}
	if rel.Type == model.BelongsTo {
		joins[rel.Name()] = rel
		return cond, nil
	}
	sub := squirrel.Select("1").
		From(fmt.Sprintf("%s AS %s", rel.Table, rel.Alias())).
		Where(fmt.Sprintf("%s.%s = main.%s", rel.Alias(), rel.FK, rel.PK)).
		Where(cond)
	sqlStr, args, err := sub.ToSql()
	if err != nil {
		return nil, fmt.Errorf("exists subquery for %s: %w", f.Path, err)
	}
	return squirrel.Expr("EXISTS ("+sqlStr+")", args...), nil
}

func (b *Builder) orderBy(s *Sort, e *model.Entity, joins map[string]*model.Relation) ([]string, error) {
	field, order := e.DefaultSort.Field, e.DefaultSort.Order

	if s != nil && s.Field != "" {
		requested := strings.ToLower(strings.TrimSpace(s.Order))
		switch {
		case !e.Sortable.Contains(s.Field) && b.opts.StrictSort:
			return nil, &ValidationError{Param: "sortBy", Reason: fmt.Sprintf("%q is not sortable", s.Field)}
		case !e.Sortable.Contains(s.Field):
			logger.Warn("sort_field_rejected", map[string]any{"entity": e.Name, "sortBy": s.Field})
		case requested != "" && requested != OrderAsc && requested != OrderDesc && b.opts.StrictSort:
			return nil, &ValidationError{Param: "order", Reason: fmt.Sprintf("%q is neither asc nor desc", s.Order)}
		default:
			field = s.Field
			order = OrderAsc
			if requested == OrderDesc {
				order = OrderDesc
			}
		}
	}

	f, ok := e.Field(field)
	if !ok {
		return nil, fmt.Errorf("sort field %q of %s is not resolved", field, e.Name)
	}
	if f.Relation != nil {
		joins[f.Relation.Name()] = f.Relation
	}
	dir := strings.ToUpper(order)
	out := []string{f.SQL + " " + dir}

	// tie-break по первичному ключу: без него страницы могут дублировать/терять строки
	pk := e.GetPrimaryKey()
	if field != pk {
		pkField, _ := e.Field(pk)
		out = append(out, pkField.SQL+" "+dir)
	}
	return out, nil
}

// Select builds the page query.
func (q Query) Select() squirrel.SelectBuilder {
	sb := q.from(squirrel.Select(q.Entity.SelectColumns()...))
	sb = sb.OrderBy(q.OrderBy...)
	if q.Take > 0 {
		sb = sb.Limit(q.Take)
	}
	if q.Skip > 0 {
		sb = sb.Offset(q.Skip)
	}
	return sb
}

// Count builds the stage-1 total query. Joins are belongs_to only, so COUNT(*) is exact.
func (q Query) Count() squirrel.SelectBuilder {
	return q.from(squirrel.Select("COUNT(*)"))
}

func (q Query) from(sb squirrel.SelectBuilder) squirrel.SelectBuilder {
	sb = sb.From(fmt.Sprintf("%s AS main", q.Entity.Table)).PlaceholderFormat(squirrel.Dollar)
	for _, j := range q.Joins {
		sb = sb.LeftJoin(j)
	}
	if q.Where != nil {
		sb = sb.Where(q.Where)
	}
	return sb
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
