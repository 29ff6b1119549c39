// Package listing runs the two stage list pipeline: storage query, then business filters.
package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"FleetAPI/internal/business"
	"FleetAPI/internal/logger"
	"FleetAPI/internal/metrics"
	"FleetAPI/internal/model"
	"FleetAPI/internal/query"
)

// Request is one list call as the client sends it, minus the entity name.
type Request struct {
	Search          string                     `json:"search"`
	Filters         map[string]json.RawMessage `json:"filters"`
	BusinessFilters map[string]json.RawMessage `json:"businessFilters"`
	SortBy          string                     `json:"sortBy"`
	Order           string                     `json:"order"`
	Skip            int                        `json:"skip"`
	Take            int                        `json:"take"`
}

// Response carries the surviving page. Total counts stage-1 matches only,
// so len(Items) may be below take while more matches exist.
type Response[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Store is the storage engine.
type Store interface {
	Fetch(ctx context.Context, q query.Query) ([]map[string]any, int, error)
}

// Mapper projects one storage row into the record type the resolvers read.
type Mapper[T any] func(row map[string]any) (T, error)

// Endpoint is a Service with its record type erased, for routing by entity name.
type Endpoint interface {
	Entity() string
	Run(ctx context.Context, req Request) (any, error)
	Filters() []business.Description
}

// Service lists one entity type.
type Service[T any] struct {
	entity   *model.Entity
	builder  *query.Builder
	store    Store
	registry *business.Registry[T]
	mapper   Mapper[T]
	metrics  *metrics.Metrics
}

func NewService[T any](e *model.Entity, b *query.Builder, s Store, reg *business.Registry[T], mapper Mapper[T], m *metrics.Metrics) *Service[T] {
	return &Service[T]{entity: e, builder: b, store: s, registry: reg, mapper: mapper, metrics: m}
}

func (s *Service[T]) Entity() string {
	return s.entity.Name
}

func (s *Service[T]) Filters() []business.Description {
	return s.registry.Descriptions()
}

func (s *Service[T]) Run(ctx context.Context, req Request) (any, error) {
	return s.List(ctx, req)
}

// List validates the whole request before touching storage, fetches one page,
// maps it and applies the business filters.
func (s *Service[T]) List(ctx context.Context, req Request) (Response[T], error) {
	resp, err := s.list(ctx, req)
	s.metrics.RecordRequest(s.entity.Name, outcome(err))
	return resp, err
}

func (s *Service[T]) list(ctx context.Context, req Request) (Response[T], error) {
	parsed, err := s.registry.Parse(req.BusinessFilters)
	if err != nil {
		return Response[T]{}, err
	}
	filters, err := query.DecodeFilters(req.Filters)
	if err != nil {
		return Response[T]{}, err
	}

	spec := query.QuerySpec{
		Search:  req.Search,
		Filters: filters,
		Skip:    req.Skip,
		Take:    req.Take,
	}
	if req.SortBy != "" {
		spec.Sort = &query.Sort{Field: req.SortBy, Order: strings.ToLower(req.Order)}
	}

	q, err := s.builder.Build(spec, s.entity)
	if err != nil {
		return Response[T]{}, err
	}

	rows, total, err := s.store.Fetch(ctx, q)
	if err != nil {
		return Response[T]{}, fmt.Errorf("fetch %s: %w", s.entity.Name, err)
	}

	items := make([]T, 0, len(rows))
	for i, row := range rows {
		item, err := s.mapper(row)
		if err != nil {
			return Response[T]{}, fmt.Errorf("map %s row %d: %w", s.entity.Name, i, err)
		}
		items = append(items, item)
	}

	kept, err := business.Apply(items, parsed)
	if err != nil {
		return Response[T]{}, err
	}
	s.metrics.RecordDropped(s.entity.Name, len(items)-len(kept))

	if logger.DebugEnabled() {
		logger.Debug("list_done", map[string]any{
			"entity":           s.entity.Name,
			"stage1_rows":      len(items),
			"stage1_total":     total,
			"stage2_kept":      len(kept),
			"business_filters": parsed.Names(),
		})
	}

	return Response[T]{Items: kept, Total: total}, nil
}

// IsValidation reports whether err is a client error of the pipeline.
func IsValidation(err error) bool {
	var qErr *query.ValidationError
	var bErr *business.ValidationError
	return errors.As(err, &qErr) || errors.As(err, &bErr)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case IsValidation(err):
		return metrics.OutcomeValidation
	default:
		return metrics.OutcomeInternal
	}
}
