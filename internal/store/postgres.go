// Package store executes built queries against PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"FleetAPI/internal/logger"
	"FleetAPI/internal/metrics"
	"FleetAPI/internal/query"

	"github.com/jackc/pgx/v5"
)

// Querier is the part of *pgxpool.Pool the store needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Postgres struct {
	db      Querier
	cache   *CountCache
	metrics *metrics.Metrics
}

// NewPostgres wires the storage engine. cache and m may be nil.
func NewPostgres(db Querier, cache *CountCache, m *metrics.Metrics) *Postgres {
	return &Postgres{db: db, cache: cache, metrics: m}
}

// Fetch runs the page query and returns its rows with the stage-1 total.
// The count query is skipped when the page itself proves the total.
func (p *Postgres) Fetch(ctx context.Context, q query.Query) ([]map[string]any, int, error) {
	started := time.Now()
	defer func() { p.metrics.ObserveFetch(q.Entity.Name, time.Since(started)) }()

	sqlStr, args, err := q.Select().ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build select for %s: %w", q.Entity.Name, err)
	}
	logger.Debug("sql_select", map[string]any{"entity": q.Entity.Name, "sql": sqlStr, "args": args})

	rows, err := p.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select %s: %w", q.Entity.Name, err)
	}
	items, err := ScanRows(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", q.Entity.Name, err)
	}

	if total, ok := totalFromPage(q, len(items)); ok {
		return items, total, nil
	}

	countSQL, countArgs, err := q.Count().ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count for %s: %w", q.Entity.Name, err)
	}
	total, err := p.cache.Total(ctx, q.Entity.Name, countSQL, countArgs, func(ctx context.Context) (int, error) {
		logger.Debug("sql_count", map[string]any{"entity": q.Entity.Name, "sql": countSQL, "args": countArgs})
		var n int
		if err := p.db.QueryRow(ctx, countSQL, countArgs...).Scan(&n); err != nil {
			return 0, err
		}
		return n, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", q.Entity.Name, err)
	}
	return items, total, nil
}

// A short, non-empty page (or a short first page) ends the result set.
func totalFromPage(q query.Query, n int) (int, bool) {
	if q.Take == 0 || uint64(n) >= q.Take {
		return 0, false
	}
	if n == 0 && q.Skip > 0 {
		return 0, false
	}
	return int(q.Skip) + n, true
}

// ScanRows reads rows into maps keyed by the result column names.
func ScanRows(rows pgx.Rows) ([]map[string]any, error) {
	if rows == nil {
		return nil, fmt.Errorf("rows is nil")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Name
	}

	out := make([]map[string]any, 0, 32)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(keys))
		for i := 0; i < len(keys) && i < len(vals); i++ {
			row[keys[i]] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
