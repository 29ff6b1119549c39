// Package metrics holds the prometheus collectors of the listing pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fleetapi"

// Outcome labels of list requests.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation_error"
	OutcomeInternal   = "internal_error"
)

type Metrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	fetch      *prometheus.HistogramVec
	countCache *prometheus.CounterVec
}

// New creates the collectors on a private registry, plus the go and process collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_requests_total",
			Help:      "List requests by entity and outcome.",
		}, []string{"entity", "outcome"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "business_filter_dropped_total",
			Help:      "Fetched records removed by business filters.",
		}, []string{"entity"}),
		fetch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_fetch_duration_seconds",
			Help:      "Duration of the page and count queries of one request.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"entity"}),
		countCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "count_cache_lookups_total",
			Help:      "Stage-1 total cache lookups by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{
		m.requests, m.dropped, m.fetch, m.countCache,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(entity, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(entity, outcome).Inc()
}

func (m *Metrics) RecordDropped(entity string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.dropped.WithLabelValues(entity).Add(float64(n))
}

func (m *Metrics) ObserveFetch(entity string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetch.WithLabelValues(entity).Observe(d.Seconds())
}

// RecordCountCache takes "hit", "miss" or "error".
func (m *Metrics) RecordCountCache(result string) {
	if m == nil {
		return
	}
	m.countCache.WithLabelValues(result).Inc()
}
