package router

import (
	"context"
	"net/http"
	"time"

	"FleetAPI/internal/config"
	"FleetAPI/internal/handler"
	"FleetAPI/internal/listing"
	"FleetAPI/internal/logger"
	"FleetAPI/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// HealthCheck reports whether the backing services answer.
type HealthCheck func(ctx context.Context) error

// NewRouter инициализирует маршруты для API.
func NewRouter(cfg *config.Config, endpoints map[string]listing.Endpoint, m *metrics.Metrics, health HealthCheck) http.Handler {
	mux := chi.NewRouter()
	mux.Use(withLogging, middleware.Recoverer)

	mux.Route("/api", func(api chi.Router) {
		api.Use(CORS(cfg.CORS))
		// методы проверяют сами обработчики, OPTIONS отвечает CORS
		api.Handle("/index", handler.NewIndex(endpoints))
		api.Handle("/business_filters", handler.NewBusinessFilters(endpoints))
	})

	mux.Handle("/metrics", m.Handler())
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				logger.Warn("health_check_failed", map[string]any{"error": err})
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := map[string]any{
			"request_id":  id,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      status,
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(started).Milliseconds(),
		}
		switch {
		case status >= 500:
			logger.Error("response", fields)
		case status >= 400:
			logger.Warn("response", fields)
		case r.URL.Path == "/metrics" || r.URL.Path == "/healthz":
			logger.Debug("response", fields)
		default:
			logger.Info("response", fields)
		}
	})
}
