package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"FleetAPI/internal/business"
	"FleetAPI/internal/config"
	"FleetAPI/internal/listing"
	"FleetAPI/internal/metrics"
)

type echoEndpoint struct{}

func (echoEndpoint) Entity() string { return "vehicles" }
func (echoEndpoint) Run(context.Context, listing.Request) (any, error) {
	return listing.Response[int]{Items: []int{1, 2}, Total: 2}, nil
}
func (echoEndpoint) Filters() []business.Description { return nil }

func testConfig() *config.Config {
	return &config.Config{CORS: config.CORSConfig{AllowOrigin: "*"}}
}

func TestRouterServesIndex(t *testing.T) {
	m, err := metrics.New()
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	h := NewRouter(testConfig(), map[string]listing.Endpoint{"vehicles": echoEndpoint{}}, m, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/index", strings.NewReader(`{"entity":"vehicles"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"items":[1,2],"total":2}` {
		t.Fatalf("body %s", got)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("CORS headers missing")
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("request id missing")
	}
}

func TestRouterKeepsIncomingRequestID(t *testing.T) {
	h := NewRouter(testConfig(), nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}

func TestRouterHealthFailure(t *testing.T) {
	h := NewRouter(testConfig(), nil, nil, func(context.Context) error { return errors.New("pg down") })
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	m, err := metrics.New()
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	m.RecordRequest("vehicles", metrics.OutcomeOK)
	h := NewRouter(testConfig(), nil, m, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "fleetapi_list_requests_total") {
		t.Fatalf("metrics body lacks list counter")
	}
}

func TestRouterAnswersPreflight(t *testing.T) {
	h := NewRouter(testConfig(), map[string]listing.Endpoint{"vehicles": echoEndpoint{}}, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/index", nil)
	req.Header.Set("Origin", "http://fleet.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("preflight lacks allow methods")
	}
}
