package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"FleetAPI/internal/business"
	"FleetAPI/internal/listing"
	"FleetAPI/internal/query"

	"github.com/google/go-cmp/cmp"
)

type stubEndpoint struct {
	name    string
	result  any
	err     error
	lastReq listing.Request
	calls   int
}

func (s *stubEndpoint) Entity() string { return s.name }

func (s *stubEndpoint) Run(_ context.Context, req listing.Request) (any, error) {
	s.calls++
	s.lastReq = req
	return s.result, s.err
}

func (s *stubEndpoint) Filters() []business.Description {
	return []business.Description{{Name: "status", Description: "expiry status"}}
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/index", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestIndexReturnsItemsAndTotal(t *testing.T) {
	ep := &stubEndpoint{name: "vehicles", result: listing.Response[string]{Items: []string{"a"}, Total: 9}}
	h := NewIndex(map[string]listing.Endpoint{"vehicles": ep})

	rec := post(t, h, `{"entity":"vehicles","search":" ab ","sortBy":"make","order":"desc","skip":20,"take":10,
		"filters":{"make":"Volvo"},"businessFilters":{"status":"expired"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if diff := cmp.Diff(map[string]any{"items": []any{"a"}, "total": float64(9)}, decode(t, rec)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	want := listing.Request{
		Search:          " ab ",
		Filters:         map[string]json.RawMessage{"make": json.RawMessage(`"Volvo"`)},
		BusinessFilters: map[string]json.RawMessage{"status": json.RawMessage(`"expired"`)},
		SortBy:          "make",
		Order:           "desc",
		Skip:            20,
		Take:            10,
	}
	if diff := cmp.Diff(want, ep.lastReq); diff != "" {
		t.Fatalf("request (-want +got):\n%s", diff)
	}
}

func TestIndexPaginationFallsBackToDefaults(t *testing.T) {
	ep := &stubEndpoint{name: "vehicles", result: listing.Response[string]{Items: []string{}}}
	h := NewIndex(map[string]listing.Endpoint{"vehicles": ep})

	for _, body := range []string{
		`{"entity":"vehicles"}`,
		`{"entity":"vehicles","skip":1.5,"take":2.7}`,
		`{"entity":"vehicles","skip":null,"take":-1e12}`,
	} {
		if rec := post(t, h, body); rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", body, rec.Code)
		}
		if ep.lastReq.Skip != -1 || ep.lastReq.Take != -1 {
			t.Fatalf("%s: skip=%d take=%d, want defaults", body, ep.lastReq.Skip, ep.lastReq.Take)
		}
	}
}

func TestIndexPaginationSaturatesOversizedValues(t *testing.T) {
	ep := &stubEndpoint{name: "vehicles", result: listing.Response[string]{Items: []string{}}}
	h := NewIndex(map[string]listing.Endpoint{"vehicles": ep})

	for _, body := range []string{
		`{"entity":"vehicles","skip":1e12,"take":1e12}`,
		`{"entity":"vehicles","skip":4294967296,"take":2147483648}`,
	} {
		if rec := post(t, h, body); rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", body, rec.Code)
		}
		if ep.lastReq.Skip != math.MaxInt32 || ep.lastReq.Take != math.MaxInt32 {
			t.Fatalf("%s: skip=%d take=%d, want MaxInt32", body, ep.lastReq.Skip, ep.lastReq.Take)
		}
	}
}

func TestIndexNamesInvalidBusinessFilterKeys(t *testing.T) {
	ep := &stubEndpoint{name: "vehicles", err: &business.ValidationError{
		Entity:      "vehicles",
		InvalidKeys: []string{"bogus", "nope"},
		Allowed:     []string{"status"},
	}}
	rec := post(t, NewIndex(map[string]listing.Endpoint{"vehicles": ep}), `{"entity":"vehicles","businessFilters":{"bogus":1,"nope":2}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	got := decode(t, rec)
	if diff := cmp.Diff([]any{"bogus", "nope"}, got["invalidKeys"]); diff != "" {
		t.Fatalf("invalidKeys (-want +got):\n%s", diff)
	}
	if got["param"] != "businessFilters" {
		t.Fatalf("param = %v", got["param"])
	}
}

func TestIndexErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"filter", &query.ValidationError{Param: "filters.make", Reason: "field is not filterable"}, http.StatusBadRequest},
		{"wrapped filter", errors.Join(errors.New("ctx"), &query.ValidationError{Param: "sortBy"}), http.StatusBadRequest},
		{"predicate", &business.InternalError{Filter: "status", Err: errors.New("boom")}, http.StatusInternalServerError},
		{"storage", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		ep := &stubEndpoint{name: "vehicles", err: c.err}
		rec := post(t, NewIndex(map[string]listing.Endpoint{"vehicles": ep}), `{"entity":"vehicles"}`)
		if rec.Code != c.code {
			t.Fatalf("%s: status %d, want %d", c.name, rec.Code, c.code)
		}
		if c.code == http.StatusInternalServerError && decode(t, rec)["error"] != "internal error" {
			t.Fatalf("%s: internal details must not leak: %s", c.name, rec.Body.String())
		}
	}
}

func TestIndexRejectsBadRequests(t *testing.T) {
	ep := &stubEndpoint{name: "vehicles"}
	h := NewIndex(map[string]listing.Endpoint{"vehicles": ep})

	if rec := post(t, h, `{"entity":`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status %d", rec.Code)
	}
	if rec := post(t, h, `{"entity":"boats"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown entity: status %d", rec.Code)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/index", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: status %d", rec.Code)
	}
	if ep.calls != 0 {
		t.Fatalf("endpoint must not run for rejected requests")
	}
}

func TestBusinessFiltersListing(t *testing.T) {
	h := NewBusinessFilters(map[string]listing.Endpoint{
		"vehicles": &stubEndpoint{name: "vehicles"},
		"drivers":  &stubEndpoint{name: "drivers"},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/business_filters?entity=vehicles", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var one []business.Description
	if err := json.Unmarshal(rec.Body.Bytes(), &one); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]business.Description{{Name: "status", Description: "expiry status"}}, one); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/business_filters", nil))
	var all map[string][]business.Description
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both entities, got %v", all)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/business_filters?entity=boats", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown entity: status %d", rec.Code)
	}
}
