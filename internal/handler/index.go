package handler

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"

	"FleetAPI/internal/business"
	"FleetAPI/internal/listing"
	"FleetAPI/internal/logger"
	"FleetAPI/internal/query"
)

const maxBodyBytes = 1 << 20

// IndexRequest is the body of POST /api/index.
// skip and take are decoded loosely: a non-integer falls back to the default.
type IndexRequest struct {
	Entity          string                     `json:"entity"`
	Search          string                     `json:"search"`
	Filters         map[string]json.RawMessage `json:"filters"`
	BusinessFilters map[string]json.RawMessage `json:"businessFilters"`
	SortBy          string                     `json:"sortBy"`
	Order           string                     `json:"order"`
	Skip            *float64                   `json:"skip"`
	Take            *float64                   `json:"take"`
}

type errorBody struct {
	Error       string   `json:"error"`
	Param       string   `json:"param,omitempty"`
	InvalidKeys []string `json:"invalidKeys,omitempty"`
	Allowed     []string `json:"allowed,omitempty"`
}

// Index lists records of any entity in endpoints.
type Index struct {
	endpoints map[string]listing.Endpoint
}

func NewIndex(endpoints map[string]listing.Endpoint) *Index {
	return &Index{endpoints: endpoints}
}

func (h *Index) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Ограничим только POST-запросы
	if r.Method != http.MethodPost {
		logger.Warn("method_not_allowed", map[string]any{
			"endpoint": "/api/index",
			"method":   r.Method,
		})
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "only POST allowed"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		logger.Warn("read_body_failed", map[string]any{"endpoint": "/api/index", "error": err})
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to read body"})
		return
	}

	var req IndexRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Warn("invalid_json", map[string]any{"endpoint": "/api/index", "error": err})
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return
	}
	logger.Debug("request", map[string]any{"endpoint": "/api/index", "payload": json.RawMessage(body)})

	ep, ok := h.endpoints[req.Entity]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown entity", Param: "entity"})
		return
	}

	result, err := ep.Run(r.Context(), listing.Request{
		Search:          req.Search,
		Filters:         req.Filters,
		BusinessFilters: req.BusinessFilters,
		SortBy:          req.SortBy,
		Order:           req.Order,
		Skip:            pageParam(req.Skip),
		Take:            pageParam(req.Take),
	})
	if err != nil {
		writeError(w, req.Entity, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// pageParam maps a missing, non-integer or negative value to -1, which the builder
// treats as default. Oversized values saturate at MaxInt32 and are capped by the builder.
func pageParam(v *float64) int {
	if v == nil || math.IsNaN(*v) || *v != math.Trunc(*v) || *v < 0 {
		return -1
	}
	if *v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(*v)
}

func writeError(w http.ResponseWriter, entity string, err error) {
	var bErr *business.ValidationError
	var qErr *query.ValidationError
	switch {
	case errors.As(err, &bErr):
		logger.Warn("business_filters_rejected", map[string]any{"entity": entity, "error": err})
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:       bErr.Error(),
			Param:       "businessFilters",
			InvalidKeys: bErr.InvalidKeys,
			Allowed:     bErr.Allowed,
		})
	case errors.As(err, &qErr):
		logger.Warn("query_rejected", map[string]any{"entity": entity, "error": err})
		writeJSON(w, http.StatusBadRequest, errorBody{Error: qErr.Error(), Param: qErr.Param})
	default:
		logger.Error("list_failed", map[string]any{"entity": entity, "error": err})
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write_response_failed", map[string]any{"error": err})
	}
}
