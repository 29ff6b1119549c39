package handler

import (
	"net/http"

	"FleetAPI/internal/business"
	"FleetAPI/internal/listing"
)

// BusinessFilters serves GET /api/business_filters?entity=<name>.
// Without entity it returns the filters of every entity keyed by name.
type BusinessFilters struct {
	endpoints map[string]listing.Endpoint
}

func NewBusinessFilters(endpoints map[string]listing.Endpoint) *BusinessFilters {
	return &BusinessFilters{endpoints: endpoints}
}

func (h *BusinessFilters) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "only GET allowed"})
		return
	}

	entity := r.URL.Query().Get("entity")
	if entity == "" {
		all := make(map[string][]business.Description, len(h.endpoints))
		for name, ep := range h.endpoints {
			all[name] = ep.Filters()
		}
		writeJSON(w, http.StatusOK, all)
		return
	}

	ep, ok := h.endpoints[entity]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown entity", Param: "entity"})
		return
	}
	writeJSON(w, http.StatusOK, ep.Filters())
}
