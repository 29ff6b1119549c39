package fleet

import (
	"fmt"
	"sort"

	"FleetAPI/internal/business"
	"FleetAPI/internal/business/resolvers"
	"FleetAPI/internal/listing"
	"FleetAPI/internal/logger"
	"FleetAPI/internal/metrics"
	"FleetAPI/internal/model"
	"FleetAPI/internal/query"
)

const (
	EntityVehicles  = "vehicles"
	EntityDocuments = "documents"
	EntityDrivers   = "drivers"
)

func VehicleFilters(now resolvers.Clock) *business.Registry[Vehicle] {
	return business.NewRegistry[Vehicle](EntityVehicles).MustRegister(
		resolvers.Status[Vehicle](now, "registration expiry: expired, active or expiringSoon ({type, withinDays}, default 30 days)"),
		resolvers.MissingDocs[Vehicle]("vehicles lacking document types: {list: [...], mode: AND | OR}"),
		resolvers.Unassigned[Vehicle]("true: no driver assigned, false: at least one driver"),
	)
}

func DocumentFilters(now resolvers.Clock) *business.Registry[Document] {
	return business.NewRegistry[Document](EntityDocuments).MustRegister(
		resolvers.Status[Document](now, "document expiry: expired, active or expiringSoon ({type, withinDays}, default 30 days)"),
		resolvers.Unassigned[Document]("true: not linked to a vehicle, false: linked"),
	)
}

func DriverFilters(now resolvers.Clock) *business.Registry[Driver] {
	return business.NewRegistry[Driver](EntityDrivers).MustRegister(
		resolvers.Status[Driver](now, "licence expiry: expired, active or expiringSoon ({type, withinDays}, default 30 days)"),
		resolvers.Unassigned[Driver]("true: no vehicle assigned, false: at least one vehicle"),
	)
}

// Endpoints builds one listing service per known entity. Every entity definition must
// have a record type, and every registry must match the business_filters it declares.
func Endpoints(entities map[string]*model.Entity, b *query.Builder, st listing.Store, m *metrics.Metrics, now resolvers.Clock) (map[string]listing.Endpoint, error) {
	out := map[string]listing.Endpoint{}

	for name, e := range entities {
		var ep listing.Endpoint
		var err error
		switch name {
		case EntityVehicles:
			ep, err = endpoint(e, b, st, m, VehicleFilters(now), MapVehicle)
		case EntityDocuments:
			ep, err = endpoint(e, b, st, m, DocumentFilters(now), MapDocument)
		case EntityDrivers:
			ep, err = endpoint(e, b, st, m, DriverFilters(now), MapDriver)
		default:
			return nil, fmt.Errorf("entity %s has no record type", name)
		}
		if err != nil {
			return nil, err
		}
		out[name] = ep
	}

	names := make([]string, 0, len(out))
	for name := range out {
		names = append(names, name)
	}
	sort.Strings(names)
	logger.Info("endpoints_ready", map[string]any{"entities": names})
	return out, nil
}

func endpoint[T any](e *model.Entity, b *query.Builder, st listing.Store, m *metrics.Metrics, reg *business.Registry[T], mapper listing.Mapper[T]) (listing.Endpoint, error) {
	if err := reg.Validate(e.BusinessFilters); err != nil {
		return nil, err
	}
	return listing.NewService(e, b, st, reg, mapper, m), nil
}
