package itests

import (
	"context"
	"fmt"
	"time"

	"FleetAPI/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const pagingVehicles = 25

var (
	vehicleA = uuid.New()
	vehicleB = uuid.New()
	vehicleC = uuid.New()
	driverX  = uuid.New()
	driverY  = uuid.New()
)

func day(n int) time.Time {
	return fixtureNow.AddDate(0, 0, n)
}

// seedFixtures fills the migrated schema. Paging vehicles share one created_at,
// so only the primary key orders them.
func seedFixtures(ctx context.Context) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE vehicle_drivers, documents, drivers, vehicles`); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		insertVehicle := `INSERT INTO vehicles (id, registration_number, make, model, status, registration_expiry, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`
		batch.Queue(insertVehicle, vehicleA, "E2E-A", "Volvo", "FH16", "active", day(10), day(-30))
		batch.Queue(insertVehicle, vehicleB, "E2E-B", "Scania", "R500", "active", day(-5), day(-29))
		batch.Queue(insertVehicle, vehicleC, "E2E-C", "MAN", "TGX", "maintenance", day(2), day(-28))

		shared := day(-60)
		for i := 1; i <= pagingVehicles; i++ {
			batch.Queue(insertVehicle, uuid.New(), fmt.Sprintf("PAGE-%02d", i), "Paging", "P", "active", nil, shared)
		}

		insertDoc := `INSERT INTO documents (id, title, type, vehicle_id, expiry_date) VALUES ($1, $2, $3, $4, $5)`
		batch.Queue(insertDoc, uuid.New(), "Policy A", "Insurance", vehicleA, day(100))
		batch.Queue(insertDoc, uuid.New(), "Policy C", "Insurance", vehicleC, day(3))
		batch.Queue(insertDoc, uuid.New(), "Emission C", "Pollution", vehicleC, day(-1))
		batch.Queue(insertDoc, uuid.New(), "Loose permit", "Permit", nil, nil)

		insertDriver := `INSERT INTO drivers (id, full_name, license_number, license_expiry) VALUES ($1, $2, $3, $4)`
		batch.Queue(insertDriver, driverX, "Alex Kowalski", "L-100", day(20))
		batch.Queue(insertDriver, driverY, "Sam Ortiz", "L-200", day(-2))
		batch.Queue(`INSERT INTO vehicle_drivers (vehicle_id, driver_id) VALUES ($1, $2)`, vehicleA, driverX)

		return tx.SendBatch(ctx, batch).Close()
	})
}
