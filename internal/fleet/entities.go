// Package fleet defines the dashboard records, their row mappers and business filters.
package fleet

import (
	"time"

	"github.com/google/uuid"
)

type Vehicle struct {
	ID                 uuid.UUID  `json:"id"`
	RegistrationNumber string     `json:"registrationNumber"`
	Make               string     `json:"make"`
	Model              string     `json:"model"`
	Status             string     `json:"status"`
	RegistrationExpiry *time.Time `json:"registrationExpiry"`
	DocumentTypes      []string   `json:"documentTypes"`
	DriverCount        int        `json:"driverCount"`
	CreatedAt          time.Time  `json:"createdAt"`
}

func (v Vehicle) ExpiresAt() *time.Time            { return v.RegistrationExpiry }
func (v Vehicle) AttachedDocumentTypes() []string { return v.DocumentTypes }
func (v Vehicle) AttachmentCount() int            { return v.DriverCount }

type Document struct {
	ID                  uuid.UUID  `json:"id"`
	Title               string     `json:"title"`
	Type                string     `json:"type"`
	VehicleID           *uuid.UUID `json:"vehicleId"`
	VehicleRegistration string     `json:"vehicleRegistration,omitempty"`
	ExpiryDate          *time.Time `json:"expiryDate"`
	CreatedAt           time.Time  `json:"createdAt"`
}

func (d Document) ExpiresAt() *time.Time { return d.ExpiryDate }

// AttachmentCount is 1 while the document is linked to a vehicle.
func (d Document) AttachmentCount() int {
	if d.VehicleID == nil {
		return 0
	}
	return 1
}

type Driver struct {
	ID            uuid.UUID  `json:"id"`
	FullName      string     `json:"fullName"`
	LicenseNumber string     `json:"licenseNumber"`
	LicenseExpiry *time.Time `json:"licenseExpiry"`
	VehicleCount  int        `json:"vehicleCount"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (d Driver) ExpiresAt() *time.Time { return d.LicenseExpiry }
func (d Driver) AttachmentCount() int  { return d.VehicleCount }

func MapVehicle(row map[string]any) (Vehicle, error) {
	r := reader{row: row}
	v := Vehicle{
		ID:                 r.id("id"),
		RegistrationNumber: r.str("registration_number"),
		Make:               r.str("make"),
		Model:              r.str("model"),
		Status:             r.str("status"),
		RegistrationExpiry: r.optAt("registration_expiry"),
		DocumentTypes:      r.list("document_types"),
		DriverCount:        r.num("driver_count"),
		CreatedAt:          r.at("created_at"),
	}
	return v, r.err
}

func MapDocument(row map[string]any) (Document, error) {
	r := reader{row: row}
	d := Document{
		ID:                  r.id("id"),
		Title:               r.str("title"),
		Type:                r.str("type"),
		VehicleID:           r.optID("vehicle_id"),
		VehicleRegistration: r.str("vehicle_registration"),
		ExpiryDate:          r.optAt("expiry_date"),
		CreatedAt:           r.at("created_at"),
	}
	return d, r.err
}

func MapDriver(row map[string]any) (Driver, error) {
	r := reader{row: row}
	d := Driver{
		ID:            r.id("id"),
		FullName:      r.str("full_name"),
		LicenseNumber: r.str("license_number"),
		LicenseExpiry: r.optAt("license_expiry"),
		VehicleCount:  r.num("vehicle_count"),
		CreatedAt:     r.at("created_at"),
	}
	return d, r.err
}
