// Package resolvers holds the business filter predicates shared by the fleet entities.
// Every resolver is a pure function of (entity, value); the input is decoded and checked
// once per request, before any predicate runs.
package resolvers

import "time"

const (
	NameStatus      = "status"
	NameMissingDocs = "missingDocs"
	NameUnassigned  = "unassigned"
)

const day = 24 * time.Hour

// Expiring is implemented by records that carry an expiry date.
type Expiring interface {
	ExpiresAt() *time.Time
}

// DocumentHolder is implemented by records with linked documents.
type DocumentHolder interface {
	AttachedDocumentTypes() []string
}

// Attachable is implemented by records that can be linked to others.
type Attachable interface {
	AttachmentCount() int
}

// Clock returns the current time. time.Now in production.
type Clock func() time.Time
