package resolvers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"FleetAPI/internal/business"
)

type StatusType string

const (
	StatusExpired      StatusType = "expired"
	StatusActive       StatusType = "active"
	StatusExpiringSoon StatusType = "expiringSoon"
)

const DefaultWithinDays = 30

// StatusInput is the decoded value of the status filter.
type StatusInput struct {
	Type       StatusType
	WithinDays int
}

// DecodeStatusInput accepts a bare tag ("expired") or {"type": ..., "withinDays": n}.
func DecodeStatusInput(raw json.RawMessage) (StatusInput, error) {
	in := StatusInput{WithinDays: DefaultWithinDays}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj struct {
			Type       StatusType `json:"type"`
			WithinDays *int       `json:"withinDays"`
		}
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&obj); err != nil {
			return StatusInput{}, fmt.Errorf("expected {type, withinDays}: %w", err)
		}
		in.Type = obj.Type
		if obj.WithinDays != nil {
			if *obj.WithinDays < 0 {
				return StatusInput{}, fmt.Errorf("withinDays must not be negative, got %d", *obj.WithinDays)
			}
			in.WithinDays = *obj.WithinDays
		}
	} else if err := json.Unmarshal(trimmed, &in.Type); err != nil {
		return StatusInput{}, fmt.Errorf("expected a status tag or {type, withinDays}")
	}

	switch in.Type {
	case StatusExpired, StatusActive, StatusExpiringSoon:
		return in, nil
	default:
		return StatusInput{}, fmt.Errorf("unknown status %q (allowed: expired, active, expiringSoon)", in.Type)
	}
}

// DaysRemaining is floor((expiry - now) / 1 day); negative once expired.
func DaysRemaining(expiry, now time.Time) int {
	return int(math.Floor(float64(expiry.Sub(now)) / float64(day)))
}

// MatchStatus evaluates in against an expiry date. active and expiringSoon may both match
// the same record. A record without expiry matches no tag.
func MatchStatus(expiry *time.Time, now time.Time, in StatusInput) bool {
	if expiry == nil {
		return false
	}
	switch in.Type {
	case StatusExpired:
		return expiry.Before(now)
	case StatusActive:
		return !expiry.Before(now)
	case StatusExpiringSoon:
		return !expiry.Before(now) && DaysRemaining(*expiry, now) <= in.WithinDays
	}
	return false
}

// Status builds the status descriptor. now is read once per parse so every record
// of a page is judged against the same instant.
func Status[T Expiring](now Clock, description string) business.Descriptor[T] {
	if description == "" {
		description = "expiry status: expired, active or expiringSoon (optionally {type, withinDays}, default 30 days)"
	}
	return business.Descriptor[T]{
		Name:        NameStatus,
		Description: description,
		Resolver: business.ResolverFunc[T](func(raw json.RawMessage) (business.Predicate[T], error) {
			in, err := DecodeStatusInput(raw)
			if err != nil {
				return nil, err
			}
			at := now()
			return func(item T) (bool, error) {
				return MatchStatus(item.ExpiresAt(), at, in), nil
			}, nil
		}),
	}
}
