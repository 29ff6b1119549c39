package resolvers

import (
	"encoding/json"
	"fmt"

	"FleetAPI/internal/business"
)

func DecodeUnassignedInput(raw json.RawMessage) (bool, error) {
	var v *bool
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return false, fmt.Errorf("expected true or false")
	}
	return *v, nil
}

// MatchUnassigned reports (count == 0) == want.
func MatchUnassigned(count int, want bool) bool {
	return (count == 0) == want
}

func Unassigned[T Attachable](description string) business.Descriptor[T] {
	if description == "" {
		description = "true: no attachments, false: at least one"
	}
	return business.Descriptor[T]{
		Name:        NameUnassigned,
		Description: description,
		Resolver: business.ResolverFunc[T](func(raw json.RawMessage) (business.Predicate[T], error) {
			want, err := DecodeUnassignedInput(raw)
			if err != nil {
				return nil, err
			}
			return func(item T) (bool, error) {
				return MatchUnassigned(item.AttachmentCount(), want), nil
			}, nil
		}),
	}
}
