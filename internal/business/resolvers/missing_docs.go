package resolvers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"FleetAPI/internal/business"
)

type Mode string

const (
	ModeAnd Mode = "AND"
	ModeOr  Mode = "OR"
)

// MissingDocsInput is the decoded value of the missingDocs filter.
type MissingDocsInput struct {
	List []string
	Mode Mode
}

// DecodeMissingDocsInput accepts {"list": [...], "mode": "AND"|"OR"}; mode defaults to AND.
func DecodeMissingDocsInput(raw json.RawMessage) (MissingDocsInput, error) {
	var obj struct {
		List *[]string `json:"list"`
		Mode string    `json:"mode"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&obj); err != nil {
		return MissingDocsInput{}, fmt.Errorf("expected {list, mode}: %w", err)
	}
	if obj.List == nil {
		return MissingDocsInput{}, fmt.Errorf("list is required")
	}

	in := MissingDocsInput{List: *obj.List, Mode: ModeAnd}
	switch Mode(strings.ToUpper(strings.TrimSpace(obj.Mode))) {
	case "", ModeAnd:
	case ModeOr:
		in.Mode = ModeOr
	default:
		return MissingDocsInput{}, fmt.Errorf("mode must be AND or OR, got %q", obj.Mode)
	}
	return in, nil
}

// MatchMissingDocs: AND matches when every listed type is absent, OR when at least one is.
// An empty list is vacuously true under AND and false under OR.
func MatchMissingDocs(attached []string, in MissingDocsInput) bool {
	have := make(map[string]struct{}, len(attached))
	for _, name := range attached {
		have[name] = struct{}{}
	}
	for _, name := range in.List {
		_, present := have[name]
		if in.Mode == ModeOr && !present {
			return true
		}
		if in.Mode == ModeAnd && present {
			return false
		}
	}
	return in.Mode == ModeAnd
}

func MissingDocs[T DocumentHolder](description string) business.Descriptor[T] {
	if description == "" {
		description = "document types missing: {list: [...], mode: AND (all missing) | OR (any missing)}"
	}
	return business.Descriptor[T]{
		Name:        NameMissingDocs,
		Description: description,
		Resolver: business.ResolverFunc[T](func(raw json.RawMessage) (business.Predicate[T], error) {
			in, err := DecodeMissingDocsInput(raw)
			if err != nil {
				return nil, err
			}
			return func(item T) (bool, error) {
				return MatchMissingDocs(item.AttachedDocumentTypes(), in), nil
			}, nil
		}),
	}
}
