package business

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type item struct {
	ID    int
	Tags  []string
	Score int
}

// counting records how many times values were decoded and predicates ran.
type counting struct {
	decoded int
	ran     int
}

func minScore(c *counting) Descriptor[item] {
	return Descriptor[item]{
		Name:        "minScore",
		Description: "score is at least the given value",
		Resolver: ResolverFunc[item](func(raw json.RawMessage) (Predicate[item], error) {
			c.decoded++
			var n int
			if err := json.Unmarshal(raw, &n); err != nil {
				return nil, errors.New("expected an integer")
			}
			return func(it item) (bool, error) {
				c.ran++
				return it.Score >= n, nil
			}, nil
		}),
	}
}

func hasTag() Descriptor[item] {
	return Descriptor[item]{
		Name: "hasTag",
		Resolver: ResolverFunc[item](func(raw json.RawMessage) (Predicate[item], error) {
			var tag string
			if err := json.Unmarshal(raw, &tag); err != nil {
				return nil, err
			}
			return func(it item) (bool, error) {
				for _, t := range it.Tags {
					if t == tag {
						return true, nil
					}
				}
				return false, nil
			}, nil
		}),
	}
}

func raw(t *testing.T, s string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return m
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic on duplicate name")
		}
		if !strings.Contains(r.(error).Error(), `duplicate filter "hasTag"`) {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	NewRegistry[item]("items").MustRegister(hasTag(), hasTag())
}

func TestValidateAgainstDeclaredNames(t *testing.T) {
	c := &counting{}
	reg := NewRegistry[item]("items").MustRegister(hasTag(), minScore(c))

	err := reg.Validate([]string{"hasTag", "status"})
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
	for _, part := range []string{"declared but not registered: status", "registered but not declared: minScore"} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("error %q misses %q", err, part)
		}
	}

	if err := reg.Validate([]string{"minScore", "hasTag"}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := reg.Register(Descriptor[item]{Name: "late", Resolver: hasTag().Resolver}); err == nil {
		t.Fatalf("registration after Validate must fail")
	}
}

func TestParseIsAllOrNothing(t *testing.T) {
	c := &counting{}
	reg := NewRegistry[item]("items").MustRegister(hasTag(), minScore(c))

	_, err := reg.Parse(raw(t, `{"minScore": 3, "zeta": 1, "alpha": true}`))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if diff := cmp.Diff([]string{"alpha", "zeta"}, verr.InvalidKeys); diff != "" {
		t.Fatalf("invalid keys mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(verr.Error(), "alpha, zeta") {
		t.Fatalf("message must name the keys: %s", verr)
	}
	if c.decoded != 0 || c.ran != 0 {
		t.Fatalf("nothing may run on an invalid payload: decoded=%d ran=%d", c.decoded, c.ran)
	}
}

func TestParseRejectsMalformedValue(t *testing.T) {
	reg := NewRegistry[item]("items").MustRegister(minScore(&counting{}))

	_, err := reg.Parse(raw(t, `{"minScore": "high"}`))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Filter != "minScore" {
		t.Fatalf("expected ValidationError for minScore, got %v", err)
	}
}

func TestParseOrdersByName(t *testing.T) {
	reg := NewRegistry[item]("items").MustRegister(minScore(&counting{}), hasTag())

	parsed, err := reg.Parse(raw(t, `{"minScore": 1, "hasTag": "a"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff([]string{"hasTag", "minScore"}, parsed.Names()); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptionsSorted(t *testing.T) {
	reg := NewRegistry[item]("items").MustRegister(minScore(&counting{}), hasTag())
	want := []Description{
		{Name: "hasTag"},
		{Name: "minScore", Description: "score is at least the given value"},
	}
	if diff := cmp.Diff(want, reg.Descriptions()); diff != "" {
		t.Fatalf("descriptions mismatch (-want +got):\n%s", diff)
	}
}
