package business

import (
	"fmt"
	"strings"
)

// ValidationError is a client error: unknown filter names or a malformed filter value.
type ValidationError struct {
	Entity      string
	InvalidKeys []string // unknown names, sorted
	Allowed     []string
	Filter      string // filter whose value was rejected
	Reason      string
}

func (e *ValidationError) Error() string {
	if len(e.InvalidKeys) > 0 {
		return fmt.Sprintf("unknown business filter(s) for %s: %s", e.Entity, strings.Join(e.InvalidKeys, ", "))
	}
	return fmt.Sprintf("invalid value for business filter %s of %s: %s", e.Filter, e.Entity, e.Reason)
}

// InternalError is a predicate failure during Apply. It is never a client error.
type InternalError struct {
	Filter string
	Err    error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("business filter %s failed: %v", e.Filter, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
