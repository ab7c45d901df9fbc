package leads

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrLeadNotFound is returned when a lead is not found
var ErrLeadNotFound = errors.New("lead not found")

// ValidationError reports every violated field of a submission, not
// just the first.
type ValidationError struct {
	Fields map[string][]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "leads: invalid submission"
	}
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return fmt.Sprintf("leads: invalid submission (%s)", strings.Join(names, ", "))
}

// RateLimitError carries the window metadata surfaced in 429 responses.
type RateLimitError struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("leads: rate limit of %d exceeded, resets at %s", e.Limit, e.Reset.Format(time.RFC3339))
}
