// Package services defines the business logic for client records and the
// notification email relay. This file centralizes service-level error values
// so that handlers can map them to HTTP results consistently.
package services

import (
	"errors"
	"strings"
)

var (
	// ErrClientNotFound indicates that no client exists with the requested id.
	ErrClientNotFound = errors.New("client not found")

	// ErrValidation matches any *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports required fields that were absent from a request,
// or sent as null where a value is mandatory. Fields are listed in the
// request schema's order.
type ValidationError struct {
	Missing []string
}

// Error returns "Missing required fields", followed by the field names when
// known.
func (e *ValidationError) Error() string {
	if len(e.Missing) == 0 {
		return "Missing required fields"
	}
	return "Missing required fields: " + strings.Join(e.Missing, ", ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// missingFields returns a *ValidationError naming every key whose present flag
// is false, or nil when all are present.
func missingFields(names []string, present ...bool) error {
	var missing []string
	for i, ok := range present {
		if !ok {
			missing = append(missing, names[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{Missing: missing}
}
