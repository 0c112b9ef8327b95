package hatch

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter is wrapped by every validation failure. Validation
// happens before any sweep starts, so no partial output accompanies it.
var ErrInvalidParameter = errors.New("invalid parameter")

// ParamError describes one rejected request field.
type ParamError struct {
	Field  string  // e.g. "spacing" or "layers[2].strokeWidth"
	Value  float64 // Offending value
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s %s (got %g)", ErrInvalidParameter, e.Field, e.Reason, e.Value)
}

// Unwrap lets errors.Is match ErrInvalidParameter.
func (e *ParamError) Unwrap() error {
	return ErrInvalidParameter
}

func invalid(field string, value float64, reason string) error {
	return &ParamError{Field: field, Value: value, Reason: reason}
}
