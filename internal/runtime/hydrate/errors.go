package hydrate

import (
	"errors"
	"fmt"

	ierrors "github.com/drblury/ingressflow/internal/runtime/errors"
)

var (
	// ErrMissingField reports a required field absent from the payload.
	ErrMissingField = errors.New("missing required field")
	// ErrNotInstantiable reports a type with neither Construct nor FromPayload.
	ErrNotInstantiable = errors.New("type is not instantiable")
	// ErrEnumValue reports a raw value that matches no enum member.
	ErrEnumValue = errors.New("no enum member matches")
	// ErrIntRange reports a number that does not fit the integer field.
	ErrIntRange = errors.New("integer out of range")
)

// HydrationError reports a payload that could not be shaped into Type. It
// matches ierrors.ErrHydration and its cause with errors.Is.
type HydrationError struct {
	Type  string
	Field string
	Err   error
}

func (e *HydrationError) Error() string {
	target := e.Type
	if e.Field != "" {
		target += "." + e.Field
	}
	return fmt.Sprintf("ingressflow: hydrate %s: %v", target, e.Err)
}

func (e *HydrationError) Unwrap() []error {
	return []error{ierrors.ErrHydration, e.Err}
}

func hydrationError(t *Type, field string, err error) error {
	name := ""
	if t != nil {
		name = t.Name
	}
	return &HydrationError{Type: name, Field: field, Err: err}
}
