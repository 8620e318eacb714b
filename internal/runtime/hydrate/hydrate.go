// Package hydrate turns untyped payload trees into typed event values.
//
// Every event type is described by a Type: an ordered table of fields, each
// with a Descriptor saying what shape the value must take, plus a
// constructor. Hydrate resolves every field from the payload by name in two
// phases and coerces it to its descriptor:
//
//  1. the field name as declared, in snake_case, camelCase and StudlyCase
//     is looked up as an exact key and as a dotted path;
//  2. failing that, the payload is flattened to dotted leaf paths and the
//     first leaf whose last segment equals one of those names is used.
//
// The first phase lets nested object fields receive whole sub-mappings; the
// second finds scalars wherever a producer nested them. Serialize walks the
// same table in reverse.
package hydrate

import (
	"errors"
	"fmt"

	"github.com/drblury/ingressflow/internal/runtime/envelope"
	ierrors "github.com/drblury/ingressflow/internal/runtime/errors"
)

// Hydrate builds an instance of t from payload. A structured-mode CloudEvent
// is unwrapped to its data first. Failures are *HydrationError values.
func Hydrate(t *Type, payload map[string]any) (any, error) {
	return hydrate(t, payload, true)
}

// As hydrates payload and asserts the result to T.
func As[T any](t *Type, payload map[string]any) (T, error) {
	var zero T
	instance, err := Hydrate(t, payload)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, hydrationError(t, "", errors.New("constructed value has an unexpected type"))
	}
	return typed, nil
}

func hydrate(t *Type, payload map[string]any, unwrapCloudEvent bool) (any, error) {
	if t == nil {
		return nil, hydrationError(nil, "", ierrors.ErrEventTypeRequired)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if t.FromPayload != nil {
		instance, err := t.FromPayload(payload)
		if err != nil {
			return nil, asHydrationError(t, err)
		}
		return instance, nil
	}
	if t.Construct == nil {
		return nil, hydrationError(t, "", ErrNotInstantiable)
	}
	if unwrapCloudEvent {
		payload = envelope.UnwrapCloudEvent(payload)
	}

	args := newArgs(len(t.Fields))
	var flat []flatEntry
	for _, f := range t.Fields {
		variants := nameVariants(f.Name)
		raw, found := lookupDirect(payload, variants)
		if !found {
			if flat == nil {
				flat = flatten(payload)
			}
			raw, found = lookupFlat(flat, variants)
		}

		var value any
		if found {
			coerced, err := coerce(f.Type, raw)
			if err != nil {
				return nil, hydrationError(t, f.Name, err)
			}
			value = coerced
		}

		if value == nil {
			switch {
			case f.Type.nullable:
			case f.HasDefault:
				value = f.Default
			default:
				return nil, hydrationError(t, f.Name, fmt.Errorf("%w %s", ErrMissingField, f.Name))
			}
		}
		args.set(f.Name, value)
	}

	instance, err := t.Construct(args)
	if err != nil {
		return nil, asHydrationError(t, err)
	}
	return instance, nil
}

func asHydrationError(t *Type, err error) error {
	var he *HydrationError
	if errors.As(err, &he) {
		return err
	}
	return hydrationError(t, "", err)
}
