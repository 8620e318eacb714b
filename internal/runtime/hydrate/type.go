package hydrate

import (
	"fmt"
	"time"

	"github.com/spf13/cast"

	ierrors "github.com/drblury/ingressflow/internal/runtime/errors"
)

// Field is one constructor argument of an event type.
type Field struct {
	Name       string
	Type       Descriptor
	Default    any
	HasDefault bool
	// Get reads the field back from an instance for Serialize. Fields
	// without a getter are left out of the serialized payload.
	Get func(instance any) any
}

// NewField declares a field without a getter.
func NewField(name string, desc Descriptor) Field {
	return Field{Name: name, Type: desc}
}

// FieldOf declares a field read back from T (or *T) with get.
func FieldOf[T any, V any](name string, desc Descriptor, get func(T) V) Field {
	return Field{
		Name: name,
		Type: desc,
		Get: func(instance any) any {
			switch v := instance.(type) {
			case T:
				return get(v)
			case *T:
				if v != nil {
					return get(*v)
				}
			}
			return nil
		},
	}
}

// WithDefault returns a copy of f that falls back to value when the payload
// carries no value for it.
func (f Field) WithDefault(value any) Field {
	f.Default = value
	f.HasDefault = true
	return f
}

// Type is the field-descriptor table of an event type.
type Type struct {
	Name   string
	Fields []Field
	// Construct builds the instance from the resolved arguments.
	Construct func(Args) (any, error)
	// FromPayload, when set, replaces structural hydration entirely.
	FromPayload func(payload map[string]any) (any, error)
}

// NewType validates and returns a descriptor table. Every field needs a
// name and a valid descriptor, and names must be unique.
func NewType(name string, construct func(Args) (any, error), fields ...Field) (*Type, error) {
	if name == "" {
		return nil, ierrors.ErrEventTypeRequired
	}
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("hydrate: type %s: field %d has no name", name, i)
		}
		if !f.Type.valid() {
			return nil, fmt.Errorf("hydrate: type %s: field %s has no valid descriptor", name, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("hydrate: type %s: duplicate field %s", name, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return &Type{Name: name, Fields: fields, Construct: construct}, nil
}

// MustType is NewType for package-level declarations; it panics on error.
func MustType(name string, construct func(Args) (any, error), fields ...Field) *Type {
	t, err := NewType(name, construct, fields...)
	if err != nil {
		panic(err)
	}
	return t
}

// Custom declares a type that builds itself from the raw payload.
func Custom(name string, fromPayload func(payload map[string]any) (any, error)) *Type {
	return &Type{Name: name, FromPayload: fromPayload}
}

// Args are the resolved constructor arguments, keyed by field name.
type Args struct {
	values map[string]any
	order  []string
}

func newArgs(size int) Args {
	return Args{values: make(map[string]any, size), order: make([]string, 0, size)}
}

func (a *Args) set(name string, value any) {
	if _, ok := a.values[name]; !ok {
		a.order = append(a.order, name)
	}
	a.values[name] = value
}

// Value returns the raw resolved value.
func (a Args) Value(name string) any { return a.values[name] }

// Has reports whether name resolved to a non-nil value.
func (a Args) Has(name string) bool { return a.values[name] != nil }

// Values returns the arguments in declaration order.
func (a Args) Values() []any {
	out := make([]any, len(a.order))
	for i, name := range a.order {
		out[i] = a.values[name]
	}
	return out
}

func (a Args) Int(name string) int { return int(a.Int64(name)) }

func (a Args) Int64(name string) int64 {
	n, _ := toInt64(a.values[name])
	return n
}

func (a Args) Float(name string) float64 { return cast.ToFloat64(a.values[name]) }
func (a Args) String(name string) string { return cast.ToString(a.values[name]) }
func (a Args) Bool(name string) bool     { return cast.ToBool(a.values[name]) }

// Slice returns the resolved sequence, or nil.
func (a Args) Slice(name string) []any {
	v, _ := a.values[name].([]any)
	return v
}

// Map returns the resolved mapping, or nil.
func (a Args) Map(name string) map[string]any {
	v, _ := a.values[name].(map[string]any)
	return v
}

// Time returns the resolved time, or the zero time.
func (a Args) Time(name string) time.Time {
	v, _ := a.values[name].(time.Time)
	return v
}

// ArgAs returns the resolved value as V, or V's zero value.
func ArgAs[V any](a Args, name string) V {
	v, _ := a.values[name].(V)
	return v
}

// SliceAs converts a hydrated sequence into []V, dropping elements that are
// not V.
func SliceAs[V any](a Args, name string) []V {
	raw := a.Slice(name)
	if raw == nil {
		return nil
	}
	out := make([]V, 0, len(raw))
	for _, el := range raw {
		if v, ok := el.(V); ok {
			out = append(out, v)
		}
	}
	return out
}
