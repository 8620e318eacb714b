package hydrate

import "google.golang.org/protobuf/proto"

// Kind identifies the shape a Descriptor expects.
type Kind int

const (
	kindInvalid Kind = iota
	KindAny
	KindInt
	KindInt64
	KindFloat
	KindString
	KindBool
	KindEnum
	KindDateTime
	KindObject
	KindArray
	KindRawArray
	KindCollection
	KindUnion
	KindProto
)

var kindNames = map[Kind]string{
	kindInvalid:    "invalid",
	KindAny:        "any",
	KindInt:        "int",
	KindInt64:      "int64",
	KindFloat:      "float",
	KindString:     "string",
	KindBool:       "bool",
	KindEnum:       "enum",
	KindDateTime:   "datetime",
	KindObject:     "object",
	KindArray:      "array",
	KindRawArray:   "raw_array",
	KindCollection: "collection",
	KindUnion:      "union",
	KindProto:      "proto",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Descriptor describes the shape of one event field. The zero value is
// invalid; build descriptors with the constructors below.
type Descriptor struct {
	kind       Kind
	nullable   bool
	enum       Enum
	object     *Type
	item       *Descriptor
	wrap       func([]any) any
	candidates []Descriptor
	newProto   func() proto.Message
}

func Any() Descriptor      { return Descriptor{kind: KindAny} }
func Int() Descriptor      { return Descriptor{kind: KindInt} }
func Int64() Descriptor    { return Descriptor{kind: KindInt64} }
func Float() Descriptor    { return Descriptor{kind: KindFloat} }
func String() Descriptor   { return Descriptor{kind: KindString} }
func Bool() Descriptor     { return Descriptor{kind: KindBool} }
func DateTime() Descriptor { return Descriptor{kind: KindDateTime} }

// RawArray passes sequences and mappings through untouched.
func RawArray() Descriptor { return Descriptor{kind: KindRawArray} }

// EnumOf resolves raw scalars through the enum's backing values.
func EnumOf(e Enum) Descriptor { return Descriptor{kind: KindEnum, enum: e} }

// ObjectOf hydrates a nested mapping as t.
func ObjectOf(t *Type) Descriptor { return Descriptor{kind: KindObject, object: t} }

// ArrayOf hydrates every element of a sequence with item.
func ArrayOf(item Descriptor) Descriptor {
	return Descriptor{kind: KindArray, item: &item}
}

// CollectionOf behaves like ArrayOf and hands the hydrated elements to wrap,
// which builds the container value stored on the event.
func CollectionOf(item Descriptor, wrap func([]any) any) Descriptor {
	return Descriptor{kind: KindCollection, item: &item, wrap: wrap}
}

// Union tries each candidate in order; see coerceUnion.
func Union(candidates ...Descriptor) Descriptor {
	return Descriptor{kind: KindUnion, candidates: candidates}
}

// Proto hydrates a nested mapping into a protobuf message using the
// protojson mapping.
func Proto(newMessage func() proto.Message) Descriptor {
	return Descriptor{kind: KindProto, newProto: newMessage}
}

// Nullable returns a copy of d that accepts a missing or null value.
func (d Descriptor) Nullable() Descriptor {
	d.nullable = true
	return d
}

func (d Descriptor) Kind() Kind       { return d.kind }
func (d Descriptor) IsNullable() bool { return d.nullable }

func (d Descriptor) valid() bool {
	switch d.kind {
	case kindInvalid:
		return false
	case KindEnum:
		return d.enum != nil
	case KindObject:
		return d.object != nil
	case KindArray:
		return d.item != nil && d.item.valid()
	case KindCollection:
		return d.item != nil && d.item.valid() && d.wrap != nil
	case KindProto:
		return d.newProto != nil
	case KindUnion:
		if len(d.candidates) == 0 {
			return false
		}
		for _, c := range d.candidates {
			if !c.valid() {
				return false
			}
		}
	}
	return true
}
