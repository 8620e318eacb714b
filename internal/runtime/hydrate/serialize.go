package hydrate

import (
	"fmt"
	"reflect"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/drblury/ingressflow/internal/runtime/cloudevents"
	"github.com/drblury/ingressflow/internal/runtime/jsoncodec"
)

// PayloadSerializer is implemented by events that render their own payload.
// Serialize uses it verbatim.
type PayloadSerializer interface {
	ToPayload() map[string]any
}

// Sequence is implemented by collection containers built with CollectionOf
// so Serialize can read their elements back.
type Sequence interface {
	Items() []any
}

// Serialize renders instance as a payload mapping keyed by field name.
func Serialize(t *Type, instance any) (map[string]any, error) {
	if s, ok := instance.(PayloadSerializer); ok {
		return s.ToPayload(), nil
	}
	if t == nil {
		return nil, fmt.Errorf("hydrate: cannot serialize %T without a type", instance)
	}

	out := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		if f.Get == nil {
			continue
		}
		v, err := serializeValue(f.Type, f.Get(instance))
		if err != nil {
			return nil, fmt.Errorf("hydrate: serialize %s.%s: %w", t.Name, f.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

func serializeValue(d Descriptor, v any) (any, error) {
	if isNil(v) {
		return nil, nil
	}

	switch d.kind {
	case KindEnum:
		if backing, ok := d.enum.Backing(v); ok {
			return backing, nil
		}
	case KindObject:
		if s, ok := v.(PayloadSerializer); ok {
			return s.ToPayload(), nil
		}
		if !isContainer(v) {
			return Serialize(d.object, v)
		}
	case KindArray, KindCollection:
		return serializeElements(*d.item, v)
	case KindProto:
		if msg, ok := v.(proto.Message); ok {
			return serializeProto(msg)
		}
	case KindUnion:
		for _, c := range d.candidates {
			if matchesShape(c, v) {
				return serializeValue(c, v)
			}
		}
	}
	return serializeAny(v)
}

func serializeElements(item Descriptor, v any) (any, error) {
	if seq, ok := v.(Sequence); ok {
		v = seq.Items()
	}
	switch values := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(values))
		for k, el := range values {
			s, err := serializeValue(item, el)
			if err != nil {
				return nil, err
			}
			out[k] = s
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return serializeAny(v)
	}
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		s, err := serializeValue(item, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// serializeAny handles values without descriptor guidance.
func serializeAny(v any) (any, error) {
	switch value := v.(type) {
	case nil:
		return nil, nil
	case PayloadSerializer:
		return value.ToPayload(), nil
	case time.Time:
		return formatTime(value), nil
	case proto.Message:
		return serializeProto(value)
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, el := range value {
			s, err := serializeAny(el)
			if err != nil {
				return nil, err
			}
			out[k] = s
		}
		return out, nil
	case []any:
		out := make([]any, len(value))
		for i, el := range value {
			s, err := serializeAny(el)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	}
	return v, nil
}

func serializeProto(msg proto.Message) (any, error) {
	data, err := protojson.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return jsoncodec.UnmarshalObject(data)
}

// formatTime keeps sub-second precision so hydrated times round-trip.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(cloudevents.TimeFormatNano)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}
	return false
}
