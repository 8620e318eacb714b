package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/drblury/ingressflow/internal/runtime/cloudevents"
	"github.com/drblury/ingressflow/internal/runtime/jsoncodec"
)

// coerce converts a resolved raw value into the shape d describes. Scalars
// are cast and never rejected; a mapping or sequence given where a scalar is
// expected passes through untouched.
func coerce(d Descriptor, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch d.kind {
	case KindInt, KindInt64, KindFloat, KindString, KindBool:
		if isContainer(raw) {
			return raw, nil
		}
		return coerceScalar(d.kind, raw)
	case KindEnum:
		member, ok := d.enum.Lookup(raw)
		if !ok {
			return nil, fmt.Errorf("%w %s: %v", ErrEnumValue, d.enum.Name(), raw)
		}
		return member, nil
	case KindDateTime:
		t, err := cloudevents.TimeFrom(raw)
		if err != nil {
			return nil, err
		}
		return t, nil
	case KindObject:
		m, ok := raw.(map[string]any)
		if !ok {
			return raw, nil
		}
		return hydrate(d.object, m, false)
	case KindArray:
		return coerceElements(*d.item, raw)
	case KindCollection:
		items, err := coerceElements(*d.item, raw)
		if err != nil {
			return nil, err
		}
		if seq, ok := items.([]any); ok {
			return d.wrap(seq), nil
		}
		return items, nil
	case KindProto:
		m, ok := raw.(map[string]any)
		if !ok {
			return raw, nil
		}
		return coerceProto(d.newProto, m)
	case KindUnion:
		return coerceUnion(d.candidates, raw)
	default:
		return raw, nil
	}
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// coerceScalar casts raw to the scalar kind, falling back to the zero value
// when the cast fails. Integers outside the target range are an error.
func coerceScalar(kind Kind, raw any) (any, error) {
	switch kind {
	case KindInt:
		n, err := toInt64(raw)
		if err != nil {
			return nil, err
		}
		if int64(int(n)) != n {
			return nil, fmt.Errorf("%w: %v", ErrIntRange, raw)
		}
		return int(n), nil
	case KindInt64:
		return toInt64(raw)
	case KindFloat:
		return cast.ToFloat64(raw), nil
	case KindString:
		return cast.ToString(raw), nil
	case KindBool:
		return cast.ToBool(raw), nil
	}
	return raw, nil
}

// maxInt64Float is 2^63, the first float64 above the int64 range.
const maxInt64Float = 1 << 63

// toInt64 reads numeric strings in base 10 only and truncates fractions.
// Values that are not numbers at all become 0.
func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case string:
		return parseInt64(v)
	case json.Number:
		return parseInt64(string(v))
	case float64:
		return truncateFloat(v, raw)
	case float32:
		return truncateFloat(float64(v), raw)
	}
	n, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func parseInt64(s string) (int64, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %s", ErrIntRange, s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %s", ErrIntRange, s)
		}
		return 0, nil
	}
	if math.IsInf(f, 0) {
		return 0, nil
	}
	return truncateFloat(f, s)
}

func truncateFloat(f float64, raw any) (int64, error) {
	if math.IsNaN(f) {
		return 0, nil
	}
	f = math.Trunc(f)
	if f >= maxInt64Float || f < -maxInt64Float {
		return 0, fmt.Errorf("%w: %v", ErrIntRange, raw)
	}
	return int64(f), nil
}

// coerceElements hydrates each element of a sequence (or each value of a
// mapping) with item. Object and proto items only apply to mapping
// elements; other elements pass through unchanged.
func coerceElements(item Descriptor, raw any) (any, error) {
	switch v := raw.(type) {
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			coerced, err := coerceElement(item, el)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = coerced
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, el := range v {
			coerced, err := coerceElement(item, el)
			if err != nil {
				return nil, fmt.Errorf("element %s: %w", k, err)
			}
			out[k] = coerced
		}
		return out, nil
	default:
		return raw, nil
	}
}

func coerceElement(item Descriptor, el any) (any, error) {
	switch item.kind {
	case KindObject, KindProto:
		if _, ok := el.(map[string]any); !ok {
			return el, nil
		}
	}
	return coerce(item, el)
}

func coerceProto(newMessage func() proto.Message, m map[string]any) (any, error) {
	data, err := jsoncodec.Marshal(m)
	if err != nil {
		return nil, err
	}
	msg := newMessage()
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// coerceUnion returns raw when it already has the shape of a candidate, so
// Union(Int(), String()) keeps "x" instead of casting it to 0. Otherwise the
// first candidate whose coercion changes the value and yields that
// candidate's shape wins, falling back to the first candidate.
func coerceUnion(candidates []Descriptor, raw any) (any, error) {
	for _, c := range candidates {
		if matchesShape(c, raw) {
			return raw, nil
		}
	}
	for _, c := range candidates {
		v, err := coerce(c, raw)
		if err != nil {
			continue
		}
		if !reflect.DeepEqual(v, raw) && matchesShape(c, v) {
			return v, nil
		}
	}
	return coerce(candidates[0], raw)
}

// matchesShape reports whether v already has the runtime shape d produces.
func matchesShape(d Descriptor, v any) bool {
	switch d.kind {
	case KindAny:
		return true
	case KindInt:
		_, ok := v.(int)
		return ok
	case KindInt64:
		_, ok := v.(int64)
		return ok
	case KindFloat:
		_, ok := v.(float64)
		return ok
	case KindString:
		_, ok := v.(string)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindDateTime:
		_, ok := v.(time.Time)
		return ok
	case KindEnum:
		_, ok := d.enum.Backing(v)
		return ok
	case KindObject:
		return v != nil && !isContainer(v) && !isScalar(v)
	case KindArray, KindRawArray:
		_, ok := v.([]any)
		return ok
	case KindCollection:
		return v != nil && !isContainer(v) && !isScalar(v)
	case KindProto:
		_, ok := v.(proto.Message)
		return ok
	case KindUnion:
		for _, c := range d.candidates {
			if matchesShape(c, v) {
				return true
			}
		}
	}
	return false
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, json.Number, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
