// Package envelope decodes inbound request bodies and locates the business
// payload inside the envelope shapes producers send.
package envelope

import (
	"github.com/tidwall/gjson"

	"github.com/drblury/ingressflow/internal/runtime/cloudevents"
	"github.com/drblury/ingressflow/internal/runtime/jsoncodec"
)

// Decode parses a request body into a key/value tree. Empty bodies, invalid
// JSON and JSON that is not an object all decode to an empty mapping; a bad
// body never fails the request on its own.
func Decode(raw []byte) map[string]any {
	if len(raw) == 0 || !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return map[string]any{}
	}
	envelope, err := jsoncodec.UnmarshalObject(raw)
	if err != nil {
		return map[string]any{}
	}
	return envelope
}

// Unwrap returns the business payload of an envelope, trying in order:
// CloudEvents data (specversion plus a mapping data), a bare data mapping,
// a body.data mapping, and finally the envelope itself. The rules are
// reapplied until none matches, so Unwrap(Unwrap(e)) equals Unwrap(e).
func Unwrap(envelope map[string]any) map[string]any {
	if envelope == nil {
		return map[string]any{}
	}
	current := envelope
	for {
		next, ok := unwrapOnce(current)
		if !ok {
			return current
		}
		current = next
	}
}

// UnwrapCloudEvent returns data when the envelope is a structured-mode
// CloudEvent with a mapping data attribute, and the envelope otherwise.
func UnwrapCloudEvent(envelope map[string]any) map[string]any {
	if data, ok := envelope[cloudevents.AttrData].(map[string]any); ok && IsStructured(envelope) {
		return data
	}
	return envelope
}

func unwrapOnce(envelope map[string]any) (map[string]any, bool) {
	if data, ok := envelope[cloudevents.AttrData].(map[string]any); ok {
		return data, true
	}
	if body, ok := envelope[cloudevents.KeyBody].(map[string]any); ok {
		if nested, ok := body[cloudevents.AttrData].(map[string]any); ok {
			return nested, true
		}
	}
	return nil, false
}

// IsStructured reports whether the envelope is a structured-mode CloudEvent.
func IsStructured(envelope map[string]any) bool {
	_, ok := envelope[cloudevents.AttrSpecVersion]
	return ok
}

// ID returns the CloudEvents id attribute, or an empty string.
func ID(envelope map[string]any) string {
	id, _ := envelope[cloudevents.AttrID].(string)
	return id
}
