// Package jsoncodec is the single JSON entry point of the module. Request
// bodies, responses, metadata values and bus payloads all pass through it.
package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

var defaultConfig = sonic.ConfigStd

// objectConfig keeps numbers as json.Number so integers beyond 2^53 reach
// the hydrator intact.
var objectConfig = sonic.Config{
	EscapeHTML:       true,
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
	UseNumber:        true,
}.Froze()

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

// UnmarshalObject decodes data into a generic key/value tree. Numbers decode
// as json.Number.
func UnmarshalObject(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := objectConfig.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// MarshalString renders v as compact JSON, or an empty string when v cannot
// be encoded.
func MarshalString(v any) string {
	data, err := defaultConfig.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func Encode(w io.Writer, v any) error {
	return defaultConfig.NewEncoder(w).Encode(v)
}

func Decode(r io.Reader, v any) error {
	return defaultConfig.NewDecoder(r).Decode(v)
}
