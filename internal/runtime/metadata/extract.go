package metadata

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/spf13/cast"

	"github.com/drblury/ingressflow/internal/runtime/cloudevents"
	"github.com/drblury/ingressflow/internal/runtime/jsoncodec"
)

// HeaderPrefix is prepended to every transport header copied into metadata.
const HeaderPrefix = "header_"

// Extract builds the metadata for one inbound message. Later rules overwrite
// earlier ones:
//
//  1. the envelope's "metadata" mapping seeds the result;
//  2. the "extensions" mapping is merged over it;
//  3. non-empty traceid, traceparent and tracestate attributes are copied;
//  4. every header is stored as header_<normalized name> with its values
//     joined by commas.
func Extract(header http.Header, envelope map[string]any) Metadata {
	md := Metadata{}

	if seed, ok := envelope[cloudevents.KeyMetadata].(map[string]any); ok {
		copyValues(md, seed)
	}
	if extensions, ok := envelope[cloudevents.KeyExtensions].(map[string]any); ok {
		copyValues(md, extensions)
	}
	for _, key := range cloudevents.TraceAttributes {
		if v := Stringify(envelope[key]); v != "" {
			md[key] = v
		}
	}
	for name, values := range header {
		md[HeaderKey(name)] = strings.Join(values, ",")
	}

	return md
}

// HeaderKey returns the metadata key for a transport header name:
// lowercase, with underscores folded into dashes.
func HeaderKey(name string) string {
	return HeaderPrefix + strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

// Stringify renders a decoded JSON value as a metadata string. Numbers keep
// their literal digits, mappings and sequences are JSON encoded and nil
// becomes the empty string.
func Stringify(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case json.Number:
		return n.String()
	case map[string]any, []any:
		return jsoncodec.MarshalString(v)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return jsoncodec.MarshalString(v)
	}
	return s
}

func copyValues(dst Metadata, src map[string]any) {
	for k, v := range src {
		if v == nil {
			continue
		}
		dst[k] = Stringify(v)
	}
}
