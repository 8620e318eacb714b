// Package cloudevents knows the CloudEvents v1.0 structured-mode attribute
// names and time formats the ingress needs to recognise an envelope. It does
// not model events for publishing.
package cloudevents

// SpecVersion is the CloudEvents specification version producers are
// expected to send.
const SpecVersion = "1.0"

// Context attributes of a structured-mode envelope.
const (
	AttrSpecVersion     = "specversion"
	AttrID              = "id"
	AttrType            = "type"
	AttrSource          = "source"
	AttrTime            = "time"
	AttrSubject         = "subject"
	AttrDataContentType = "datacontenttype"
	AttrData            = "data"
	AttrDataBase64      = "data_base64"
)

// Envelope keys the ingress reads besides the CloudEvents attributes.
const (
	KeyMetadata   = "metadata"
	KeyExtensions = "extensions"
	KeyBody       = "body"
)

// Trace attributes copied into metadata when present. Dapr forwards W3C
// trace context under these names.
const (
	AttrTraceID     = "traceid"
	AttrTraceParent = "traceparent"
	AttrTraceState  = "tracestate"
)

// TraceAttributes lists the trace attributes in extraction order.
var TraceAttributes = []string{AttrTraceID, AttrTraceParent, AttrTraceState}

// Extension keys read by the standard listener middleware.
const (
	ExtCorrelationID = "correlation_id"
	ExtTenantID      = "tenant_id"
)
