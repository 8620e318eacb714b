package dispatch

import (
	"context"

	"github.com/drblury/ingressflow/internal/runtime/metadata"
)

type inboundKey struct{}

// inbound is attached to the dispatch context of events that arrived over
// the ingress, so handlers can tell them apart from locally raised events.
type inbound struct {
	metadata metadata.Metadata
}

// WithInbound marks ctx as carrying an inbound event with md.
func WithInbound(ctx context.Context, md metadata.Metadata) context.Context {
	return context.WithValue(ctx, inboundKey{}, inbound{metadata: md.Clone()})
}

// IsInbound reports whether the event being handled came from the ingress.
func IsInbound(ctx context.Context) bool {
	_, ok := ctx.Value(inboundKey{}).(inbound)
	return ok
}

// MetadataFromContext returns a copy of the inbound metadata, or an empty
// map for local events.
func MetadataFromContext(ctx context.Context) metadata.Metadata {
	in, ok := ctx.Value(inboundKey{}).(inbound)
	if !ok {
		return metadata.Metadata{}
	}
	return in.metadata.Clone()
}

// CorrelationID returns the inbound correlation id, if any.
func CorrelationID(ctx context.Context) string {
	return MetadataFromContext(ctx)[MetadataKeyCorrelationID]
}

// TenantID returns the inbound tenant id, if any.
func TenantID(ctx context.Context) string {
	return MetadataFromContext(ctx)[MetadataKeyTenantID]
}
