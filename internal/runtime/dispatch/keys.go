package dispatch

// Metadata keys the runtime reads or writes. They are reserved and should
// not be used for custom metadata.
const (
	// MetadataKeyCorrelationID links related messages across services.
	MetadataKeyCorrelationID = "correlation_id"

	// MetadataKeyTenantID identifies the tenant a message belongs to.
	MetadataKeyTenantID = "tenant_id"

	// MetadataKeyEventType names the Go type of an event published on the bus.
	MetadataKeyEventType = "ingress_event_type"

	// MetadataKeyTopic records the topic the message arrived on.
	MetadataKeyTopic = "ingress_topic"

	// MetadataKeyMessageID carries the ingress message id onto the bus.
	MetadataKeyMessageID = "ingress_message_id"
)
