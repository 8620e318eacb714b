// Package ingressflow receives pub/sub messages pushed by a Dapr-style
// sidecar over HTTP and dispatches them as typed events to in-process
// listeners.
//
// A Service exposes POST /<prefix>/ingress/<topic> and GET /dapr/subscribe.
// Each request is verified, matched to a registered subscription by route,
// unwrapped from its envelope (structured CloudEvent or bare JSON), hydrated
// into the subscribed event type and run through an ordered listener
// middleware chain that ends in dispatch.
//
// # Event types
//
// Event types are described by a hydrate descriptor table instead of
// reflection. Every field names a Descriptor; lookup tolerates snake_case,
// camelCase and StudlyCase spellings and nested producers:
//
//	var OrderPlacedType = ingressflow.MustType("OrderPlaced",
//		func(a ingressflow.Args) (any, error) {
//			return OrderPlaced{ID: a.Int("orderId"), Amount: a.Int("amount")}, nil
//		},
//		ingressflow.FieldOf("orderId", ingressflow.Int(), func(o OrderPlaced) int { return o.ID }),
//		ingressflow.FieldOf("amount", ingressflow.Int(), func(o OrderPlaced) int { return o.Amount }),
//	)
//
// RegisterJSONEvent and RegisterProtoEvent cover JSON-tagged structs and
// protobuf messages without a table.
//
// # Middleware
//
// listener.middleware in the configuration selects the chain by identifier.
// The default is retry_once, correlation, tenant. retry_once re-runs the
// rest of the chain, dispatch included, once after a failure.
//
// # Responses
//
// Authentication failures answer 403, unknown routes 404 and payloads that
// cannot be hydrated 422 with {"status":"DROP"}. Any other failure answers
// 500 with {"status":"RETRY"} so the sidecar redelivers.
package ingressflow
