/*
Package runtime provides the ingress processing core of ingressflow.

# Architecture Overview

A Dapr-style sidecar delivers pub/sub messages over HTTP. The Service
matches each request to a registered topic subscription, decodes the
envelope, hydrates a typed event and runs it through an ordered listener
middleware chain that ends in dispatch to in-process listeners.

# Package Structure

## Core Service (service.go)

The Service struct wires together:
  - the subscription registry (registry package)
  - the signature verifier (signature package)
  - the typed listener registry and optional in-process bus (dispatch package)
  - the listener middleware chain
  - HTTP servers for the ingress and metrics

## Processing (processor.go, ingress.go)

Service.Process runs one message: verify, route, decode, extract metadata,
hydrate, build the listener.Context, run the chain. Handler exposes it over
net/http and maps failures to status codes:

	ErrAuthentication  403 {"status":"DROP"}
	ErrRouteNotFound   404 {"status":"DROP"}
	ErrHydration       422 {"status":"DROP"}
	anything else      500 {"status":"RETRY"}

## Middleware (middleware.go, hooks.go, metrics.go)

Middleware is selected by identifier from the configuration, in order:
  - retry_once: re-runs the rest of the chain once after a failure
  - correlation, tenant: attach ids to the logging context
  - log_messages, trace_context, metrics, recoverer, hooks

## Registration (registration.go)

Events are registered with a hydrate.Type descriptor table, or with
RegisterJSONEvent and RegisterProtoEvent for JSON-tagged structs and
protobuf messages. Listen and SubscribeBus attach typed listeners.

# Usage Example

	svc, err := runtime.NewService(conf, logger, runtime.ServiceDependencies{})
	if err != nil {
		return err
	}
	if _, err := svc.RegisterEvent(orderPlacedType, "orders.placed"); err != nil {
		return err
	}
	err = runtime.Listen(svc, "ship-order", func(ctx context.Context, e OrderPlaced) error {
		return ship(ctx, e)
	})
	if err != nil {
		return err
	}
	return svc.Start(ctx)
*/
package runtime
