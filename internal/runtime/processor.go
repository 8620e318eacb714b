package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/drblury/ingressflow/internal/runtime/dispatch"
	"github.com/drblury/ingressflow/internal/runtime/envelope"
	errspkg "github.com/drblury/ingressflow/internal/runtime/errors"
	"github.com/drblury/ingressflow/internal/runtime/hydrate"
	"github.com/drblury/ingressflow/internal/runtime/ids"
	"github.com/drblury/ingressflow/internal/runtime/listener"
	loggingpkg "github.com/drblury/ingressflow/internal/runtime/logging"
	"github.com/drblury/ingressflow/internal/runtime/metadata"
)

// Response statuses understood by the Dapr sidecar.
const (
	StatusSuccess = "SUCCESS"
	StatusRetry   = "RETRY"
	StatusDrop    = "DROP"
)

// Result is the body returned to the sidecar.
type Result struct {
	Status string `json:"status"`
}

// Rejection reasons recorded by IngressMetrics.
const (
	rejectAuthentication = "authentication"
	rejectRoute          = "route_not_found"
	rejectHydration      = "hydration"
)

// Process runs one inbound message through verification, routing,
// decoding, hydration and the listener chain. Failures match exactly one
// of ErrAuthentication, ErrRouteNotFound, ErrHydration or ErrHandler, or
// are returned as raised by a middleware.
func (s *Service) Process(ctx context.Context, req *listener.Request, route string) (Result, error) {
	if req == nil {
		req = &listener.Request{}
	}
	if !s.verifier.Verify(req) {
		s.recordRejected(rejectAuthentication)
		return Result{}, errspkg.ErrAuthentication
	}

	sub, ok := s.registry.FindByRoute(route)
	if !ok {
		s.recordRejected(rejectRoute)
		return Result{}, fmt.Errorf("%w: %s", errspkg.ErrRouteNotFound, route)
	}

	raw := envelope.Decode(req.Body)
	payload := envelope.Unwrap(raw)
	md := metadata.Extract(req.Header, raw)

	event, err := hydrate.Hydrate(sub.EventType, payload)
	if err != nil {
		s.recordRejected(rejectHydration)
		return Result{}, err
	}

	id := ids.MessageID(envelope.ID(raw))
	md = md.WithAll(metadata.Metadata{
		dispatch.MetadataKeyEventType: sub.EventName(),
		dispatch.MetadataKeyTopic:     sub.Topic,
		dispatch.MetadataKeyMessageID: id,
	})

	lc := listener.New(listener.Params{
		ID:           id,
		Subscription: sub,
		Event:        event,
		Payload:      payload,
		Metadata:     md,
		Request:      req,
		Logger: s.Logger.With(loggingpkg.LogFields{
			"message_id": id,
			"topic":      sub.Topic,
		}),
	})

	handler := Chain(s.dispatchEvent, s.middlewareSnapshot()...)
	if err := handler(ctx, lc); err != nil {
		return Result{}, err
	}
	return Result{Status: StatusSuccess}, nil
}

// dispatchEvent is the terminal stage of every chain. The dispatch context
// carries the inbound marker, the listener metadata and the logging fields
// attached by earlier middleware.
func (s *Service) dispatchEvent(ctx context.Context, lc *listener.Context) error {
	md := lc.Metadata()
	ctx = dispatch.WithInbound(ctx, md)

	if s.ownDispatch && !s.listeners.HasListeners(lc.Event()) {
		lc.Logger().Warn("No listeners registered for ingress event", loggingpkg.LogFields{
			"event_type": lc.Subscription().EventName(),
			"topic":      lc.Subscription().Topic,
		})
	}

	if err := s.dispatcher.Dispatch(ctx, lc.Event()); err != nil {
		if !errors.Is(err, errspkg.ErrHandler) {
			err = &dispatch.HandlerError{Listener: "dispatcher", Event: lc.Subscription().EventName(), Err: err}
		}
		return err
	}

	lc.Logger().Info("Dispatched ingress event", loggingpkg.LogFields{
		"event_type": lc.Subscription().EventName(),
		"topic":      lc.Subscription().Topic,
		"metadata":   md,
	})
	return nil
}

func (s *Service) middlewareSnapshot() []ListenerMiddleware {
	s.middlewaresMu.RLock()
	defer s.middlewaresMu.RUnlock()
	return append([]ListenerMiddleware(nil), s.middlewares...)
}

func (s *Service) recordRejected(reason string) {
	if s.metrics != nil {
		s.metrics.RecordRejected(reason)
	}
}
