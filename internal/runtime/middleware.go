package runtime

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/ingressflow/internal/runtime/cloudevents"
	"github.com/drblury/ingressflow/internal/runtime/dispatch"
	errspkg "github.com/drblury/ingressflow/internal/runtime/errors"
	"github.com/drblury/ingressflow/internal/runtime/ids"
	"github.com/drblury/ingressflow/internal/runtime/listener"
	loggingpkg "github.com/drblury/ingressflow/internal/runtime/logging"
	"github.com/drblury/ingressflow/internal/runtime/metadata"
)

// ListenerHandler processes one listener context. The terminal handler
// dispatches the hydrated event.
type ListenerHandler func(ctx context.Context, lc *listener.Context) error

// ListenerMiddleware wraps a ListenerHandler. It may short-circuit by not
// calling next.
type ListenerMiddleware func(next ListenerHandler) ListenerHandler

// MiddlewareBuilder constructs a listener middleware using the provided service instance.
type MiddlewareBuilder func(*Service) (ListenerMiddleware, error)

// MiddlewareRegistration captures how a middleware is added to a Service
// chain. A Builder returning a nil middleware is skipped.
type MiddlewareRegistration struct {
	Name       string
	Middleware ListenerMiddleware
	Builder    MiddlewareBuilder
}

// Middleware identifiers accepted by listener.middleware.
const (
	MiddlewareRetryOnce    = "retry_once"
	MiddlewareCorrelation  = "correlation"
	MiddlewareTenant       = "tenant"
	MiddlewareLogMessages  = "log_messages"
	MiddlewareTraceContext = "trace_context"
	MiddlewareMetrics      = "metrics"
	MiddlewareRecoverer    = "recoverer"
	MiddlewareHooks        = "hooks"
)

// Metadata keys read by the correlation and tenant middleware, in order.
var (
	CorrelationKeys = []string{dispatch.MetadataKeyCorrelationID, metadata.HeaderKey("X-Correlation-ID")}
	TenantKeys      = []string{dispatch.MetadataKeyTenantID, metadata.HeaderKey("X-Tenant-ID")}
)

// DefaultMiddlewares returns the chain used when the configuration names none.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		RetryOnceMiddleware(),
		CorrelationMiddleware(),
		TenantMiddleware(),
	}
}

// MiddlewareCatalog maps every identifier to its registration.
func MiddlewareCatalog() map[string]MiddlewareRegistration {
	return map[string]MiddlewareRegistration{
		MiddlewareRetryOnce:    RetryOnceMiddleware(),
		MiddlewareCorrelation:  CorrelationMiddleware(),
		MiddlewareTenant:       TenantMiddleware(),
		MiddlewareLogMessages:  LogMessagesMiddleware(nil),
		MiddlewareTraceContext: TraceContextMiddleware(),
		MiddlewareMetrics:      MetricsMiddleware(),
		MiddlewareRecoverer:    RecovererMiddleware(),
		MiddlewareHooks: {
			Name: MiddlewareHooks,
			Builder: func(s *Service) (ListenerMiddleware, error) {
				return listenerHooksMiddleware(s.hooks), nil
			},
		},
	}
}

// ResolveMiddlewares looks up identifiers in the catalog, keeping their order.
func ResolveMiddlewares(ids []string) ([]MiddlewareRegistration, error) {
	catalog := MiddlewareCatalog()
	out := make([]MiddlewareRegistration, 0, len(ids))
	var unknown []string
	for _, id := range ids {
		reg, ok := catalog[strings.TrimSpace(id)]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		out = append(out, reg)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", errspkg.ErrUnknownMiddleware, strings.Join(unknown, ", "))
	}
	return out, nil
}

// Chain composes middlewares around terminal. The first middleware is the
// outermost one.
func Chain(terminal ListenerHandler, middlewares ...ListenerMiddleware) ListenerHandler {
	h := terminal
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			continue
		}
		h = middlewares[i](h)
	}
	return h
}

// RetryOnceMiddleware re-runs the rest of the chain, dispatch included, once
// after a failure.
func RetryOnceMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       MiddlewareRetryOnce,
		Middleware: retryOnce,
	}
}

func retryOnce(next ListenerHandler) ListenerHandler {
	return func(ctx context.Context, lc *listener.Context) error {
		lc.IncrementAttempts()
		err := next(ctx, lc)
		if err == nil || lc.Attempts() >= 2 {
			return err
		}
		lc.Logger().Warn("Listener failed, retrying once", loggingpkg.LogFields{
			"event_type": lc.Subscription().EventName(),
			"topic":      lc.Subscription().Topic,
			"attempts":   lc.Attempts(),
			"error":      err.Error(),
		})
		return next(ctx, lc)
	}
}

// CorrelationMiddleware attaches the inbound correlation id to the logging
// context.
func CorrelationMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       MiddlewareCorrelation,
		Middleware: contextFieldMiddleware(dispatch.MetadataKeyCorrelationID, CorrelationKeys),
	}
}

// TenantMiddleware attaches the inbound tenant id to the logging context.
func TenantMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       MiddlewareTenant,
		Middleware: contextFieldMiddleware(dispatch.MetadataKeyTenantID, TenantKeys),
	}
}

// contextFieldMiddleware copies the first metadata value found under keys
// into the logging context and the listener logger as field. The value is
// also stored under keys[0] so dispatch sees it in the inbound metadata.
func contextFieldMiddleware(field string, keys []string) ListenerMiddleware {
	return func(next ListenerHandler) ListenerHandler {
		return func(ctx context.Context, lc *listener.Context) error {
			value, ok := lc.Metadata().First(keys...)
			if !ok {
				return next(ctx, lc)
			}
			fields := loggingpkg.LogFields{field: value}
			ctx = loggingpkg.WithFields(ctx, fields)
			lc.SetLogger(lc.Logger().With(fields))
			lc.MergeMetadata(metadata.Metadata{keys[0]: value})
			return next(ctx, lc)
		}
	}
}

// LogMessagesMiddleware logs the payload and metadata of handled messages.
func LogMessagesMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: MiddlewareLogMessages,
		Builder: func(s *Service) (ListenerMiddleware, error) {
			l := logger
			if l == nil {
				l = s.Logger
			}
			if l == nil {
				return nil, errspkg.ErrLoggerRequired
			}
			return logMessagesMiddleware(l), nil
		},
	}
}

func logMessagesMiddleware(logger loggingpkg.ServiceLogger) ListenerMiddleware {
	return func(next ListenerHandler) ListenerHandler {
		return func(ctx context.Context, lc *listener.Context) error {
			fields := loggingpkg.LogFields{
				"message_id": lc.ID(),
				"topic":      lc.Subscription().Topic,
				"payload":    lc.Payload(),
				"metadata":   lc.Metadata(),
			}
			// Generated ids carry the time the ingress first saw the message.
			if created, ok := ids.Timestamp(lc.ID()); ok {
				fields["message_created_at"] = cloudevents.FormatTime(created)
			}
			loggingpkg.FromContext(ctx, logger).Debug("Processing message", fields)
			return next(ctx, lc)
		}
	}
}

// TraceContextMiddleware continues the W3C trace carried in the metadata and
// wraps the rest of the chain in a span.
func TraceContextMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       MiddlewareTraceContext,
		Middleware: traceContext,
	}
}

const tracerName = "github.com/drblury/ingressflow"

func traceContext(next ListenerHandler) ListenerHandler {
	return func(ctx context.Context, lc *listener.Context) error {
		ctx = propagation.TraceContext{}.Extract(ctx, propagation.MapCarrier(lc.Metadata()))

		ctx, span := otel.Tracer(tracerName).Start(ctx, "ProcessIngressEvent",
			trace.WithSpanKind(trace.SpanKindConsumer),
		)
		defer span.End()

		span.SetAttributes(
			attribute.String("messaging.message.id", lc.ID()),
			attribute.String("messaging.destination.name", lc.Subscription().Topic),
			attribute.String("ingress.event_type", lc.Subscription().EventName()),
		)
		if sc := span.SpanContext(); sc.IsValid() {
			lc.SetLogger(lc.Logger().With(loggingpkg.LogFields{"trace_id": sc.TraceID().String()}))
		}

		err := next(ctx, lc)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

// MetricsMiddleware records per-topic outcome counters and latency.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: MiddlewareMetrics,
		Builder: func(s *Service) (ListenerMiddleware, error) {
			m, err := s.ensureMetrics()
			if err != nil {
				return nil, err
			}
			return m.Middleware(), nil
		},
	}
}

// RecovererMiddleware converts panics into errors so retry_once can see them.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       MiddlewareRecoverer,
		Middleware: recoverer,
	}
}

func recoverer(next ListenerHandler) ListenerHandler {
	return func(ctx context.Context, lc *listener.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic while processing %s: %v", lc.Subscription().EventName(), r)
			}
		}()
		return next(ctx, lc)
	}
}

// RegisterMiddleware appends the supplied middleware to the chain. Register
// middleware before Start.
func (s *Service) RegisterMiddleware(cfg MiddlewareRegistration) error {
	var mw ListenerMiddleware
	switch {
	case cfg.Middleware != nil:
		mw = cfg.Middleware
	case cfg.Builder != nil:
		var err error
		mw, err = cfg.Builder(s)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("middleware registration %q requires Middleware or Builder", cfg.Name)
	}

	if mw == nil {
		return nil
	}

	s.middlewaresMu.Lock()
	defer s.middlewaresMu.Unlock()
	s.middlewares = append(s.middlewares, mw)
	s.middlewareNames = append(s.middlewareNames, cfg.Name)
	return nil
}

// MiddlewareNames lists the registered middleware in execution order.
func (s *Service) MiddlewareNames() []string {
	s.middlewaresMu.RLock()
	defer s.middlewaresMu.RUnlock()
	return append([]string(nil), s.middlewareNames...)
}
