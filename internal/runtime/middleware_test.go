package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/drblury/ingressflow/internal/runtime/errors"
	"github.com/drblury/ingressflow/internal/runtime/listener"
	loggingpkg "github.com/drblury/ingressflow/internal/runtime/logging"
	"github.com/drblury/ingressflow/internal/runtime/metadata"
	"github.com/drblury/ingressflow/internal/runtime/registry"
)

func newListenerContext(md metadata.Metadata, log loggingpkg.ServiceLogger) *listener.Context {
	return listener.New(listener.Params{
		ID: "msg-1",
		Subscription: registry.Subscription{
			EventType: orderPlacedType,
			Topic:     "orders.placed",
			Route:     ordersRoute(),
		},
		Event:    orderPlaced{OrderID: 1},
		Metadata: md,
		Logger:   log,
	})
}

func TestChainRunsMiddlewaresInOrder(t *testing.T) {
	var calls []string
	record := func(name string) ListenerMiddleware {
		return func(next ListenerHandler) ListenerHandler {
			return func(ctx context.Context, lc *listener.Context) error {
				calls = append(calls, name)
				return next(ctx, lc)
			}
		}
	}
	terminal := func(context.Context, *listener.Context) error {
		calls = append(calls, "dispatch")
		return nil
	}

	h := Chain(terminal, record("first"), nil, record("second"))
	require.NoError(t, h(context.Background(), newListenerContext(nil, nil)))
	assert.Equal(t, []string{"first", "second", "dispatch"}, calls)
}

func TestChainShortCircuit(t *testing.T) {
	stop := func(next ListenerHandler) ListenerHandler {
		return func(context.Context, *listener.Context) error { return nil }
	}
	dispatched := false
	h := Chain(func(context.Context, *listener.Context) error {
		dispatched = true
		return nil
	}, stop)

	require.NoError(t, h(context.Background(), newListenerContext(nil, nil)))
	assert.False(t, dispatched)
}

func TestRetryOnceSucceedsAfterOneFailure(t *testing.T) {
	log := newRecordingLogger()
	lc := newListenerContext(nil, log)
	calls := 0
	h := Chain(func(context.Context, *listener.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	}, retryOnce)

	require.NoError(t, h(context.Background(), lc))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, lc.Attempts(), "retry must not increment attempts again")

	entry, ok := log.Find("Listener failed, retrying once")
	require.True(t, ok)
	assert.Equal(t, "warn", entry.level)
	assert.Equal(t, "transient", entry.fields["error"])
}

func TestRetryOncePropagatesSecondFailureUnmodified(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	lc := newListenerContext(nil, nil)
	calls := 0
	h := Chain(func(context.Context, *listener.Context) error {
		calls++
		if calls == 1 {
			return first
		}
		return second
	}, retryOnce)

	err := h(context.Background(), lc)
	assert.Equal(t, 2, calls)
	if err != second {
		t.Fatalf("expected the second failure unmodified, got %v", err)
	}
}

func TestRetryOnceSkipsRetryWhenAttemptsExhausted(t *testing.T) {
	lc := newListenerContext(nil, nil)
	lc.IncrementAttempts()
	calls := 0
	boom := errors.New("boom")
	h := Chain(func(context.Context, *listener.Context) error {
		calls++
		return boom
	}, retryOnce)

	assert.ErrorIs(t, h(context.Background(), lc), boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, lc.Attempts())
}

func TestRetryOnceRerunsLaterMiddleware(t *testing.T) {
	seen := 0
	counting := func(next ListenerHandler) ListenerHandler {
		return func(ctx context.Context, lc *listener.Context) error {
			seen++
			return next(ctx, lc)
		}
	}
	calls := 0
	h := Chain(func(context.Context, *listener.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	}, retryOnce, counting)

	require.NoError(t, h(context.Background(), newListenerContext(nil, nil)))
	assert.Equal(t, 2, seen)
}

func TestCorrelationMiddleware(t *testing.T) {
	tests := []struct {
		name string
		md   metadata.Metadata
		want string
	}{
		{name: "primary key", md: metadata.Metadata{"correlation_id": "abc-123", "header_x-correlation-id": "other"}, want: "abc-123"},
		{name: "header fallback", md: metadata.Metadata{"header_x-correlation-id": "from-header"}, want: "from-header"},
		{name: "absent", md: metadata.Metadata{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := newRecordingLogger()
			lc := newListenerContext(tt.md, log)
			var got loggingpkg.LogFields
			h := Chain(func(ctx context.Context, lc *listener.Context) error {
				got = loggingpkg.FieldsFromContext(ctx)
				lc.Logger().Info("inside", nil)
				return nil
			}, CorrelationMiddleware().Middleware)

			require.NoError(t, h(context.Background(), lc))
			entry, _ := log.Find("inside")
			if tt.want == "" {
				assert.NotContains(t, got, "correlation_id")
				assert.NotContains(t, entry.fields, "correlation_id")
				return
			}
			assert.Equal(t, tt.want, got["correlation_id"])
			assert.Equal(t, tt.want, entry.fields["correlation_id"])
			assert.Equal(t, tt.want, lc.Metadata()["correlation_id"])
		})
	}
}

func TestTenantMiddlewareUsesHeaderFallback(t *testing.T) {
	lc := newListenerContext(metadata.Metadata{"header_x-tenant-id": "acme"}, nil)
	var got loggingpkg.LogFields
	h := Chain(func(ctx context.Context, lc *listener.Context) error {
		got = loggingpkg.FieldsFromContext(ctx)
		return nil
	}, CorrelationMiddleware().Middleware, TenantMiddleware().Middleware)

	require.NoError(t, h(context.Background(), lc))
	assert.Equal(t, loggingpkg.LogFields{"tenant_id": "acme"}, got)
}

func TestRecovererTurnsPanicsIntoErrors(t *testing.T) {
	calls := 0
	h := Chain(func(context.Context, *listener.Context) error {
		calls++
		if calls == 1 {
			panic("kaboom")
		}
		return nil
	}, retryOnce, recoverer)

	require.NoError(t, h(context.Background(), newListenerContext(nil, nil)))
	assert.Equal(t, 2, calls)

	h = Chain(func(context.Context, *listener.Context) error { panic("always") }, recoverer)
	err := h(context.Background(), newListenerContext(nil, nil))
	assert.ErrorContains(t, err, "panic while processing OrderPlaced: always")
}

func TestTraceContextContinuesInboundTrace(t *testing.T) {
	log := newRecordingLogger()
	lc := newListenerContext(metadata.Metadata{
		"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}, log)

	var traceID string
	h := Chain(func(ctx context.Context, lc *listener.Context) error {
		traceID = trace.SpanContextFromContext(ctx).TraceID().String()
		lc.Logger().Info("inside", nil)
		return nil
	}, traceContext)

	require.NoError(t, h(context.Background(), lc))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", traceID)
	entry, ok := log.Find("inside")
	require.True(t, ok)
	assert.Equal(t, traceID, entry.fields["trace_id"])
}

func TestLogMessagesMiddleware(t *testing.T) {
	log := newRecordingLogger()
	mw, err := LogMessagesMiddleware(log).Builder(&Service{})
	require.NoError(t, err)

	h := Chain(func(context.Context, *listener.Context) error { return nil }, mw)
	require.NoError(t, h(context.Background(), newListenerContext(metadata.Metadata{"a": "1"}, nil)))

	entry, ok := log.Find("Processing message")
	require.True(t, ok)
	assert.Equal(t, "debug", entry.level)
	assert.Equal(t, "msg-1", entry.fields["message_id"])
	assert.NotContains(t, entry.fields, "message_created_at")

	generated := listener.New(listener.Params{
		ID:           "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Subscription: registry.Subscription{EventType: orderPlacedType, Topic: "orders.placed"},
		Event:        orderPlaced{OrderID: 2},
	})
	log = newRecordingLogger()
	mw, err = LogMessagesMiddleware(log).Builder(&Service{})
	require.NoError(t, err)
	require.NoError(t, Chain(func(context.Context, *listener.Context) error { return nil }, mw)(context.Background(), generated))

	entry, ok = log.Find("Processing message")
	require.True(t, ok)
	assert.Equal(t, "2016-07-30T23:54:10Z", entry.fields["message_created_at"])

	_, err = LogMessagesMiddleware(nil).Builder(&Service{})
	assert.ErrorIs(t, err, errspkg.ErrLoggerRequired)
}

func TestResolveMiddlewares(t *testing.T) {
	regs, err := ResolveMiddlewares([]string{"tenant", " retry_once "})
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, MiddlewareTenant, regs[0].Name)
	assert.Equal(t, MiddlewareRetryOnce, regs[1].Name)

	_, err = ResolveMiddlewares([]string{"retry_once", "nope", "also_nope"})
	assert.ErrorIs(t, err, errspkg.ErrUnknownMiddleware)
	assert.ErrorContains(t, err, "also_nope, nope")
}

func TestDefaultMiddlewaresMatchConfigDefaults(t *testing.T) {
	var names []string
	for _, reg := range DefaultMiddlewares() {
		names = append(names, reg.Name)
	}
	assert.Equal(t, []string{"retry_once", "correlation", "tenant"}, names)
}

func TestRegisterMiddlewareValidation(t *testing.T) {
	svc := &Service{}
	err := svc.RegisterMiddleware(MiddlewareRegistration{Name: "empty"})
	assert.ErrorContains(t, err, "requires Middleware or Builder")

	require.NoError(t, svc.RegisterMiddleware(MiddlewareRegistration{
		Name:    "skipped",
		Builder: func(*Service) (ListenerMiddleware, error) { return nil, nil },
	}))
	assert.Empty(t, svc.MiddlewareNames())
}
