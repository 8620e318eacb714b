package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/ingressflow/internal/runtime/listener"
	"github.com/drblury/ingressflow/internal/runtime/metadata"
)

func TestListenerHooks_OnStartAndOnDone(t *testing.T) {
	var started, done HookContext
	hooks := ListenerHooks{
		OnStart: func(ctx HookContext) { started = ctx },
		OnDone:  func(ctx HookContext) { done = ctx },
	}

	h := Chain(func(context.Context, *listener.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}, retryOnce, listenerHooksMiddleware(hooks))

	lc := newListenerContext(metadata.Metadata{"k": "v"}, nil)
	require.NoError(t, h(context.Background(), lc))

	assert.Equal(t, "OrderPlaced", started.EventType)
	assert.Equal(t, "orders.placed", started.Topic)
	assert.Equal(t, "msg-1", started.MessageID)
	assert.Equal(t, "v", started.Metadata["k"])
	assert.False(t, started.StartedAt.IsZero())
	assert.True(t, done.Duration >= 5*time.Millisecond)
	assert.Equal(t, 1, done.Attempts)
}

func TestListenerHooks_OnError(t *testing.T) {
	var captured error
	expected := errors.New("handler error")
	h := Chain(func(context.Context, *listener.Context) error {
		return expected
	}, listenerHooksMiddleware(AlertingHooks(func(_ HookContext, err error) { captured = err })))

	err := h(context.Background(), newListenerContext(nil, nil))
	assert.ErrorIs(t, err, expected)
	assert.ErrorIs(t, captured, expected)
}

func TestListenerHooks_Merge(t *testing.T) {
	var order []string
	a := ListenerHooks{OnStart: func(HookContext) { order = append(order, "a") }}
	b := ListenerHooks{
		OnStart: func(HookContext) { order = append(order, "b") },
		OnError: func(HookContext, error) { order = append(order, "b-error") },
	}

	merged := a.Merge(b)
	merged.OnStart(HookContext{})
	merged.OnError(HookContext{}, errors.New("x"))
	assert.Nil(t, merged.OnDone)
	assert.Equal(t, []string{"a", "b", "b-error"}, order)
}

func TestListenerHooks_ZeroIsSkipped(t *testing.T) {
	assert.True(t, ListenerHooks{}.IsZero())
	assert.Nil(t, listenerHooksMiddleware(ListenerHooks{}))
}

func TestLoggingHooks(t *testing.T) {
	log := newRecordingLogger()
	h := Chain(func(context.Context, *listener.Context) error {
		return errors.New("failed")
	}, listenerHooksMiddleware(LoggingHooks(log)))

	_ = h(context.Background(), newListenerContext(nil, nil))

	_, ok := log.Find("Listener started")
	assert.True(t, ok)
	entry, ok := log.Find("Listener failed")
	require.True(t, ok)
	assert.EqualError(t, entry.err, "failed")
	assert.Equal(t, "orders.placed", entry.fields["topic"])
}
