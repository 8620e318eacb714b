package runtime

import (
	"context"
	"time"

	"github.com/drblury/ingressflow/internal/runtime/listener"
	loggingpkg "github.com/drblury/ingressflow/internal/runtime/logging"
	"github.com/drblury/ingressflow/internal/runtime/metadata"
)

// HookContext provides information about a listener execution to hooks.
type HookContext struct {
	// EventType is the name of the hydrated event type.
	EventType string
	// Topic is the subscription topic the message arrived on.
	Topic string
	// MessageID is the CloudEvent id or the generated identifier.
	MessageID string
	// Metadata is a snapshot of the listener metadata.
	Metadata metadata.Metadata
	// Context is the request context.
	Context context.Context
	// StartedAt is when the hooks middleware was entered.
	StartedAt time.Time
	// Duration is only set in OnDone and OnError.
	Duration time.Duration
	// Attempts is the attempt counter at completion.
	Attempts int
}

// ListenerHooks defines callbacks for the listener lifecycle.
// All hooks are optional - nil hooks are simply not called.
type ListenerHooks struct {
	OnStart func(ctx HookContext)
	OnDone  func(ctx HookContext)
	// OnError receives the error returned by the rest of the chain.
	OnError func(ctx HookContext, err error)
}

// IsZero reports whether no hook is set.
func (h ListenerHooks) IsZero() bool {
	return h.OnStart == nil && h.OnDone == nil && h.OnError == nil
}

// Merge combines two ListenerHooks. The hooks from 'other' are called after
// the hooks from 'h'.
func (h ListenerHooks) Merge(other ListenerHooks) ListenerHooks {
	return ListenerHooks{
		OnStart: chainHooks(h.OnStart, other.OnStart),
		OnDone:  chainHooks(h.OnDone, other.OnDone),
		OnError: chainErrorHooks(h.OnError, other.OnError),
	}
}

func chainHooks(a, b func(HookContext)) func(HookContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx HookContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(HookContext, error)) func(HookContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx HookContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// HooksMiddleware creates a middleware that invokes the provided hooks
// around the rest of the chain.
func HooksMiddleware(hooks ListenerHooks) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: MiddlewareHooks,
		Builder: func(s *Service) (ListenerMiddleware, error) {
			return listenerHooksMiddleware(hooks), nil
		},
	}
}

func listenerHooksMiddleware(hooks ListenerHooks) ListenerMiddleware {
	if hooks.IsZero() {
		return nil
	}
	return func(next ListenerHandler) ListenerHandler {
		return func(ctx context.Context, lc *listener.Context) error {
			hc := HookContext{
				EventType: lc.Subscription().EventName(),
				Topic:     lc.Subscription().Topic,
				MessageID: lc.ID(),
				Metadata:  lc.Metadata(),
				Context:   ctx,
				StartedAt: time.Now(),
			}

			if hooks.OnStart != nil {
				hooks.OnStart(hc)
			}

			err := next(ctx, lc)

			hc.Duration = time.Since(hc.StartedAt)
			hc.Attempts = lc.Attempts()
			if err != nil {
				if hooks.OnError != nil {
					hooks.OnError(hc, err)
				}
			} else if hooks.OnDone != nil {
				hooks.OnDone(hc)
			}
			return err
		}
	}
}

// LoggingHooks returns pre-built hooks that log the listener lifecycle.
func LoggingHooks(logger loggingpkg.ServiceLogger) ListenerHooks {
	return ListenerHooks{
		OnStart: func(ctx HookContext) {
			logger.Info("Listener started", loggingpkg.LogFields{
				"event_type": ctx.EventType,
				"topic":      ctx.Topic,
				"message_id": ctx.MessageID,
			})
		},
		OnDone: func(ctx HookContext) {
			logger.Info("Listener completed", loggingpkg.LogFields{
				"event_type":  ctx.EventType,
				"topic":       ctx.Topic,
				"message_id":  ctx.MessageID,
				"duration_ms": ctx.Duration.Milliseconds(),
				"attempts":    ctx.Attempts,
			})
		},
		OnError: func(ctx HookContext, err error) {
			logger.Error("Listener failed", err, loggingpkg.LogFields{
				"event_type":  ctx.EventType,
				"topic":       ctx.Topic,
				"message_id":  ctx.MessageID,
				"duration_ms": ctx.Duration.Milliseconds(),
				"attempts":    ctx.Attempts,
			})
		},
	}
}

// AlertingHooks returns pre-built hooks that trigger alerts on listener errors.
func AlertingHooks(alertFunc func(ctx HookContext, err error)) ListenerHooks {
	return ListenerHooks{
		OnError: alertFunc,
	}
}
