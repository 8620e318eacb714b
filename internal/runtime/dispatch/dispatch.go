// Package dispatch delivers hydrated events to in-process handlers, either
// synchronously through a Registry or fire-and-forget through a Bus.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	ierrors "github.com/drblury/ingressflow/internal/runtime/errors"
)

// Dispatcher hands an event to zero or more handlers.
type Dispatcher interface {
	Dispatch(ctx context.Context, event any) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, event any) error

func (f DispatcherFunc) Dispatch(ctx context.Context, event any) error { return f(ctx, event) }

// Handler handles events of type T.
type Handler[T any] func(ctx context.Context, event T) error

// HandlerError wraps the first failure raised by a handler. It matches
// ierrors.ErrHandler and the handler's own error with errors.Is.
type HandlerError struct {
	Listener string
	Event    string
	Err      error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("ingressflow: listener %s failed for %s: %v", e.Listener, e.Event, e.Err)
}

func (e *HandlerError) Unwrap() []error {
	return []error{ierrors.ErrHandler, e.Err}
}

type registration struct {
	name string
	call func(ctx context.Context, event any) error
}

// Registry runs handlers synchronously in registration order. Handlers for
// the event's exact type run first, then handlers registered with ListenAll.
type Registry struct {
	mu       sync.RWMutex
	byType   map[reflect.Type][]registration
	wildcard []registration
}

func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type][]registration)}
}

// Listen registers h for events of type T.
func Listen[T any](r *Registry, name string, h Handler[T]) error {
	if r == nil {
		return ierrors.ErrDispatcherRequired
	}
	if h == nil {
		return ierrors.ErrHandlerRequired
	}
	typ := reflect.TypeFor[T]()
	if name == "" {
		name = typ.String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[typ] = append(r.byType[typ], registration{
		name: name,
		call: func(ctx context.Context, event any) error {
			typed, ok := event.(T)
			if !ok {
				return fmt.Errorf("event %T is not %s", event, typ)
			}
			return h(ctx, typed)
		},
	})
	return nil
}

// ListenAll registers h for every dispatched event.
func (r *Registry) ListenAll(name string, h Handler[any]) error {
	if h == nil {
		return ierrors.ErrHandlerRequired
	}
	if name == "" {
		name = "*"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wildcard = append(r.wildcard, registration{name: name, call: h})
	return nil
}

// HasListeners reports whether any handler would receive event.
func (r *Registry) HasListeners(event any) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.wildcard) > 0 || len(r.byType[reflect.TypeOf(event)]) > 0
}

// Dispatch calls every matching handler and stops at the first failure.
// Events without handlers are dropped silently.
func (r *Registry) Dispatch(ctx context.Context, event any) error {
	r.mu.RLock()
	regs := append(append([]registration(nil), r.byType[reflect.TypeOf(event)]...), r.wildcard...)
	r.mu.RUnlock()

	for _, reg := range regs {
		if err := reg.call(ctx, event); err != nil {
			var he *HandlerError
			if errors.As(err, &he) {
				return err
			}
			return &HandlerError{Listener: reg.name, Event: fmt.Sprintf("%T", event), Err: err}
		}
	}
	return nil
}

// Fanout dispatches to every dispatcher in order, stopping at the first
// failure.
func Fanout(dispatchers ...Dispatcher) Dispatcher {
	return DispatcherFunc(func(ctx context.Context, event any) error {
		for _, d := range dispatchers {
			if d == nil {
				continue
			}
			if err := d.Dispatch(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
}
