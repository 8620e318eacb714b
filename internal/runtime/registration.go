package runtime

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/drblury/ingressflow/internal/runtime/dispatch"
	errspkg "github.com/drblury/ingressflow/internal/runtime/errors"
	"github.com/drblury/ingressflow/internal/runtime/hydrate"
	"github.com/drblury/ingressflow/internal/runtime/jsoncodec"
	"github.com/drblury/ingressflow/internal/runtime/registry"
)

// Listen registers a typed listener for events of type T.
func Listen[T any](svc *Service, name string, h dispatch.Handler[T]) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	return dispatch.Listen(svc.listeners, name, h)
}

// SubscribeBus registers a fire-and-forget bus subscriber for events of
// type T. It fails when dispatch.bus is disabled.
func SubscribeBus[T any](svc *Service, name string, h dispatch.Handler[T]) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if svc.bus == nil {
		return fmt.Errorf("%w: dispatch bus is disabled", errspkg.ErrDispatcherRequired)
	}
	return dispatch.Subscribe(svc.bus, name, h)
}

// RegisterJSONEvent subscribes a plain Go struct decoded with its JSON tags
// instead of a descriptor table. The event value is a T.
func RegisterJSONEvent[T any](svc *Service, topic string, opts ...registry.Option) (registry.Subscription, error) {
	if svc == nil {
		return registry.Subscription{}, errspkg.ErrServiceRequired
	}
	t := hydrate.Custom(typeName[T](), func(payload map[string]any) (any, error) {
		raw, err := jsoncodec.Marshal(payload)
		if err != nil {
			return nil, err
		}
		var event T
		if err := jsoncodec.Unmarshal(raw, &event); err != nil {
			return nil, err
		}
		return event, nil
	})
	return svc.RegisterEvent(t, topic, opts...)
}

// RegisterProtoEvent subscribes a protobuf message decoded with protojson.
// Unknown fields are ignored. The event value is a T.
func RegisterProtoEvent[T proto.Message](svc *Service, topic string, opts ...registry.Option) (registry.Subscription, error) {
	if svc == nil {
		return registry.Subscription{}, errspkg.ErrServiceRequired
	}
	var zero T
	prototype := zero.ProtoReflect()
	name := string(prototype.Descriptor().Name())

	t := hydrate.Custom(name, func(payload map[string]any) (any, error) {
		raw, err := jsoncodec.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg := prototype.New().Interface()
		if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(raw, msg); err != nil {
			return nil, err
		}
		typed, ok := msg.(T)
		if !ok {
			return nil, fmt.Errorf("unexpected proto message %T", msg)
		}
		return typed, nil
	})
	return svc.RegisterEvent(t, topic, opts...)
}

func typeName[T any]() string {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return typ.Name()
}
