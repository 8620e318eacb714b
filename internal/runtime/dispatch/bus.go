package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	ierrors "github.com/drblury/ingressflow/internal/runtime/errors"
	"github.com/drblury/ingressflow/internal/runtime/ids"
	"github.com/drblury/ingressflow/internal/runtime/jsoncodec"
	"github.com/drblury/ingressflow/internal/runtime/logging"
	"github.com/drblury/ingressflow/internal/runtime/metadata"
)

// DefaultBusBuffer is the per-subscriber output buffer of the bus.
const DefaultBusBuffer = 64

// Bus is a fire-and-forget dispatcher backed by an in-process Watermill
// pub/sub. Dispatch encodes the event as JSON and returns once it is
// queued; subscribers decode and handle it on goroutines owned by the bus.
// Handler failures are logged, never reported back to the ingress.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger logging.ServiceLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBus creates a bus logging through logger.
func NewBus(logger logging.ServiceLogger, buffer int64) *Bus {
	if logger == nil {
		logger = logging.Discard()
	}
	if buffer <= 0 {
		buffer = DefaultBusBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: buffer}, logging.NewWatermillAdapter(logger)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// TopicFor returns the bus topic events of type T are published on.
func TopicFor[T any]() string {
	return reflect.TypeFor[T]().String()
}

// Subscribe starts a goroutine handling events of type T.
func Subscribe[T any](b *Bus, name string, h Handler[T]) error {
	if b == nil {
		return ierrors.ErrDispatcherRequired
	}
	if h == nil {
		return ierrors.ErrHandlerRequired
	}
	topic := TopicFor[T]()
	if name == "" {
		name = topic
	}
	messages, err := b.pubsub.Subscribe(b.ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range messages {
			b.handle(name, msg, func(ctx context.Context) error {
				var event T
				if err := jsoncodec.Unmarshal(msg.Payload, &event); err != nil {
					return fmt.Errorf("decode bus payload: %w", err)
				}
				return h(ctx, event)
			})
		}
	}()
	return nil
}

func (b *Bus) handle(name string, msg *message.Message, call func(ctx context.Context) error) {
	md := metadata.FromWatermill(msg.Metadata)
	ctx := logging.WithFields(WithInbound(b.ctx, md), logging.LogFields{"bus_message_id": msg.UUID})
	if err := call(ctx); err != nil {
		b.logger.Error("Bus listener failed", err, logging.LogFields{
			"listener":   name,
			"event_type": md[MetadataKeyEventType],
			"message_id": msg.UUID,
		})
	}
	msg.Ack()
}

// Dispatch publishes event on the topic of its Go type. Inbound metadata
// attached to ctx travels with it.
func (b *Bus) Dispatch(ctx context.Context, event any) error {
	if event == nil {
		return fmt.Errorf("publish: %w", ierrors.ErrEventTypeRequired)
	}
	payload, err := jsoncodec.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode bus payload: %w", err)
	}
	topic := reflect.TypeOf(event).String()

	md := MetadataFromContext(ctx)
	md[MetadataKeyEventType] = topic
	msg := message.NewMessage(ids.CreateULID(), payload)
	msg.Metadata = metadata.ToWatermill(md)

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close stops the subscribers and waits for in-flight handlers.
func (b *Bus) Close() error {
	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}
