// Package registry maps event types to topic subscriptions and ingress
// routes. It is populated once at startup, sealed, and read concurrently
// while serving.
package registry

import (
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/iancoleman/strcase"

	ierrors "github.com/drblury/ingressflow/internal/runtime/errors"
	"github.com/drblury/ingressflow/internal/runtime/hydrate"
)

const (
	DefaultPrefix     = "dapr"
	DefaultPubsubName = "pubsub"
	ingressSegment    = "ingress"
)

// Subscription binds an event type to a topic and the route its messages
// arrive on. It is immutable once registered.
type Subscription struct {
	EventType  *hydrate.Type
	Topic      string
	Route      string
	PubsubName string
	Metadata   map[string]string
}

// EventName returns the name of the subscribed event type.
func (s Subscription) EventName() string {
	if s.EventType == nil {
		return ""
	}
	return s.EventType.Name
}

// DaprSubscription is one entry of the programmatic subscription list the
// sidecar reads from GET /dapr/subscribe.
type DaprSubscription struct {
	PubsubName string            `json:"pubsubname"`
	Topic      string            `json:"topic"`
	Route      string            `json:"route"`
	Metadata   map[string]string `json:"metadata"`
}

// Option customises a registration.
type Option func(*Subscription)

// WithMetadata attaches subscription metadata forwarded to the sidecar.
func WithMetadata(md map[string]string) Option {
	return func(s *Subscription) {
		s.Metadata = maps.Clone(md)
	}
}

// WithPubsub overrides the pub/sub component name for one subscription.
func WithPubsub(name string) Option {
	return func(s *Subscription) {
		if name != "" {
			s.PubsubName = name
		}
	}
}

// Registry is the in-memory subscription table.
type Registry struct {
	mu      sync.RWMutex
	prefix  string
	pubsub  string
	byRoute map[string]Subscription
	order   []string
	sealed  bool
}

// New creates an empty registry serving routes under prefix. Empty values
// fall back to DefaultPrefix and DefaultPubsubName.
func New(prefix, pubsubName string) *Registry {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if pubsubName == "" {
		pubsubName = DefaultPubsubName
	}
	return &Registry{prefix: prefix, pubsub: pubsubName, byRoute: make(map[string]Subscription)}
}

// Prefix returns the HTTP path prefix routes are derived under.
func (r *Registry) Prefix() string { return r.prefix }

// RegisterEvent subscribes t to topic. An empty topic is derived from the
// type name (see ResolveTopic).
func (r *Registry) RegisterEvent(t *hydrate.Type, topic string, opts ...Option) (Subscription, error) {
	if t == nil {
		return Subscription{}, ierrors.ErrEventTypeRequired
	}
	if topic = strings.TrimSpace(topic); topic == "" {
		topic = ResolveTopic(t.Name)
	}
	if topic == "" {
		return Subscription{}, ierrors.ErrTopicRequired
	}

	sub := Subscription{
		EventType:  t,
		Topic:      topic,
		Route:      RouteFor(r.prefix, topic),
		PubsubName: r.pubsub,
		Metadata:   map[string]string{},
	}
	for _, opt := range opts {
		opt(&sub)
	}
	if sub.Metadata == nil {
		sub.Metadata = map[string]string{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return Subscription{}, ierrors.ErrRegistrySealed
	}
	if existing, ok := r.byRoute[sub.Route]; ok {
		return Subscription{}, fmt.Errorf("%w: %s (topic %s, event %s)", ierrors.ErrDuplicateRoute, sub.Route, existing.Topic, existing.EventName())
	}
	r.byRoute[sub.Route] = sub
	r.order = append(r.order, sub.Route)
	return sub, nil
}

// FindByRoute returns the subscription for route. Leading and trailing
// slashes are ignored.
func (r *Registry) FindByRoute(route string) (Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.byRoute[NormalizeRoute(route)]
	return sub, ok
}

// Subscriptions lists subscriptions in registration order.
func (r *Registry) Subscriptions() []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Subscription, 0, len(r.order))
	for _, route := range r.order {
		out = append(out, r.byRoute[route])
	}
	return out
}

// DaprPayload renders the programmatic subscription list.
func (r *Registry) DaprPayload() []DaprSubscription {
	subs := r.Subscriptions()
	out := make([]DaprSubscription, 0, len(subs))
	for _, s := range subs {
		out = append(out, DaprSubscription{
			PubsubName: s.PubsubName,
			Topic:      s.Topic,
			Route:      s.Route,
			Metadata:   maps.Clone(s.Metadata),
		})
	}
	return out
}

// Seal stops further registration. Serving starts only after sealing.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// RouteFor derives the ingress route of a topic: <prefix>/ingress/<topic>
// with dots turned into path separators.
func RouteFor(prefix, topic string) string {
	route := ingressSegment
	if p := strings.Trim(prefix, "/"); p != "" {
		route = p + "/" + route
	}
	if t := strings.Trim(strings.ReplaceAll(topic, ".", "/"), "/"); t != "" {
		route += "/" + t
	}
	return route
}

// NormalizeRoute strips surrounding slashes so "/dapr/ingress/x/" and
// "dapr/ingress/x" name the same route.
func NormalizeRoute(route string) string {
	return strings.Trim(route, "/")
}

// ResolveTopic derives a topic from an event type name: OrderPlaced becomes
// order.placed.
func ResolveTopic(eventName string) string {
	return strcase.ToDelimited(strings.TrimSpace(eventName), '.')
}
