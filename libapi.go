package ingressflow

import (
	"context"

	"google.golang.org/protobuf/proto"

	runtimepkg "github.com/drblury/ingressflow/internal/runtime"
	configpkg "github.com/drblury/ingressflow/internal/runtime/config"
	dispatchpkg "github.com/drblury/ingressflow/internal/runtime/dispatch"
	envelopepkg "github.com/drblury/ingressflow/internal/runtime/envelope"
	errspkg "github.com/drblury/ingressflow/internal/runtime/errors"
	hydratepkg "github.com/drblury/ingressflow/internal/runtime/hydrate"
	idspkg "github.com/drblury/ingressflow/internal/runtime/ids"
	jsoncodec "github.com/drblury/ingressflow/internal/runtime/jsoncodec"
	listenerpkg "github.com/drblury/ingressflow/internal/runtime/listener"
	loggingpkg "github.com/drblury/ingressflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/ingressflow/internal/runtime/metadata"
	registrypkg "github.com/drblury/ingressflow/internal/runtime/registry"
	signaturepkg "github.com/drblury/ingressflow/internal/runtime/signature"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Result              = runtimepkg.Result

	ListenerHandler        = runtimepkg.ListenerHandler
	ListenerMiddleware     = runtimepkg.ListenerMiddleware
	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	ListenerContext        = listenerpkg.Context
	Request                = listenerpkg.Request

	// Listener lifecycle hooks
	HookContext   = runtimepkg.HookContext
	ListenerHooks = runtimepkg.ListenerHooks

	// Ingress metrics
	IngressMetrics  = runtimepkg.IngressMetrics
	TopicMetrics    = runtimepkg.TopicMetrics
	MetricsSnapshot = runtimepkg.MetricsSnapshot

	// Event type descriptors
	Type           = hydratepkg.Type
	Field          = hydratepkg.Field
	Descriptor     = hydratepkg.Descriptor
	Args           = hydratepkg.Args
	Enum           = hydratepkg.Enum
	HydrationError = hydratepkg.HydrationError

	Subscription     = registrypkg.Subscription
	SubscriptionOpt  = registrypkg.Option
	Registry         = registrypkg.Registry
	DaprSubscription = registrypkg.DaprSubscription

	Dispatcher     = dispatchpkg.Dispatcher
	DispatcherFunc = dispatchpkg.DispatcherFunc
	HandlerError   = dispatchpkg.HandlerError
	Bus            = dispatchpkg.Bus

	Verifier     = signaturepkg.Verifier
	VerifierFunc = signaturepkg.VerifierFunc

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	ConfigValidationError = errspkg.ConfigValidationError
)

var (
	NewService     = runtimepkg.NewService
	DefaultConfig  = configpkg.Default
	LoadConfig     = configpkg.Load
	ValidateConfig = configpkg.ValidateConfig
	StatusFor      = runtimepkg.StatusFor

	DefaultMiddlewares     = runtimepkg.DefaultMiddlewares
	MiddlewareCatalog      = runtimepkg.MiddlewareCatalog
	ResolveMiddlewares     = runtimepkg.ResolveMiddlewares
	Chain                  = runtimepkg.Chain
	RetryOnceMiddleware    = runtimepkg.RetryOnceMiddleware
	CorrelationMiddleware  = runtimepkg.CorrelationMiddleware
	TenantMiddleware       = runtimepkg.TenantMiddleware
	LogMessagesMiddleware  = runtimepkg.LogMessagesMiddleware
	TraceContextMiddleware = runtimepkg.TraceContextMiddleware
	MetricsMiddleware      = runtimepkg.MetricsMiddleware
	RecovererMiddleware    = runtimepkg.RecovererMiddleware

	// Listener lifecycle hooks
	HooksMiddleware = runtimepkg.HooksMiddleware
	LoggingHooks    = runtimepkg.LoggingHooks
	AlertingHooks   = runtimepkg.AlertingHooks

	NewIngressMetrics = runtimepkg.NewIngressMetrics

	// Event type descriptors
	NewType      = hydratepkg.NewType
	MustType     = hydratepkg.MustType
	CustomType   = hydratepkg.Custom
	NewField     = hydratepkg.NewField
	Hydrate      = hydratepkg.Hydrate
	Serialize    = hydratepkg.Serialize
	Any          = hydratepkg.Any
	Int          = hydratepkg.Int
	Int64        = hydratepkg.Int64
	Float        = hydratepkg.Float
	String       = hydratepkg.String
	Bool         = hydratepkg.Bool
	DateTime     = hydratepkg.DateTime
	RawArray     = hydratepkg.RawArray
	EnumOf       = hydratepkg.EnumOf
	ObjectOf     = hydratepkg.ObjectOf
	ArrayOf      = hydratepkg.ArrayOf
	CollectionOf = hydratepkg.CollectionOf
	Union        = hydratepkg.Union
	Proto        = hydratepkg.Proto

	WithSubscriptionMetadata = registrypkg.WithMetadata
	WithPubsub               = registrypkg.WithPubsub

	// Inbound dispatch context
	IsInbound           = dispatchpkg.IsInbound
	MetadataFromContext = dispatchpkg.MetadataFromContext
	CorrelationID       = dispatchpkg.CorrelationID
	TenantID            = dispatchpkg.TenantID
	Fanout              = dispatchpkg.Fanout

	NewVerifier     = signaturepkg.New
	NewHMACVerifier = signaturepkg.NewHMACVerifier
	AllowAll        = signaturepkg.AllowAll
	SignHex         = signaturepkg.SignHex

	DecodeEnvelope = envelopepkg.Decode
	UnwrapEnvelope = envelopepkg.Unwrap

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal
	Encode    = jsoncodec.Encode
	Decode    = jsoncodec.Decode

	ErrServiceRequired    = errspkg.ErrServiceRequired
	ErrHandlerRequired    = errspkg.ErrHandlerRequired
	ErrConfigRequired     = errspkg.ErrConfigRequired
	ErrLoggerRequired     = errspkg.ErrLoggerRequired
	ErrEventTypeRequired  = errspkg.ErrEventTypeRequired
	ErrRegistrySealed     = errspkg.ErrRegistrySealed
	ErrDuplicateRoute     = errspkg.ErrDuplicateRoute
	ErrUnknownMiddleware  = errspkg.ErrUnknownMiddleware
	ErrDispatcherRequired = errspkg.ErrDispatcherRequired
	ErrAuthentication     = errspkg.ErrAuthentication
	ErrRouteNotFound      = errspkg.ErrRouteNotFound
	ErrHydration          = errspkg.ErrHydration
	ErrHandler            = errspkg.ErrHandler
	ErrMissingField       = hydratepkg.ErrMissingField
	ErrEnumValue          = hydratepkg.ErrEnumValue
	ErrIntRange           = hydratepkg.ErrIntRange

	NewLogger                 = loggingpkg.New
	ParseLogLevel             = loggingpkg.ParseLevel
	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	WithLogFields             = loggingpkg.WithFields
	LogFieldsFromContext      = loggingpkg.FieldsFromContext

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID
)

// Metadata keys set on every inbound event.
const (
	MetadataKeyCorrelationID = dispatchpkg.MetadataKeyCorrelationID
	MetadataKeyTenantID      = dispatchpkg.MetadataKeyTenantID
	MetadataKeyEventType     = dispatchpkg.MetadataKeyEventType
	MetadataKeyTopic         = dispatchpkg.MetadataKeyTopic
	MetadataKeyMessageID     = dispatchpkg.MetadataKeyMessageID
)

// Response statuses.
const (
	StatusSuccess = runtimepkg.StatusSuccess
	StatusRetry   = runtimepkg.StatusRetry
	StatusDrop    = runtimepkg.StatusDrop
)

func Listen[T any](svc *Service, name string, h func(ctx context.Context, event T) error) error {
	return runtimepkg.Listen[T](svc, name, h)
}

func SubscribeBus[T any](svc *Service, name string, h func(ctx context.Context, event T) error) error {
	return runtimepkg.SubscribeBus[T](svc, name, h)
}

func RegisterJSONEvent[T any](svc *Service, topic string, opts ...SubscriptionOpt) (Subscription, error) {
	return runtimepkg.RegisterJSONEvent[T](svc, topic, opts...)
}

func RegisterProtoEvent[T proto.Message](svc *Service, topic string, opts ...SubscriptionOpt) (Subscription, error) {
	return runtimepkg.RegisterProtoEvent[T](svc, topic, opts...)
}

func FieldOf[T any, V any](name string, desc Descriptor, get func(T) V) Field {
	return hydratepkg.FieldOf(name, desc, get)
}

func HydrateAs[T any](t *Type, payload map[string]any) (T, error) {
	return hydratepkg.As[T](t, payload)
}

func StringEnum[T ~string](name string, members ...T) Enum {
	return hydratepkg.StringEnum(name, members...)
}

func IntEnum[T ~int](name string, members ...T) Enum {
	return hydratepkg.IntEnum(name, members...)
}
