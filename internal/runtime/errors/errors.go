package errors

import sterrors "errors"

var (
	ErrServiceRequired    = sterrors.New("ingressflow: ingress service is required")
	ErrHandlerRequired    = sterrors.New("ingressflow: handler function is required")
	ErrConfigRequired     = sterrors.New("ingressflow: configuration is required")
	ErrLoggerRequired     = sterrors.New("ingressflow: logger is required")
	ErrRegistryRequired   = sterrors.New("ingressflow: subscription registry is required")
	ErrDispatcherRequired = sterrors.New("ingressflow: event dispatcher is required")
	ErrEventTypeRequired  = sterrors.New("ingressflow: event type is required")
	ErrTopicRequired      = sterrors.New("ingressflow: topic is required")
	ErrRegistrySealed     = sterrors.New("ingressflow: subscription registry is sealed")
	ErrDuplicateRoute     = sterrors.New("ingressflow: route is already registered")
	ErrUnknownMiddleware  = sterrors.New("ingressflow: unknown middleware")
)

// Ingress failure taxonomy. Each failure returned by Service.Process matches
// exactly one of these with errors.Is.
var (
	// ErrAuthentication reports a missing or invalid ingress signature.
	ErrAuthentication = sterrors.New("ingressflow: invalid ingress signature")
	// ErrRouteNotFound reports a route without a registered subscription.
	ErrRouteNotFound = sterrors.New("ingressflow: unknown ingress route")
	// ErrHydration reports a payload that cannot be shaped into the event type.
	ErrHydration = sterrors.New("ingressflow: event hydration failed")
	// ErrHandler reports a failure raised while dispatching to listeners.
	ErrHandler = sterrors.New("ingressflow: event handler failed")
)

// ConfigValidationError wraps configuration problems detected at startup.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "ingressflow: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError returns nil for a nil error.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
