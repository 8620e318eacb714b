package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	configpkg "github.com/drblury/ingressflow/internal/runtime/config"
	"github.com/drblury/ingressflow/internal/runtime/dispatch"
	errspkg "github.com/drblury/ingressflow/internal/runtime/errors"
	"github.com/drblury/ingressflow/internal/runtime/hydrate"
	loggingpkg "github.com/drblury/ingressflow/internal/runtime/logging"
	"github.com/drblury/ingressflow/internal/runtime/registry"
	"github.com/drblury/ingressflow/internal/runtime/signature"
)

// ServiceDependencies holds the optional collaborators that the Service can use.
// Leave fields nil to get the configured defaults.
type ServiceDependencies struct {
	Registry   *registry.Registry
	Verifier   signature.Verifier
	Dispatcher dispatch.Dispatcher // Replaces the typed listener registry when set.
	Hooks      ListenerHooks
	// Middlewares are appended after the configured chain.
	Middlewares []MiddlewareRegistration
	// DisableDefaultMiddlewares skips listener.middleware from the config.
	DisableDefaultMiddlewares bool
	MetricsRegisterer         prometheus.Registerer
}

// Service routes inbound ingress requests to typed listeners.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	registry   *registry.Registry
	verifier   signature.Verifier
	listeners  *dispatch.Registry
	bus        *dispatch.Bus
	dispatcher dispatch.Dispatcher

	// ownDispatch is set when dispatcher delivers to listeners.
	ownDispatch bool

	middlewares     []ListenerMiddleware
	middlewareNames []string
	middlewaresMu   sync.RWMutex

	hooks             ListenerHooks
	metrics           *IngressMetrics
	metricsRegisterer prometheus.Registerer

	httpServers   map[string]*http.ServeMux
	httpServersMu sync.Mutex
}

// NewService constructs a Service for the supplied configuration. Register
// events and listeners on the returned Service before calling Start.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}

	log.Info("Creating ingress service", loggingpkg.LogFields{
		"prefix": conf.HTTP.Prefix,
		"config": conf,
	})

	s := &Service{
		Conf:              conf,
		Logger:            log,
		registry:          deps.Registry,
		verifier:          deps.Verifier,
		listeners:         dispatch.NewRegistry(),
		hooks:             deps.Hooks,
		metricsRegisterer: deps.MetricsRegisterer,
	}
	if s.registry == nil {
		s.registry = registry.New(conf.HTTP.Prefix, conf.PubsubName)
	}
	if s.verifier == nil {
		s.verifier = signature.New(conf.Signature.Header, conf.Signature.Secrets)
	}

	s.dispatcher = deps.Dispatcher
	if s.dispatcher == nil {
		s.dispatcher = s.listeners
		s.ownDispatch = true
	}
	if conf.Dispatch.Bus {
		s.bus = dispatch.NewBus(log, conf.Dispatch.BusBuffer)
		s.dispatcher = dispatch.Fanout(s.dispatcher, s.bus)
	}

	if err := s.registerConfiguredMiddlewares(deps); err != nil {
		return nil, err
	}

	if conf.Metrics.Enabled {
		if _, err := s.ensureMetrics(); err != nil {
			return nil, err
		}
		s.RegisterHTTPHandler(conf.HTTP.Address, "/metrics", s.metricsHandler())
	}

	return s, nil
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) error {
	var ids []string
	if !deps.DisableDefaultMiddlewares {
		ids = append([]string(nil), s.Conf.Listener.Middleware...)
		if s.Conf.Tracing.Enabled && !contains(ids, MiddlewareTraceContext) {
			ids = append([]string{MiddlewareTraceContext}, ids...)
		}
		if s.Conf.Metrics.Enabled && !contains(ids, MiddlewareMetrics) {
			ids = append([]string{MiddlewareMetrics}, ids...)
		}
	}
	if !s.hooks.IsZero() && !contains(ids, MiddlewareHooks) {
		ids = append(ids, MiddlewareHooks)
	}

	resolved, err := ResolveMiddlewares(ids)
	if err != nil {
		return err
	}
	registrations := append(resolved, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("failed to register middleware %s: %w", name, err)
		}
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if strings.TrimSpace(candidate) == id {
			return true
		}
	}
	return false
}

func (s *Service) ensureMetrics() (*IngressMetrics, error) {
	if s.metrics != nil {
		return s.metrics, nil
	}
	m := NewIngressMetrics(s.metricsRegisterer)
	if err := m.Register(); err != nil {
		return nil, err
	}
	s.metrics = m
	return m, nil
}

func (s *Service) metricsHandler() http.Handler {
	if g, ok := s.metricsRegisterer.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// Registry returns the subscription registry.
func (s *Service) Registry() *registry.Registry { return s.registry }

// Listeners returns the typed listener registry used for dispatch.
func (s *Service) Listeners() *dispatch.Registry { return s.listeners }

// Bus returns the in-process bus, or nil when dispatch.bus is disabled.
func (s *Service) Bus() *dispatch.Bus { return s.bus }

// Metrics returns the metrics collector, or nil when metrics are off.
func (s *Service) Metrics() *IngressMetrics { return s.metrics }

// RegisterEvent subscribes t to topic. A topic override from the
// configuration wins; an empty topic is derived from the type name.
func (s *Service) RegisterEvent(t *hydrate.Type, topic string, opts ...registry.Option) (registry.Subscription, error) {
	if t == nil {
		return registry.Subscription{}, errspkg.ErrEventTypeRequired
	}
	if override := s.topicOverride(t.Name); override != "" {
		topic = override
	}
	sub, err := s.registry.RegisterEvent(t, topic, opts...)
	if err != nil {
		return registry.Subscription{}, err
	}
	s.Logger.Debug("Registered event subscription", loggingpkg.LogFields{
		"event_type": sub.EventName(),
		"topic":      sub.Topic,
		"route":      sub.Route,
	})
	return sub, nil
}

// topicOverride looks name up in Conf.Topics. Viper lowercases map keys, so
// the lowercase name is tried as well.
func (s *Service) topicOverride(name string) string {
	if topic, ok := s.Conf.Topics[name]; ok {
		return strings.TrimSpace(topic)
	}
	return strings.TrimSpace(s.Conf.Topics[strings.ToLower(name)])
}

// Start seals the registry and serves the ingress until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.registry.Seal()

	servers := s.buildHTTPServers()
	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": srv.Addr})
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		s.Logger.Error("HTTP server failed", runErr, nil)
	}

	timeout := s.Conf.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	if err := s.Close(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	s.Logger.Info("Ingress stopped", nil)
	return runErr
}

// Close releases the in-process bus.
func (s *Service) Close() error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Close()
}

// RegisterHTTPHandler mounts handler on the server listening at address.
// Handlers for the ingress address share its mux.
func (s *Service) RegisterHTTPHandler(address, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[string]*http.ServeMux)
	}

	mux, ok := s.httpServers[address]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[address] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) buildHTTPServers() []*http.Server {
	servers := []*http.Server{s.newHTTPServer(s.Conf.HTTP.Address, s.Handler())}

	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()
	for address, mux := range s.httpServers {
		if address == "" || address == s.Conf.HTTP.Address {
			continue
		}
		servers = append(servers, s.newHTTPServer(address, mux))
	}
	return servers
}

func (s *Service) newHTTPServer(address string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: s.Conf.HTTP.ReadTimeout,
		ReadTimeout:       s.Conf.HTTP.ReadTimeout,
	}
}

// defaultShutdownTimeout is used when the configuration leaves it unset.
const defaultShutdownTimeout = 10 * time.Second
