package runtime

import (
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	errspkg "github.com/drblury/ingressflow/internal/runtime/errors"
	"github.com/drblury/ingressflow/internal/runtime/jsoncodec"
	"github.com/drblury/ingressflow/internal/runtime/listener"
	loggingpkg "github.com/drblury/ingressflow/internal/runtime/logging"
	"github.com/drblury/ingressflow/internal/runtime/registry"
)

// DaprSubscribePath is polled by the sidecar for programmatic subscriptions.
const DaprSubscribePath = "/dapr/subscribe"

// SubscriptionsPath lists subscriptions and ingress statistics.
const SubscriptionsPath = "/api/subscriptions"

// IngressPath returns the path ingress requests are served under.
func IngressPath(prefix string) string {
	prefix = registry.NormalizeRoute(prefix)
	if prefix == "" {
		return "/ingress"
	}
	return "/" + prefix + "/ingress"
}

// Handler returns the HTTP handler serving the ingress, the Dapr
// subscription endpoint and any handler registered for the ingress address.
func (s *Service) Handler() http.Handler {
	base := IngressPath(s.registry.Prefix())

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+base, s.handleIngress)
	mux.HandleFunc("POST "+base+"/{topic...}", s.handleIngress)
	mux.HandleFunc("GET "+DaprSubscribePath, s.handleDaprSubscribe)
	mux.HandleFunc("GET "+SubscriptionsPath, s.handleSubscriptions)

	s.httpServersMu.Lock()
	extra, ok := s.httpServers[s.Conf.HTTP.Address]
	s.httpServersMu.Unlock()
	if ok {
		mux.Handle("/", extra)
	}

	var h http.Handler = mux
	if s.Conf.Tracing.Enabled {
		h = otelhttp.NewHandler(h, "ingressflow.ingress")
	}
	return h
}

func (s *Service) handleIngress(w http.ResponseWriter, r *http.Request) {
	topic := strings.Trim(r.PathValue("topic"), "/")
	route := IngressPath(s.registry.Prefix())
	if topic != "" {
		route += "/" + topic
	}

	fields := loggingpkg.LogFields{"path": r.URL.Path, "topic": topic}
	req, err := listener.FromHTTP(r, s.Conf.HTTP.MaxBodyBytes)
	if err != nil {
		s.Logger.Warn("Rejected ingress request", withError(fields, err))
		status := http.StatusBadRequest
		if errors.Is(err, listener.ErrBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.writeJSON(w, status, Result{Status: StatusDrop})
		return
	}

	s.Logger.Info("Ingress received request", fields)
	s.Logger.Debug("Ingress request body", loggingpkg.LogFields{"path": r.URL.Path, "body": string(req.Body)})

	result, err := s.Process(r.Context(), req, route)
	if err != nil {
		status, body := StatusFor(err)
		if status >= http.StatusInternalServerError {
			s.Logger.Error("Ingress processing failed", err, fields)
		} else {
			s.Logger.Warn("Ingress request rejected", withError(fields, err))
		}
		s.writeJSON(w, status, body)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// StatusFor maps a Process failure to the HTTP status and body returned to
// the sidecar. Only unexpected failures ask for redelivery.
func StatusFor(err error) (int, Result) {
	switch {
	case err == nil:
		return http.StatusOK, Result{Status: StatusSuccess}
	case errors.Is(err, errspkg.ErrAuthentication):
		return http.StatusForbidden, Result{Status: StatusDrop}
	case errors.Is(err, errspkg.ErrRouteNotFound):
		return http.StatusNotFound, Result{Status: StatusDrop}
	case errors.Is(err, errspkg.ErrHydration):
		return http.StatusUnprocessableEntity, Result{Status: StatusDrop}
	default:
		return http.StatusInternalServerError, Result{Status: StatusRetry}
	}
}

func (s *Service) handleDaprSubscribe(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.DaprPayload())
}

type subscriptionInfo struct {
	EventType  string            `json:"event_type"`
	Topic      string            `json:"topic"`
	Route      string            `json:"route"`
	PubsubName string            `json:"pubsubname"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type subscriptionsResponse struct {
	Subscriptions []subscriptionInfo `json:"subscriptions"`
	Middleware    []string           `json:"middleware"`
	Metrics       *MetricsSnapshot   `json:"metrics,omitempty"`
}

func (s *Service) handleSubscriptions(w http.ResponseWriter, _ *http.Request) {
	subs := s.registry.Subscriptions()
	resp := subscriptionsResponse{
		Subscriptions: make([]subscriptionInfo, 0, len(subs)),
		Middleware:    s.MiddlewareNames(),
	}
	for _, sub := range subs {
		resp.Subscriptions = append(resp.Subscriptions, subscriptionInfo{
			EventType:  sub.EventName(),
			Topic:      sub.Topic,
			Route:      sub.Route,
			PubsubName: sub.PubsubName,
			Metadata:   sub.Metadata,
		})
	}
	if s.metrics != nil {
		snapshot := s.metrics.GetSnapshot()
		resp.Metrics = &snapshot
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsoncodec.Encode(w, v); err != nil {
		s.Logger.Error("Failed to encode response", err, nil)
	}
}

func withError(fields loggingpkg.LogFields, err error) loggingpkg.LogFields {
	out := make(loggingpkg.LogFields, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}
