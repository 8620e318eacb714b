package runtime

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/drblury/ingressflow/internal/runtime/config"
	"github.com/drblury/ingressflow/internal/runtime/hydrate"
	"github.com/drblury/ingressflow/internal/runtime/listener"
	loggingpkg "github.com/drblury/ingressflow/internal/runtime/logging"
	"github.com/drblury/ingressflow/internal/runtime/registry"
)

type orderPlaced struct {
	OrderID int
	Amount  int
}

var orderPlacedType = hydrate.MustType("OrderPlaced",
	func(a hydrate.Args) (any, error) {
		return orderPlaced{OrderID: a.Int("orderId"), Amount: a.Int("amount")}, nil
	},
	hydrate.FieldOf("orderId", hydrate.Int(), func(o orderPlaced) int { return o.OrderID }),
	hydrate.FieldOf("amount", hydrate.Int(), func(o orderPlaced) int { return o.Amount }),
)

type logEntry struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	fields  loggingpkg.LogFields
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *recordingLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger {
	merged := loggingpkg.LogFields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &recordingLogger{mu: l.mu, entries: l.entries, fields: merged}
}

func (l *recordingLogger) record(level, msg string, err error, fields loggingpkg.LogFields) {
	merged := loggingpkg.LogFields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, err: err, fields: merged})
}

func (l *recordingLogger) Debug(msg string, fields loggingpkg.LogFields) {
	l.record("debug", msg, nil, fields)
}

func (l *recordingLogger) Info(msg string, fields loggingpkg.LogFields) {
	l.record("info", msg, nil, fields)
}

func (l *recordingLogger) Warn(msg string, fields loggingpkg.LogFields) {
	l.record("warn", msg, nil, fields)
}

func (l *recordingLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	l.record("error", msg, err, fields)
}

func (l *recordingLogger) Trace(msg string, fields loggingpkg.LogFields) {
	l.record("trace", msg, nil, fields)
}

func (l *recordingLogger) Entries() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]logEntry(nil), (*l.entries)...)
}

func (l *recordingLogger) Find(msg string) (logEntry, bool) {
	for _, e := range l.Entries() {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

// newTestService builds a Service on a private Prometheus registry with
// orderPlacedType subscribed to orders.placed.
func newTestService(t *testing.T, mutate func(*configpkg.Config), deps ServiceDependencies) (*Service, *recordingLogger) {
	t.Helper()
	conf := configpkg.Default()
	if mutate != nil {
		mutate(conf)
	}
	if deps.MetricsRegisterer == nil {
		deps.MetricsRegisterer = prometheus.NewRegistry()
	}
	log := newRecordingLogger()
	svc, err := NewService(conf, log, deps)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	if _, err := svc.RegisterEvent(orderPlacedType, "orders.placed"); err != nil {
		t.Fatalf("RegisterEvent() error = %v", err)
	}
	return svc, log
}

func newIngressRequest(body string, header http.Header) *listener.Request {
	if header == nil {
		header = http.Header{}
	}
	return &listener.Request{
		Method: http.MethodPost,
		Path:   "/dapr/ingress/orders/placed",
		Header: header,
		Body:   []byte(body),
	}
}

func postIngress(t *testing.T, h http.Handler, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func ordersRoute() string {
	return registry.RouteFor(registry.DefaultPrefix, "orders.placed")
}
