package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/drblury/ingressflow/internal/runtime/listener"
)

// Listener outcomes recorded by IngressMetrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// IngressMetrics tracks ingress statistics per topic.
type IngressMetrics struct {
	mu sync.RWMutex

	topicCounts map[string]*TopicMetrics
	rejected    map[string]uint64

	processedTotal *prometheus.CounterVec
	retriedTotal   *prometheus.CounterVec
	rejectedTotal  *prometheus.CounterVec
	durationHist   *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

// TopicMetrics holds counters for one topic.
type TopicMetrics struct {
	Succeeded     uint64    `json:"succeeded"`
	Failed        uint64    `json:"failed"`
	Retried       uint64    `json:"retried"`
	AvgDuration   float64   `json:"avg_duration_seconds"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// MetricsSnapshot provides a point-in-time view of the ingress metrics.
type MetricsSnapshot struct {
	TotalSucceeded uint64                   `json:"total_succeeded"`
	TotalFailed    uint64                   `json:"total_failed"`
	Rejected       map[string]uint64        `json:"rejected"`
	TopicMetrics   map[string]*TopicMetrics `json:"topic_metrics"`
	CollectedAt    time.Time                `json:"collected_at"`
}

func newIngressCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ingressflow",
			Subsystem: "ingress",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newIngressHistogramVec(name, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ingressflow",
			Subsystem: "ingress",
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}

// NewIngressMetrics creates a collector. A nil registerer uses the
// Prometheus default registerer.
func NewIngressMetrics(registerer prometheus.Registerer) *IngressMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &IngressMetrics{
		topicCounts:    make(map[string]*TopicMetrics),
		rejected:       make(map[string]uint64),
		registerer:     registerer,
		processedTotal: newIngressCounterVec("processed_total", "Messages that went through the listener chain", []string{"topic", "outcome"}),
		retriedTotal:   newIngressCounterVec("retried_total", "Messages that needed a second attempt", []string{"topic"}),
		rejectedTotal:  newIngressCounterVec("rejected_total", "Requests rejected before the listener chain", []string{"reason"}),
		durationHist:   newIngressHistogramVec("duration_seconds", "Time spent in the listener chain", prometheus.DefBuckets, []string{"topic"}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *IngressMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.processedTotal,
		m.retriedTotal,
		m.rejectedTotal,
		m.durationHist,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// RecordProcessed records one run of the listener chain.
func (m *IngressMetrics) RecordProcessed(topic string, attempts int, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := m.getOrCreateTopicMetrics(topic)
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
		metrics.Failed++
	} else {
		metrics.Succeeded++
	}
	if attempts > 1 {
		metrics.Retried++
		m.retriedTotal.WithLabelValues(topic).Inc()
	}
	total := metrics.Succeeded + metrics.Failed
	metrics.AvgDuration = ((metrics.AvgDuration * float64(total-1)) + duration.Seconds()) / float64(total)
	metrics.LastUpdatedAt = time.Now()

	m.processedTotal.WithLabelValues(topic, outcome).Inc()
	m.durationHist.WithLabelValues(topic).Observe(duration.Seconds())
}

// RecordRejected records a request that failed before the listener chain.
func (m *IngressMetrics) RecordRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rejected[reason]++
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

// Middleware returns a listener middleware feeding RecordProcessed.
func (m *IngressMetrics) Middleware() ListenerMiddleware {
	return func(next ListenerHandler) ListenerHandler {
		return func(ctx context.Context, lc *listener.Context) error {
			start := time.Now()
			err := next(ctx, lc)
			m.RecordProcessed(lc.Subscription().Topic, lc.Attempts(), time.Since(start), err)
			return err
		}
	}
}

// GetSnapshot returns a point-in-time snapshot of all ingress metrics.
func (m *IngressMetrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := MetricsSnapshot{
		Rejected:     make(map[string]uint64, len(m.rejected)),
		TopicMetrics: make(map[string]*TopicMetrics, len(m.topicCounts)),
		CollectedAt:  time.Now(),
	}
	for reason, n := range m.rejected {
		snapshot.Rejected[reason] = n
	}
	for topic, metrics := range m.topicCounts {
		metricsCopy := *metrics
		snapshot.TopicMetrics[topic] = &metricsCopy
		snapshot.TotalSucceeded += metrics.Succeeded
		snapshot.TotalFailed += metrics.Failed
	}
	return snapshot
}

// GetTopicMetrics returns a copy of the metrics for topic, or nil.
func (m *IngressMetrics) GetTopicMetrics(topic string) *TopicMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if metrics, ok := m.topicCounts[topic]; ok {
		metricsCopy := *metrics
		return &metricsCopy
	}
	return nil
}

func (m *IngressMetrics) getOrCreateTopicMetrics(topic string) *TopicMetrics {
	if metrics, ok := m.topicCounts[topic]; ok {
		return metrics
	}
	metrics := &TopicMetrics{}
	m.topicCounts[topic] = metrics
	return metrics
}

// Reset resets all metrics (useful for testing).
func (m *IngressMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.topicCounts = make(map[string]*TopicMetrics)
	m.rejected = make(map[string]uint64)
	m.processedTotal.Reset()
	m.retriedTotal.Reset()
	m.rejectedTotal.Reset()
	m.durationHist.Reset()
}
