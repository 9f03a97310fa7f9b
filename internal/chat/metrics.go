package chat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// promMetrics implements Metrics on top of a Prometheus registerer. The
// gateway serves the registry on /metrics; this package only records.
type promMetrics struct {
	messages           prometheus.Counter
	completionLatency  prometheus.Histogram
	completionTokens   prometheus.Counter
	completionFailures prometheus.Counter
	guardTriggers      *prometheus.CounterVec
	activeSessions     prometheus.GaugeFunc
}

var _ Metrics = (*promMetrics)(nil)

func newPromMetrics(reg prometheus.Registerer, store SessionStore) *promMetrics {
	factory := promauto.With(reg)
	return &promMetrics{
		messages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "advisor",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Inbound user messages handled.",
		}),
		completionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "advisor",
			Subsystem: "chat",
			Name:      "completion_latency_seconds",
			Help:      "Latency of successful completion calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		completionTokens: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "advisor",
			Subsystem: "chat",
			Name:      "completion_tokens_total",
			Help:      "Total tokens reported by the provider.",
		}),
		completionFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "advisor",
			Subsystem: "chat",
			Name:      "completion_failures_total",
			Help:      "Completion calls that fell back to the canned message.",
		}),
		guardTriggers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisor",
			Subsystem: "guard",
			Name:      "triggers_total",
			Help:      "Guard rule activations by rule name.",
		}, []string{"rule"}),
		activeSessions: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "advisor",
			Subsystem: "chat",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}, func() float64 { return float64(store.Len()) }),
	}
}

func (m *promMetrics) RecordMessage() {
	m.messages.Inc()
}

func (m *promMetrics) RecordCompletion(latency time.Duration, tokens int) {
	m.completionLatency.Observe(latency.Seconds())
	if tokens > 0 {
		m.completionTokens.Add(float64(tokens))
	}
}

func (m *promMetrics) RecordCompletionFailure() {
	m.completionFailures.Inc()
}

func (m *promMetrics) RecordGuardTrigger(rule string) {
	m.guardTriggers.WithLabelValues(rule).Inc()
}
