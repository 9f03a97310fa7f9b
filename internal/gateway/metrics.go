package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// httpMetrics tracks request-level counters and latencies. Chat pipeline
// metrics live in the chat package; both end up in the same registry and
// are served together on /metrics.
type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	factory := promauto.With(reg)
	return &httpMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisor",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "advisor",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// instrument is a chi middleware recording per-route counters. The route
// pattern (not the raw path) is the label, so session ids do not explode
// the cardinality.
func (g *Gateway) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// The pattern is only complete after the handler ran.
		route := chi.RouteContext(r.Context()).RoutePattern()
		g.metrics.requests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		g.metrics.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (g *Gateway) registerer() prometheus.Registerer {
	if g.metricsReg != nil {
		return g.metricsReg
	}
	return prometheus.DefaultRegisterer
}
