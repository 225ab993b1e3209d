package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mutation results recorded on the mutations counter.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// Metrics holds the engine's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Mutations *prometheus.CounterVec
	Requests  *prometheus.HistogramVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "budget_engine",
			Name:      "mutations_total",
			Help:      "Category mutations by operation and result.",
		}, []string{"op", "result"}),
		Requests: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "budget_engine",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveMutation counts one mutation attempt.
func (m *Metrics) ObserveMutation(op, result string) {
	m.Mutations.WithLabelValues(op, result).Inc()
}

// Middleware records request latency labelled with the chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
