// Package metrics holds the Prometheus collectors and the render observer.
package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
)

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	skipped  *prometheus.CounterVec
	rendered *prometheus.CounterVec
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asm_schema_skipped_total",
			Help: "Stored schema documents skipped during head rendering.",
		}, []string{"reason"}),
		rendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asm_blocks_rendered_total",
			Help: "JSON-LD blocks emitted, by source.",
		}, []string{"source"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asm_http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asm_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.skipped, m.rendered, m.requests, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics disabled", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Observer reports render events to the log and the counters.
type Observer struct {
	metrics *Metrics
	logger  *slog.Logger
}

// NewObserver returns an Observer. m may be nil when metrics are disabled.
func NewObserver(m *Metrics, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{metrics: m, logger: logger}
}

func (o *Observer) Skipped(view models.View, rec models.SchemaRecord, reason string) {
	o.logger.Warn("inject: schema skipped",
		slog.Int64("id", rec.ID),
		slog.String("label", rec.Label),
		slog.String("view", string(view.Kind)),
		slog.String("item", view.ItemID),
		slog.String("reason", reason))
	if o.metrics != nil {
		o.metrics.skipped.WithLabelValues(reason).Inc()
	}
}

func (o *Observer) Rendered(source string) {
	if o.metrics != nil {
		o.metrics.rendered.WithLabelValues(source).Inc()
	}
}

func (o *Observer) ResolveFailed(view models.View, err error) {
	o.logger.Error("inject: resolve failed",
		slog.String("view", string(view.Kind)),
		slog.String("item", view.ItemID),
		slog.String("error", err.Error()))
	if o.metrics != nil {
		o.metrics.skipped.WithLabelValues("store_error").Inc()
	}
}
