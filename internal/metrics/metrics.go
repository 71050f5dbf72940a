// Package metrics exposes Prometheus collectors for HTTP traffic and the registration flow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers never collide on registration.
// All recording methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	registrations    *prometheus.CounterVec
	botVerifications *prometheus.CounterVec
	statusChecks     *prometheus.CounterVec
	materializations *prometheus.CounterVec
	purged           prometheus.Counter
}

// New registers all collectors, plus Go and process collectors, on a fresh registry.
func New(serviceName string) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "path"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "registration_intake_total",
			Help:        "Registration requests by result",
			ConstLabels: constLabels,
		}, []string{"result"}),
		botVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "registration_bot_verifications_total",
			Help:        "Contact shares handled by the bot by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		statusChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "registration_status_checks_total",
			Help:        "Verification status polls by result",
			ConstLabels: constLabels,
		}, []string{"result"}),
		materializations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "registration_materializations_total",
			Help:        "Accounts materialized by branch (created, login, conflict)",
			ConstLabels: constLabels,
		}, []string{"branch"}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "registration_pending_purged_total",
			Help:        "Expired pending registrations removed by housekeeping",
			ConstLabels: constLabels,
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.requestDuration,
		m.registrations, m.botVerifications, m.statusChecks, m.materializations, m.purged,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency labelled by the matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Registration(result string) {
	if m != nil {
		m.registrations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) BotVerification(outcome string) {
	if m != nil {
		m.botVerifications.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) StatusCheck(result string) {
	if m != nil {
		m.statusChecks.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Materialization(branch string) {
	if m != nil {
		m.materializations.WithLabelValues(branch).Inc()
	}
}

func (m *Metrics) Purged(n int64) {
	if m != nil && n > 0 {
		m.purged.Add(float64(n))
	}
}
