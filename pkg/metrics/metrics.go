// Package metrics exposes Prometheus counters for the auth service and the
// HTTP middleware that records request totals and latency.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. It implements mfa.Metrics.
type Metrics struct {
	verifications *prometheus.CounterVec
	enrollments   *prometheus.CounterVec
	logins        *prometheus.CounterVec
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	gatherer      prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mfa_verifications_total",
			Help: "Second factor verification attempts.",
		}, []string{"factor", "result"}),
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mfa_enrollments_total",
			Help: "MFA activation, deactivation and regeneration attempts.",
		}, []string{"action", "result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}

	reg.MustRegister(m.verifications, m.enrollments, m.logins, m.requests, m.duration)
	return m
}

func (m *Metrics) Login(result string) {
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) Verification(factor, result string) {
	m.verifications.WithLabelValues(factor, result).Inc()
}

func (m *Metrics) Enrollment(action, result string) {
	m.enrollments.WithLabelValues(action, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records http_requests_total and request duration labelled by
// the chi route pattern, so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
