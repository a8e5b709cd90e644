// Package metrics exposes Prometheus counters and histograms for ledger
// mutations, HTTP requests and worker syncs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledger/internal/core"
)

const namespace = "ledger"

// Outcome labels
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

type Metrics struct {
	registry     *prometheus.Registry
	mutations    *prometheus.CounterVec
	httpRequests *prometheus.HistogramVec
	syncs        *prometheus.CounterVec
	rateLimited  prometheus.Counter
}

var _ core.MutationObserver = (*Metrics)(nil)

// New registers every collector on a private registry, including the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Record store mutations by ledger, operation and outcome.",
		}, []string{"ledger", "operation", "outcome"}),
		httpRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_total",
			Help:      "Worker export runs by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.mutations,
		m.httpRequests,
		m.syncs,
		m.rateLimited,
	)
	return m
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case core.IsValidation(err):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

func (m *Metrics) ObserveMutation(ledger string, op core.Operation, err error) {
	m.mutations.WithLabelValues(ledger, string(op), outcome(err)).Inc()
}

func (m *Metrics) ObserveSync(trigger string, err error) {
	m.syncs.WithLabelValues(trigger, outcome(err)).Inc()
}

func (m *Metrics) ObserveRateLimited() {
	m.rateLimited.Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request latency labelled by the matched route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(r.Method, route, rec.status, time.Since(start))
	})
}
