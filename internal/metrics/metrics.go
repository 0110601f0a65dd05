// Package metrics holds the Prometheus collectors of the wallet daemon.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "atoll_wallet"

type Metrics struct {
	registry *prometheus.Registry

	// requests handled by the dispatcher, by resource tag and outcome
	requestsTotal *prometheus.CounterVec
	// dispatcher latency in milliseconds
	requestLatency *prometheus.HistogramVec
	// requests currently in the Handling state
	inflight prometheus.Gauge
	// sign-and-send pipeline stages, by stage and result
	broadcastStages *prometheus.CounterVec
	// HTTP requests on the host transport
	httpRequestsTotal *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_processed_total",
			Help:      "The total number of processed wallet requests",
		}, []string{"resource", "outcome"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_milliseconds",
			Help:      "Wallet request latency distributions",
			Buckets:   []float64{1, 5, 10, 50, 100, 250, 500, 1000, 5000},
		}, []string{"resource"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_inflight",
			Help:      "Number of wallet requests being handled",
		}),
		broadcastStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_stages_total",
			Help:      "Sign-and-send pipeline stage results",
		}, []string{"stage", "result"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The total number of host transport HTTP requests",
		}, []string{"method", "path", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_time_milliseconds",
			Help:      "Host transport response time distributions",
			Buckets:   []float64{1, 10, 50, 100, 200, 300, 400, 500, 1000},
		}, []string{"method", "path"}),
	}
	m.registry.MustRegister(
		m.requestsTotal,
		m.requestLatency,
		m.inflight,
		m.broadcastStages,
		m.httpRequestsTotal,
		m.httpLatency,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(resource, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(resource, outcome).Inc()
	m.requestLatency.WithLabelValues(resource).Observe(float64(latency.Milliseconds()))
}

func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) RequestFinished() {
	if m == nil {
		return
	}
	m.inflight.Dec()
}

func (m *Metrics) ObserveBroadcastStage(stage string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.broadcastStages.WithLabelValues(stage, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records count and latency of every request passing through
// next.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		m.httpLatency.WithLabelValues(r.Method, r.URL.Path).Observe(float64(time.Since(start).Milliseconds()))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
