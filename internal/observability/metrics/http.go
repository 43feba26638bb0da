package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docqa"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal         *prometheus.CounterVec
	queryFailuresTotal *prometheus.CounterVec
	queryNoContext     *prometheus.CounterVec
	retrievedChunks    *prometheus.HistogramVec
	queryDuration      *prometheus.HistogramVec
	resetsTotal        *prometheus.CounterVec
	resilience         *ResilienceObserver
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total answered questions.",
		},
		[]string{"service", "endpoint"},
	)
	queryFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "failures_total",
			Help:      "Total failed questions by error kind.",
		},
		[]string{"service", "endpoint", "kind"},
	)
	queryNoContext := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "no_context_total",
			Help:      "Total answered questions without retrieved sources.",
		},
		[]string{"service", "endpoint"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per answered question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Question answering duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 120},
		},
		[]string{"service", "endpoint"},
	)
	resetsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "resets_total",
			Help:      "Total conversation resets.",
		},
		[]string{"service", "endpoint"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		queryFailuresTotal,
		queryNoContext,
		retrievedChunks,
		queryDuration,
		resetsTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		service:            service,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		queryTotal:         queryTotal,
		queryFailuresTotal: queryFailuresTotal,
		queryNoContext:     queryNoContext,
		retrievedChunks:    retrievedChunks,
		queryDuration:      queryDuration,
		resetsTotal:        resetsTotal,
		resilience:         newResilienceObserver(registry, service),
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *HTTPServerMetrics) Resilience() *ResilienceObserver {
	return m.resilience
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Unknown paths share one label so scanners cannot blow up cardinality.
func normalizePath(path string) string {
	switch {
	case path == "/", path == "/health", path == "/query", path == "/history", path == "/reset",
		path == "/metrics", path == "/openapi.json":
		return path
	case strings.HasPrefix(path, "/mcp"):
		return "/mcp"
	default:
		return "other"
	}
}

func (m *HTTPServerMetrics) RecordQuery(endpoint string, sourceCount int, duration time.Duration) {
	m.queryTotal.WithLabelValues(m.service, endpoint).Inc()
	m.retrievedChunks.WithLabelValues(m.service, endpoint).Observe(float64(sourceCount))
	m.queryDuration.WithLabelValues(m.service, endpoint).Observe(duration.Seconds())
	if sourceCount == 0 {
		m.queryNoContext.WithLabelValues(m.service, endpoint).Inc()
	}
}

func (m *HTTPServerMetrics) RecordQueryFailure(endpoint, kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.queryFailuresTotal.WithLabelValues(m.service, endpoint, kind).Inc()
}

func (m *HTTPServerMetrics) RecordReset(endpoint string) {
	m.resetsTotal.WithLabelValues(m.service, endpoint).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
