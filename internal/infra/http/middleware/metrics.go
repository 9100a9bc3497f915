package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	leadLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_bulk_loads_total",
			Help: "Bulk loads of the leads table by result",
		},
		[]string{"result"},
	)

	staleLoads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_stale_loads_dropped_total",
			Help: "Bulk load responses discarded because a newer one was already applied",
		},
	)

	changeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_change_events_total",
			Help: "Change notifications received by kind",
		},
		[]string{"kind"},
	)

	malformedEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_change_events_malformed_total",
			Help: "Change notifications ignored because they could not be decoded or applied",
		},
	)

	editCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_edit_commits_total",
			Help: "Edit session commits by result",
		},
		[]string{"result"},
	)

	storeSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leads_store_records",
			Help: "Number of leads held in memory",
		},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working behind the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// unmatchedRoute agrupa 404s sem rota para o path não virar label.
const unmatchedRoute = "unmatched"

// routePattern mantém a cardinalidade dos labels limitada: /edit/42 vira /edit/{id}.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}

var _ usecase.MetricsRecorder = PrometheusRecorder{}

// PrometheusRecorder reports ingestion and edit activity to the default registry.
type PrometheusRecorder struct{}

func (PrometheusRecorder) RecordLoad(result string)      { leadLoads.WithLabelValues(result).Inc() }
func (PrometheusRecorder) RecordStaleDrop()              { staleLoads.Inc() }
func (PrometheusRecorder) RecordChangeEvent(kind string) { changeEvents.WithLabelValues(kind).Inc() }
func (PrometheusRecorder) RecordMalformedEvent()         { malformedEvents.Inc() }
func (PrometheusRecorder) RecordCommit(result string)    { editCommits.WithLabelValues(result).Inc() }
func (PrometheusRecorder) SetStoreSize(n int)            { storeSize.Set(float64(n)) }
