// Package metrics exposes prometheus instrumentation for the api and worker
// processes. Each process owns its own registry.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	evalTotal          *prometheus.CounterVec
	evalDuration       *prometheus.HistogramVec
	personaOutcomes    *prometheus.CounterVec
	retrievalHitTotal  *prometheus.CounterVec
	retrievalMissTotal *prometheus.CounterVec
	retrievedChunks    *prometheus.HistogramVec
	usabilityScore     *prometheus.HistogramVec
}

func NewAPIMetrics(service string) *APIMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smf",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smf",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "smf",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	evalTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smf",
			Subsystem: "eval",
			Name:      "requests_total",
			Help:      "Total completed feature evaluations by grounding.",
		},
		[]string{"service", "grounded"},
	)
	evalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smf",
			Subsystem: "eval",
			Name:      "duration_seconds",
			Help:      "Feature evaluation duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service"},
	)
	personaOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smf",
			Subsystem: "eval",
			Name:      "persona_outcomes_total",
			Help:      "Per-persona evaluation outcomes by status.",
		},
		[]string{"service", "status"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smf",
			Subsystem: "retrieval",
			Name:      "hit_total",
			Help:      "Total retrieval calls that returned at least one chunk.",
		},
		[]string{"service"},
	)
	retrievalMissTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smf",
			Subsystem: "retrieval",
			Name:      "no_context_total",
			Help:      "Total retrieval calls that returned no grounding context.",
		},
		[]string{"service"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smf",
			Subsystem: "retrieval",
			Name:      "chunks",
			Help:      "Distribution of chunks retrieved per evaluation.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12},
		},
		[]string{"service"},
	)
	usabilityScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smf",
			Subsystem: "eval",
			Name:      "usability_score",
			Help:      "Distribution of per-persona usability scores.",
			Buckets:   []float64{1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		evalTotal,
		evalDuration,
		personaOutcomes,
		retrievalHitTotal,
		retrievalMissTotal,
		retrievedChunks,
		usabilityScore,
	)

	return &APIMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		evalTotal:          evalTotal,
		evalDuration:       evalDuration,
		personaOutcomes:    personaOutcomes,
		retrievalHitTotal:  retrievalHitTotal,
		retrievalMissTotal: retrievalMissTotal,
		retrievedChunks:    retrievedChunks,
		usabilityScore:     usabilityScore,
	}
}

func (m *APIMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *APIMetrics) Middleware(service string, next http.Handler) http.Handler {
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
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/transcripts/"):
		return "/v1/transcripts/{transcript_id}"
	default:
		return path
	}
}

func (m *APIMetrics) RecordEvaluation(service string, grounded bool, duration time.Duration) {
	m.evalTotal.WithLabelValues(service, strconv.FormatBool(grounded)).Inc()
	m.evalDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *APIMetrics) RecordPersonaOutcome(service string, failed bool) {
	status := "ok"
	if failed {
		status = "failed"
	}
	m.personaOutcomes.WithLabelValues(service, status).Inc()
}

func (m *APIMetrics) RecordRetrieval(service string, chunkCount int) {
	m.retrievedChunks.WithLabelValues(service).Observe(float64(chunkCount))
	if chunkCount > 0 {
		m.retrievalHitTotal.WithLabelValues(service).Inc()
		return
	}
	m.retrievalMissTotal.WithLabelValues(service).Inc()
}

func (m *APIMetrics) RecordScore(service string, score float64) {
	m.usabilityScore.WithLabelValues(service).Observe(score)
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
