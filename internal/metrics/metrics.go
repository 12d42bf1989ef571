// Package metrics defines the Prometheus metrics exported by the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP relay
	RelayRequestsTotal   *prometheus.CounterVec
	RelayDurationSeconds *prometheus.HistogramVec
	HTTPErrorsTotal      *prometheus.CounterVec

	// Dialogue engine
	TurnsTotal          *prometheus.CounterVec
	TurnDurationSeconds prometheus.Histogram
	CatalogLookupsTotal *prometheus.CounterVec

	// NLU
	NLUParsesTotal    *prometheus.CounterVec
	NLUConfidence     *prometheus.HistogramVec
	LLMRequestsTotal  *prometheus.CounterVec
	LLMDuration       *prometheus.HistogramVec
	LLMFallbackTotal  *prometheus.CounterVec
	BreakerStateGauge *prometheus.GaugeVec

	// Model bundle
	ModelLoadsTotal     *prometheus.CounterVec
	ModelLoadDuration   prometheus.Histogram
	ModelLoaded         prometheus.Gauge
	ModelIntents        prometheus.Gauge
	ModelCatalogCourses prometheus.Gauge

	// Conversation tracker
	TrackerOpsTotal     *prometheus.CounterVec
	TrackersActive      prometheus.Gauge
	TrackerExpiredTotal prometheus.Counter

	// LINE channel
	LINEEventsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec
}

// NewRegistry returns a private registry with the Go, process and build
// info collectors installed.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	return registry
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	f := promauto.With(registry)
	return &Metrics{
		RelayRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tucurso_relay_requests_total",
				Help: "Total number of relay requests by endpoint and status code class",
			},
			[]string{"endpoint", "status"}, // status: 2xx, 4xx, 5xx, rate_limited
		),
		RelayDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tucurso_relay_duration_seconds",
				Help:    "Relay request duration in seconds by endpoint",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		HTTPErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tucurso_http_errors_total",
				Help: "Total number of HTTP errors by type and module",
			},
			[]string{"error_type", "module"},
		),

		TurnsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tucurso_turns_total",
				Help: "Dialogue turns by predicted intent and executed action",
			},
			[]string{"intent", "action"},
		),
		TurnDurationSeconds: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tucurso_turn_duration_seconds",
				Help:    "Time spent handling a single user message",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15},
			},
		),
		CatalogLookupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tucurso_catalog_lookups_total",
				Help: "Catalog operations by name and outcome",
			},
			[]string{"operation", "outcome"}, // outcome: text or the signal name
		),

		NLUParsesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tucurso_nlu_parses_total",
				Help: "Interpretations by source and outcome",
			},
			[]string{"source", "outcome"}, // source: local, remote; outcome: matched, fallback, error, skipped
		),
		NLUConfidence: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tucurso_nlu_confidence",
				Help:    "Confidence of the selected interpretation",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"source"},
		),
		LLMRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tucurso_llm_requests_total",
				Help: "Remote LLM requests by provider and status",
			},
			[]string{"provider", "status"},
		),
		LLMDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tucurso_llm_duration_seconds",
				Help:    "Remote LLM request duration by provider",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 12},
			},
			[]string{"provider"},
		),
		LLMFallbackTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tucurso_llm_fallback_total",
				Help: "Provider fallbacks by source, target and reason",
			},
			[]string{"from", "to", "reason"},
		),
		BreakerStateGauge: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tucurso_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),

		ModelLoadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tucurso_model_loads_total",
				Help: "Model bundle loads by source and status",
			},
			[]string{"source", "status"},
		),
		ModelLoadDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tucurso_model_load_duration_seconds",
				Help:    "Time to fetch a bundle and build the agent",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
		),
		ModelLoaded: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tucurso_model_loaded",
				Help: "1 when a dialogue model is loaded and serving",
			},
		),
		ModelIntents: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tucurso_model_intents",
				Help: "Number of intents in the active model bundle",
			},
		),
		ModelCatalogCourses: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tucurso_catalog_courses",
				Help: "Number of courses in the active catalog",
			},
		),

		TrackerOpsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tucurso_tracker_operations_total",
				Help: "Tracker store operations by backend, operation and status",
			},
			[]string{"backend", "operation", "status"},
		),
		TrackersActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tucurso_trackers_active",
				Help: "Conversations currently held by the tracker store",
			},
		),
		TrackerExpiredTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "tucurso_tracker_expired_total",
				Help: "Trackers deleted by the expiry job",
			},
		),

		LINEEventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tucurso_line_events_total",
				Help: "LINE webhook events by type and status",
			},
			[]string{"event_type", "status"},
		),

		RateLimiterDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tucurso_rate_limiter_dropped_total",
				Help: "Requests rejected by rate limiter",
			},
			[]string{"limiter"}, // limiter: user, llm
		),

		SingleflightDedupTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tucurso_singleflight_dedup_total",
				Help: "Calls collapsed into an in-flight call",
			},
			[]string{"module"},
		),
	}
}

// RecordRelay records a relay request.
func (m *Metrics) RecordRelay(endpoint string, code int, duration float64) {
	m.RelayRequestsTotal.WithLabelValues(endpoint, statusClass(code)).Inc()
	m.RelayDurationSeconds.WithLabelValues(endpoint).Observe(duration)
}

func (m *Metrics) RecordHTTPError(errorType, module string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}

// RecordTurn records one handled message.
func (m *Metrics) RecordTurn(intent, action string, duration float64) {
	m.TurnsTotal.WithLabelValues(intent, action).Inc()
	m.TurnDurationSeconds.Observe(duration)
}

func (m *Metrics) RecordCatalogLookup(operation, outcome string) {
	m.CatalogLookupsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordParse records an interpretation and, for non-error outcomes, its confidence.
func (m *Metrics) RecordParse(source, outcome string, confidence float64) {
	m.NLUParsesTotal.WithLabelValues(source, outcome).Inc()
	if outcome != "error" && outcome != "skipped" {
		m.NLUConfidence.WithLabelValues(source).Observe(confidence)
	}
}

// RecordLLMRequest records a provider call.
func (m *Metrics) RecordLLMRequest(provider, status string, duration float64) {
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMDuration.WithLabelValues(provider).Observe(duration)
}

func (m *Metrics) RecordLLMFallback(from, to, reason string) {
	m.LLMFallbackTotal.WithLabelValues(from, to, reason).Inc()
}

func (m *Metrics) SetBreakerState(name string, state float64) {
	m.BreakerStateGauge.WithLabelValues(name).Set(state)
}

// RecordModelLoad records a bundle load attempt.
func (m *Metrics) RecordModelLoad(source, status string, duration float64) {
	m.ModelLoadsTotal.WithLabelValues(source, status).Inc()
	m.ModelLoadDuration.Observe(duration)
}

// SetModelInfo publishes the shape of the active model.
func (m *Metrics) SetModelInfo(intents, courses int) {
	m.ModelLoaded.Set(1)
	m.ModelIntents.Set(float64(intents))
	m.ModelCatalogCourses.Set(float64(courses))
}

func (m *Metrics) RecordTrackerOp(backend, operation, status string) {
	m.TrackerOpsTotal.WithLabelValues(backend, operation, status).Inc()
}

// SetTrackersActive publishes the number of stored conversations.
func (m *Metrics) SetTrackersActive(n int) {
	m.TrackersActive.Set(float64(n))
}

func (m *Metrics) RecordTrackersExpired(n int64) {
	m.TrackerExpiredTotal.Add(float64(n))
}

func (m *Metrics) RecordLINEEvent(eventType, status string) {
	m.LINEEventsTotal.WithLabelValues(eventType, status).Inc()
}

// RecordRateLimiterDrop records a dropped request
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// RecordSingleflightDedup records a deduplicated call
func (m *Metrics) RecordSingleflightDedup(module string) {
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

func statusClass(code int) string {
	switch {
	case code == 429:
		return "rate_limited"
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
