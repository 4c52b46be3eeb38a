package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crop_advisory"

// Metrics holds the Prometheus counters, histograms, and gauges for the advisory service.
type Metrics struct {
	// Cultivation state machine.
	PhaseTransitions *prometheus.CounterVec // labels: action={start,next,prev,jump}, outcome={success,rejected,error}
	DetectionsLogged prometheus.Counter
	DiseasesLearned  *prometheus.CounterVec // labels: outcome={success,error}

	// Risk scoring.
	RiskAssessments *prometheus.CounterVec // labels: level
	WeatherCache    *prometheus.CounterVec // labels: result={hit,miss}

	// Alert sweep.
	SweepRunning  prometheus.Gauge
	SweepDuration prometheus.Histogram
	SweepErrors   prometheus.Counter

	// Event publishing.
	EventsPublished *prometheus.CounterVec // labels: type, outcome={success,error}

	// Generative enrichment.
	EnrichmentRequests *prometheus.CounterVec   // labels: kind={learn,trends}, outcome={success,error}
	EnrichmentDuration *prometheus.HistogramVec // labels: kind={learn,trends}
	EnrichmentEnabled  prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.PhaseTransitions,
		m.DetectionsLogged,
		m.DiseasesLearned,
		m.RiskAssessments,
		m.WeatherCache,
		m.SweepRunning,
		m.SweepDuration,
		m.SweepErrors,
		m.EventsPublished,
		m.EnrichmentRequests,
		m.EnrichmentDuration,
		m.EnrichmentEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		PhaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      help("Cultivation state transitions by action and outcome."),
		}, []string{"action", "outcome"}),
		DetectionsLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_logged_total",
			Help:      help("Disease detections appended to cultivation history."),
		}),
		DiseasesLearned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diseases_learned_total",
			Help:      help("Disease protocols synthesized for unmatched detections."),
		}, []string{"outcome"}),
		RiskAssessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_assessments_total",
			Help:      help("Disease risk assessments by resulting level."),
		}, []string{"level"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      help("Weather cache lookups by result."),
		}, []string{"result"}),
		SweepRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_sweep_running",
			Help:      help("1 when the alert sweep loop is active, 0 when shut down."),
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alert_sweep_duration_seconds",
			Help:      help("Duration of a complete risk sweep across all monitored crops."),
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		SweepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_sweep_errors_total",
			Help:      help("Risk sweeps that failed and were retried."),
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      help("Events written to Kafka by type and outcome."),
		}, []string{"type", "outcome"}),
		EnrichmentRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_requests_total",
			Help:      help("Generative enrichment requests by kind and outcome."),
		}, []string{"kind", "outcome"}),
		EnrichmentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_duration_seconds",
			Help:      help("Generative enrichment request duration in seconds."),
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		EnrichmentEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enrichment_enabled",
			Help:      help("1 when generative enrichment is enabled, 0 otherwise."),
		}),
	}
}
