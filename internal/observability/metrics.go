package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "itinerary"

// Metrics holds the Prometheus counters and histograms for report runs.
type Metrics struct {
	ReportsBuilt    *prometheus.CounterVec // labels: outcome={ok,no_events,fatal}
	EventsPerReport prometheus.Histogram

	// Provider chain metrics.
	ProviderAttempts *prometheus.CounterVec   // labels: provider, outcome={ok,<failure kind>}
	ProviderDuration *prometheus.HistogramVec // labels: provider
	ForecastOutcomes *prometheus.CounterVec   // labels: outcome={found,location_not_found,unavailable}

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: method={forward,reverse}, outcome
	GeocodeCache    *prometheus.CounterVec // labels: method={forward,reverse}, result={hit,miss}

	Notifications *prometheus.CounterVec // labels: channel, outcome={ok,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		ReportsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_built_total",
			Help:      "Report builds by outcome.",
		}, []string{"outcome"}),
		EventsPerReport: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "events_per_report",
			Help:      "Number of calendar events on the target date per report.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		ProviderAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Weather provider attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Upstream request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		ForecastOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_outcomes_total",
			Help:      "Per-event forecast results by outcome.",
		}, []string{"outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification pushes by channel and outcome.",
		}, []string{"channel", "outcome"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReportsBuilt,
		m.EventsPerReport,
		m.ProviderAttempts,
		m.ProviderDuration,
		m.ForecastOutcomes,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.Notifications,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
