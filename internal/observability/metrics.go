package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "berlin_events"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Refresh cycle metrics.
	RefreshCycles       prometheus.Counter
	RefreshDuration     prometheus.Histogram
	ProviderFetchErrors *prometheus.CounterVec // labels: provider
	EventsFetched       *prometheus.CounterVec // labels: provider
	EventsEnriched      *prometheus.CounterVec // labels: source={original,resolved,provider_default,none}
	EnrichPanics        prometheus.Counter
	EventsPublished     prometheus.Counter
	PublishErrors       prometheus.Counter
	RefreshRunning      prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,not_found,unavailable}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeCache       *prometheus.CounterVec // labels: kind={raw,cleaned}, result={hit,negative,miss}
	CacheEntries       prometheus.Gauge
	CachePersistErrors prometheus.Counter
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RefreshCycles,
		m.RefreshDuration,
		m.ProviderFetchErrors,
		m.EventsFetched,
		m.EventsEnriched,
		m.EnrichPanics,
		m.EventsPublished,
		m.PublishErrors,
		m.RefreshRunning,
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
		m.GeocodeCache,
		m.CacheEntries,
		m.CachePersistErrors,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RefreshCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Total completed provider refresh cycles.",
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete refresh cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		ProviderFetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetch_errors_total",
			Help:      "Provider fetch failures by provider.",
		}, []string{"provider"}),
		EventsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_fetched_total",
			Help:      "Events fetched by provider.",
		}, []string{"provider"}),
		EventsEnriched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_enriched_total",
			Help:      "Enriched events by coordinate source.",
		}, []string{"source"}),
		EnrichPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_panics_total",
			Help:      "Events whose enrichment panicked and were kept unenriched.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Enriched events written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed sink batch writes.",
		}),
		RefreshRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_running",
			Help:      "1 while the refresh loop is active, 0 when shut down.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Coordinate cache lookups by query kind and result.",
		}, []string{"kind", "result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_cache_entries",
			Help:      "Entries in the coordinate cache, negative ones included.",
		}),
		CachePersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_persist_errors_total",
			Help:      "Failed writes of the coordinate cache file.",
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}
}
