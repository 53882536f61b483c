package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "station_coding"

// Metrics holds the Prometheus counters, histograms, and gauges for station coding runs.
type Metrics struct {
	CodesGenerated    prometheus.Counter
	QuadrantExhausted prometheus.Counter
	StationsImported  prometheus.Counter
	ImportFailures    prometheus.Counter
	StationsPersisted prometheus.Counter
	PublishErrors     prometheus.Counter

	// Run metrics.
	RunDuration   prometheus.Histogram
	RunInProgress prometheus.Gauge

	Enrichment *prometheus.CounterVec // labels: layer={sub_basin,municipality}, outcome={filled,kept,no_match,disabled}
	ExportRows *prometheus.CounterVec // labels: format={xlsx,sqlite}, outcome={written,failed}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CodesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codes_generated_total",
			Help:      "Station codes allocated.",
		}),
		QuadrantExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quadrant_exhausted_total",
			Help:      "Allocations refused because the quadrant had no sequence left.",
		}),
		StationsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stations_imported_total",
			Help:      "Stations coded and returned by successful imports.",
		}),
		ImportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_failures_total",
			Help:      "Imports aborted before completion.",
		}),
		StationsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stations_persisted_total",
			Help:      "Coded stations written back to the backing store.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed attempts to publish coded stations.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete import-export run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_in_progress",
			Help:      "1 while a run is executing, 0 otherwise.",
		}),
		Enrichment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_total",
			Help:      "Boundary lookups by layer and outcome.",
		}, []string{"layer", "outcome"}),
		ExportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_rows_total",
			Help:      "Exported rows by destination format and outcome.",
		}, []string{"format", "outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.CodesGenerated,
		m.QuadrantExhausted,
		m.StationsImported,
		m.ImportFailures,
		m.StationsPersisted,
		m.PublishErrors,
		m.RunDuration,
		m.RunInProgress,
		m.Enrichment,
		m.ExportRows,
	}
}
