package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "snowline"

// Metrics holds the Prometheus counters, histograms, and gauges for a run.
type Metrics struct {
	ObservationsLoaded prometheus.Counter
	DatesProcessed     *prometheus.CounterVec // labels: status={ok,no_snow,complete_snow,insufficient_data}
	GeometryErrors     prometheus.Counter
	DateFailures       prometheus.Counter
	OutputsWritten     *prometheus.CounterVec // labels: sink={geojson,svg}
	PipelineRunning    prometheus.Gauge
	Workers            prometheus.Gauge

	DateProcessingDuration prometheus.Histogram
	RunDuration            prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		ObservationsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_loaded_total",
			Help:      "Observations read from the input dataset after filtering.",
		}),
		DatesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dates_processed_total",
			Help:      "Dates processed by outcome status.",
		}, []string{"status"}),
		GeometryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geometry_errors_total",
			Help:      "Dates whose extracted geometry failed validation.",
		}),
		DateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "date_failures_total",
			Help:      "Dates whose extraction failed unexpectedly and were reported as insufficient data.",
		}),
		OutputsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outputs_written_total",
			Help:      "Files written by each output sink.",
		}, []string{"sink"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		Workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Number of dates processed concurrently.",
		}),
		DateProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "date_processing_duration_seconds",
			Help:      "Time spent extracting the snowline for one date.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the most recent run.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ObservationsLoaded,
		m.DatesProcessed,
		m.GeometryErrors,
		m.DateFailures,
		m.OutputsWritten,
		m.PipelineRunning,
		m.Workers,
		m.DateProcessingDuration,
		m.RunDuration,
	}
}

// NewMetricsWithRegistry registers the metrics with reg instead of the
// default registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// WriteTextfile writes every metric gathered by g to path in the Prometheus
// text format, for pickup by a node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
