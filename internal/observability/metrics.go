package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "era5_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the pipeline.
type Metrics struct {
	PipelineRunning  prometheus.Gauge
	PipelineDuration prometheus.Histogram
	PipelineRuns     *prometheus.CounterVec // labels: outcome={success,error}

	RecordsProjected prometheus.Counter
	MissingMonths    prometheus.Counter
	RecordsPublished prometheus.Counter
	ExportJobs       *prometheus.CounterVec // labels: outcome={submitted,error}

	// Earth Engine API metrics.
	APIRequests *prometheus.CounterVec   // labels: method={compute,export,map,operation,tile}, outcome={success,error}
	APIDuration *prometheus.HistogramVec // labels: method
	TileCache   *prometheus.CounterVec   // labels: result={hit,miss}
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress.",
		}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RecordsProjected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_projected_total",
			Help:      "Monthly records produced by the table projector.",
		}),
		MissingMonths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_months_total",
			Help:      "Monthly records whose regional reduction produced no value.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Monthly records written to the Kafka topic.",
		}),
		ExportJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_jobs_total",
			Help:      "Table export submissions by outcome.",
		}, []string{"outcome"}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "earthengine_requests_total",
			Help:      "Earth Engine API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "earthengine_request_duration_seconds",
			Help:      "Earth Engine API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method"}),
		TileCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tile_cache_total",
			Help:      "Map tile cache lookups by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRunning,
		m.PipelineDuration,
		m.PipelineRuns,
		m.RecordsProjected,
		m.MissingMonths,
		m.RecordsPublished,
		m.ExportJobs,
		m.APIRequests,
		m.APIDuration,
		m.TileCache,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
