package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// allocation pipeline.
type Metrics struct {
	RequestsConsumed prometheus.Counter
	ResultsProduced  prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Allocation outcome metrics.
	AllocationResults *prometheus.CounterVec // label: status={allocated,infeasible,invalid}
	AllocationPasses  prometheus.Histogram

	// Site registry metrics.
	RegistryRequests    *prometheus.CounterVec   // labels: outcome={success,error,empty}
	RegistryCache       *prometheus.CounterVec   // labels: result={hit,miss}
	RegistryAPIDuration prometheus.Histogram
	RegistryEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RequestsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grid_alloc",
			Name:      "requests_consumed_total",
			Help:      "Total allocation requests read from the source topic.",
		}),
		ResultsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grid_alloc",
			Name:      "results_produced_total",
			Help:      "Total allocation results written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grid_alloc",
			Name:      "transform_errors_total",
			Help:      "Total requests skipped because transformation failed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "grid_alloc",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "grid_alloc",
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "grid_alloc",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AllocationResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grid_alloc",
			Name:      "allocation_results_total",
			Help:      "Allocation results by terminal status.",
		}, []string{"status"}),
		AllocationPasses: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "grid_alloc",
			Name:      "allocation_passes",
			Help:      "Spatial-search passes needed to satisfy a power request.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}),
		RegistryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grid_alloc",
			Name:      "registry_requests_total",
			Help:      "Site registry API requests by outcome.",
		}, []string{"outcome"}),
		RegistryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grid_alloc",
			Name:      "registry_cache_total",
			Help:      "Site registry cache lookups by result.",
		}, []string{"result"}),
		RegistryAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "grid_alloc",
			Name:      "registry_api_duration_seconds",
			Help:      "Site registry API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		RegistryEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "grid_alloc",
			Name:      "registry_enabled",
			Help:      "1 when the external site registry is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.RequestsConsumed,
		m.ResultsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.AllocationResults,
		m.AllocationPasses,
		m.RegistryRequests,
		m.RegistryCache,
		m.RegistryAPIDuration,
		m.RegistryEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RequestsConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "grid_alloc", Name: "requests_consumed_total"}),
		ResultsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "grid_alloc", Name: "results_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "grid_alloc", Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "grid_alloc", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "grid_alloc", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "grid_alloc", Name: "batch_processing_duration_seconds"}),
		AllocationResults:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "grid_alloc", Name: "allocation_results_total"}, []string{"status"}),
		AllocationPasses:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "grid_alloc", Name: "allocation_passes"}),
		RegistryRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "grid_alloc", Name: "registry_requests_total"}, []string{"outcome"}),
		RegistryCache:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "grid_alloc", Name: "registry_cache_total"}, []string{"result"}),
		RegistryAPIDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "grid_alloc", Name: "registry_api_duration_seconds"}),
		RegistryEnabled:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "grid_alloc", Name: "registry_enabled"}),
	}
}
