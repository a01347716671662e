package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for the orders pipeline.
type Metrics struct {
	PipelineRuns    *prometheus.CounterVec
	SourceFetches   *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	CacheLookups    *prometheus.CounterVec
	SourceRows      prometheus.Gauge
	DenseRows       prometheus.Gauge
	SynthesizedRows prometheus.Gauge
	FilteredRows    prometheus.Gauge
	Exports         *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderdash_pipeline_runs_total",
			Help: "Pipeline runs by outcome",
		}, []string{"outcome"}),
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderdash_source_fetches_total",
			Help: "Source fetches by outcome",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orderdash_source_fetch_duration_seconds",
			Help:    "Time spent fetching the raw orders table",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderdash_cache_lookups_total",
			Help: "Cached source lookups by result",
		}, []string{"result"}),
		SourceRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderdash_source_rows",
			Help: "Rows in the last fetched raw table",
		}),
		DenseRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderdash_dense_rows",
			Help: "Rows in the last completed table",
		}),
		SynthesizedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderdash_synthesized_rows",
			Help: "Zero-order rows added by the last completion",
		}),
		FilteredRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderdash_filtered_rows",
			Help: "Rows in the last filtered view",
		}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderdash_exports_total",
			Help: "Exports written by format",
		}, []string{"format"}),
	}

	reg.MustRegister(
		m.PipelineRuns,
		m.SourceFetches,
		m.FetchDuration,
		m.CacheLookups,
		m.SourceRows,
		m.DenseRows,
		m.SynthesizedRows,
		m.FilteredRows,
		m.Exports,
	)
	return m
}
