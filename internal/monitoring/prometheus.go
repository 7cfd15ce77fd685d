package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the batch pipeline.
type Metrics struct {
	registry *prometheus.Registry

	pipelineRuns     *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	metricPoints     *prometheus.CounterVec
	signalsGenerated *prometheus.CounterVec
	backtestsTotal   *prometheus.CounterVec
	gridCombinations *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_runs_total",
				Help: "Total number of pipeline job runs",
			},
			[]string{"job", "status"},
		),
		pipelineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_run_duration_seconds",
				Help:    "Pipeline job duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job"},
		),
		metricPoints: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metric_points_computed_total",
				Help: "Total number of derived metric points stored",
			},
			[]string{"kind"},
		),
		signalsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signals_generated_total",
				Help: "Total number of trading signals generated",
			},
			[]string{"type"},
		),
		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtests_total",
				Help: "Total number of backtest simulations",
			},
			[]string{"status"},
		),
		gridCombinations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optimizer_combinations_total",
				Help: "Total number of grid-search combinations evaluated",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		m.pipelineRuns,
		m.pipelineDuration,
		m.metricPoints,
		m.signalsGenerated,
		m.backtestsTotal,
		m.gridCombinations,
	)
	return m
}

// RecordPipelineRun records a completed pipeline job.
func (m *Metrics) RecordPipelineRun(job, status string, duration time.Duration) {
	m.pipelineRuns.WithLabelValues(job, status).Inc()
	m.pipelineDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordMetricPoints counts stored derived-metric points by kind.
func (m *Metrics) RecordMetricPoints(kind string, count int) {
	if count > 0 {
		m.metricPoints.WithLabelValues(kind).Add(float64(count))
	}
}

// RecordSignal counts a generated signal by type.
func (m *Metrics) RecordSignal(signalType string) {
	m.signalsGenerated.WithLabelValues(signalType).Inc()
}

// RecordBacktest counts a backtest run.
func (m *Metrics) RecordBacktest(status string) {
	m.backtestsTotal.WithLabelValues(status).Inc()
}

// RecordGridCombinations counts evaluated and skipped grid combinations.
func (m *Metrics) RecordGridCombinations(evaluated, skipped int) {
	m.gridCombinations.WithLabelValues("evaluated").Add(float64(evaluated))
	m.gridCombinations.WithLabelValues("skipped").Add(float64(skipped))
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
