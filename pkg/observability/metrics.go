// Package observability holds the Prometheus metrics of a pipeline run.
// A batch run has no scrape endpoint, so the registry is written to a
// node-exporter textfile when the run ends.
package observability

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

const namespace = "severity"

// Metrics holds the counters, histograms and gauges of one run.
type Metrics struct {
	registry *prometheus.Registry

	RowsLoaded  prometheus.Counter
	RowsDropped prometheus.Counter

	CVTasks        *prometheus.CounterVec   // labels: model, outcome={success,failure}
	CVTaskDuration *prometheus.HistogramVec // labels: model
	StageDuration  *prometheus.HistogramVec // labels: stage

	BestCVScore *prometheus.GaugeVec // labels: model
	TestScore   *prometheus.GaugeVec // labels: model, metric
}

// NewMetrics creates the metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Rows read from the source table.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows removed because a required column was null.",
		}),
		CVTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cv_tasks_total",
			Help:      "Cross-validation fit tasks by model and outcome.",
		}, []string{"model", "outcome"}),
		CVTaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cv_task_duration_seconds",
			Help:      "Duration of one fit-and-score task.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"model"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.1, 1, 10, 60, 300, 1800, 7200},
		}, []string{"stage"}),
		BestCVScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cv_best_score",
			Help:      "Mean cross-validation score of the selected grid point.",
		}, []string{"model"}),
		TestScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "test_score",
			Help:      "Held-out score of the selected model.",
		}, []string{"model", "metric"}),
	}
	m.registry.MustRegister(
		m.RowsLoaded,
		m.RowsDropped,
		m.CVTasks,
		m.CVTaskDuration,
		m.StageDuration,
		m.BestCVScore,
		m.TestScore,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveCVTask records one cross-validation task.
func (m *Metrics) ObserveCVTask(model string, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.CVTasks.WithLabelValues(model, outcome).Inc()
	m.CVTaskDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// ObserveStage records the duration of a pipeline stage.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return scierrors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return scierrors.Wrapf(err, "write metrics %s", path)
	}
	return nil
}
