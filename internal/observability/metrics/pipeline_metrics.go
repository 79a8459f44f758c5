// Package metrics captures pipeline health signals for operators.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	RunStatusOK            = "ok"
	RunStatusExtractError  = "extract_error"
	RunStatusPersistError  = "persist_error"
	RunStatusDetectError   = "detect_error"
	RunStatusSettingsError = "settings_error"
)

// PipelineMetrics captures daily-run health signals.
type PipelineMetrics struct {
	runs            *prometheus.CounterVec
	runDuration     prometheus.Observer
	extractionRows  *prometheus.CounterVec
	extractionRetry prometheus.Counter
	anomalyFindings *prometheus.CounterVec
	snapshotUpserts prometheus.Counter
}

var (
	pipelineMetricsOnce sync.Once
	pipelineMetrics     *PipelineMetrics
)

// Pipeline returns the singleton pipeline metrics registry.
func Pipeline() *PipelineMetrics {
	pipelineMetricsOnce.Do(func() {
		pipelineMetrics = newPipelineMetrics(prometheus.DefaultRegisterer)
	})
	return pipelineMetrics
}

// ResetPipelineMetricsForTest resets the singleton for tests.
func ResetPipelineMetricsForTest() {
	pipelineMetricsOnce = sync.Once{}
	pipelineMetrics = nil
}

func newPipelineMetrics(registerer prometheus.Registerer) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snowgauge_pipeline_runs_total",
		Help: "Daily pipeline runs by outcome.",
	}, []string{"status"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "snowgauge_pipeline_run_duration_seconds",
		Help:    "End-to-end latency of one date's pipeline run.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
	extractionRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snowgauge_extraction_rows_total",
		Help: "Rows read from the usage source by dataset.",
	}, []string{"dataset"})
	extractionRetry := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snowgauge_extraction_retries_total",
		Help: "Source query attempts that were retried.",
	})
	anomalyFindings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snowgauge_anomaly_findings_total",
		Help: "Anomaly findings by severity.",
	}, []string{"severity"})
	snapshotUpserts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snowgauge_snapshot_upserts_total",
		Help: "Snapshot dates written or rewritten.",
	})

	for _, c := range []prometheus.Collector{
		runs, runDuration, extractionRows, extractionRetry, anomalyFindings, snapshotUpserts,
	} {
		if err := registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}

	return &PipelineMetrics{
		runs:            runs,
		runDuration:     runDuration,
		extractionRows:  extractionRows,
		extractionRetry: extractionRetry,
		anomalyFindings: anomalyFindings,
		snapshotUpserts: snapshotUpserts,
	}
}

// ObserveRun records one run's outcome and duration.
func (m *PipelineMetrics) ObserveRun(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

// AddExtractionRows records rows read for one dataset.
func (m *PipelineMetrics) AddExtractionRows(dataset string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.extractionRows.WithLabelValues(dataset).Add(float64(n))
}

// IncExtractionRetry records one retried source query attempt.
func (m *PipelineMetrics) IncExtractionRetry() {
	if m == nil {
		return
	}
	m.extractionRetry.Inc()
}

// IncAnomalyFinding records one finding by severity.
func (m *PipelineMetrics) IncAnomalyFinding(severity string) {
	if m == nil {
		return
	}
	m.anomalyFindings.WithLabelValues(severity).Inc()
}

// IncSnapshotUpsert records one snapshot date written.
func (m *PipelineMetrics) IncSnapshotUpsert() {
	if m == nil {
		return
	}
	m.snapshotUpserts.Inc()
}
