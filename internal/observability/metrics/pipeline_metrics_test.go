package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRunCountsByStatus(t *testing.T) {
	m := newPipelineMetrics(prometheus.NewRegistry())

	m.ObserveRun(RunStatusOK, 2*time.Second)
	m.ObserveRun(RunStatusOK, time.Second)
	m.ObserveRun(RunStatusExtractError, time.Second)

	if got := testutil.ToFloat64(m.runs.WithLabelValues(RunStatusOK)); got != 2 {
		t.Fatalf("ok runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues(RunStatusExtractError)); got != 1 {
		t.Fatalf("extract error runs = %v, want 1", got)
	}
}

func TestExtractionRowsIgnoresNonPositive(t *testing.T) {
	m := newPipelineMetrics(prometheus.NewRegistry())

	m.AddExtractionRows("query_history", 40)
	m.AddExtractionRows("query_history", 0)
	m.AddExtractionRows("query_history", -3)

	if got := testutil.ToFloat64(m.extractionRows.WithLabelValues("query_history")); got != 40 {
		t.Fatalf("rows = %v, want 40", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *PipelineMetrics
	m.ObserveRun(RunStatusOK, time.Second)
	m.IncExtractionRetry()
	m.IncAnomalyFinding("warning")
	m.IncSnapshotUpsert()
}

func TestDuplicateRegistrationReusesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	newPipelineMetrics(reg)
	// second construction against the same registry must not panic
	newPipelineMetrics(reg)
}
