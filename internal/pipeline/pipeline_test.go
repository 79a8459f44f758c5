package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	alertdomain "github.com/smallbiznis/snowgauge/internal/alert/domain"
	alertrepo "github.com/smallbiznis/snowgauge/internal/alert/repository"
	"github.com/smallbiznis/snowgauge/internal/anomaly"
	"github.com/smallbiznis/snowgauge/internal/clock"
	"github.com/smallbiznis/snowgauge/internal/settings"
	"github.com/smallbiznis/snowgauge/internal/snapshot"
	snapshotdomain "github.com/smallbiznis/snowgauge/internal/snapshot/domain"
	snapshotrepo "github.com/smallbiznis/snowgauge/internal/snapshot/repository"
	usagedomain "github.com/smallbiznis/snowgauge/internal/usage/domain"
	"github.com/smallbiznis/snowgauge/pkg/db"
)

var runDate = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	facts    []usagedomain.UsageFact
	metering []usagedomain.MeteringInterval
	storage  []usagedomain.StorageUsage
	err      error
}

func (f *fakeSource) Facts(ctx context.Context, w usagedomain.Window, warehouse string) ([]usagedomain.UsageFact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.facts, nil
}

func (f *fakeSource) Metering(ctx context.Context, w usagedomain.Window, warehouse string) ([]usagedomain.MeteringInterval, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.metering, nil
}

func (f *fakeSource) Storage(ctx context.Context, w usagedomain.Window) ([]usagedomain.StorageUsage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.storage, nil
}

func newTestService(t *testing.T, source usagedomain.Source) (*Service, *gorm.DB) {
	t.Helper()
	gdb, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&snapshotdomain.DailyCostSnapshot{},
		&snapshotdomain.WarehouseDailyMetric{},
		&snapshotdomain.EntityDailyMetric{},
		&alertdomain.BudgetAlert{},
		&anomaly.AnomalyLog{},
		&settings.PlatformSetting{},
	))
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	log := zap.NewNop()
	snapRepo := snapshotrepo.Provide()
	svc := New(Params{
		DB:     gdb,
		Log:    log,
		Config: Config{RunInterval: time.Hour, LagDays: 0},
		Clock:  clock.NewFakeClock(runDate.Add(20 * time.Hour)),
		Source: source,
		Writer: snapshot.NewWriter(snapshot.Params{DB: gdb, Log: log, Repo: snapRepo}),
		Detector: anomaly.NewDetector(anomaly.Params{
			DB:        gdb,
			Log:       log,
			Snapshots: snapRepo,
			Alerts:    alertrepo.Provide(),
			Node:      node,
		}),
		Settings:  settings.NewService(settings.Params{DB: gdb, Log: log}),
		Snapshots: snapRepo,
	})
	return svc, gdb
}

func sourceWithDay() *fakeSource {
	var facts []usagedomain.UsageFact
	for i := 0; i < 40; i++ {
		facts = append(facts, usagedomain.UsageFact{
			QueryID:     "q",
			Timestamp:   runDate.Add(time.Duration(i) * time.Minute),
			Warehouse:   "WH_A",
			User:        "alice",
			Role:        "ANALYST",
			ExecutionMS: 900,
			CacheHit:    i < 30,
			Success:     i >= 2,
		})
	}
	return &fakeSource{
		facts: facts,
		metering: []usagedomain.MeteringInterval{
			{Warehouse: "WH_A", Start: runDate, End: runDate.Add(8 * time.Hour), Credits: 12.5, ComputeCredits: 12.0},
		},
		storage: []usagedomain.StorageUsage{
			{Date: runDate, StorageBytes: 1 << 30},
		},
	}
}

func TestRunDateEndToEnd(t *testing.T) {
	svc, gdb := newTestService(t, sourceWithDay())

	report, err := svc.RunDate(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, runDate, report.Date)
	assert.Equal(t, 1, report.Warehouses)
	assert.Equal(t, int64(40), report.Queries)
	assert.InDelta(t, 12.5, report.TotalCredits, 1e-9)
	assert.Empty(t, report.Findings)

	// one day of history: statistical detection has nothing to baseline
	assert.Contains(t, report.Insufficient, anomaly.TargetAccount)

	scoreVal, ok := report.Scores["WH_A"]
	require.True(t, ok)
	assert.Greater(t, scoreVal, 0.0)
	assert.LessOrEqual(t, scoreVal, 100.0)

	var count int64
	require.NoError(t, gdb.Model(&snapshotdomain.DailyCostSnapshot{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRunDateIsIdempotent(t *testing.T) {
	svc, gdb := newTestService(t, sourceWithDay())
	ctx := context.Background()

	_, err := svc.RunDate(ctx, runDate)
	require.NoError(t, err)
	_, err = svc.RunDate(ctx, runDate)
	require.NoError(t, err)

	var snapshots int64
	require.NoError(t, gdb.Model(&snapshotdomain.DailyCostSnapshot{}).Count(&snapshots).Error)
	assert.Equal(t, int64(1), snapshots)

	var warehouses int64
	require.NoError(t, gdb.Model(&snapshotdomain.WarehouseDailyMetric{}).Count(&warehouses).Error)
	assert.Equal(t, int64(1), warehouses)

	row, err := snapshotrepo.Provide().FindDailySnapshot(ctx, gdb, runDate)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.InDelta(t, 12.5, row.TotalCredits, 1e-9)
}

func TestRunDateSurfacesSourceFailure(t *testing.T) {
	svc, _ := newTestService(t, &fakeSource{err: usagedomain.ErrSourceUnavailable})

	_, err := svc.RunDate(context.Background(), runDate)
	require.ErrorIs(t, err, usagedomain.ErrSourceUnavailable)
}

func TestRunDateRejectsBadSettings(t *testing.T) {
	svc, _ := newTestService(t, sourceWithDay())
	ctx := context.Background()

	require.NoError(t, svc.settings.Set(ctx, settings.KeyCostPerCredit, "-1", ""))
	_, err := svc.RunDate(ctx, runDate)
	require.ErrorIs(t, err, settings.ErrInvalidConfig)
}

func TestRunDateForecastAfterEnoughDays(t *testing.T) {
	svc, gdb := newTestService(t, sourceWithDay())
	ctx := context.Background()

	// seed earlier days of the month so the forecast has history
	repo := snapshotrepo.Provide()
	for offset := 1; offset <= 3; offset++ {
		row := snapshotdomain.DailyCostSnapshot{
			SnapshotDate: runDate.AddDate(0, 0, -offset),
			TotalCredits: 10,
			UpdatedAt:    time.Now().UTC(),
		}
		require.NoError(t, repo.UpsertDailySnapshot(ctx, gdb, &row))
	}

	report, err := svc.RunDate(ctx, runDate)
	require.NoError(t, err)
	require.NotNil(t, report.Forecast)
	assert.Equal(t, 4, report.Forecast.ObservedDays)
	assert.True(t, report.Exhaustion.Exhausts)
}

func TestRunOnceProcessesCurrentDay(t *testing.T) {
	svc, gdb := newTestService(t, sourceWithDay())

	require.NoError(t, svc.RunOnce(context.Background()))

	row, err := snapshotrepo.Provide().FindDailySnapshot(context.Background(), gdb, runDate)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.InDelta(t, 12.5, row.TotalCredits, 1e-9)
}
