// Package pipeline orchestrates one date's run: extract, aggregate, persist,
// detect, project. A worker re-runs recent dates on an interval so
// late-arriving usage rows converge into the snapshots.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/snowgauge/internal/aggregate"
	"github.com/smallbiznis/snowgauge/internal/anomaly"
	"github.com/smallbiznis/snowgauge/internal/clock"
	"github.com/smallbiznis/snowgauge/internal/forecast"
	obsmetrics "github.com/smallbiznis/snowgauge/internal/observability/metrics"
	"github.com/smallbiznis/snowgauge/internal/score"
	"github.com/smallbiznis/snowgauge/internal/settings"
	"github.com/smallbiznis/snowgauge/internal/snapshot"
	snapshotdomain "github.com/smallbiznis/snowgauge/internal/snapshot/domain"
	usagedomain "github.com/smallbiznis/snowgauge/internal/usage/domain"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Config    Config
	Clock     clock.Clock
	Source    usagedomain.Source
	Writer    *snapshot.Writer
	Detector  *anomaly.Detector
	Settings  *settings.Service
	Snapshots snapshotdomain.Repository
}

// Service runs the per-date pipeline.
type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	source    usagedomain.Source
	writer    *snapshot.Writer
	detector  *anomaly.Detector
	settings  *settings.Service
	snapshots snapshotdomain.Repository
}

func New(p Params) *Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("pipeline"),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		source:    p.Source,
		writer:    p.Writer,
		detector:  p.Detector,
		settings:  p.Settings,
		snapshots: p.Snapshots,
	}
}

// Report is the outcome of one date's run.
type Report struct {
	Date         time.Time
	Warehouses   int
	Queries      int64
	TotalCredits float64
	Findings     []anomaly.Finding
	Insufficient []string
	// Forecast is nil while the month has too few observed days.
	Forecast   *forecast.Forecast
	Exhaustion forecast.Exhaustion
	Trend      forecast.Trend
	// Scores maps warehouse name to its efficiency grade.
	Scores map[string]float64
}

// RunDate executes the full pipeline for one calendar date.
func (s *Service) RunDate(ctx context.Context, date time.Time) (*Report, error) {
	start := time.Now()
	m := obsmetrics.Pipeline()

	report, err := s.runDate(ctx, date, m)
	if err != nil {
		m.ObserveRun(runStatus(err), time.Since(start))
		return nil, err
	}
	m.ObserveRun(obsmetrics.RunStatusOK, time.Since(start))
	return report, nil
}

func (s *Service) runDate(ctx context.Context, date time.Time, m *obsmetrics.PipelineMetrics) (*Report, error) {
	day := usagedomain.Day(date)

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	facts, err := s.source.Facts(ctx, day, s.cfg.Warehouse)
	if err != nil {
		return nil, fmt.Errorf("extract query history: %w", err)
	}
	metering, err := s.source.Metering(ctx, day, s.cfg.Warehouse)
	if err != nil {
		return nil, fmt.Errorf("extract metering history: %w", err)
	}
	storage, err := s.source.Storage(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("extract storage usage: %w", err)
	}
	m.AddExtractionRows("query_history", len(facts))
	m.AddExtractionRows("metering_history", len(metering))
	m.AddExtractionRows("storage_usage", len(storage))

	rollup := aggregate.Aggregate(day.Start, facts, metering, storage)

	if err := s.writer.Write(ctx, rollup); err != nil {
		return nil, err
	}
	m.IncSnapshotUpsert()

	detection, err := s.detector.Detect(ctx, day.Start, cfg)
	if err != nil {
		return nil, fmt.Errorf("detect anomalies: %w", err)
	}
	for _, f := range detection.Findings {
		m.IncAnomalyFinding(string(f.Severity))
	}

	report := &Report{
		Date:         day.Start,
		Warehouses:   len(rollup.Warehouses),
		Queries:      rollup.Snapshot.QueryCount,
		TotalCredits: rollup.Snapshot.TotalCredits,
		Findings:     detection.Findings,
		Insufficient: detection.Insufficient,
		Trend:        forecast.TrendStable,
		Scores:       s.scoreWarehouses(day, rollup, metering, cfg),
	}
	s.project(ctx, day.Start, cfg, report)

	s.log.Info("pipeline run complete",
		zap.Time("snapshot_date", day.Start),
		zap.Int("warehouses", report.Warehouses),
		zap.Int64("queries", report.Queries),
		zap.Float64("total_credits", report.TotalCredits),
		zap.Int("findings", len(report.Findings)),
		zap.String("trend", string(report.Trend)),
	)
	return report, nil
}

// scoreWarehouses grades every warehouse the rollup produced.
func (s *Service) scoreWarehouses(
	day usagedomain.Window,
	rollup aggregate.DayRollup,
	metering []usagedomain.MeteringInterval,
	cfg settings.Settings,
) map[string]float64 {
	byWarehouse := make(map[string][]usagedomain.MeteringInterval)
	for _, m := range metering {
		byWarehouse[m.Warehouse] = append(byWarehouse[m.Warehouse], m)
	}
	weights := score.Weights{
		Cache:   cfg.ScoreWeightCache,
		Idle:    cfg.ScoreWeightIdle,
		Failure: cfg.ScoreWeightFailure,
	}
	scores := make(map[string]float64, len(rollup.Warehouses))
	for _, wh := range rollup.Warehouses {
		var failureRate float64
		if wh.QueryCount > 0 {
			failureRate = float64(wh.FailedQueryCount) / float64(wh.QueryCount)
		}
		scores[wh.Warehouse] = score.Score(score.Inputs{
			CacheHitRatio: wh.CacheHitRatio,
			IdleRatio:     score.IdleRatio(day, byWarehouse[wh.Warehouse]),
			FailureRate:   failureRate,
		}, weights)
	}
	return scores
}

// project fills the month-end forecast. Too few observed days is a normal
// early-month condition, not a run failure.
func (s *Service) project(ctx context.Context, day time.Time, cfg settings.Settings, report *Report) {
	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	history, err := s.snapshots.ListDailySnapshots(ctx, s.db, monthStart, day.AddDate(0, 0, 1))
	if err != nil {
		s.log.Warn("forecast history unavailable", zap.Error(err))
		return
	}
	f, err := forecast.MonthEnd(history, forecast.DaysRemainingInMonth(day))
	if errors.Is(err, forecast.ErrInsufficientData) {
		s.log.Info("forecast pending", zap.Int("observed_days", len(history)))
		return
	}
	if err != nil {
		s.log.Warn("forecast failed", zap.Error(err))
		return
	}
	report.Forecast = &f
	report.Exhaustion = forecast.BudgetExhaustion(f, cfg.MonthlyBudgetCredits, day)
	report.Trend = forecast.Classify(history)
}

// RunOnce processes the lag window ending today. Dates are processed oldest
// first so baselines see the corrected history.
func (s *Service) RunOnce(ctx context.Context) error {
	today := s.clock.Now().UTC()
	var err error
	for offset := s.cfg.LagDays; offset >= 0; offset-- {
		date := today.AddDate(0, 0, -offset)
		if _, runErr := s.RunDate(ctx, date); runErr != nil {
			s.log.Warn("date run failed",
				zap.Time("snapshot_date", usagedomain.Day(date).Start),
				zap.Error(runErr),
			)
			err = errors.Join(err, runErr)
		}
	}
	return err
}

// RunForever polls until the context is canceled.
func (s *Service) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("pipeline run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runStatus(err error) string {
	switch {
	case errors.Is(err, settings.ErrInvalidConfig):
		return obsmetrics.RunStatusSettingsError
	case errors.Is(err, usagedomain.ErrSourceUnavailable):
		return obsmetrics.RunStatusExtractError
	case errors.Is(err, snapshot.ErrPersistence):
		return obsmetrics.RunStatusPersistError
	default:
		return obsmetrics.RunStatusDetectError
	}
}
