package anomaly

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	alertdomain "github.com/smallbiznis/snowgauge/internal/alert/domain"
	"github.com/smallbiznis/snowgauge/internal/settings"
	snapshotdomain "github.com/smallbiznis/snowgauge/internal/snapshot/domain"
)

// epsilon floors the baseline deviation so a flat history cannot divide by
// zero. Any change against a perfectly flat baseline reads as extreme.
const epsilon = 1e-9

// criticalDeviation promotes a statistical finding from warning to critical.
const criticalDeviation = 3.5

// budgetCriticalFactor promotes a budget breach to critical once the
// observed value reaches this multiple of the threshold.
const budgetCriticalFactor = 1.5

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Snapshots snapshotdomain.Repository
	Alerts    alertdomain.Repository
	Node      *snowflake.Node
}

// Detector evaluates one date's snapshot rows against the trailing baseline
// and the active budget rules.
type Detector struct {
	db        *gorm.DB
	log       *zap.Logger
	snapshots snapshotdomain.Repository
	alerts    alertdomain.Repository
	node      *snowflake.Node
}

func NewDetector(p Params) *Detector {
	return &Detector{
		db:        p.DB,
		log:       p.Log.Named("anomaly"),
		snapshots: p.Snapshots,
		alerts:    p.Alerts,
		node:      p.Node,
	}
}

type series struct {
	observed float64
	baseline []float64
}

// Detect runs statistical and budget evaluation for one date and persists
// every finding to the anomaly log. Statistical findings for a target are
// suppressed while its baseline is shorter than MinBaselineDays; budget
// rules fire regardless.
func (d *Detector) Detect(ctx context.Context, date time.Time, cfg settings.Settings) (*Result, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	from := day.AddDate(0, 0, -cfg.BaselineWindowDays)

	targets, err := d.loadSeries(ctx, from, day)
	if err != nil {
		return nil, err
	}

	result := &Result{Date: day}
	byTarget := make(map[string]*Finding)

	for name, s := range targets {
		if len(s.baseline) < cfg.MinBaselineDays {
			result.Insufficient = append(result.Insufficient, name)
			continue
		}
		mean, std := meanStd(s.baseline)
		deviation := (s.observed - mean) / math.Max(std, epsilon)
		// spend collapse is as anomalous as a spike, so gate on magnitude
		if math.Abs(deviation) < cfg.AnomalyThreshold {
			continue
		}
		severity := SeverityWarning
		if math.Abs(deviation) >= criticalDeviation {
			severity = SeverityCritical
		}
		byTarget[name] = &Finding{
			Target:       name,
			Source:       SourceStatistical,
			Severity:     severity,
			Observed:     s.observed,
			BaselineMean: mean,
			BaselineStd:  std,
			Deviation:    deviation,
		}
	}

	if err := d.applyBudgetRules(ctx, targets, byTarget); err != nil {
		return nil, err
	}

	for _, f := range byTarget {
		result.Findings = append(result.Findings, *f)
	}
	sort.Slice(result.Findings, func(i, j int) bool {
		return result.Findings[i].Target < result.Findings[j].Target
	})
	sort.Strings(result.Insufficient)

	if err := d.persist(ctx, day, result.Findings); err != nil {
		return nil, err
	}

	d.log.Info("detection complete",
		zap.Time("snapshot_date", day),
		zap.Int("findings", len(result.Findings)),
		zap.Strings("insufficient_baseline", result.Insufficient),
	)
	return result, nil
}

// loadSeries builds the observed value and baseline history for the account
// total and for every warehouse seen in the window.
func (d *Detector) loadSeries(ctx context.Context, from, day time.Time) (map[string]*series, error) {
	targets := make(map[string]*series)

	snapshots, err := d.snapshots.ListDailySnapshots(ctx, d.db, from, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load snapshot baseline: %w", err)
	}
	account := &series{}
	for _, row := range snapshots {
		if row.SnapshotDate.Equal(day) {
			account.observed = row.TotalCredits
		} else if row.SnapshotDate.Before(day) {
			account.baseline = append(account.baseline, row.TotalCredits)
		}
	}
	targets[TargetAccount] = account

	metrics, err := d.snapshots.ListWarehouseMetricsRange(ctx, d.db, from, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load warehouse baseline: %w", err)
	}
	for _, row := range metrics {
		s := targets[row.Warehouse]
		if s == nil {
			s = &series{}
			targets[row.Warehouse] = s
		}
		if row.SnapshotDate.Equal(day) {
			s.observed = row.CreditsUsed
		} else if row.SnapshotDate.Before(day) {
			s.baseline = append(s.baseline, row.CreditsUsed)
		}
	}
	return targets, nil
}

// applyBudgetRules evaluates active threshold alerts against the observed
// values and merges breaches into the finding set, keeping the stronger
// severity when a target already has a statistical finding.
func (d *Detector) applyBudgetRules(ctx context.Context, targets map[string]*series, byTarget map[string]*Finding) error {
	alerts, err := d.alerts.FindActive(ctx, d.db)
	if err != nil {
		return fmt.Errorf("load budget alerts: %w", err)
	}
	for _, a := range alerts {
		if a.Type != alertdomain.AlertTypeThreshold {
			continue
		}
		target := a.Target
		if target == "" {
			target = TargetAccount
		}
		// a target with no metric row for the day spent nothing, which is
		// exactly what an underuse (lt/lte) rule wants to see
		var observed float64
		if s := targets[target]; s != nil {
			observed = s.observed
		}
		if !a.Operator.Compare(observed, a.Threshold) {
			continue
		}
		severity := SeverityWarning
		if a.Threshold > 0 && observed >= a.Threshold*budgetCriticalFactor {
			severity = SeverityCritical
		}
		if existing := byTarget[target]; existing != nil {
			existing.Source = SourceBoth
			existing.Severity = maxSeverity(existing.Severity, severity)
			existing.AlertNames = append(existing.AlertNames, a.Name)
			continue
		}
		byTarget[target] = &Finding{
			Target:     target,
			Source:     SourceBudget,
			Severity:   severity,
			Observed:   observed,
			AlertNames: []string{a.Name},
		}
	}
	return nil
}

func (d *Detector) persist(ctx context.Context, day time.Time, findings []Finding) error {
	for _, f := range findings {
		details := datatypes.JSONMap{}
		if len(f.AlertNames) > 0 {
			names := make([]any, 0, len(f.AlertNames))
			for _, n := range f.AlertNames {
				names = append(names, n)
			}
			details["alert_names"] = names
		}
		row := AnomalyLog{
			ID:           d.node.Generate(),
			SnapshotDate: day,
			Target:       f.Target,
			Source:       f.Source,
			Severity:     f.Severity,
			Observed:     f.Observed,
			BaselineMean: f.BaselineMean,
			BaselineStd:  f.BaselineStd,
			Deviation:    f.Deviation,
			Details:      details,
		}
		if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("persist anomaly log: %w", err)
		}
	}
	return nil
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
