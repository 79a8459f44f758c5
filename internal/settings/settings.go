// Package settings stores tunable platform parameters in the database so
// operators can change them without a redeploy.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_platform_settings")

// PlatformSetting is one key/value row.
type PlatformSetting struct {
	Key         string    `gorm:"primaryKey;type:text"`
	Value       string    `gorm:"not null"`
	Description string    `gorm:"not null;default:''"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (PlatformSetting) TableName() string { return "platform_settings" }

// Setting keys.
const (
	KeyCostPerCredit        = "COST_PER_CREDIT"
	KeyMonthlyBudgetCredits = "MONTHLY_BUDGET_CREDITS"
	KeyAnomalyThreshold     = "ANOMALY_THRESHOLD"
	KeyBaselineWindowDays   = "BASELINE_WINDOW_DAYS"
	KeyMinBaselineDays      = "MIN_BASELINE_DAYS"
	KeyScoreWeightCache     = "SCORE_WEIGHT_CACHE"
	KeyScoreWeightIdle      = "SCORE_WEIGHT_IDLE"
	KeyScoreWeightFailure   = "SCORE_WEIGHT_FAILURE"
)

// Settings is the typed view the pipeline consumes. Values not present in
// the database fall back to defaults.
type Settings struct {
	CostPerCredit        float64
	MonthlyBudgetCredits float64
	AnomalyThreshold     float64
	BaselineWindowDays   int
	MinBaselineDays      int
	ScoreWeightCache     float64
	ScoreWeightIdle      float64
	ScoreWeightFailure   float64
}

func Defaults() Settings {
	return Settings{
		CostPerCredit:        3.00,
		MonthlyBudgetCredits: 1000,
		AnomalyThreshold:     2.0,
		BaselineWindowDays:   14,
		MinBaselineDays:      5,
		ScoreWeightCache:     1.0 / 3.0,
		ScoreWeightIdle:      1.0 / 3.0,
		ScoreWeightFailure:   1.0 / 3.0,
	}
}

// Validate rejects values that would poison every downstream calculation.
func (s Settings) Validate() error {
	if s.CostPerCredit <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfig, KeyCostPerCredit, s.CostPerCredit)
	}
	if s.MonthlyBudgetCredits < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidConfig, KeyMonthlyBudgetCredits, s.MonthlyBudgetCredits)
	}
	if s.AnomalyThreshold <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfig, KeyAnomalyThreshold, s.AnomalyThreshold)
	}
	if s.BaselineWindowDays < 1 {
		return fmt.Errorf("%w: %s must be at least 1, got %d", ErrInvalidConfig, KeyBaselineWindowDays, s.BaselineWindowDays)
	}
	if s.MinBaselineDays < 1 || s.MinBaselineDays > s.BaselineWindowDays {
		return fmt.Errorf("%w: %s must be within [1, %d], got %d", ErrInvalidConfig, KeyMinBaselineDays, s.BaselineWindowDays, s.MinBaselineDays)
	}
	if s.ScoreWeightCache < 0 || s.ScoreWeightIdle < 0 || s.ScoreWeightFailure < 0 {
		return fmt.Errorf("%w: score weights must not be negative", ErrInvalidConfig)
	}
	return nil
}

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

// Service reads and writes platform settings.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(p Params) *Service {
	return &Service{db: p.DB, log: p.Log.Named("settings")}
}

// Set upserts one key.
func (s *Service) Set(ctx context.Context, key, value, description string) error {
	return s.db.WithContext(ctx).Exec(
		`INSERT INTO platform_settings (key, value, description, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (key)
		 DO UPDATE SET value = EXCLUDED.value,
		               description = EXCLUDED.description,
		               updated_at = EXCLUDED.updated_at`,
		key, value, description, time.Now().UTC(),
	).Error
}

// Get returns the raw value for one key, or "" when the key is unset.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	var row PlatformSetting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

// Load materializes the typed settings, layering stored values over
// defaults, and validates the result.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	out := Defaults()

	var rows []PlatformSetting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return Settings{}, err
	}
	for _, row := range rows {
		if err := apply(&out, row.Key, row.Value); err != nil {
			return Settings{}, err
		}
	}
	if err := out.Validate(); err != nil {
		return Settings{}, err
	}
	return out, nil
}

func apply(out *Settings, key, value string) error {
	switch key {
	case KeyCostPerCredit:
		return parseFloat(key, value, &out.CostPerCredit)
	case KeyMonthlyBudgetCredits:
		return parseFloat(key, value, &out.MonthlyBudgetCredits)
	case KeyAnomalyThreshold:
		return parseFloat(key, value, &out.AnomalyThreshold)
	case KeyBaselineWindowDays:
		return parseInt(key, value, &out.BaselineWindowDays)
	case KeyMinBaselineDays:
		return parseInt(key, value, &out.MinBaselineDays)
	case KeyScoreWeightCache:
		return parseFloat(key, value, &out.ScoreWeightCache)
	case KeyScoreWeightIdle:
		return parseFloat(key, value, &out.ScoreWeightIdle)
	case KeyScoreWeightFailure:
		return parseFloat(key, value, &out.ScoreWeightFailure)
	default:
		// unknown keys are operator notes, not errors
		return nil
	}
}

func parseFloat(key, value string, dst *float64) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	*dst = f
	return nil
}

func parseInt(key, value string, dst *int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	*dst = n
	return nil
}
