// Package seed bootstraps the runtime settings rows a fresh install needs.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/smallbiznis/snowgauge/internal/settings"
	"github.com/smallbiznis/snowgauge/pkg/db"
)

type defaultSetting struct {
	key         string
	value       string
	description string
}

func defaults() []defaultSetting {
	return []defaultSetting{
		{settings.KeyCostPerCredit, "3.00", "Contracted dollar cost of one compute credit."},
		{settings.KeyMonthlyBudgetCredits, "1000", "Monthly credit budget for exhaustion projections."},
		{settings.KeyAnomalyThreshold, "2.0", "Deviations from baseline before a spend spike is flagged."},
		{settings.KeyBaselineWindowDays, "14", "Trailing days used as the anomaly baseline."},
		{settings.KeyMinBaselineDays, "5", "Minimum baseline days before statistical detection runs."},
	}
}

// EnsureDefaultSettings inserts any missing platform settings rows without
// touching values an operator has already changed.
func EnsureDefaultSettings(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range defaults() {
			row := settings.PlatformSetting{
				Key:         d.key,
				Value:       d.value,
				Description: d.description,
				UpdatedAt:   time.Now().UTC(),
			}
			err := tx.Where("key = ?", d.key).
				Attrs(row).
				FirstOrCreate(&settings.PlatformSetting{}).Error
			if err != nil && !db.IsDuplicateKeyErr(err) {
				return fmt.Errorf("seed setting %s: %w", d.key, err)
			}
		}
		return nil
	})
}
