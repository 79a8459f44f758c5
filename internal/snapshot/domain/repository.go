package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	UpsertDailySnapshot(ctx context.Context, db *gorm.DB, row *DailyCostSnapshot) error
	UpsertWarehouseMetric(ctx context.Context, db *gorm.DB, row *WarehouseDailyMetric) error
	UpsertEntityMetric(ctx context.Context, db *gorm.DB, row *EntityDailyMetric) error

	FindDailySnapshot(ctx context.Context, db *gorm.DB, date time.Time) (*DailyCostSnapshot, error)
	ListDailySnapshots(ctx context.Context, db *gorm.DB, from, to time.Time) ([]DailyCostSnapshot, error)
	ListWarehouseMetrics(ctx context.Context, db *gorm.DB, date time.Time) ([]WarehouseDailyMetric, error)
	ListWarehouseMetricsRange(ctx context.Context, db *gorm.DB, from, to time.Time) ([]WarehouseDailyMetric, error)
}
