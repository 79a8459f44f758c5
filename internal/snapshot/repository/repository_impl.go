package repository

import (
	"context"
	"time"

	snapshotdomain "github.com/smallbiznis/snowgauge/internal/snapshot/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() snapshotdomain.Repository {
	return &repo{}
}

func (r *repo) UpsertDailySnapshot(ctx context.Context, db *gorm.DB, row *snapshotdomain.DailyCostSnapshot) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO daily_cost_snapshots (
			snapshot_date, total_credits, compute_credits, cloud_services_credits,
			storage_credits, data_transfer_credits, storage_bytes,
			warehouse_count, query_count, failed_query_count, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (snapshot_date)
		DO UPDATE SET total_credits = EXCLUDED.total_credits,
		              compute_credits = EXCLUDED.compute_credits,
		              cloud_services_credits = EXCLUDED.cloud_services_credits,
		              storage_credits = EXCLUDED.storage_credits,
		              data_transfer_credits = EXCLUDED.data_transfer_credits,
		              storage_bytes = EXCLUDED.storage_bytes,
		              warehouse_count = EXCLUDED.warehouse_count,
		              query_count = EXCLUDED.query_count,
		              failed_query_count = EXCLUDED.failed_query_count,
		              updated_at = EXCLUDED.updated_at`,
		row.SnapshotDate,
		row.TotalCredits,
		row.ComputeCredits,
		row.CloudServicesCredits,
		row.StorageCredits,
		row.DataTransferCredits,
		row.StorageBytes,
		row.WarehouseCount,
		row.QueryCount,
		row.FailedQueryCount,
		row.UpdatedAt,
	).Error
}

func (r *repo) UpsertWarehouseMetric(ctx context.Context, db *gorm.DB, row *snapshotdomain.WarehouseDailyMetric) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO warehouse_daily_metrics (
			snapshot_date, warehouse, credits_used, compute_credits,
			query_count, failed_query_count, avg_execution_ms,
			cache_hit_ratio, bytes_scanned, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (snapshot_date, warehouse)
		DO UPDATE SET credits_used = EXCLUDED.credits_used,
		              compute_credits = EXCLUDED.compute_credits,
		              query_count = EXCLUDED.query_count,
		              failed_query_count = EXCLUDED.failed_query_count,
		              avg_execution_ms = EXCLUDED.avg_execution_ms,
		              cache_hit_ratio = EXCLUDED.cache_hit_ratio,
		              bytes_scanned = EXCLUDED.bytes_scanned,
		              updated_at = EXCLUDED.updated_at`,
		row.SnapshotDate,
		row.Warehouse,
		row.CreditsUsed,
		row.ComputeCredits,
		row.QueryCount,
		row.FailedQueryCount,
		row.AvgExecutionMS,
		row.CacheHitRatio,
		row.BytesScanned,
		row.UpdatedAt,
	).Error
}

func (r *repo) UpsertEntityMetric(ctx context.Context, db *gorm.DB, row *snapshotdomain.EntityDailyMetric) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO entity_daily_metrics (
			snapshot_date, dimension, entity, credits_used,
			query_count, failed_query_count, avg_execution_ms,
			cache_hit_ratio, bytes_scanned, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (snapshot_date, dimension, entity)
		DO UPDATE SET credits_used = EXCLUDED.credits_used,
		              query_count = EXCLUDED.query_count,
		              failed_query_count = EXCLUDED.failed_query_count,
		              avg_execution_ms = EXCLUDED.avg_execution_ms,
		              cache_hit_ratio = EXCLUDED.cache_hit_ratio,
		              bytes_scanned = EXCLUDED.bytes_scanned,
		              updated_at = EXCLUDED.updated_at`,
		row.SnapshotDate,
		row.Dimension,
		row.Entity,
		row.CreditsUsed,
		row.QueryCount,
		row.FailedQueryCount,
		row.AvgExecutionMS,
		row.CacheHitRatio,
		row.BytesScanned,
		row.UpdatedAt,
	).Error
}

func (r *repo) FindDailySnapshot(ctx context.Context, db *gorm.DB, date time.Time) (*snapshotdomain.DailyCostSnapshot, error) {
	var row snapshotdomain.DailyCostSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM daily_cost_snapshots WHERE snapshot_date = ?`,
		date,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.SnapshotDate.IsZero() {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) ListDailySnapshots(ctx context.Context, db *gorm.DB, from, to time.Time) ([]snapshotdomain.DailyCostSnapshot, error) {
	var rows []snapshotdomain.DailyCostSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM daily_cost_snapshots
		 WHERE snapshot_date >= ? AND snapshot_date < ?
		 ORDER BY snapshot_date ASC`,
		from,
		to,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListWarehouseMetrics(ctx context.Context, db *gorm.DB, date time.Time) ([]snapshotdomain.WarehouseDailyMetric, error) {
	var rows []snapshotdomain.WarehouseDailyMetric
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM warehouse_daily_metrics
		 WHERE snapshot_date = ?
		 ORDER BY warehouse ASC`,
		date,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListWarehouseMetricsRange(ctx context.Context, db *gorm.DB, from, to time.Time) ([]snapshotdomain.WarehouseDailyMetric, error) {
	var rows []snapshotdomain.WarehouseDailyMetric
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM warehouse_daily_metrics
		 WHERE snapshot_date >= ? AND snapshot_date < ?
		 ORDER BY snapshot_date ASC, warehouse ASC`,
		from,
		to,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
