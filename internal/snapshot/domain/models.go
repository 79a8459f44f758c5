// Package domain contains the derived daily metric tables the engine owns.
package domain

import "time"

// Dimension names an attribution grouping for EntityDailyMetric rows.
type Dimension string

const (
	DimensionUser Dimension = "user"
	DimensionRole Dimension = "role"
)

// DailyCostSnapshot is the account-level aggregate for one calendar date.
type DailyCostSnapshot struct {
	SnapshotDate         time.Time `gorm:"column:snapshot_date;primaryKey"`
	TotalCredits         float64   `gorm:"not null"`
	ComputeCredits       float64   `gorm:"not null"`
	CloudServicesCredits float64   `gorm:"not null"`
	StorageCredits       float64   `gorm:"not null"`
	DataTransferCredits  float64   `gorm:"not null"`
	StorageBytes         float64   `gorm:"not null"`
	WarehouseCount       int       `gorm:"not null"`
	QueryCount           int64     `gorm:"not null"`
	FailedQueryCount     int64     `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (DailyCostSnapshot) TableName() string { return "daily_cost_snapshots" }

// WarehouseDailyMetric is the per-warehouse aggregate for one calendar date.
type WarehouseDailyMetric struct {
	SnapshotDate     time.Time `gorm:"column:snapshot_date;primaryKey"`
	Warehouse        string    `gorm:"primaryKey;type:text"`
	CreditsUsed      float64   `gorm:"not null"`
	ComputeCredits   float64   `gorm:"not null"`
	QueryCount       int64     `gorm:"not null"`
	FailedQueryCount int64     `gorm:"not null"`
	AvgExecutionMS   float64   `gorm:"column:avg_execution_ms;not null"`
	CacheHitRatio    float64   `gorm:"not null"`
	BytesScanned     int64     `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (WarehouseDailyMetric) TableName() string { return "warehouse_daily_metrics" }

// EntityDailyMetric is the per-user or per-role aggregate for one date.
type EntityDailyMetric struct {
	SnapshotDate     time.Time `gorm:"column:snapshot_date;primaryKey"`
	Dimension        Dimension `gorm:"primaryKey;type:text"`
	Entity           string    `gorm:"primaryKey;type:text"`
	CreditsUsed      float64   `gorm:"not null"`
	QueryCount       int64     `gorm:"not null"`
	FailedQueryCount int64     `gorm:"not null"`
	AvgExecutionMS   float64   `gorm:"column:avg_execution_ms;not null"`
	CacheHitRatio    float64   `gorm:"not null"`
	BytesScanned     int64     `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (EntityDailyMetric) TableName() string { return "entity_daily_metrics" }
