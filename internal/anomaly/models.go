// Package anomaly flags daily spend that departs from the trailing baseline
// or breaches an operator-defined budget rule.
package anomaly

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// rank orders severities so a merge can keep the stronger one.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

func maxSeverity(a, b Severity) Severity {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

type Source string

const (
	SourceStatistical Source = "statistical"
	SourceBudget      Source = "budget"
	SourceBoth        Source = "both"
)

// TargetAccount marks findings about the account-level daily total.
const TargetAccount = "ACCOUNT"

// Finding is one flagged target for one date.
type Finding struct {
	Target       string
	Source       Source
	Severity     Severity
	Observed     float64
	BaselineMean float64
	BaselineStd  float64
	Deviation    float64
	AlertNames   []string
}

// Result is the outcome of one detection run.
type Result struct {
	Date     time.Time
	Findings []Finding
	// Insufficient lists targets whose baseline was too short for
	// statistical detection. Budget rules still apply to them.
	Insufficient []string
}

// AnomalyLog is the persisted audit record of one finding.
type AnomalyLog struct {
	ID           snowflake.ID      `gorm:"primaryKey"`
	SnapshotDate time.Time         `gorm:"not null;index"`
	Target       string            `gorm:"not null"`
	Source       Source            `gorm:"not null"`
	Severity     Severity          `gorm:"not null"`
	Observed     float64           `gorm:"not null"`
	BaselineMean float64           `gorm:"not null"`
	BaselineStd  float64           `gorm:"not null"`
	Deviation    float64           `gorm:"not null"`
	Details      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt    time.Time         `gorm:"autoCreateTime"`
}

// TableName sets the database table name.
func (AnomalyLog) TableName() string { return "anomaly_log" }
