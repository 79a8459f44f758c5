// Package domain defines operator-managed budget alert rules.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type AlertType string

const (
	// AlertTypeThreshold compares a measured value against a fixed threshold.
	AlertTypeThreshold AlertType = "threshold"
	// AlertTypeAnomaly tags a target as detector-watched. The detector
	// already watches every target, so these rows are informational.
	AlertTypeAnomaly AlertType = "anomaly"
)

type ConditionOp string

const (
	ConditionGT  ConditionOp = "gt"
	ConditionGTE ConditionOp = "gte"
	ConditionLT  ConditionOp = "lt"
	ConditionLTE ConditionOp = "lte"
)

// Compare applies the operator to an observed value.
func (op ConditionOp) Compare(observed, threshold float64) bool {
	switch op {
	case ConditionGT:
		return observed > threshold
	case ConditionGTE:
		return observed >= threshold
	case ConditionLT:
		return observed < threshold
	case ConditionLTE:
		return observed <= threshold
	default:
		return false
	}
}

// BudgetAlert is one operator-defined rule. Target names a warehouse, or is
// empty for the account-level daily total.
type BudgetAlert struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"not null"`
	Type      AlertType    `gorm:"not null"`
	Target    string       `gorm:"not null;default:''"`
	Threshold float64      `gorm:"not null"`
	Operator  ConditionOp  `gorm:"not null"`
	Active    bool         `gorm:"not null;default:false"`
	CreatedAt time.Time    `gorm:"autoCreateTime"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime"`
}

// TableName sets the database table name.
func (BudgetAlert) TableName() string { return "budget_alerts" }
