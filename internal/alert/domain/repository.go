package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, alert *BudgetAlert) error
	Update(ctx context.Context, db *gorm.DB, alert *BudgetAlert) error
	Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BudgetAlert, error)
	FindActive(ctx context.Context, db *gorm.DB) ([]BudgetAlert, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
