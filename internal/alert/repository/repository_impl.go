package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	alertdomain "github.com/smallbiznis/snowgauge/internal/alert/domain"
)

type repo struct{}

func Provide() alertdomain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, alert *alertdomain.BudgetAlert) error {
	return db.WithContext(ctx).Create(alert).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, alert *alertdomain.BudgetAlert) error {
	return db.WithContext(ctx).Save(alert).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*alertdomain.BudgetAlert, error) {
	var alert alertdomain.BudgetAlert
	err := db.WithContext(ctx).Where("id = ?", id).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB) ([]alertdomain.BudgetAlert, error) {
	var alerts []alertdomain.BudgetAlert
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&alertdomain.BudgetAlert{}).Error
}
