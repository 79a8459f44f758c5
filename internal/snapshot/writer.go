// Package snapshot persists derived daily metrics. Writes for the same date
// always replace previous values, so reprocessing a date is safe.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/snowgauge/internal/aggregate"
	"github.com/smallbiznis/snowgauge/internal/snapshot/domain"
)

// ErrPersistence reports a failed snapshot write. The transaction was rolled
// back and no partial rows remain for the date.
var ErrPersistence = errors.New("snapshot_persistence")

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

// Writer stores one date's rollup atomically.
type Writer struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository

	mu    sync.Mutex
	dates map[string]*sync.Mutex
}

func NewWriter(p Params) *Writer {
	return &Writer{
		db:    p.DB,
		log:   p.Log.Named("snapshot.writer"),
		repo:  p.Repo,
		dates: make(map[string]*sync.Mutex),
	}
}

// lockDate serializes concurrent writers for the same date within this
// process. The unique keys on the tables remain the cross-process backstop.
func (w *Writer) lockDate(date time.Time) *sync.Mutex {
	key := date.UTC().Format("2006-01-02")
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.dates[key]
	if !ok {
		m = &sync.Mutex{}
		w.dates[key] = m
	}
	return m
}

// Write upserts every row of the rollup in a single transaction, stamping
// the write time on each row.
func (w *Writer) Write(ctx context.Context, rollup aggregate.DayRollup) error {
	lock := w.lockDate(rollup.Date)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	rollup.Snapshot.UpdatedAt = now
	for i := range rollup.Warehouses {
		rollup.Warehouses[i].UpdatedAt = now
	}
	for i := range rollup.Users {
		rollup.Users[i].UpdatedAt = now
	}
	for i := range rollup.Roles {
		rollup.Roles[i].UpdatedAt = now
	}

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := w.repo.UpsertDailySnapshot(ctx, tx, &rollup.Snapshot); err != nil {
			return err
		}
		for i := range rollup.Warehouses {
			if err := w.repo.UpsertWarehouseMetric(ctx, tx, &rollup.Warehouses[i]); err != nil {
				return err
			}
		}
		for i := range rollup.Users {
			if err := w.repo.UpsertEntityMetric(ctx, tx, &rollup.Users[i]); err != nil {
				return err
			}
		}
		for i := range rollup.Roles {
			if err := w.repo.UpsertEntityMetric(ctx, tx, &rollup.Roles[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		w.log.Error("snapshot write failed",
			zap.Time("snapshot_date", rollup.Date),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s: %v", ErrPersistence, rollup.Date.Format("2006-01-02"), err)
	}

	w.log.Info("snapshot written",
		zap.Time("snapshot_date", rollup.Date),
		zap.Int("warehouses", len(rollup.Warehouses)),
		zap.Int("users", len(rollup.Users)),
		zap.Int("roles", len(rollup.Roles)),
	)
	return nil
}
