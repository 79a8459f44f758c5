package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	alertdomain "github.com/smallbiznis/snowgauge/internal/alert/domain"
	"github.com/smallbiznis/snowgauge/internal/anomaly"
	"github.com/smallbiznis/snowgauge/internal/config"
	"github.com/smallbiznis/snowgauge/internal/seed"
	"github.com/smallbiznis/snowgauge/internal/settings"
	snapshotdomain "github.com/smallbiznis/snowgauge/internal/snapshot/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql development setups
			if err := conn.AutoMigrate(
				&snapshotdomain.DailyCostSnapshot{},
				&snapshotdomain.WarehouseDailyMetric{},
				&snapshotdomain.EntityDailyMetric{},
				&alertdomain.BudgetAlert{},
				&settings.PlatformSetting{},
				&anomaly.AnomalyLog{},
			); err != nil {
				return err
			}
		}
		return seed.EnsureDefaultSettings(conn)
	}),
)
