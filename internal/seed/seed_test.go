package seed

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/smallbiznis/snowgauge/internal/settings"
	"github.com/smallbiznis/snowgauge/pkg/db"
)

func TestEnsureDefaultSettingsSeedsMissingKeys(t *testing.T) {
	gdb, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&settings.PlatformSetting{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := EnsureDefaultSettings(gdb); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var count int64
	if err := gdb.Model(&settings.PlatformSetting{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != int64(len(defaults())) {
		t.Fatalf("expected %d seeded rows, got %d", len(defaults()), count)
	}
}

func TestEnsureDefaultSettingsKeepsOperatorValues(t *testing.T) {
	gdb, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&settings.PlatformSetting{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := settings.NewService(settings.Params{DB: gdb, Log: zap.NewNop()})
	ctx := context.Background()
	if err := svc.Set(ctx, settings.KeyCostPerCredit, "2.25", "negotiated"); err != nil {
		t.Fatalf("set: %v", err)
	}

	// seeding twice must neither error nor overwrite the operator's value
	if err := EnsureDefaultSettings(gdb); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := EnsureDefaultSettings(gdb); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	got, err := svc.Get(ctx, settings.KeyCostPerCredit)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "2.25" {
		t.Fatalf("operator value overwritten: got %q", got)
	}
}
