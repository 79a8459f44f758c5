package settings

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/smallbiznis/snowgauge/pkg/db"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	gdb, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&PlatformSetting{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(Params{DB: gdb, Log: zap.NewNop()})
}

func TestLoadReturnsDefaultsWhenEmpty(t *testing.T) {
	svc := newTestService(t)
	got, err := svc.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestSetOverridesDefault(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Set(ctx, KeyCostPerCredit, "2.5", "negotiated rate"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := svc.Set(ctx, KeyCostPerCredit, "2.75", "negotiated rate"); err != nil {
		t.Fatalf("second set: %v", err)
	}

	got, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.CostPerCredit != 2.75 {
		t.Fatalf("cost per credit = %v, want 2.75", got.CostPerCredit)
	}
	if got.AnomalyThreshold != 2.0 {
		t.Fatalf("untouched key changed: %v", got.AnomalyThreshold)
	}
}

func TestLoadRejectsNonPositiveCost(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Set(ctx, KeyCostPerCredit, "0", ""); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := svc.Load(ctx); err == nil {
		t.Fatal("expected validation error for zero cost per credit")
	}
}

func TestLoadRejectsUnparseableValue(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Set(ctx, KeyBaselineWindowDays, "fortnight", ""); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := svc.Load(ctx); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateMinBaselineBounds(t *testing.T) {
	s := Defaults()
	s.MinBaselineDays = 20
	if err := s.Validate(); err == nil {
		t.Fatal("expected error when min baseline exceeds window")
	}
}
