package forecast

import (
	"errors"
	"testing"
	"time"

	snapshotdomain "github.com/smallbiznis/snowgauge/internal/snapshot/domain"
)

func dailyTotals(totals ...float64) []snapshotdomain.DailyCostSnapshot {
	rows := make([]snapshotdomain.DailyCostSnapshot, 0, len(totals))
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range totals {
		rows = append(rows, snapshotdomain.DailyCostSnapshot{
			SnapshotDate: base.AddDate(0, 0, i),
			TotalCredits: v,
		})
	}
	return rows
}

func TestMonthEndFlatRunRate(t *testing.T) {
	f, err := MonthEnd(dailyTotals(10, 10, 10), 27)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if f.Point != 300 {
		t.Fatalf("point = %v, want 300", f.Point)
	}
	if f.StdDaily != 0 || f.Low != 300 || f.High != 300 {
		t.Fatalf("flat history should have zero spread: %+v", f)
	}
}

func TestMonthEndBounds(t *testing.T) {
	f, err := MonthEnd(dailyTotals(5, 10, 15), 10)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if f.AvgDaily != 10 {
		t.Fatalf("avg = %v, want 10", f.AvgDaily)
	}
	if f.Low >= f.Point || f.Point >= f.High {
		t.Fatalf("bounds do not bracket point: %+v", f)
	}
	if f.Point != 30+100 {
		t.Fatalf("point = %v, want 130", f.Point)
	}
}

func TestMonthEndInsufficientData(t *testing.T) {
	_, err := MonthEnd(dailyTotals(10, 10), 28)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestMonthEndLastDayOfMonth(t *testing.T) {
	f, err := MonthEnd(dailyTotals(10, 10, 10), 0)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if f.Point != 30 {
		t.Fatalf("point = %v, want 30 with no days remaining", f.Point)
	}
}

func TestBudgetExhaustionTiers(t *testing.T) {
	cases := []struct {
		name   string
		budget float64
		want   Risk
	}{
		{"under a week", 90, RiskCritical},    // (90-30)/10 = 6 days
		{"under a month", 230, RiskHigh},      // 20 days
		{"under two months", 430, RiskMedium}, // 40 days
		{"comfortable", 1030, RiskLow},        // 100 days
	}
	f, err := MonthEnd(dailyTotals(10, 10, 10), 27)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	asOf := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	for _, tc := range cases {
		got := BudgetExhaustion(f, tc.budget, asOf)
		if !got.Exhausts || got.Risk != tc.want {
			t.Fatalf("%s: got %+v, want risk %s", tc.name, got, tc.want)
		}
	}
}

func TestBudgetExhaustionDate(t *testing.T) {
	f, _ := MonthEnd(dailyTotals(10, 10, 10), 27)
	asOf := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	got := BudgetExhaustion(f, 90, asOf) // 60 remaining at 10/day = 6 days
	if got.DaysUntilEmpty != 6 {
		t.Fatalf("days until empty = %v, want 6", got.DaysUntilEmpty)
	}
	want := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	if !got.ExhaustDate.Equal(want) {
		t.Fatalf("exhaust date = %v, want %v", got.ExhaustDate, want)
	}
	if got.PercentUsed < 33.3 || got.PercentUsed > 33.4 {
		t.Fatalf("percent used = %v, want ~33.3", got.PercentUsed)
	}
}

func TestBudgetAlreadyExhausted(t *testing.T) {
	f, _ := MonthEnd(dailyTotals(10, 10, 10), 27)
	got := BudgetExhaustion(f, 25, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))
	if got.Risk != RiskCritical || got.DaysUntilEmpty != 0 {
		t.Fatalf("spent budget should be critical now: %+v", got)
	}
}

func TestBudgetZeroRunRate(t *testing.T) {
	f, _ := MonthEnd(dailyTotals(0, 0, 0), 27)
	got := BudgetExhaustion(f, 100, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))
	if got.Exhausts {
		t.Fatalf("zero run rate never exhausts: %+v", got)
	}
}

func TestClassifyTrend(t *testing.T) {
	if got := Classify(dailyTotals(10, 10, 10, 10, 20, 30)); got != TrendIncreasing {
		t.Fatalf("rising series = %s, want increasing", got)
	}
	if got := Classify(dailyTotals(30, 30, 30, 30, 10, 5)); got != TrendDecreasing {
		t.Fatalf("falling series = %s, want decreasing", got)
	}
	if got := Classify(dailyTotals(10, 11, 10, 11, 10, 11)); got != TrendStable {
		t.Fatalf("flat series = %s, want stable", got)
	}
	if got := Classify(dailyTotals(10, 100)); got != TrendStable {
		t.Fatalf("short series = %s, want stable", got)
	}
}

func TestDaysRemainingInMonth(t *testing.T) {
	if got := DaysRemainingInMonth(time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)); got != 27 {
		t.Fatalf("june 3 = %d days remaining, want 27", got)
	}
	if got := DaysRemainingInMonth(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)); got != 0 {
		t.Fatalf("june 30 = %d days remaining, want 0", got)
	}
}
