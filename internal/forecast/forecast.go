// Package forecast projects month-end spend from month-to-date daily
// snapshots. All functions are pure; callers supply the history.
package forecast

import (
	"errors"
	"math"
	"time"

	snapshotdomain "github.com/smallbiznis/snowgauge/internal/snapshot/domain"
)

// ErrInsufficientData means too few observed days to project from.
var ErrInsufficientData = errors.New("forecast_insufficient_data")

// minObservedDays is the floor below which a run-rate projection is noise.
const minObservedDays = 3

type Risk string

const (
	RiskCritical Risk = "CRITICAL"
	RiskHigh     Risk = "HIGH"
	RiskMedium   Risk = "MEDIUM"
	RiskLow      Risk = "LOW"
)

// Forecast is a month-end spend projection in credits.
type Forecast struct {
	// Point is month-to-date spend plus the daily run rate carried
	// through the remaining days.
	Point float64
	// Low and High bracket the point by one daily standard deviation
	// over the remaining days.
	Low  float64
	High float64

	MonthToDate  float64
	AvgDaily     float64
	StdDaily     float64
	ObservedDays int
}

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Exhaustion describes when the monthly budget runs out at the current rate.
type Exhaustion struct {
	Risk           Risk
	DaysUntilEmpty float64
	// ExhaustDate is the projected empty date; zero when Exhausts is false.
	ExhaustDate time.Time
	PercentUsed float64
	BurnRate    float64
	// Exhausts is false when the remaining budget outlasts the horizon
	// or the run rate is zero.
	Exhausts bool
}

// MonthEnd projects the month-end total from the month-to-date snapshots.
func MonthEnd(snapshots []snapshotdomain.DailyCostSnapshot, daysRemaining int) (Forecast, error) {
	if len(snapshots) < minObservedDays {
		return Forecast{}, ErrInsufficientData
	}
	if daysRemaining < 0 {
		daysRemaining = 0
	}

	var total float64
	values := make([]float64, 0, len(snapshots))
	for _, s := range snapshots {
		total += s.TotalCredits
		values = append(values, s.TotalCredits)
	}
	avg := total / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - avg) * (v - avg)
	}
	std := math.Sqrt(sq / float64(len(values)))

	rest := float64(daysRemaining)
	f := Forecast{
		Point:        total + avg*rest,
		Low:          total + math.Max(avg-std, 0)*rest,
		High:         total + (avg+std)*rest,
		MonthToDate:  total,
		AvgDaily:     avg,
		StdDaily:     std,
		ObservedDays: len(values),
	}
	return f, nil
}

// BudgetExhaustion estimates how long the remaining monthly budget lasts at
// the forecast run rate, counting forward from asOf.
func BudgetExhaustion(f Forecast, monthlyBudget float64, asOf time.Time) Exhaustion {
	out := Exhaustion{BurnRate: f.AvgDaily}
	if monthlyBudget > 0 {
		out.PercentUsed = f.MonthToDate / monthlyBudget * 100
	}
	remaining := monthlyBudget - f.MonthToDate
	if remaining <= 0 {
		out.Risk = RiskCritical
		out.ExhaustDate = asOf.UTC().Truncate(24 * time.Hour)
		out.Exhausts = true
		return out
	}
	if f.AvgDaily <= 0 {
		out.Risk = RiskLow
		return out
	}
	days := remaining / f.AvgDaily
	out.Risk = riskTier(days)
	out.DaysUntilEmpty = days
	out.ExhaustDate = asOf.UTC().Truncate(24*time.Hour).AddDate(0, 0, int(math.Ceil(days)))
	out.Exhausts = true
	return out
}

// Classify reports the run-rate direction by comparing the mean of the most
// recent third of the series against the mean of the rest. Changes inside
// half a daily standard deviation read as stable.
func Classify(snapshots []snapshotdomain.DailyCostSnapshot) Trend {
	if len(snapshots) < minObservedDays {
		return TrendStable
	}
	split := len(snapshots) - len(snapshots)/3
	var headSum, tailSum float64
	for i, s := range snapshots {
		if i < split {
			headSum += s.TotalCredits
		} else {
			tailSum += s.TotalCredits
		}
	}
	head := headSum / float64(split)
	tail := tailSum / float64(len(snapshots)-split)

	var sq, mean float64
	for _, s := range snapshots {
		mean += s.TotalCredits
	}
	mean /= float64(len(snapshots))
	for _, s := range snapshots {
		sq += (s.TotalCredits - mean) * (s.TotalCredits - mean)
	}
	band := math.Sqrt(sq/float64(len(snapshots))) / 2

	switch {
	case tail > head+band:
		return TrendIncreasing
	case tail < head-band:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func riskTier(days float64) Risk {
	switch {
	case days < 7:
		return RiskCritical
	case days < 30:
		return RiskHigh
	case days < 60:
		return RiskMedium
	default:
		return RiskLow
	}
}

// DaysRemainingInMonth counts the days after t in t's UTC calendar month.
func DaysRemainingInMonth(t time.Time) int {
	t = t.UTC()
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return int(firstOfNext.Sub(t.Truncate(24*time.Hour)).Hours()/24) - 1
}
