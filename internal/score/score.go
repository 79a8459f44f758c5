// Package score grades daily warehouse efficiency on a 0-100 scale from the
// cache hit ratio, idle time share and query failure rate.
package score

import (
	"math"
	"time"

	usagedomain "github.com/smallbiznis/snowgauge/internal/usage/domain"
)

// Inputs are the three normalized signals, each expected in [0, 1]. Values
// outside the range are clamped rather than rejected.
type Inputs struct {
	CacheHitRatio float64
	IdleRatio     float64
	FailureRate   float64
}

// Weights controls the relative pull of each signal. Zero-value weights fall
// back to an even split; otherwise they are normalized to sum to one.
type Weights struct {
	Cache   float64
	Idle    float64
	Failure float64
}

// Score returns the weighted efficiency grade. Higher cache hits raise it;
// idle time and failures lower it.
func Score(in Inputs, w Weights) float64 {
	cache := clamp01(in.CacheHitRatio)
	idle := clamp01(in.IdleRatio)
	failure := clamp01(in.FailureRate)

	sum := w.Cache + w.Idle + w.Failure
	if sum <= 0 {
		w = Weights{Cache: 1, Idle: 1, Failure: 1}
		sum = 3
	}

	raw := (w.Cache*cache + w.Idle*(1-idle) + w.Failure*(1-failure)) / sum
	return math.Round(raw*100*100) / 100
}

// IdleRatio estimates the share of the day a warehouse sat idle, from the
// coverage of its metering intervals. Intervals are clipped to the window.
func IdleRatio(w usagedomain.Window, intervals []usagedomain.MeteringInterval) float64 {
	total := w.End.Sub(w.Start)
	if total <= 0 {
		return 0
	}
	var active time.Duration
	for _, m := range intervals {
		start, end := m.Start, m.End
		if start.Before(w.Start) {
			start = w.Start
		}
		if end.After(w.End) {
			end = w.End
		}
		if end.After(start) {
			active += end.Sub(start)
		}
	}
	if active >= total {
		return 0
	}
	return float64(total-active) / float64(total)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
