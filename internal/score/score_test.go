package score

import (
	"testing"
	"time"

	usagedomain "github.com/smallbiznis/snowgauge/internal/usage/domain"
)

func TestScoreExtremes(t *testing.T) {
	best := Score(Inputs{CacheHitRatio: 1, IdleRatio: 0, FailureRate: 0}, Weights{})
	if best != 100 {
		t.Fatalf("perfect inputs = %v, want 100", best)
	}
	worst := Score(Inputs{CacheHitRatio: 0, IdleRatio: 1, FailureRate: 1}, Weights{})
	if worst != 0 {
		t.Fatalf("worst inputs = %v, want 0", worst)
	}
}

func TestScoreMonotonic(t *testing.T) {
	base := Inputs{CacheHitRatio: 0.5, IdleRatio: 0.5, FailureRate: 0.5}
	mid := Score(base, Weights{})

	better := base
	better.CacheHitRatio = 0.8
	if Score(better, Weights{}) <= mid {
		t.Fatal("higher cache hit ratio should raise the score")
	}

	worse := base
	worse.IdleRatio = 0.9
	if Score(worse, Weights{}) >= mid {
		t.Fatal("more idle time should lower the score")
	}

	worse = base
	worse.FailureRate = 0.9
	if Score(worse, Weights{}) >= mid {
		t.Fatal("more failures should lower the score")
	}
}

func TestScoreClampsInputs(t *testing.T) {
	got := Score(Inputs{CacheHitRatio: 1.7, IdleRatio: -2, FailureRate: -1}, Weights{})
	if got != 100 {
		t.Fatalf("clamped inputs = %v, want 100", got)
	}
}

func TestScoreNormalizesWeights(t *testing.T) {
	in := Inputs{CacheHitRatio: 1, IdleRatio: 1, FailureRate: 1}
	// weight only the cache signal: score is 100 regardless of the rest
	if got := Score(in, Weights{Cache: 5}); got != 100 {
		t.Fatalf("cache-only weighting = %v, want 100", got)
	}
	if got := Score(in, Weights{Failure: 2}); got != 0 {
		t.Fatalf("failure-only weighting = %v, want 0", got)
	}
}

func TestIdleRatio(t *testing.T) {
	day := usagedomain.Day(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))

	if got := IdleRatio(day, nil); got != 1 {
		t.Fatalf("no metering = %v idle, want 1", got)
	}

	six := []usagedomain.MeteringInterval{
		{Start: day.Start, End: day.Start.Add(6 * time.Hour)},
	}
	if got := IdleRatio(day, six); got != 0.75 {
		t.Fatalf("6h active = %v idle, want 0.75", got)
	}

	overlapping := []usagedomain.MeteringInterval{
		{Start: day.Start.Add(-2 * time.Hour), End: day.Start.Add(12 * time.Hour)},
		{Start: day.Start.Add(12 * time.Hour), End: day.End.Add(3 * time.Hour)},
	}
	if got := IdleRatio(day, overlapping); got != 0 {
		t.Fatalf("full coverage = %v idle, want 0", got)
	}
}
