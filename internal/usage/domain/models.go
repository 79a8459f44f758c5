// Package domain contains the raw usage facts read from the account's
// usage-history source. Facts are immutable; the engine never writes them.
package domain

import "time"

// UsageFact is one raw query-history record.
type UsageFact struct {
	QueryID      string
	Timestamp    time.Time
	Warehouse    string
	User         string
	Role         string
	Credits      float64
	BytesScanned int64
	ExecutionMS  int64
	CacheHit     bool
	Success      bool
}

// MeteringInterval is one per-warehouse metering row.
type MeteringInterval struct {
	Warehouse            string
	Start                time.Time
	End                  time.Time
	Credits              float64
	ComputeCredits       float64
	CloudServicesCredits float64
}

// StorageUsage is one per-day account-level storage row.
type StorageUsage struct {
	Date          time.Time
	StorageBytes  float64
	StageBytes    float64
	FailsafeBytes float64
}

// Window is a half-open date range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Day returns the window covering the UTC calendar date of t.
func Day(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
