// Package aggregate turns one date's raw usage facts into snapshot
// candidates. Everything here is a pure function over its input, so a rerun
// for the same facts yields byte-identical rows; UpdatedAt stamps are the
// writer's job.
package aggregate

import (
	"sort"
	"time"

	snapshotdomain "github.com/smallbiznis/snowgauge/internal/snapshot/domain"
	usagedomain "github.com/smallbiznis/snowgauge/internal/usage/domain"
)

// DayRollup holds every candidate row derived from one date's facts.
type DayRollup struct {
	Date       time.Time
	Snapshot   snapshotdomain.DailyCostSnapshot
	Warehouses []snapshotdomain.WarehouseDailyMetric
	Users      []snapshotdomain.EntityDailyMetric
	Roles      []snapshotdomain.EntityDailyMetric
}

type entityAccum struct {
	credits   float64
	queries   int64
	failed    int64
	cacheHits int64
	execMSSum int64
	bytes     int64
}

func (a *entityAccum) add(f usagedomain.UsageFact) {
	a.credits += f.Credits
	a.queries++
	if !f.Success {
		a.failed++
	}
	if f.CacheHit {
		a.cacheHits++
	}
	a.execMSSum += f.ExecutionMS
	a.bytes += f.BytesScanned
}

func (a *entityAccum) cacheHitRatio() float64 {
	if a.queries == 0 {
		return 0
	}
	return float64(a.cacheHits) / float64(a.queries)
}

func (a *entityAccum) avgExecutionMS() float64 {
	if a.queries == 0 {
		return 0
	}
	return float64(a.execMSSum) / float64(a.queries)
}

// Aggregate groups one date's facts by warehouse, user and role and derives
// the account snapshot candidate. Credits per warehouse come from metering
// intervals; warehouses that metered without running queries still get a row.
func Aggregate(
	date time.Time,
	facts []usagedomain.UsageFact,
	metering []usagedomain.MeteringInterval,
	storage []usagedomain.StorageUsage,
) DayRollup {
	day := usagedomain.Day(date)

	byWarehouse := make(map[string]*entityAccum)
	byUser := make(map[string]*entityAccum)
	byRole := make(map[string]*entityAccum)
	for _, f := range facts {
		if !day.Contains(f.Timestamp) {
			continue
		}
		accumInto(byWarehouse, f.Warehouse, f)
		accumInto(byUser, f.User, f)
		accumInto(byRole, f.Role, f)
	}

	type meteringAccum struct {
		credits float64
		compute float64
		cloud   float64
	}
	metered := make(map[string]*meteringAccum)
	for _, m := range metering {
		if !day.Contains(m.Start) {
			continue
		}
		acc := metered[m.Warehouse]
		if acc == nil {
			acc = &meteringAccum{}
			metered[m.Warehouse] = acc
		}
		acc.credits += m.Credits
		acc.compute += m.ComputeCredits
		acc.cloud += m.CloudServicesCredits
	}

	names := make(map[string]struct{}, len(byWarehouse)+len(metered))
	for name := range byWarehouse {
		names[name] = struct{}{}
	}
	for name := range metered {
		names[name] = struct{}{}
	}

	rollup := DayRollup{Date: day.Start}
	for name := range names {
		queries := byWarehouse[name]
		if queries == nil {
			queries = &entityAccum{}
		}
		var credits, compute float64
		if m := metered[name]; m != nil {
			credits = m.credits
			compute = m.compute
			rollup.Snapshot.CloudServicesCredits += m.cloud
		}
		rollup.Warehouses = append(rollup.Warehouses, snapshotdomain.WarehouseDailyMetric{
			SnapshotDate:     day.Start,
			Warehouse:        name,
			CreditsUsed:      credits,
			ComputeCredits:   compute,
			QueryCount:       queries.queries,
			FailedQueryCount: queries.failed,
			AvgExecutionMS:   queries.avgExecutionMS(),
			CacheHitRatio:    queries.cacheHitRatio(),
			BytesScanned:     queries.bytes,
		})
		rollup.Snapshot.TotalCredits += credits
		rollup.Snapshot.ComputeCredits += compute
		rollup.Snapshot.QueryCount += queries.queries
		rollup.Snapshot.FailedQueryCount += queries.failed
	}
	sort.Slice(rollup.Warehouses, func(i, j int) bool {
		return rollup.Warehouses[i].Warehouse < rollup.Warehouses[j].Warehouse
	})

	for _, s := range storage {
		if day.Contains(s.Date) {
			rollup.Snapshot.StorageBytes += s.StorageBytes + s.StageBytes + s.FailsafeBytes
		}
	}

	rollup.Snapshot.SnapshotDate = day.Start
	rollup.Snapshot.WarehouseCount = len(rollup.Warehouses)

	rollup.Users = entityMetrics(day.Start, snapshotdomain.DimensionUser, byUser)
	rollup.Roles = entityMetrics(day.Start, snapshotdomain.DimensionRole, byRole)

	return rollup
}

func accumInto(m map[string]*entityAccum, key string, f usagedomain.UsageFact) {
	if key == "" {
		return
	}
	acc := m[key]
	if acc == nil {
		acc = &entityAccum{}
		m[key] = acc
	}
	acc.add(f)
}

func entityMetrics(date time.Time, dim snapshotdomain.Dimension, accums map[string]*entityAccum) []snapshotdomain.EntityDailyMetric {
	rows := make([]snapshotdomain.EntityDailyMetric, 0, len(accums))
	for name, acc := range accums {
		rows = append(rows, snapshotdomain.EntityDailyMetric{
			SnapshotDate:     date,
			Dimension:        dim,
			Entity:           name,
			CreditsUsed:      acc.credits,
			QueryCount:       acc.queries,
			FailedQueryCount: acc.failed,
			AvgExecutionMS:   acc.avgExecutionMS(),
			CacheHitRatio:    acc.cacheHitRatio(),
			BytesScanned:     acc.bytes,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Entity < rows[j].Entity })
	return rows
}
