package account

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	usagedomain "github.com/smallbiznis/snowgauge/internal/usage/domain"
)

// Facts returns query-history facts for [w.Start, w.End), ordered by start
// time ascending and deduplicated by QUERY_ID. An optional warehouse filter
// narrows the result.
func (c *Client) Facts(ctx context.Context, w usagedomain.Window, warehouse string) ([]usagedomain.UsageFact, error) {
	query := `
        SELECT
            QUERY_ID,
            START_TIME,
            WAREHOUSE_NAME,
            USER_NAME,
            ROLE_NAME,
            CREDITS_USED_CLOUD_SERVICES,
            BYTES_SCANNED,
            TOTAL_ELAPSED_TIME,
            PERCENTAGE_SCANNED_FROM_CACHE,
            EXECUTION_STATUS
        FROM SNOWFLAKE.ACCOUNT_USAGE.QUERY_HISTORY
        WHERE START_TIME >= ? AND START_TIME < ?
          AND WAREHOUSE_NAME IS NOT NULL
          AND (? = '' OR WAREHOUSE_NAME = ?)
        ORDER BY START_TIME ASC, QUERY_ID ASC`

	var facts []usagedomain.UsageFact
	err := c.query(ctx, "query_history", query, func(rows *sql.Rows) error {
		// a retried attempt starts over
		facts = facts[:0]
		seen := make(map[string]struct{})
		for rows.Next() {
			var (
				queryID      string
				startTime    time.Time
				warehouseN   sql.NullString
				userName     sql.NullString
				roleName     sql.NullString
				credits      sql.NullFloat64
				bytesScanned sql.NullInt64
				elapsedMS    sql.NullInt64
				cachePct     sql.NullFloat64
				status       sql.NullString
			)
			if err := rows.Scan(
				&queryID,
				&startTime,
				&warehouseN,
				&userName,
				&roleName,
				&credits,
				&bytesScanned,
				&elapsedMS,
				&cachePct,
				&status,
			); err != nil {
				return fmt.Errorf("scan query history row: %w", err)
			}
			if _, dup := seen[queryID]; dup {
				continue
			}
			seen[queryID] = struct{}{}

			facts = append(facts, usagedomain.UsageFact{
				QueryID:      queryID,
				Timestamp:    startTime.UTC(),
				Warehouse:    warehouseN.String,
				User:         userName.String,
				Role:         roleName.String,
				Credits:      credits.Float64,
				BytesScanned: bytesScanned.Int64,
				ExecutionMS:  elapsedMS.Int64,
				CacheHit:     cachePct.Float64 > 0,
				Success:      status.String == "SUCCESS",
			})
		}
		return nil
	}, w.Start, w.End, warehouse, warehouse)
	if err != nil {
		return nil, err
	}
	return facts, nil
}

// Metering returns per-warehouse metering intervals overlapping the window.
func (c *Client) Metering(ctx context.Context, w usagedomain.Window, warehouse string) ([]usagedomain.MeteringInterval, error) {
	query := `
        SELECT
            WAREHOUSE_NAME,
            START_TIME,
            END_TIME,
            CREDITS_USED,
            CREDITS_USED_COMPUTE,
            CREDITS_USED_CLOUD_SERVICES
        FROM SNOWFLAKE.ACCOUNT_USAGE.WAREHOUSE_METERING_HISTORY
        WHERE START_TIME >= ? AND START_TIME < ?
          AND (? = '' OR WAREHOUSE_NAME = ?)
        ORDER BY START_TIME ASC`

	var intervals []usagedomain.MeteringInterval
	err := c.query(ctx, "warehouse_metering", query, func(rows *sql.Rows) error {
		intervals = intervals[:0]
		for rows.Next() {
			var (
				warehouseN sql.NullString
				start      time.Time
				end        time.Time
				credits    sql.NullFloat64
				compute    sql.NullFloat64
				cloud      sql.NullFloat64
			)
			if err := rows.Scan(&warehouseN, &start, &end, &credits, &compute, &cloud); err != nil {
				return fmt.Errorf("scan metering row: %w", err)
			}
			intervals = append(intervals, usagedomain.MeteringInterval{
				Warehouse:            warehouseN.String,
				Start:                start.UTC(),
				End:                  end.UTC(),
				Credits:              credits.Float64,
				ComputeCredits:       compute.Float64,
				CloudServicesCredits: cloud.Float64,
			})
		}
		return nil
	}, w.Start, w.End, warehouse, warehouse)
	if err != nil {
		return nil, err
	}
	return intervals, nil
}

// Storage returns account-level storage rows for dates inside the window.
func (c *Client) Storage(ctx context.Context, w usagedomain.Window) ([]usagedomain.StorageUsage, error) {
	query := `
        SELECT
            USAGE_DATE,
            STORAGE_BYTES,
            STAGE_BYTES,
            FAILSAFE_BYTES
        FROM SNOWFLAKE.ACCOUNT_USAGE.STORAGE_USAGE
        WHERE USAGE_DATE >= ? AND USAGE_DATE < ?
        ORDER BY USAGE_DATE ASC`

	var usages []usagedomain.StorageUsage
	err := c.query(ctx, "storage_usage", query, func(rows *sql.Rows) error {
		usages = usages[:0]
		for rows.Next() {
			var (
				date     time.Time
				storage  sql.NullFloat64
				stage    sql.NullFloat64
				failsafe sql.NullFloat64
			)
			if err := rows.Scan(&date, &storage, &stage, &failsafe); err != nil {
				return fmt.Errorf("scan storage row: %w", err)
			}
			usages = append(usages, usagedomain.StorageUsage{
				Date:          date.UTC(),
				StorageBytes:  storage.Float64,
				StageBytes:    stage.Float64,
				FailsafeBytes: failsafe.Float64,
			})
		}
		return nil
	}, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	return usages, nil
}
