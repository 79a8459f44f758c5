// Package account reads usage history from the warehouse account's
// ACCOUNT_USAGE share over database/sql.
package account

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/smallbiznis/snowgauge/internal/config"
	obsmetrics "github.com/smallbiznis/snowgauge/internal/observability/metrics"
	usagedomain "github.com/smallbiznis/snowgauge/internal/usage/domain"
	_ "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	connectTimeout    = 30 * time.Second
	retryInitialDelay = time.Second
	retryMaxDelay     = 30 * time.Second
)

// Client implements usagedomain.Source against SNOWFLAKE.ACCOUNT_USAGE.
type Client struct {
	log     *zap.Logger
	cfg     config.SourceConfig
	db      *sql.DB
	limiter *rate.Limiter

	queryCount int64
	errorCount int64
	retryCount int64
}

func New(log *zap.Logger, cfg config.SourceConfig) (*Client, error) {
	if cfg.Account == "" || cfg.User == "" {
		return nil, fmt.Errorf("usage source account and user are required")
	}
	qps := cfg.RateLimitQPS
	if qps <= 0 {
		qps = 5
	}
	return &Client{
		log:     log.Named("usage.account"),
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(qps), qps),
	}, nil
}

func (c *Client) Close() error {
	if c.db != nil {
		c.log.Info("closing usage source connection",
			zap.Int64("total_queries", c.queryCount),
			zap.Int64("total_errors", c.errorCount),
			zap.Int64("total_retries", c.retryCount))
		return c.db.Close()
	}
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	if c.db != nil {
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	dsn := fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s&role=%s",
		c.cfg.User,
		c.cfg.Password,
		c.cfg.Account,
		c.cfg.Database,
		c.cfg.Schema,
		c.cfg.Warehouse,
		c.cfg.Role,
	)

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return fmt.Errorf("%w: open: %v", usagedomain.ErrSourceUnavailable, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(connectCtx); err != nil {
		db.Close()
		return fmt.Errorf("%w: ping: %v", usagedomain.ErrSourceUnavailable, err)
	}

	c.db = db
	c.log.Info("connected to usage source", zap.String("account", c.cfg.Account))
	return nil
}

// executeWithRetry runs fn with rate limiting and exponential backoff.
func (c *Client) executeWithRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	maxRetries := c.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		c.queryCount++
		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err
		c.errorCount++

		if attempt == maxRetries {
			break
		}

		delay := time.Duration(math.Pow(2, float64(attempt))) * retryInitialDelay
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}

		c.retryCount++
		obsmetrics.Pipeline().IncExtractionRetry()
		c.log.Warn("retrying usage source operation",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%w: %s: %v", usagedomain.ErrSourceUnavailable, operation, lastErr)
}

// query runs the statement and feeds the result set to scan while the
// query context is still alive. database/sql closes a cursor as soon as
// its context ends, so the rows must be consumed here, not by the caller.
func (c *Client) query(ctx context.Context, operation, query string, scan func(*sql.Rows) error, args ...any) error {
	if err := c.connect(ctx); err != nil {
		return err
	}

	return c.executeWithRetry(ctx, operation, func(ctx context.Context) error {
		timeout := c.cfg.QueryTimeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		queryCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		rows, err := c.db.QueryContext(queryCtx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		if err := scan(rows); err != nil {
			return err
		}
		return rows.Err()
	})
}
