package pipeline

import (
	"os"
	"strconv"
	"time"
)

// Config controls the polling worker and the reprocessing window.
type Config struct {
	// RunInterval is how often the worker re-runs the lagged dates.
	RunInterval time.Duration
	// LagDays is how many days behind today to re-aggregate each run,
	// covering late-arriving usage history rows.
	LagDays int
	// Warehouse optionally restricts extraction to one warehouse.
	Warehouse string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		LagDays:     2,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.LagDays < 0 {
		c.LagDays = defaults.LagDays
	}
	return c
}

func ProvideConfig() Config {
	cfg := Config{
		Warehouse: os.Getenv("PIPELINE_WAREHOUSE"),
	}
	if v := os.Getenv("PIPELINE_RUN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RunInterval = d
		}
	}
	if v := os.Getenv("PIPELINE_LAG_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LagDays = n
		}
	}
	return cfg.withDefaults()
}
