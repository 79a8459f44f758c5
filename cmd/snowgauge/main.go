package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/snowgauge/internal/alert"
	"github.com/smallbiznis/snowgauge/internal/anomaly"
	"github.com/smallbiznis/snowgauge/internal/clock"
	"github.com/smallbiznis/snowgauge/internal/config"
	"github.com/smallbiznis/snowgauge/internal/logger"
	"github.com/smallbiznis/snowgauge/internal/migration"
	obsmetrics "github.com/smallbiznis/snowgauge/internal/observability/metrics"
	"github.com/smallbiznis/snowgauge/internal/pipeline"
	"github.com/smallbiznis/snowgauge/internal/settings"
	"github.com/smallbiznis/snowgauge/internal/snapshot"
	"github.com/smallbiznis/snowgauge/internal/usage/account"
	"github.com/smallbiznis/snowgauge/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		obsmetrics.Module,

		account.Module,
		snapshot.Module,
		alert.Module,
		settings.Module,
		anomaly.Module,
		pipeline.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
