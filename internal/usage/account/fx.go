package account

import (
	"context"

	"github.com/smallbiznis/snowgauge/internal/config"
	usagedomain "github.com/smallbiznis/snowgauge/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Provide(log *zap.Logger, cfg config.Config) (usagedomain.Source, error) {
	return New(log, cfg.Source)
}

func registerHooks(lc fx.Lifecycle, src usagedomain.Source) {
	client, ok := src.(*Client)
	if !ok {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			return client.Close()
		},
	})
}

// Module wires the ACCOUNT_USAGE client as the usage source.
var Module = fx.Module("usage.account",
	fx.Provide(Provide),
	fx.Invoke(registerHooks),
)
