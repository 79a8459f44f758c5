package pipeline

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("pipeline",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(NewWorker),
)

func NewWorker(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go svc.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
