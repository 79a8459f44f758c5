package alert

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/snowgauge/internal/alert/repository"
)

var Module = fx.Module("alert",
	fx.Provide(
		repository.Provide,
	),
)
