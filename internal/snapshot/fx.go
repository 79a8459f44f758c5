package snapshot

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/snowgauge/internal/snapshot/repository"
)

var Module = fx.Module("snapshot",
	fx.Provide(
		repository.Provide,
		NewWriter,
	),
)
