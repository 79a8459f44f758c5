package domain

import (
	"context"
	"errors"
)

// Source is the read-only usage-history interface the extractor consumes.
// Implementations must return facts ordered by timestamp ascending and
// deduplicated by QueryID. An empty result for a window is valid, not an
// error; unreachable or still-materializing sources return
// ErrSourceUnavailable so the caller can retry the date later.
type Source interface {
	Facts(ctx context.Context, w Window, warehouse string) ([]UsageFact, error)
	Metering(ctx context.Context, w Window, warehouse string) ([]MeteringInterval, error)
	Storage(ctx context.Context, w Window) ([]StorageUsage, error)
}

var ErrSourceUnavailable = errors.New("usage_source_unavailable")
