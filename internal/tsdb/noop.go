package tsdb

import (
	"context"

	"github.com/Noskcaj19/cat-gps/internal/telemetry"
)

// NoopStore is the fallback sink used when no backend is configured.
// Writes succeed without effect, queries return empty results.
type NoopStore struct{}

func (NoopStore) WritePosition(context.Context, telemetry.PositionSample) error {
	return nil
}

func (NoopStore) QueryPositions(context.Context, int) ([]telemetry.PositionSample, error) {
	return nil, nil
}

func (NoopStore) QueryHeatmap(context.Context, HeatmapQuery) ([]HeatmapBin, error) {
	return nil, nil
}

func (NoopStore) Close() error {
	return nil
}
