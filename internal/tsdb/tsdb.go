package tsdb

import (
	"context"
	"math"
	"time"

	"github.com/Noskcaj19/cat-gps/internal/telemetry"
)

// Query defaults. The HTTP layer reuses these when a request omits the
// corresponding parameter.
const (
	DefaultHours    = 24
	DefaultCellSize = 0.5
)

// HeatmapBin is one non-empty spatial grid cell in a heatmap result.
type HeatmapBin struct {
	GridX int `json:"grid_x"`
	GridY int `json:"grid_y"`
	Count int `json:"count"`
}

// HeatmapQuery describes a heatmap aggregation. The time window is either
// relative (Hours) or explicit (Start and End both set); an explicit window
// takes precedence. Zero values fall back to the defaults above.
type HeatmapQuery struct {
	Hours    int
	CellSize float64
	DeviceID string
	Start    time.Time
	End      time.Time
}

func (q HeatmapQuery) normalized() HeatmapQuery {
	if q.Hours <= 0 {
		q.Hours = DefaultHours
	}
	if q.CellSize <= 0 {
		q.CellSize = DefaultCellSize
	}
	return q
}

// explicitWindow reports whether both window endpoints are set.
func (q HeatmapQuery) explicitWindow() bool {
	return !q.Start.IsZero() && !q.End.IsZero()
}

// Bin maps a coordinate pair onto its heatmap grid cell.
func Bin(x, y, cellSize float64) (gridX, gridY int) {
	return int(math.Floor(x / cellSize)), int(math.Floor(y / cellSize))
}

// Store is the persistence sink capability set. Implementations must be safe
// for concurrent use: writes arrive from the sink writer goroutine while
// queries come from HTTP handlers.
type Store interface {
	// WritePosition persists one sample.
	WritePosition(ctx context.Context, sample telemetry.PositionSample) error

	// QueryPositions returns samples from the last given hours.
	QueryPositions(ctx context.Context, hours int) ([]telemetry.PositionSample, error)

	// QueryHeatmap buckets samples in the query window into grid cells and
	// counts them. Bins are ordered by grid_x, then grid_y.
	QueryHeatmap(ctx context.Context, query HeatmapQuery) ([]HeatmapBin, error)

	// Close releases the underlying connection.
	Close() error
}
