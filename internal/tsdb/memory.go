package tsdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Noskcaj19/cat-gps/internal/telemetry"
)

// MemoryStore keeps samples in process memory. Intended for development and
// tests; it implements the same window and bucketing semantics as the Influx
// variant, just client-side.
type MemoryStore struct {
	clock clockwork.Clock

	mu      sync.Mutex
	samples []telemetry.PositionSample
}

// NewMemoryStore creates an empty in-memory sink.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{clock: clock}
}

func (s *MemoryStore) WritePosition(_ context.Context, sample telemetry.PositionSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	return nil
}

func (s *MemoryStore) QueryPositions(_ context.Context, hours int) ([]telemetry.PositionSample, error) {
	if hours <= 0 {
		hours = DefaultHours
	}
	cutoff := s.clock.Now().Add(-time.Duration(hours) * time.Hour)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []telemetry.PositionSample
	for _, sample := range s.samples {
		if !sample.Timestamp.Before(cutoff) {
			out = append(out, sample)
		}
	}
	return out, nil
}

func (s *MemoryStore) QueryHeatmap(_ context.Context, query HeatmapQuery) ([]HeatmapBin, error) {
	q := query.normalized()

	start, end := q.Start, q.End
	if !q.explicitWindow() {
		end = s.clock.Now()
		start = end.Add(-time.Duration(q.Hours) * time.Hour)
	}

	type cell struct{ x, y int }
	counts := make(map[cell]int)

	s.mu.Lock()
	for _, sample := range s.samples {
		if q.DeviceID != "" && sample.DeviceID != q.DeviceID {
			continue
		}
		if sample.Timestamp.Before(start) || sample.Timestamp.After(end) {
			continue
		}
		gx, gy := Bin(sample.X, sample.Y, q.CellSize)
		counts[cell{gx, gy}]++
	}
	s.mu.Unlock()

	bins := make([]HeatmapBin, 0, len(counts))
	for c, n := range counts {
		bins = append(bins, HeatmapBin{GridX: c.x, GridY: c.y, Count: n})
	}
	sort.Slice(bins, func(i, j int) bool {
		if bins[i].GridX != bins[j].GridX {
			return bins[i].GridX < bins[j].GridX
		}
		return bins[i].GridY < bins[j].GridY
	})
	return bins, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
