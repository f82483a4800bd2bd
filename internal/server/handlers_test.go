package server

import (
	"context"
	"errors"
	"html/template"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/require"

	"github.com/Noskcaj19/cat-gps/internal/broadcast"
	"github.com/Noskcaj19/cat-gps/internal/config"
	apperrors "github.com/Noskcaj19/cat-gps/internal/errors"
	"github.com/Noskcaj19/cat-gps/internal/telemetry"
	"github.com/Noskcaj19/cat-gps/internal/topology"
	"github.com/Noskcaj19/cat-gps/internal/tsdb"
)

// fakeBus is a stand-in broker connection for readiness tests.
type fakeBus struct {
	connected bool
}

func (f *fakeBus) Connected() bool { return f.connected }

// failingStore errors on every operation, simulating a down sink.
type failingStore struct{}

func (failingStore) WritePosition(context.Context, telemetry.PositionSample) error {
	return errors.New("sink unavailable")
}

func (failingStore) QueryPositions(context.Context, int) ([]telemetry.PositionSample, error) {
	return nil, errors.New("sink unavailable")
}

func (failingStore) QueryHeatmap(context.Context, tsdb.HeatmapQuery) ([]tsdb.HeatmapBin, error) {
	return nil, errors.New("sink unavailable")
}

func (failingStore) Close() error { return nil }

func tsdbNoop() tsdb.Store { return tsdb.NoopStore{} }

// waitForWrites blocks until the sink writer has persisted n samples. The
// broadcaster hands samples to the sink asynchronously, so tests must wait.
func waitForWrites(t *testing.T, store *tsdb.MemoryStore, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		positions, err := store.QueryPositions(context.Background(), tsdb.DefaultHours)
		return err == nil && len(positions) >= n
	}, time.Second, 5*time.Millisecond, "sink never received %d writes", n)
}

type serverOption func(*Server)

func withBus(bus busChecker) serverOption {
	return func(s *Server) { s.bus = bus }
}

// newTestServer wires a server around a live dispatcher and broadcaster,
// with an inline map template so tests don't depend on web/templates.
func newTestServer(t *testing.T, store tsdb.Store, opts ...serverOption) (*Server, *telemetry.Dispatcher) {
	t.Helper()

	dispatcher := telemetry.NewDispatcher()
	broadcaster := broadcast.NewBroadcaster(dispatcher.Out(), store, clockwork.NewRealClock())
	t.Cleanup(func() {
		broadcaster.Stop()
		dispatcher.Close()
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomiddleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:        e,
		config:      &config.Config{Port: "8080"},
		broadcaster: broadcaster,
		store:       store,
		topology: &topology.Topology{
			Devices: []topology.Device{{ID: "cat1", Name: "Mittens"}},
			Floors: []topology.Floor{{
				ID:     "ground",
				Name:   "Ground Floor",
				Bounds: []topology.Point3D{{X: 0, Y: 0, Z: 0}, {X: 12, Y: 9, Z: 2.5}},
				Rooms: []topology.Room{{
					Name:   "Kitchen",
					Points: []topology.Point2D{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 3}, {X: 0, Y: 3}},
				}},
			}},
		},
		mapTemplate: template.Must(template.New("map").Parse(
			`<html><script>const rooms = {{.Rooms}}; const bounds = {minX: {{.MinX}}, maxX: {{.MaxX}}};</script></html>`)),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.registerRoutes()

	return srv, dispatcher
}
