package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noskcaj19/cat-gps/internal/broadcast"
	"github.com/Noskcaj19/cat-gps/internal/telemetry"
)

func dialViewer(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/positions"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) broadcast.ViewerUpdate {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var update broadcast.ViewerUpdate
	require.NoError(t, conn.ReadJSON(&update))
	return update
}

func TestWebSocket_ViewerReceivesLivePositions(t *testing.T) {
	srv, dispatcher := newTestServer(t, tsdbNoop())
	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	conn := dialViewer(t, ts)

	dispatcher.Enqueue(telemetry.PositionSample{
		DeviceID: "cat1", DeviceName: "Mittens", X: 2.5, Y: 3.0,
	})

	update := readUpdate(t, conn)
	assert.Equal(t, broadcast.ViewerUpdate{
		DeviceID: "cat1", DeviceName: "Mittens", X: 2.5, Y: 3.0,
	}, update)
}

func TestWebSocket_NewViewerGetsCacheReplay(t *testing.T) {
	srv, dispatcher := newTestServer(t, tsdbNoop())
	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	// A first viewer confirms the sample has been processed before the
	// second viewer connects.
	first := dialViewer(t, ts)
	dispatcher.Enqueue(telemetry.PositionSample{
		DeviceID: "cat2", DeviceName: "Whiskers", X: 1.0, Y: 4.0,
	})
	readUpdate(t, first)

	late := dialViewer(t, ts)
	update := readUpdate(t, late)
	assert.Equal(t, "cat2", update.DeviceID)
	assert.Equal(t, "Whiskers", update.DeviceName)
}

func TestWebSocket_FanOutReachesAllViewers(t *testing.T) {
	srv, dispatcher := newTestServer(t, tsdbNoop())
	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	conns := []*websocket.Conn{dialViewer(t, ts), dialViewer(t, ts), dialViewer(t, ts)}

	dispatcher.Enqueue(telemetry.PositionSample{
		DeviceID: "cat1", DeviceName: "Mittens", X: 0.5, Y: 0.5,
	})

	for _, conn := range conns {
		update := readUpdate(t, conn)
		assert.Equal(t, "cat1", update.DeviceID)
	}
}

func TestWebSocket_DisconnectedViewerIsForgotten(t *testing.T) {
	srv, dispatcher := newTestServer(t, tsdbNoop())
	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	gone := dialViewer(t, ts)
	survivor := dialViewer(t, ts)
	gone.Close()

	// Delivery still reaches the remaining viewer.
	dispatcher.Enqueue(telemetry.PositionSample{
		DeviceID: "cat1", DeviceName: "Mittens", X: 1.5, Y: 1.5,
	})
	update := readUpdate(t, survivor)
	assert.Equal(t, "cat1", update.DeviceID)

	require.Eventually(t, func() bool {
		return srv.broadcaster.ViewerCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
