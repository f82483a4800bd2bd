package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/Noskcaj19/cat-gps/internal/metrics"
	"github.com/Noskcaj19/cat-gps/internal/telemetry"
	"github.com/Noskcaj19/cat-gps/internal/tsdb"
)

const (
	commandTimeout   = 5 * time.Second
	stopTimeout      = 10 * time.Second
	sinkQueueSize    = 256
	sinkWriteTimeout = 5 * time.Second
)

// ViewerUpdate is the wire shape delivered to every viewer, one per accepted
// sample, and replayed per device on subscribe.
type ViewerUpdate struct {
	DeviceID   string  `json:"device_id"`
	DeviceName string  `json:"device_name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// broadcasterCmd is the command interface for the Broadcaster actor.
type broadcasterCmd interface{ isBroadcasterCmd() }

type baseBroadcasterCmd struct{}

func (baseBroadcasterCmd) isBroadcasterCmd() {}

type registerCmd struct {
	baseBroadcasterCmd
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseBroadcasterCmd
	connection *websocket.Conn
}

type viewerCountCmd struct {
	baseBroadcasterCmd
	replyChannel chan int
}

type stopCmd struct {
	baseBroadcasterCmd
}

// Broadcaster consumes decoded position samples from the dispatcher and fans
// each one out to every connected viewer. It is the only goroutine that
// touches the position cache and the viewer set.
type Broadcaster struct {
	cmdCh         chan broadcasterCmd
	samples       <-chan telemetry.PositionSample
	clock         clockwork.Clock
	viewers       map[*websocket.Conn]*clientWriter
	lastPositions map[string]telemetry.PositionSample

	sink     tsdb.Store
	sinkCh   chan telemetry.PositionSample
	sinkDone chan struct{}

	done        chan struct{}
	stopTimeout time.Duration
}

// NewBroadcaster starts the fan-out actor.
// samples is the dispatcher output; the broadcaster is its sole consumer.
// sink receives every accepted sample on a best-effort basis.
func NewBroadcaster(samples <-chan telemetry.PositionSample, sink tsdb.Store, clock clockwork.Clock) *Broadcaster {
	b := &Broadcaster{
		cmdCh:         make(chan broadcasterCmd, 256),
		samples:       samples,
		clock:         clock,
		viewers:       make(map[*websocket.Conn]*clientWriter),
		lastPositions: make(map[string]telemetry.PositionSample),
		sink:          sink,
		sinkCh:        make(chan telemetry.PositionSample, sinkQueueSize),
		sinkDone:      make(chan struct{}),
		done:          make(chan struct{}),
		stopTimeout:   stopTimeout,
	}
	go b.run()
	go b.sinkLoop()
	return b
}

// Register adds a viewer. The current position cache is replayed to the
// viewer (latest sample per device, no cross-device ordering) before it joins
// the active set, so a new subscriber immediately sees everyone.
func (b *Broadcaster) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	b.cmdCh <- registerCmd{connection: conn, errorChannel: errCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a viewer. Safe to call for an already removed viewer.
func (b *Broadcaster) Unregister(conn *websocket.Conn) {
	b.cmdCh <- unregisterCmd{connection: conn}
}

// ViewerCount returns the number of connected viewers, or -1 on timeout.
func (b *Broadcaster) ViewerCount() int {
	replyCh := make(chan int, 1)
	b.cmdCh <- viewerCountCmd{replyChannel: replyCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ViewerCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the actor, closing all viewer connections and draining the
// sink queue. Blocks until the actor goroutine has exited or the stop timeout
// is reached.
func (b *Broadcaster) Stop() {
	b.cmdCh <- stopCmd{}

	timeout := b.clock.NewTimer(b.stopTimeout)
	defer timeout.Stop()

	select {
	case <-b.done:
		slog.Info("Broadcaster stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Broadcaster stop timeout exceeded, forcing exit", "timeout", b.stopTimeout)
		return
	}

	drain := b.clock.NewTimer(b.stopTimeout)
	defer drain.Stop()

	select {
	case <-b.sinkDone:
	case <-drain.Chan():
		slog.Warn("Sink writer did not drain before timeout")
	}
}

func (b *Broadcaster) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Broadcaster panic recovered", "panic", r)
			metrics.BroadcasterPanicsTotal.Inc()
			b.closeAllViewers("broadcaster panic")
			close(b.sinkCh)
			close(b.done)
		}
	}()

	for {
		select {
		case cmd := <-b.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				b.handleRegister(c)
			case unregisterCmd:
				b.removeViewer(c.connection)
			case viewerCountCmd:
				c.replyChannel <- len(b.viewers)
			case stopCmd:
				b.handleStop()
				return
			default:
				slog.Warn("Broadcaster received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		case sample, ok := <-b.samples:
			if !ok {
				// Dispatcher closed underneath us; keep serving commands
				// until Stop arrives.
				b.samples = nil
				continue
			}
			b.handleSample(sample)
		}
	}
}

// handleSample is one full broadcast pass: cache overwrite, fan-out over a
// snapshot of the viewer set, eviction of dead viewers, then a best-effort
// handoff to the sink writer.
func (b *Broadcaster) handleSample(sample telemetry.PositionSample) {
	b.lastPositions[sample.DeviceID] = sample

	data, err := json.Marshal(ViewerUpdate{
		DeviceID:   sample.DeviceID,
		DeviceName: sample.DeviceName,
		X:          sample.X,
		Y:          sample.Y,
	})
	if err != nil {
		slog.Error("Failed to marshal broadcast message", "error", err)
		return
	}

	var dead []*websocket.Conn
	for conn, writer := range b.viewers {
		if !writer.trySend(data) {
			dead = append(dead, conn)
		}
	}

	for _, conn := range dead {
		slog.Warn("Disconnecting slow viewer")
		metrics.SlowViewersEvicted.Inc()
		b.removeViewer(conn)
	}

	metrics.BroadcastsTotal.Inc()

	// Fire-and-forget persistence: a full queue means the sink is slow or
	// down, and the sample is dropped rather than stalling delivery.
	select {
	case b.sinkCh <- sample:
	default:
		metrics.SinkWriteDropsTotal.Inc()
	}
}

func (b *Broadcaster) handleRegister(c registerCmd) {
	// The buffer must hold the full cache replay on top of the steady-state
	// headroom, whatever the device count.
	writer := newClientWriter(c.connection, b.clock, messageBufferSize+len(b.lastPositions))

	// Replay the cache before the viewer joins the set; a viewer that cannot
	// even absorb the replay is treated as a failed delivery.
	for _, sample := range b.lastPositions {
		data, err := json.Marshal(ViewerUpdate{
			DeviceID:   sample.DeviceID,
			DeviceName: sample.DeviceName,
			X:          sample.X,
			Y:          sample.Y,
		})
		if err != nil {
			continue
		}
		if !writer.trySend(data) {
			writer.stop()
			c.errorChannel <- fmt.Errorf("viewer unable to absorb cache replay")
			return
		}
	}

	b.viewers[c.connection] = writer
	metrics.BroadcastViewers.Set(float64(len(b.viewers)))
	slog.Debug("Viewer registered", "total_viewers", len(b.viewers))
	c.errorChannel <- nil
}

// removeViewer is idempotent: both a failed broadcast delivery and the read
// pump noticing a disconnect funnel through here.
func (b *Broadcaster) removeViewer(conn *websocket.Conn) {
	writer, exists := b.viewers[conn]
	if !exists {
		return
	}

	writer.stop()
	delete(b.viewers, conn)
	metrics.BroadcastViewers.Set(float64(len(b.viewers)))
	slog.Debug("Viewer unregistered", "remaining_viewers", len(b.viewers))
}

func (b *Broadcaster) handleStop() {
	slog.Info("Broadcaster shutting down", "viewers", len(b.viewers))
	b.closeAllViewers("Server shutting down")
	close(b.sinkCh)
	close(b.done)
}

func (b *Broadcaster) closeAllViewers(reason string) {
	for conn, writer := range b.viewers {
		writer.stopGraceful(reason)
		delete(b.viewers, conn)
	}
	metrics.BroadcastViewers.Set(0)
}

// sinkLoop is the isolated persistence path. It drains the sink queue one
// write at a time; errors are logged and counted, never retried, and never
// reach the broadcast pass.
func (b *Broadcaster) sinkLoop() {
	defer close(b.sinkDone)

	for sample := range b.sinkCh {
		ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
		err := b.sink.WritePosition(ctx, sample)
		cancel()

		if err != nil {
			metrics.SinkWritesTotal.WithLabelValues("error").Inc()
			slog.Error("Failed to persist position", "device_id", sample.DeviceID, "error", err)
			continue
		}
		metrics.SinkWritesTotal.WithLabelValues("ok").Inc()
	}
}
