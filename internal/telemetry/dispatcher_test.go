package telemetry

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_FIFO(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	const n = 100
	for i := 0; i < n; i++ {
		d.Enqueue(PositionSample{DeviceID: fmt.Sprintf("dev-%d", i)})
	}

	for i := 0; i < n; i++ {
		select {
		case sample := <-d.Out():
			assert.Equal(t, fmt.Sprintf("dev-%d", i), sample.DeviceID)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for sample %d", i)
		}
	}
}

func TestDispatcher_EnqueueNeverBlocks(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	// No consumer: every enqueue must still return promptly.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10_000; i++ {
			d.Enqueue(PositionSample{DeviceID: "cat1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked without a consumer")
	}
}

func TestDispatcher_ConcurrentProducers(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	const producers, perProducer = 8, 50
	for p := 0; p < producers; p++ {
		go func() {
			for i := 0; i < perProducer; i++ {
				d.Enqueue(PositionSample{DeviceID: "cat1"})
			}
		}()
	}

	received := 0
	timeout := time.After(2 * time.Second)
	for received < producers*perProducer {
		select {
		case <-d.Out():
			received++
		case <-timeout:
			t.Fatalf("received only %d samples", received)
		}
	}
}

func TestDispatcher_CloseClosesOut(t *testing.T) {
	d := NewDispatcher()
	d.Close()

	select {
	case _, ok := <-d.Out():
		assert.False(t, ok, "out channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("out channel not closed after Close")
	}

	// Close is idempotent, enqueue after close is a no-op.
	d.Close()
	d.Enqueue(PositionSample{DeviceID: "cat1"})
}

func TestDispatcher_OrderAcrossDevices(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	// Global FIFO: interleaved devices come out in exact enqueue order.
	want := []string{"a", "b", "a", "c", "b"}
	for _, id := range want {
		d.Enqueue(PositionSample{DeviceID: id})
	}

	var got []string
	for range want {
		select {
		case s := <-d.Out():
			got = append(got, s.DeviceID)
		case <-time.After(time.Second):
			t.Fatal("timed out")
		}
	}
	require.Equal(t, want, got)
}
