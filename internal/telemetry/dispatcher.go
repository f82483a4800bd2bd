package telemetry

import (
	"sync"

	"github.com/Noskcaj19/cat-gps/internal/metrics"
)

// Dispatcher is the thread-safe handoff between the MQTT delivery goroutine
// and the broadcast actor. Enqueue never blocks the producer; a single pump
// goroutine forwards queued samples to Out in exact enqueue order.
//
// Back-pressure is intentionally not modeled: the queue grows without bound,
// matching the at-most-one-producer telemetry rates this serves.
type Dispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []PositionSample
	closed bool

	out  chan PositionSample
	done chan struct{}
}

// NewDispatcher creates a dispatcher and starts its pump goroutine.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		out:  make(chan PositionSample),
		done: make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	go d.pump()
	return d
}

// Enqueue appends a sample to the queue. Safe to call from any goroutine,
// returns immediately. Samples enqueued after Close are dropped.
func (d *Dispatcher) Enqueue(sample PositionSample) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, sample)
	metrics.DispatcherQueueDepth.Set(float64(len(d.queue)))
	d.cond.Signal()
	d.mu.Unlock()
}

// Out is the single-consumer delivery channel. It is closed once the
// dispatcher is closed and the remaining queue has been handed over or
// abandoned.
func (d *Dispatcher) Out() <-chan PositionSample {
	return d.out
}

// Close stops the pump. Queued but undelivered samples are dropped; the Out
// channel is closed so the consumer can observe shutdown.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.done)
	d.cond.Signal()
	d.mu.Unlock()
}

func (d *Dispatcher) pump() {
	defer close(d.out)

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if d.closed {
			d.mu.Unlock()
			return
		}
		sample := d.queue[0]
		d.queue = d.queue[1:]
		metrics.DispatcherQueueDepth.Set(float64(len(d.queue)))
		d.mu.Unlock()

		select {
		case d.out <- sample:
		case <-d.done:
			return
		}
	}
}
