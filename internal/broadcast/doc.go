// Package broadcast implements the position fan-out loop using the actor
// pattern.
//
// The Broadcaster is the single consumer of the telemetry dispatcher. It owns
// the last-known-position cache and the viewer set; register/unregister/stop
// arrive over a command channel, so no mutexes are needed. Per-connection
// write goroutines isolate slow clients, and sink writes go through a bounded
// queue on a separate goroutine so persistence can never stall delivery.
package broadcast
