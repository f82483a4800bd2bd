// Package telemetry turns raw MQTT bus messages into position samples and
// hands them across goroutines.
//
// The Decoder rejects anything malformed or unknown without ever failing the
// bus callback. The Dispatcher is the single cross-goroutine handoff between
// the MQTT delivery goroutine and the broadcast actor: unbounded FIFO,
// non-blocking enqueue, one consumer.
package telemetry
