// Package ingest subscribes to the ESPresense companion MQTT topic and feeds
// decoded position samples into the dispatcher.
//
// Paho delivers messages on its own network goroutine; the message handler
// touches nothing shared except the dispatcher's thread-safe enqueue.
package ingest
