// Package metrics defines the Prometheus collectors for the telemetry
// pipeline. All collectors are registered via promauto on the default
// registry and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest metrics
var (
	// SamplesDecodedTotal counts accepted telemetry samples.
	SamplesDecodedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_samples_decoded_total",
			Help: "Total bus messages decoded into position samples",
		},
	)

	// SamplesRejectedTotal counts rejected bus messages by reason.
	SamplesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_samples_rejected_total",
			Help: "Total bus messages rejected by the decoder, by reason",
		},
		[]string{"reason"},
	)

	// DispatcherQueueDepth tracks the current dispatcher backlog.
	DispatcherQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "telemetry_dispatcher_queue_depth",
			Help: "Current number of samples waiting in the dispatcher",
		},
	)
)

// Broadcast metrics
var (
	// BroadcastViewers tracks currently connected WebSocket viewers.
	BroadcastViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_connected_viewers",
			Help: "Number of currently connected WebSocket viewers",
		},
	)

	// BroadcastsTotal counts samples fanned out to viewers.
	BroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_samples_total",
			Help: "Total position samples fanned out to viewers",
		},
	)

	// SlowViewersEvicted counts viewers dropped because their send buffer
	// filled or a delivery failed.
	SlowViewersEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_slow_viewers_evicted_total",
			Help: "Total viewers evicted due to failed or stalled delivery",
		},
	)

	// BroadcasterPanicsTotal tracks broadcaster panic recoveries.
	BroadcasterPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_panics_total",
			Help: "Total broadcaster panic recoveries",
		},
	)
)

// Persistence metrics
var (
	// SinkWritesTotal counts sink writes by status.
	SinkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsdb_writes_total",
			Help: "Total time-series writes by status",
		},
		[]string{"status"},
	)

	// SinkWriteDropsTotal counts samples dropped because the sink write
	// queue was full.
	SinkWriteDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tsdb_write_drops_total",
			Help: "Total samples dropped because the sink write queue was full",
		},
	)

	// SinkCircuitState reports the sink circuit breaker state
	// (0=closed, 1=half-open, 2=open).
	SinkCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsdb_circuit_breaker_state",
			Help: "Sink circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// HeatmapQueryDuration tracks heatmap query latency in seconds.
	HeatmapQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tsdb_heatmap_query_duration_seconds",
			Help:    "Heatmap query duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
)
