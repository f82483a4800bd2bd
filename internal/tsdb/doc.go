// Package tsdb is the pluggable time-series sink for position samples.
//
// Store is the capability interface (write, range query, heatmap query,
// close). Variants: Noop (default when nothing is configured), Memory
// (single-process, used by tests and dev), Influx (InfluxDB 3 over SQL).
// The variant is selected once at startup; sink failures never reach the
// broadcast path.
package tsdb
