// Package server provides the HTTP and WebSocket surface: the live map page,
// the viewer WebSocket endpoint, history and heatmap queries against the
// persistence sink, and the usual health/metrics/version endpoints.
package server
