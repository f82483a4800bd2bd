package telemetry

import "time"

// PositionSample is one timestamped position reading for a device.
// Immutable once constructed.
type PositionSample struct {
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Timestamp  time.Time `json:"timestamp"`
}
