package telemetry

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Noskcaj19/cat-gps/internal/metrics"
	"github.com/Noskcaj19/cat-gps/internal/topology"
)

// Rejection reasons reported on the decode metrics.
const (
	rejectBadPayload    = "bad_payload"
	rejectMissingCoords = "missing_coords"
	rejectBadTopic      = "bad_topic"
	rejectUnknownDevice = "unknown_device"
)

// attributesPayload is the subset of the ESPresense attributes message the
// decoder cares about. Extra fields are ignored; pointers distinguish a
// missing coordinate from a zero one.
type attributesPayload struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// Decoder parses raw bus messages into position samples.
type Decoder struct {
	registry *topology.Registry
}

// NewDecoder creates a decoder backed by the given device registry.
func NewDecoder(registry *topology.Registry) *Decoder {
	return &Decoder{registry: registry}
}

// Decode parses one topic/payload pair. It returns the sample and true on
// acceptance. Every rejection is silent: no error ever escapes the bus
// callback, invalid input simply yields no sample.
//
// The device id is the third topic segment, e.g.
// espresense/companion/cat1/attributes.
func (d *Decoder) Decode(topic string, payload []byte, now time.Time) (PositionSample, bool) {
	var attrs attributesPayload
	if err := json.Unmarshal(payload, &attrs); err != nil {
		metrics.SamplesRejectedTotal.WithLabelValues(rejectBadPayload).Inc()
		return PositionSample{}, false
	}

	if attrs.X == nil || attrs.Y == nil {
		metrics.SamplesRejectedTotal.WithLabelValues(rejectMissingCoords).Inc()
		return PositionSample{}, false
	}

	parts := strings.Split(topic, "/")
	if len(parts) < 4 {
		metrics.SamplesRejectedTotal.WithLabelValues(rejectBadTopic).Inc()
		return PositionSample{}, false
	}
	deviceID := parts[2]

	device, ok := d.registry.Lookup(deviceID)
	if !ok {
		metrics.SamplesRejectedTotal.WithLabelValues(rejectUnknownDevice).Inc()
		return PositionSample{}, false
	}

	metrics.SamplesDecodedTotal.Inc()
	return PositionSample{
		DeviceID:   deviceID,
		DeviceName: device.Name,
		X:          *attrs.X,
		Y:          *attrs.Y,
		Timestamp:  now,
	}, true
}
