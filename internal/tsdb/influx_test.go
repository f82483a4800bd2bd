package tsdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Noskcaj19/cat-gps/internal/telemetry"
)

func TestBuildHeatmapSQL_Defaults(t *testing.T) {
	sql := buildHeatmapSQL(HeatmapQuery{})

	assert.Contains(t, sql, "FLOOR(x / 0.5)")
	assert.Contains(t, sql, "FLOOR(y / 0.5)")
	assert.Contains(t, sql, "now() - interval '24 hours'")
	assert.Contains(t, sql, "ORDER BY grid_x, grid_y")
	assert.NotContains(t, sql, "device_id =")
}

func TestBuildHeatmapSQL_DeviceFilter(t *testing.T) {
	sql := buildHeatmapSQL(HeatmapQuery{DeviceID: "cat1"})
	assert.Contains(t, sql, "AND device_id = 'cat1'")
}

func TestBuildHeatmapSQL_EscapesDeviceID(t *testing.T) {
	sql := buildHeatmapSQL(HeatmapQuery{DeviceID: "o'malley"})
	assert.Contains(t, sql, "device_id = 'o''malley'")
}

func TestBuildHeatmapSQL_ExplicitWindowWins(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	sql := buildHeatmapSQL(HeatmapQuery{Hours: 6, Start: start, End: end})

	assert.Contains(t, sql, "time >= '2025-06-01T00:00:00Z'")
	assert.Contains(t, sql, "time <= '2025-06-02T00:00:00Z'")
	assert.NotContains(t, sql, "interval")
}

func TestBuildHeatmapSQL_StartAloneIsIgnored(t *testing.T) {
	sql := buildHeatmapSQL(HeatmapQuery{Start: time.Now()})
	assert.Contains(t, sql, "now() - interval '24 hours'")
}

func TestBuildHeatmapSQL_CellSize(t *testing.T) {
	sql := buildHeatmapSQL(HeatmapQuery{CellSize: 1.25})
	assert.Contains(t, sql, "FLOOR(x / 1.25)")
}

func TestLineProtocol(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 42, time.UTC)
	sample := telemetry.PositionSample{
		DeviceID:   "cat1",
		DeviceName: "Mittens",
		X:          2.5,
		Y:          3,
		Timestamp:  ts,
	}

	line := lineProtocol(sample)
	assert.Equal(t, "cat_position,device_id=cat1,device_name=Mittens x=2.5,y=3 "+
		"1748779200000000042", line)
}

func TestLineProtocol_EscapesTagValues(t *testing.T) {
	sample := telemetry.PositionSample{
		DeviceID:   "cat 1",
		DeviceName: "Sir, Pounce=alot",
		Timestamp:  time.Unix(0, 0),
	}

	line := lineProtocol(sample)
	assert.Contains(t, line, `device_id=cat\ 1`)
	assert.Contains(t, line, `device_name=Sir\,\ Pounce\=alot`)
}

func TestRowCoercions(t *testing.T) {
	assert.Equal(t, 5, asInt(int64(5)))
	assert.Equal(t, 5, asInt(int32(5)))
	assert.Equal(t, 5, asInt(float64(5)))
	assert.Equal(t, 0, asInt("5"))

	assert.Equal(t, 2.5, asFloat(2.5))
	assert.Equal(t, 2.0, asFloat(int64(2)))
	assert.Equal(t, 0.0, asFloat(nil))

	assert.Equal(t, "cat1", asString("cat1"))
	assert.Equal(t, "", asString(nil))

	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, ts, asTime(ts))
	assert.Equal(t, ts, asTime(ts.UnixNano()))
	assert.True(t, asTime(nil).IsZero())
}
