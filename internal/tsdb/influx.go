package tsdb

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/InfluxCommunity/influxdb3-go/influxdb3"
	"github.com/sony/gobreaker"

	"github.com/Noskcaj19/cat-gps/internal/metrics"
	"github.com/Noskcaj19/cat-gps/internal/telemetry"
)

const (
	measurement = "cat_position"

	breakerFailureThreshold = 5
	breakerOpenDuration     = 30 * time.Second
)

// InfluxConfig holds the connection parameters for the backed sink.
type InfluxConfig struct {
	Host     string
	Port     int
	Database string
	Token    string
}

// InfluxStore persists samples to InfluxDB 3 and runs SQL aggregation
// queries against it. All calls go through a circuit breaker so a hung or
// failing backend is isolated from the rest of the process.
type InfluxStore struct {
	client  *influxdb3.Client
	breaker *gobreaker.CircuitBreaker
}

// NewInfluxStore opens a client for the configured InfluxDB 3 instance.
func NewInfluxStore(cfg InfluxConfig) (*InfluxStore, error) {
	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:     fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		Token:    cfg.Token,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("create influx client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "tsdb",
		Timeout: breakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			metrics.SinkCircuitState.Set(float64(to))
			slog.Warn("tsdb circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	return &InfluxStore{client: client, breaker: breaker}, nil
}

func (s *InfluxStore) WritePosition(ctx context.Context, sample telemetry.PositionSample) error {
	line := lineProtocol(sample)
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.client.Write(ctx, []byte(line))
	})
	if err != nil {
		return fmt.Errorf("write position: %w", err)
	}
	return nil
}

func (s *InfluxStore) QueryPositions(ctx context.Context, hours int) ([]telemetry.PositionSample, error) {
	if hours <= 0 {
		hours = DefaultHours
	}
	query := fmt.Sprintf(
		"SELECT time, device_id, device_name, x, y FROM %s WHERE time >= now() - interval '%d hours'",
		measurement, hours,
	)

	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}

	samples := make([]telemetry.PositionSample, 0, len(rows))
	for _, row := range rows {
		samples = append(samples, telemetry.PositionSample{
			DeviceID:   asString(row["device_id"]),
			DeviceName: asString(row["device_name"]),
			X:          asFloat(row["x"]),
			Y:          asFloat(row["y"]),
			Timestamp:  asTime(row["time"]),
		})
	}
	return samples, nil
}

func (s *InfluxStore) QueryHeatmap(ctx context.Context, query HeatmapQuery) ([]HeatmapBin, error) {
	rows, err := s.query(ctx, buildHeatmapSQL(query))
	if err != nil {
		return nil, fmt.Errorf("query heatmap: %w", err)
	}

	bins := make([]HeatmapBin, 0, len(rows))
	for _, row := range rows {
		bins = append(bins, HeatmapBin{
			GridX: asInt(row["grid_x"]),
			GridY: asInt(row["grid_y"]),
			Count: asInt(row["count"]),
		})
	}
	return bins, nil
}

func (s *InfluxStore) Close() error {
	return s.client.Close()
}

// query runs a SQL statement through the circuit breaker and collects all
// result rows.
func (s *InfluxStore) query(ctx context.Context, sql string) ([]map[string]any, error) {
	result, err := s.breaker.Execute(func() (any, error) {
		iterator, err := s.client.Query(ctx, sql)
		if err != nil {
			return nil, err
		}
		var rows []map[string]any
		for iterator.Next() {
			rows = append(rows, iterator.Value())
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]map[string]any), nil
}

// buildHeatmapSQL renders the bucketing aggregation. Grid coordinates are
// computed server-side so only non-empty cells cross the wire; the ORDER BY
// keeps results reproducible.
func buildHeatmapSQL(query HeatmapQuery) string {
	q := query.normalized()

	cell := strconv.FormatFloat(q.CellSize, 'f', -1, 64)

	var timeFilter string
	if q.explicitWindow() {
		timeFilter = fmt.Sprintf(
			"time >= '%s' AND time <= '%s'",
			q.Start.UTC().Format(time.RFC3339Nano),
			q.End.UTC().Format(time.RFC3339Nano),
		)
	} else {
		timeFilter = fmt.Sprintf("time >= now() - interval '%d hours'", q.Hours)
	}

	deviceFilter := ""
	if q.DeviceID != "" {
		deviceFilter = fmt.Sprintf(" AND device_id = '%s'", escapeSQLString(q.DeviceID))
	}

	return fmt.Sprintf(
		"SELECT CAST(FLOOR(x / %[1]s) AS BIGINT) AS grid_x, "+
			"CAST(FLOOR(y / %[1]s) AS BIGINT) AS grid_y, "+
			"COUNT(*) AS count "+
			"FROM %[2]s WHERE %[3]s%[4]s "+
			"GROUP BY grid_x, grid_y ORDER BY grid_x, grid_y",
		cell, measurement, timeFilter, deviceFilter,
	)
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// lineProtocol renders one sample as an InfluxDB line protocol record with
// nanosecond precision.
func lineProtocol(sample telemetry.PositionSample) string {
	var b strings.Builder
	b.WriteString(measurement)
	b.WriteString(",device_id=")
	b.WriteString(escapeTagValue(sample.DeviceID))
	b.WriteString(",device_name=")
	b.WriteString(escapeTagValue(sample.DeviceName))
	b.WriteString(" x=")
	b.WriteString(strconv.FormatFloat(sample.X, 'f', -1, 64))
	b.WriteString(",y=")
	b.WriteString(strconv.FormatFloat(sample.Y, 'f', -1, 64))
	b.WriteString(" ")
	b.WriteString(strconv.FormatInt(sample.Timestamp.UnixNano(), 10))
	return b.String()
}

// escapeTagValue escapes the characters the line protocol reserves in tag
// values: commas, equals signs, and spaces.
func escapeTagValue(s string) string {
	r := strings.NewReplacer(",", `\,`, "=", `\=`, " ", `\ `)
	return r.Replace(s)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case float64:
		return int(n)
	case uint64:
		return int(n)
	}
	return 0
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case int64:
		// Arrow timestamps may surface as nanoseconds since epoch.
		return time.Unix(0, t).UTC()
	}
	return time.Time{}
}
