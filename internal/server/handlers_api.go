package server

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "github.com/Noskcaj19/cat-gps/internal/errors"
	"github.com/Noskcaj19/cat-gps/internal/metrics"
	"github.com/Noskcaj19/cat-gps/internal/telemetry"
	"github.com/Noskcaj19/cat-gps/internal/tsdb"
)

// handlePositions returns raw position history from the sink. A sink failure
// degrades to an empty result rather than a 5xx: the live stream is the
// primary surface and history is best-effort.
func (s *Server) handlePositions(c echo.Context) error {
	hours, err := parseIntParam(c, "hours", tsdb.DefaultHours)
	if err != nil {
		return err
	}

	positions, err := s.store.QueryPositions(c.Request().Context(), hours)
	if err != nil {
		slog.Error("Position history query failed", "hours", hours, "error", err)
		positions = nil
	}
	if positions == nil {
		positions = []telemetry.PositionSample{}
	}

	return c.JSON(200, map[string]any{
		"positions": positions,
		"hours":     hours,
	})
}

func (s *Server) handleHeatmap(c echo.Context) error {
	query, err := parseHeatmapQuery(c)
	if err != nil {
		return err
	}

	start := time.Now()
	bins, err := s.store.QueryHeatmap(c.Request().Context(), query)
	metrics.HeatmapQueryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		slog.Error("Heatmap query failed", "error", err)
		bins = nil
	}
	if bins == nil {
		bins = []tsdb.HeatmapBin{}
	}

	return c.JSON(200, map[string]any{
		"bins":      bins,
		"cell_size": query.CellSize,
	})
}

func parseHeatmapQuery(c echo.Context) (tsdb.HeatmapQuery, error) {
	query := tsdb.HeatmapQuery{
		Hours:    tsdb.DefaultHours,
		CellSize: tsdb.DefaultCellSize,
		DeviceID: c.QueryParam("device_id"),
	}

	var err error
	if query.Hours, err = parseIntParam(c, "hours", tsdb.DefaultHours); err != nil {
		return tsdb.HeatmapQuery{}, err
	}

	if raw := c.QueryParam("cell_size"); raw != "" {
		size, err := strconv.ParseFloat(raw, 64)
		if err != nil || size <= 0 {
			return tsdb.HeatmapQuery{}, apperrors.ValidationError("cell_size must be a positive number").
				WithContext("cell_size", raw)
		}
		query.CellSize = size
	}

	startRaw, endRaw := c.QueryParam("start"), c.QueryParam("end")
	if (startRaw == "") != (endRaw == "") {
		return tsdb.HeatmapQuery{}, apperrors.ValidationError("start and end must be provided together")
	}
	if startRaw != "" {
		if query.Start, err = time.Parse(time.RFC3339, startRaw); err != nil {
			return tsdb.HeatmapQuery{}, apperrors.ValidationError("start must be RFC 3339").
				WithContext("start", startRaw)
		}
		if query.End, err = time.Parse(time.RFC3339, endRaw); err != nil {
			return tsdb.HeatmapQuery{}, apperrors.ValidationError("end must be RFC 3339").
				WithContext("end", endRaw)
		}
		if !query.End.After(query.Start) {
			return tsdb.HeatmapQuery{}, apperrors.ValidationError("end must be after start")
		}
	}

	return query, nil
}

func parseIntParam(c echo.Context, name string, defaultValue int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperrors.ValidationError(name + " must be a positive integer").
			WithContext(name, raw)
	}
	return n, nil
}
