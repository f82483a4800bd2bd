package server

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log/slog"

	"github.com/labstack/echo/v4"
)

// renderTemplate renders a template to a buffer first to prevent partial HTML
// from being sent if template execution fails.
func renderTemplate(c echo.Context, tmpl *template.Template, data interface{}) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		slog.Error("Template execution failed", "path", c.Request().URL.Path, "error", err)
		return c.String(500, "Failed to render page")
	}
	return c.HTMLBlob(200, buf.Bytes())
}

// roomView is the room shape handed to the map page script.
type roomView struct {
	Name   string       `json:"name"`
	Points [][2]float64 `json:"points"`
}

func (s *Server) handleMap(c echo.Context) error {
	var rooms []roomView
	minX, minY, maxX, maxY := 0.0, 0.0, 10.0, 10.0

	if len(s.topology.Floors) > 0 {
		for _, floor := range s.topology.Floors {
			for _, room := range floor.Rooms {
				view := roomView{Name: room.Name, Points: make([][2]float64, 0, len(room.Points))}
				for _, p := range room.Points {
					view.Points = append(view.Points, [2]float64{p.X, p.Y})
				}
				rooms = append(rooms, view)
			}
		}

		// The page renders the ground floor's bounding box.
		bounds := s.topology.Floors[0].Bounds
		minX, minY = bounds[0].X, bounds[0].Y
		maxX, maxY = bounds[1].X, bounds[1].Y
	}

	roomsJSON, err := json.Marshal(rooms)
	if err != nil {
		slog.Error("Failed to marshal rooms for map page", "error", err)
		return c.String(500, "Failed to render page")
	}
	if rooms == nil {
		roomsJSON = []byte("[]")
	}

	data := map[string]any{
		"Rooms": template.JS(roomsJSON), //nolint:gosec // marshaled server-side from trusted topology
		"MinX":  minX,
		"MinY":  minY,
		"MaxX":  maxX,
		"MaxY":  maxY,
	}
	return renderTemplate(c, s.mapTemplate, data)
}
