package server

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Noskcaj19/cat-gps/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

// handleReadiness reports readiness based on broker connectivity. The
// persistence sink is deliberately excluded: the service degrades to
// live-only operation when the sink is down.
func (s *Server) handleReadiness(c echo.Context) error {
	if s.bus != nil && !s.bus.Connected() {
		return c.JSON(503, map[string]any{
			"status":       "unhealthy",
			"failed_check": "mqtt",
		})
	}
	return c.JSON(200, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}
