package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health", s.handleLiveness)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Root - redirect to the live map
	s.echo.GET("/", func(c echo.Context) error {
		return c.Redirect(302, "/map")
	})
	s.echo.GET("/map", s.handleMap)

	// History and heatmap queries against the persistence sink
	s.echo.GET("/api/positions", s.handlePositions)
	s.echo.GET("/api/heatmap", s.handleHeatmap)

	// Live position stream
	s.echo.GET("/ws/positions", s.handleWebSocket)
}
