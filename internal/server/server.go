package server

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Noskcaj19/cat-gps/internal/broadcast"
	"github.com/Noskcaj19/cat-gps/internal/config"
	apperrors "github.com/Noskcaj19/cat-gps/internal/errors"
	"github.com/Noskcaj19/cat-gps/internal/topology"
	"github.com/Noskcaj19/cat-gps/internal/tsdb"
)

// busChecker reports broker connectivity for the readiness probe.
type busChecker interface {
	Connected() bool
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	broadcaster *broadcast.Broadcaster
	store       tsdb.Store
	bus         busChecker
	topology    *topology.Topology
	mapTemplate *template.Template
	startTime   time.Time
}

func NewServer(cfg *config.Config, topo *topology.Topology, broadcaster *broadcast.Broadcaster, store tsdb.Store, bus busChecker, clock clockwork.Clock) (*Server, error) {
	mapTmpl, err := template.ParseFiles("web/templates/map.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse map template: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:        e,
		config:      cfg,
		broadcaster: broadcaster,
		store:       store,
		bus:         bus,
		topology:    topo,
		mapTemplate: mapTmpl,
		startTime:   clock.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
