package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Noskcaj19/cat-gps/internal/broadcast"
	"github.com/Noskcaj19/cat-gps/internal/config"
	"github.com/Noskcaj19/cat-gps/internal/ingest"
	"github.com/Noskcaj19/cat-gps/internal/logging"
	"github.com/Noskcaj19/cat-gps/internal/server"
	"github.com/Noskcaj19/cat-gps/internal/telemetry"
	"github.com/Noskcaj19/cat-gps/internal/topology"
	"github.com/Noskcaj19/cat-gps/internal/tsdb"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupTopology(cfg *config.Config) *topology.Topology {
	topo, err := topology.Load(cfg.TopologyPath)
	if err != nil {
		slog.Error("Failed to load topology", "path", cfg.TopologyPath, "error", err)
		os.Exit(1)
	}
	return topo
}

func setupSink(cfg *config.Config, clock clockwork.Clock) tsdb.Store {
	sink, err := tsdb.New(tsdb.Config{
		Type:     cfg.TSDBType,
		Host:     cfg.TSDBHost,
		Port:     cfg.TSDBPort,
		Database: cfg.TSDBDatabase,
		Token:    cfg.TSDBToken,
	}, clock)
	if err != nil {
		slog.Error("Failed to set up time-series backend", "error", err)
		os.Exit(1)
	}
	return sink
}

// runGracefulShutdown stops accepting HTTP traffic, waits for the fan-out
// loop to exit, then disconnects from the broker, closes the handoff queue,
// and releases the sink. The dispatcher absorbs anything the broker delivers
// while the loop is already gone.
func runGracefulShutdown(srv *server.Server, broadcaster *broadcast.Broadcaster, subscriber *ingest.Subscriber, dispatcher *telemetry.Dispatcher, sink tsdb.Store) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		broadcaster.Stop()
		subscriber.Close()
		dispatcher.Close()

		if err := sink.Close(); err != nil {
			slog.Error("Failed to close time-series backend", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	topo := setupTopology(cfg)
	slog.Info("Topology loaded", "devices", len(topo.Devices), "floors", len(topo.Floors))

	sink := setupSink(cfg, clock)

	dispatcher := telemetry.NewDispatcher()
	broadcaster := broadcast.NewBroadcaster(dispatcher.Out(), sink, clock)

	decoder := telemetry.NewDecoder(topo.Registry())
	subscriber := ingest.NewSubscriber(ingest.Config{
		Host:     cfg.MQTTHost,
		Port:     cfg.MQTTPort,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	}, decoder, dispatcher, clock)

	if err := subscriber.Start(); err != nil {
		slog.Error("Failed to connect to MQTT broker", "error", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(cfg, topo, broadcaster, sink, subscriber, clock)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, broadcaster, subscriber, dispatcher, sink)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
