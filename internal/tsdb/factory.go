package tsdb

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"
)

// DefaultPort is the InfluxDB 3 HTTP port used when none is configured.
const DefaultPort = 8181

// Config selects and parameterizes the sink variant. Read once at startup.
type Config struct {
	Type     string
	Host     string
	Port     int
	Database string
	Token    string
}

// New builds the sink for the given configuration. An empty or unrecognized
// type falls back to the Noop variant so a missing persistence setup never
// prevents startup; an explicitly selected backed variant with missing
// parameters is a hard error.
func New(cfg Config, clock clockwork.Clock) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "influx":
		if cfg.Host == "" {
			return nil, fmt.Errorf("tsdb host is required for the influx backend")
		}
		if cfg.Database == "" {
			return nil, fmt.Errorf("tsdb database is required for the influx backend")
		}
		if cfg.Port == 0 {
			cfg.Port = DefaultPort
		}
		store, err := NewInfluxStore(InfluxConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Database: cfg.Database,
			Token:    cfg.Token,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("time-series backend configured", "type", "influx", "host", cfg.Host, "database", cfg.Database)
		return store, nil

	case "memory":
		slog.Info("time-series backend configured", "type", "memory")
		return NewMemoryStore(clock), nil

	case "":
		slog.Info("no time-series backend configured, persistence disabled")
		return NoopStore{}, nil

	default:
		slog.Warn("unrecognized time-series backend, persistence disabled", "type", cfg.Type)
		return NoopStore{}, nil
	}
}
