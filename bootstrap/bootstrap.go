// Package bootstrap wires configuration, storage, and transport into a
// runnable daemon, and builds the client-side channel service for CLI
// commands.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/confchan/adapters/memory"
	"github.com/artpar/confchan/adapters/metrics"
	"github.com/artpar/confchan/adapters/remote"
	"github.com/artpar/confchan/adapters/sqlite"
	"github.com/artpar/confchan/app"
	"github.com/artpar/confchan/config"
	"github.com/artpar/confchan/daemon"
	"github.com/artpar/confchan/ports"
)

// Daemon is the assembled server application.
type Daemon struct {
	Logger  zerolog.Logger
	Config  *config.Holder
	Store   ports.RemoteStore
	Metrics *metrics.Collector
	Server  *daemon.Server

	db *sqlite.DB
}

// NewDaemon builds a daemon from the config file at path. An empty or
// missing path falls back to environment configuration.
func NewDaemon(cfgPath string) (*Daemon, error) {
	cfg, err := config.LoadWithFallback(cfgPath)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg.Logging)
	logger.Info().Msg("initializing confchan daemon")

	d := &Daemon{Logger: logger}

	if cfgPath != "" {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			holder, err := config.NewHolder(cfgPath, logger)
			if err != nil {
				return nil, err
			}
			d.Config = holder
		}
	}
	if d.Config == nil {
		d.Config = config.NewStaticHolder(cfg)
	}

	if err := d.initStore(cfg); err != nil {
		return nil, err
	}
	if err := d.seedLocks(cfg); err != nil {
		return nil, err
	}

	var routerCfg daemon.RouterConfig
	if cfg.Metrics.Enabled {
		d.Metrics = metrics.New()
		routerCfg = daemon.RouterConfig{Metrics: d.Metrics, MetricsPath: cfg.Metrics.Path}
	}

	var handler *daemon.Handler
	if d.Metrics != nil {
		handler = daemon.NewHandlerWithMetrics(metrics.InstrumentStore(d.Store, d.Metrics), logger, d.Metrics)
	} else {
		handler = daemon.NewHandler(d.Store, logger)
	}
	router := daemon.NewRouter(handler, logger, routerCfg)
	d.Server = daemon.NewServer(cfg.Server, router, logger)

	return d, nil
}

func (d *Daemon) initStore(cfg *config.Config) error {
	switch cfg.Store.Driver {
	case "memory":
		d.Store = memory.NewStore()
		d.Logger.Info().Msg("using in-memory store")
	case "sqlite":
		db, err := sqlite.Open(cfg.Store.DSN)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		if err := db.Migrate(d.Logger); err != nil {
			db.Close()
			return fmt.Errorf("migrate store: %w", err)
		}
		d.db = db
		d.Store = sqlite.NewPropertyStore(db)
		d.Logger.Info().Str("dsn", cfg.Store.DSN).Msg("using sqlite store")
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	return nil
}

// seedLocks applies the configured channel policy: every listed path
// becomes read-only before the server starts accepting writes.
func (d *Daemon) seedLocks(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, seed := range cfg.Channels {
		for _, path := range seed.Locked {
			switch s := d.Store.(type) {
			case *sqlite.PropertyStore:
				if err := s.Lock(ctx, seed.Name, path); err != nil {
					return fmt.Errorf("lock %s%s: %w", seed.Name, path, err)
				}
			case *memory.Store:
				s.Lock(seed.Name, path)
			}
			d.Logger.Debug().Str("channel", seed.Name).Str("path", path).Msg("property locked by policy")
		}
	}
	return nil
}

// Run serves until ctx is cancelled, then releases resources. The
// config file (when one backs the holder) is hot-reloaded on edit and
// on SIGHUP; a failed watch setup is logged but does not stop startup.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Config.WatchFile(); err != nil {
		d.Logger.Warn().Err(err).Msg("config file watch unavailable")
	}
	d.Config.WatchSignals()
	defer d.Close()
	return d.Server.Run(ctx)
}

// Close releases the daemon's resources.
func (d *Daemon) Close() {
	d.Config.Stop()
	if d.db != nil {
		d.db.Close()
	}
}

// NewClientService builds the client-side channel service talking to
// the daemon named in cfg.Remote.
func NewClientService(cfg *config.Config, logger zerolog.Logger) *app.ChannelService {
	client := remote.NewClient(remote.ClientConfig{
		BaseURL: cfg.Remote.URL,
		Timeout: cfg.Remote.Timeout,
	})
	return app.NewChannelService(client, logger)
}

// NewLogger builds the process logger from logging configuration.
func NewLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
