// Package main is the entry point for the tracksmithd daemon: the local
// HTTP API over one shared timeline session, with catalog import and
// sync-job polling wired in.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hallgrim/tracksmith/internal/config"
	"github.com/hallgrim/tracksmith/internal/db"
	"github.com/hallgrim/tracksmith/internal/events"
	"github.com/hallgrim/tracksmith/internal/importer"
	"github.com/hallgrim/tracksmith/internal/logging"
	"github.com/hallgrim/tracksmith/internal/server"
	"github.com/hallgrim/tracksmith/internal/syncjob"
	"github.com/hallgrim/tracksmith/internal/timeline"
)

const shutdownTimeout = 10 * time.Second

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	host := flag.String("host", "", "interface to listen on (overrides config)")
	port := flag.Int("port", 0, "port to listen on (overrides config)")
	configFile := flag.String("config", "", "config file (default is $HOME/.config/tracksmith/config.yaml)")
	logLevel := flag.String("log-level", "", "override logging level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "override logging format (json, console)")
	flag.Parse()

	cfg, loader, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Logging.Format = *logFormat
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.Logging.EnableCaller,
	})
	logger := logging.Component("tracksmithd")

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Warn().Err(err).Msg("failed to create directories")
	}
	if cfgUsed := loader.ConfigFileUsed(); cfgUsed != "" {
		logger.Debug().Str("config_file", cfgUsed).Msg("loaded config file")
	}

	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("built", date).
		Msg("tracksmithd starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("tracksmithd exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	database, err := db.Open(cfg.CatalogPath(), db.WithBusyTimeout(cfg.Catalog.BusyTimeoutMs))
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer database.Close()
	catalog := db.NewCatalogRepository(database)

	var sim *syncjob.Simulator
	storeOpts := []timeline.Option{
		timeline.WithPublisher(events.NewInMemoryPublisher()),
		timeline.WithState(timeline.State{
			Zoom:         cfg.Timeline.Zoom,
			Duration:     cfg.Timeline.DurationSeconds,
			SnapInterval: cfg.Timeline.SnapIntervalSeconds,
			GridSnap:     cfg.Timeline.GridSnap,
			StartTime:    time.Now().UTC().Truncate(time.Second),
		}),
	}
	if cfg.Sync.SimulateUploads {
		storeOpts = append(storeOpts, timeline.WithUploadHook(func(clipID string) {
			if sim != nil {
				sim.UploadClip(clipID)
			}
		}))
	}
	store := timeline.NewStore(storeOpts...)

	// Seed the session from the cached catalog when one exists.
	if groups, err := catalog.Load(ctx); err == nil {
		store.InstallGroups(groups)
		logger.Info().Int("groups", len(groups)).Msg("loaded cached catalog")
	} else if !errors.Is(err, db.ErrCatalogEmpty) {
		return fmt.Errorf("loading catalog: %w", err)
	}

	serverCfg := server.ServerConfig{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		Store:     store,
		Logger:    logging.Component("server"),
		StartTime: time.Now(),
		Version:   version,
	}

	if cfg.AssetAPI.BaseURL != "" {
		client := importer.NewClient(
			cfg.AssetAPI.BaseURL,
			cfg.AssetAPI.Tenant,
			cfg.AssetAPI.ClientID,
			cfg.AssetAPI.ClientSecret,
			importer.WithPageSize(cfg.AssetAPI.PageSize),
			importer.WithTimeout(cfg.AssetAPI.Timeout),
		)
		serverCfg.Importer = importer.New(client, catalog)
	} else {
		logger.Info().Msg("asset_api.base_url not set; import endpoint disabled")
	}

	var poller *syncjob.Poller
	if cfg.Sync.BaseURL != "" {
		trigger := syncjob.NewTriggerClient(cfg.Sync.BaseURL)
		poller = syncjob.NewPoller(syncjob.PollerConfig{
			Interval:    cfg.Sync.PollInterval,
			MaxAttempts: cfg.Sync.MaxPollAttempts,
		}, trigger, store)
		if err := poller.Start(ctx); err != nil {
			return fmt.Errorf("starting poller: %w", err)
		}
		defer poller.Stop()

		serverCfg.Trigger = trigger
		serverCfg.Watcher = poller
	} else {
		logger.Info().Msg("sync.base_url not set; sync endpoint disabled")
	}

	if cfg.Sync.SimulateUploads {
		sim = syncjob.NewSimulator(store, syncjob.WithTick(cfg.Sync.SimulatorTick))
		sim.Start(ctx)
		defer sim.Stop()
	}

	srv := server.NewServer(serverCfg)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadConfig(path string) (*config.Config, *config.Loader, error) {
	loader := config.NewLoader()
	if path != "" {
		loader.SetConfigFile(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}
