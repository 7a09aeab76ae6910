package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hallgrim/tracksmith/internal/config"
	"github.com/hallgrim/tracksmith/internal/db"
	"github.com/hallgrim/tracksmith/internal/events"
	"github.com/hallgrim/tracksmith/internal/syncjob"
	"github.com/hallgrim/tracksmith/internal/timeline"
	"github.com/hallgrim/tracksmith/internal/tui"
)

func newEditCmd() *cobra.Command {
	var theme string
	var start string

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Open the timeline editor",
		Long:  "edit opens the interactive editor over the cached asset catalog. Run `tracksmith import` first to populate the catalog.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if theme != "" {
				cfg.TUI.Theme = theme
			}

			anchor := time.Now().UTC().Truncate(time.Second)
			if start != "" {
				anchor, err = time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("parsing --start: %w", err)
				}
			}

			pub := events.NewInMemoryPublisher()
			store, cleanup, err := buildEditorStore(cmd.Context(), cfg, anchor, pub)
			if err != nil {
				return err
			}
			defer cleanup()

			return tui.Run(store, tui.Config{
				RefreshInterval: cfg.TUI.RefreshInterval,
				Theme:           cfg.TUI.Theme,
				Publisher:       pub,
			})
		},
	}

	cmd.Flags().StringVar(&theme, "theme", "", "color theme (default, high-contrast, ocean)")
	cmd.Flags().StringVar(&start, "start", "", "timeline anchor as RFC3339 (default: now)")
	return cmd
}

// buildEditorStore assembles a store seeded from the cached catalog, with
// the upload simulator attached when enabled. The returned cleanup stops
// the simulator and closes the catalog database.
func buildEditorStore(ctx context.Context, cfg *config.Config, anchor time.Time, pub events.Publisher) (*timeline.Store, func(), error) {
	database, err := db.Open(cfg.CatalogPath(), db.WithBusyTimeout(cfg.Catalog.BusyTimeoutMs))
	if err != nil {
		return nil, nil, fmt.Errorf("opening catalog: %w", err)
	}

	var sim *syncjob.Simulator
	opts := []timeline.Option{
		timeline.WithPublisher(pub),
		timeline.WithState(timeline.State{
			Zoom:         cfg.Timeline.Zoom,
			Duration:     cfg.Timeline.DurationSeconds,
			SnapInterval: cfg.Timeline.SnapIntervalSeconds,
			GridSnap:     cfg.Timeline.GridSnap,
			StartTime:    anchor,
		}),
	}
	if cfg.Sync.SimulateUploads {
		opts = append(opts, timeline.WithUploadHook(func(clipID string) {
			if sim != nil {
				sim.UploadClip(clipID)
			}
		}))
	}

	store := timeline.NewStore(opts...)

	catalog := db.NewCatalogRepository(database)
	groups, err := catalog.Load(ctx)
	switch {
	case errors.Is(err, db.ErrCatalogEmpty):
		// Empty editor; the user can import from inside a second terminal.
	case err != nil:
		database.Close()
		return nil, nil, fmt.Errorf("loading catalog: %w", err)
	default:
		store.InstallGroups(groups)
	}

	cleanup := func() { database.Close() }
	if cfg.Sync.SimulateUploads {
		sim = syncjob.NewSimulator(store, syncjob.WithTick(cfg.Sync.SimulatorTick))
		sim.Start(ctx)
		cleanup = func() {
			sim.Stop()
			database.Close()
		}
	}

	return store, cleanup, nil
}
