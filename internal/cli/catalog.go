package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hallgrim/tracksmith/internal/db"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the cached asset catalog",
	}
	cmd.AddCommand(newCatalogShowCmd(), newCatalogClearCmd())
	return cmd
}

func newCatalogShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show what is in the catalog cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			database, err := db.Open(cfg.CatalogPath(), db.WithBusyTimeout(cfg.Catalog.BusyTimeoutMs))
			if err != nil {
				return fmt.Errorf("opening catalog: %w", err)
			}
			defer database.Close()

			catalog := db.NewCatalogRepository(database)
			groups, err := catalog.Load(cmd.Context())
			if errors.Is(err, db.ErrCatalogEmpty) {
				fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty. Run `tracksmith import` first.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("loading catalog: %w", err)
			}

			if importedAt, err := catalog.ImportedAt(cmd.Context()); err == nil && importedAt != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Imported at: %s\n", importedAt.Format("2006-01-02 15:04:05 MST"))
			}

			for _, group := range groups {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", group.Name, group.AssetID)
				for _, aspect := range group.Aspects {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s [%s]\n", aspect.Name, aspect.AspectType)
					for _, track := range aspect.Tracks {
						unit := track.Unit
						if unit == "" {
							unit = "-"
						}
						fmt.Fprintf(cmd.OutOrStdout(), "    %s  unit=%s type=%s\n", track.Name, unit, track.DataType)
					}
				}
			}
			return nil
		},
	}
}

func newCatalogClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the cached catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			database, err := db.Open(cfg.CatalogPath(), db.WithBusyTimeout(cfg.Catalog.BusyTimeoutMs))
			if err != nil {
				return fmt.Errorf("opening catalog: %w", err)
			}
			defer database.Close()

			if err := db.NewCatalogRepository(database).Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clearing catalog: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Catalog cleared.")
			return nil
		},
	}
}
