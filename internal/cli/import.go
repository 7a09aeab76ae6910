package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hallgrim/tracksmith/internal/db"
	"github.com/hallgrim/tracksmith/internal/importer"
	"github.com/hallgrim/tracksmith/internal/models"
)

func newImportCmd() *cobra.Command {
	var typeFilter string
	var assetIDs []string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import assets from the asset-management API into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.AssetAPI.BaseURL == "" {
				return fmt.Errorf("asset_api.base_url is not configured")
			}

			database, err := db.Open(cfg.CatalogPath(), db.WithBusyTimeout(cfg.Catalog.BusyTimeoutMs))
			if err != nil {
				return fmt.Errorf("opening catalog: %w", err)
			}
			defer database.Close()

			client := importer.NewClient(
				cfg.AssetAPI.BaseURL,
				cfg.AssetAPI.Tenant,
				cfg.AssetAPI.ClientID,
				cfg.AssetAPI.ClientSecret,
				importer.WithPageSize(cfg.AssetAPI.PageSize),
				importer.WithTimeout(cfg.AssetAPI.Timeout),
			)
			imp := importer.New(client, db.NewCatalogRepository(database))

			groups, err := imp.Import(cmd.Context(), importer.Query{
				TypeFilter: typeFilter,
				AssetIDs:   assetIDs,
			})
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			aspects, tracks := countCatalog(groups)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d assets (%d aspects, %d properties)\n",
				len(groups), aspects, tracks)
			return nil
		},
	}

	cmd.Flags().StringVar(&typeFilter, "type", "", "only import assets of this type")
	cmd.Flags().StringSliceVar(&assetIDs, "ids", nil, "only import these asset ids")
	return cmd
}

func countCatalog(groups []*models.Group) (aspects, tracks int) {
	for _, group := range groups {
		aspects += len(group.Aspects)
		for _, aspect := range group.Aspects {
			tracks += len(aspect.Tracks)
		}
	}
	return aspects, tracks
}
