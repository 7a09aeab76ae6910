package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hallgrim/tracksmith/internal/db"
	"github.com/hallgrim/tracksmith/internal/logging"
	"github.com/hallgrim/tracksmith/internal/models"
)

const defaultTrackHeight = 60

// Importer fetches asset structure from the asset API and caches the result
// so the editor can start while the API is unreachable.
type Importer struct {
	client  *Client
	catalog *db.CatalogRepository
	logger  zerolog.Logger
}

// New creates an Importer. The catalog repository is optional; without it the
// importer fetches only.
func New(client *Client, catalog *db.CatalogRepository) *Importer {
	return &Importer{
		client:  client,
		catalog: catalog,
		logger:  logging.Component("importer"),
	}
}

// Import fetches the assets matching the query and builds the group tree:
// one Group per asset, nested Aspects, and one clip-less Track per aspect
// variable. Ids are generated locally. On success the result replaces the
// catalog cache. The store is never touched on failure.
func (i *Importer) Import(ctx context.Context, q Query) ([]*models.Group, error) {
	assets, err := i.client.FetchAssets(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("import assets: %w", err)
	}

	var groups []*models.Group
	for gi, asset := range assets {
		group := &models.Group{
			ID:       uuid.New().String(),
			Name:     asset.Name,
			AssetID:  asset.AssetID,
			Expanded: true,
			Visible:  true,
			Index:    gi,
		}

		aspects, err := i.client.FetchAspects(ctx, asset.AssetID)
		if err != nil {
			return nil, fmt.Errorf("import aspects for %s: %w", asset.AssetID, err)
		}

		for ai, aspect := range aspects {
			a := &models.Aspect{
				ID:         uuid.New().String(),
				GroupID:    group.ID,
				Name:       aspect.Name,
				AspectType: aspect.Type,
				Expanded:   true,
				Visible:    true,
				Index:      ai,
			}

			for ti, variable := range aspect.Variables {
				a.Tracks = append(a.Tracks, &models.Track{
					ID:       uuid.New().String(),
					AspectID: a.ID,
					Name:     variable.Name,
					Property: variable.Name,
					Unit:     variable.Unit,
					DataType: models.ParseDataType(variable.DataType),
					Index:    ti,
					Visible:  true,
					Height:   defaultTrackHeight,
				})
			}

			group.Aspects = append(group.Aspects, a)
		}

		groups = append(groups, group)
	}

	if i.catalog != nil {
		if err := i.catalog.Replace(ctx, groups); err != nil {
			i.logger.Warn().Err(err).Msg("failed to cache imported catalog")
		}
	}

	i.logger.Info().Int("groups", len(groups)).Msg("imported asset structure")
	return groups, nil
}

// LoadCached returns the last successfully imported catalog from the sqlite
// cache. Returns db.ErrCatalogEmpty when nothing has been imported yet.
func (i *Importer) LoadCached(ctx context.Context) ([]*models.Group, error) {
	if i.catalog == nil {
		return nil, db.ErrCatalogEmpty
	}
	groups, err := i.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	i.logger.Info().Int("groups", len(groups)).Msg("loaded catalog from cache")
	return groups, nil
}
