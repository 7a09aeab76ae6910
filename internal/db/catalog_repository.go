package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hallgrim/tracksmith/internal/models"
)

// Catalog repository errors.
var (
	ErrCatalogEmpty = errors.New("catalog cache is empty")
)

const metaKeyImportedAt = "imported_at"

// CatalogRepository caches the imported asset structure (groups, aspects,
// tracks) so the editor can start offline. Clips are session state and are
// never cached.
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Replace swaps the cached catalog for the given groups in one transaction.
// The previous cache contents are discarded.
func (r *CatalogRepository) Replace(ctx context.Context, groups []*models.Group) error {
	return r.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM groups`); err != nil {
			return fmt.Errorf("failed to clear groups: %w", err)
		}

		for gi, group := range groups {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO groups (id, asset_id, name, idx) VALUES (?, ?, ?, ?)
			`, group.ID, group.AssetID, group.Name, gi); err != nil {
				return fmt.Errorf("failed to insert group %s: %w", group.ID, err)
			}

			for ai, aspect := range group.Aspects {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO aspects (id, group_id, name, aspect_type, idx) VALUES (?, ?, ?, ?, ?)
				`, aspect.ID, group.ID, aspect.Name, aspect.AspectType, ai); err != nil {
					return fmt.Errorf("failed to insert aspect %s: %w", aspect.ID, err)
				}

				for ti, track := range aspect.Tracks {
					if _, err := tx.ExecContext(ctx, `
						INSERT INTO tracks (id, aspect_id, name, property, unit, data_type, idx)
						VALUES (?, ?, ?, ?, ?, ?, ?)
					`, track.ID, aspect.ID, track.Name, track.Property, track.Unit, string(track.DataType), ti); err != nil {
						return fmt.Errorf("failed to insert track %s: %w", track.ID, err)
					}
				}
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, metaKeyImportedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to record import time: %w", err)
		}

		return nil
	})
}

// Load rebuilds the cached catalog tree. Returns ErrCatalogEmpty when the
// cache holds no groups.
func (r *CatalogRepository) Load(ctx context.Context) ([]*models.Group, error) {
	groups, err := r.loadGroups(ctx)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrCatalogEmpty
	}

	byGroup := make(map[string]*models.Group, len(groups))
	for _, g := range groups {
		byGroup[g.ID] = g
	}

	aspects, err := r.loadAspects(ctx)
	if err != nil {
		return nil, err
	}
	byAspect := make(map[string]*models.Aspect, len(aspects))
	for _, a := range aspects {
		byAspect[a.ID] = a
		if g, ok := byGroup[a.GroupID]; ok {
			g.Aspects = append(g.Aspects, a)
		}
	}

	if err := r.loadTracks(ctx, byAspect); err != nil {
		return nil, err
	}

	return groups, nil
}

func (r *CatalogRepository) loadGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, asset_id, name, idx FROM groups ORDER BY idx
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		g := &models.Group{Expanded: true, Visible: true}
		if err := rows.Scan(&g.ID, &g.AssetID, &g.Name, &g.Index); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}
	return groups, nil
}

func (r *CatalogRepository) loadAspects(ctx context.Context) ([]*models.Aspect, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, group_id, name, aspect_type, idx FROM aspects ORDER BY group_id, idx
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aspects: %w", err)
	}
	defer rows.Close()

	var aspects []*models.Aspect
	for rows.Next() {
		a := &models.Aspect{Expanded: true, Visible: true}
		if err := rows.Scan(&a.ID, &a.GroupID, &a.Name, &a.AspectType, &a.Index); err != nil {
			return nil, fmt.Errorf("failed to scan aspect: %w", err)
		}
		aspects = append(aspects, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aspects: %w", err)
	}
	return aspects, nil
}

func (r *CatalogRepository) loadTracks(ctx context.Context, byAspect map[string]*models.Aspect) error {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, aspect_id, name, property, unit, data_type, idx FROM tracks ORDER BY aspect_id, idx
	`)
	if err != nil {
		return fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t := &models.Track{Visible: true}
		var dataType string
		if err := rows.Scan(&t.ID, &t.AspectID, &t.Name, &t.Property, &t.Unit, &dataType, &t.Index); err != nil {
			return fmt.Errorf("failed to scan track: %w", err)
		}
		t.DataType = models.DataType(dataType)
		if aspect, ok := byAspect[t.AspectID]; ok {
			aspect.Tracks = append(aspect.Tracks, t)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating tracks: %w", err)
	}
	return nil
}

// Count returns the number of cached groups.
func (r *CatalogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM groups`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return count, nil
}

// ImportedAt returns the time of the last successful import, or nil when the
// cache has never been filled.
func (r *CatalogRepository) ImportedAt(ctx context.Context) (*time.Time, error) {
	var value string
	err := r.db.conn.QueryRowContext(ctx, `
		SELECT value FROM catalog_meta WHERE key = ?
	`, metaKeyImportedAt).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read import time: %w", err)
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse import time: %w", err)
	}
	return &t, nil
}

// Clear empties the catalog cache.
func (r *CatalogRepository) Clear(ctx context.Context) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM groups`); err != nil {
			return fmt.Errorf("failed to clear groups: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_meta`); err != nil {
			return fmt.Errorf("failed to clear catalog metadata: %w", err)
		}
		return nil
	})
}
