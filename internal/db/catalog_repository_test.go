package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallgrim/tracksmith/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleCatalog() []*models.Group {
	return []*models.Group{
		{
			ID:      "g-1",
			Name:    "Pump Station",
			AssetID: "asset-001",
			Aspects: []*models.Aspect{
				{
					ID:         "a-1",
					Name:       "Electric_Motor_Data",
					AspectType: "motor",
					Tracks: []*models.Track{
						{ID: "t-1", Name: "Rotations", Property: "rotations", Unit: "count", DataType: models.DataTypeLong},
						{ID: "t-2", Name: "Temperature", Property: "temperature", Unit: "degC", DataType: models.DataTypeDouble},
					},
				},
			},
		},
		{ID: "g-2", Name: "Compressor", AssetID: "asset-002"},
	}
}

func TestCatalogRepository_ReplaceAndLoad(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, sampleCatalog()))

	groups, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	first := groups[0]
	assert.Equal(t, "g-1", first.ID)
	assert.Equal(t, "Pump Station", first.Name)
	assert.Equal(t, "asset-001", first.AssetID)
	assert.True(t, first.Expanded)
	assert.True(t, first.Visible)

	require.Len(t, first.Aspects, 1)
	aspect := first.Aspects[0]
	assert.Equal(t, "g-1", aspect.GroupID)
	assert.Equal(t, "motor", aspect.AspectType)

	require.Len(t, aspect.Tracks, 2)
	assert.Equal(t, "Rotations", aspect.Tracks[0].Name)
	assert.Equal(t, "count", aspect.Tracks[0].Unit)
	assert.Equal(t, models.DataTypeLong, aspect.Tracks[0].DataType)
	assert.Equal(t, models.DataTypeDouble, aspect.Tracks[1].DataType)

	assert.Empty(t, groups[1].Aspects)
}

func TestCatalogRepository_ReplaceDiscardsPrevious(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, sampleCatalog()))
	require.NoError(t, repo.Replace(ctx, []*models.Group{
		{ID: "g-9", Name: "Turbine", AssetID: "asset-009"},
	}))

	groups, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "g-9", groups[0].ID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCatalogRepository_LoadEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogRepository(db)

	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, ErrCatalogEmpty)
}

func TestCatalogRepository_ImportedAt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	got, err := repo.ImportedAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Replace(ctx, sampleCatalog()))

	got, err = repo.ImportedAt(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsZero())
}

func TestCatalogRepository_Clear(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, sampleCatalog()))
	require.NoError(t, repo.Clear(ctx))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	importedAt, err := repo.ImportedAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, importedAt)
}
