package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallgrim/tracksmith/internal/db"
	"github.com/hallgrim/tracksmith/internal/models"
)

// fakeAssetAPI serves a minimal asset API: one token endpoint, a paginated
// asset list, and per-asset aspects.
type fakeAssetAPI struct {
	tokenCalls  atomic.Int64
	assetCalls  atomic.Int64
	expiresIn   int
	pageAssets  [][]map[string]string
	aspects     map[string][]map[string]any
	failAspects bool
}

func (f *fakeAssetAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		expiresIn := f.expiresIn
		if expiresIn == 0 {
			expiresIn = 3600
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": fmt.Sprintf("tok-%d", f.tokenCalls.Load()),
			"expires_in":   expiresIn,
		})
	})

	mux.HandleFunc("GET /api/assets", func(w http.ResponseWriter, r *http.Request) {
		f.assetCalls.Add(1)
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		var assets []map[string]string
		if page < len(f.pageAssets) {
			assets = f.pageAssets[page]
		}
		json.NewEncoder(w).Encode(map[string]any{
			"assets":     assets,
			"page":       page,
			"totalPages": len(f.pageAssets),
		})
	})

	mux.HandleFunc("GET /api/assets/{id}/aspects", func(w http.ResponseWriter, r *http.Request) {
		if f.failAspects {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "boom")
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"aspects": f.aspects[r.PathValue("id")],
		})
	})

	return mux
}

func newTestAPI(t *testing.T, api *fakeAssetAPI) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "tenant-a", "client-id", "client-secret", WithPageSize(2))
	return srv, client
}

func TestFetchAssetsFollowsPagination(t *testing.T) {
	api := &fakeAssetAPI{
		pageAssets: [][]map[string]string{
			{{"assetId": "a-1", "name": "Pump"}, {"assetId": "a-2", "name": "Fan"}},
			{{"assetId": "a-3", "name": "Compressor"}},
		},
	}
	_, client := newTestAPI(t, api)

	assets, err := client.FetchAssets(context.Background(), Query{TypeFilter: "pump"})
	require.NoError(t, err)
	require.Len(t, assets, 3)
	assert.Equal(t, "a-3", assets[2].AssetID)
}

func TestAccessTokenIsCachedAcrossRequests(t *testing.T) {
	api := &fakeAssetAPI{
		pageAssets: [][]map[string]string{{{"assetId": "a-1", "name": "Pump"}}},
	}
	_, client := newTestAPI(t, api)
	ctx := context.Background()

	_, err := client.FetchAssets(ctx, Query{})
	require.NoError(t, err)
	_, err = client.FetchAssets(ctx, Query{})
	require.NoError(t, err)

	assert.Equal(t, int64(1), api.tokenCalls.Load())
}

func TestAccessTokenRefreshesInsideSkew(t *testing.T) {
	// expires_in below the skew margin forces a refresh on the next call.
	api := &fakeAssetAPI{
		expiresIn:  1,
		pageAssets: [][]map[string]string{{{"assetId": "a-1", "name": "Pump"}}},
	}
	_, client := newTestAPI(t, api)
	ctx := context.Background()

	_, err := client.FetchAssets(ctx, Query{})
	require.NoError(t, err)
	_, err = client.FetchAssets(ctx, Query{})
	require.NoError(t, err)

	assert.Equal(t, int64(2), api.tokenCalls.Load())
}

func TestImportBuildsGroupTree(t *testing.T) {
	api := &fakeAssetAPI{
		pageAssets: [][]map[string]string{{{"assetId": "asset-001", "name": "Pump Station"}}},
		aspects: map[string][]map[string]any{
			"asset-001": {
				{
					"name":       "Electric_Motor_Data",
					"aspectType": "motor",
					"variables": []map[string]string{
						{"name": "rotations", "unit": "count", "dataType": "LONG"},
						{"name": "temperature", "unit": "degC", "dataType": "DOUBLE"},
						{"name": "vendor_blob", "dataType": "SOMETHING_NEW"},
					},
				},
			},
		},
	}
	_, client := newTestAPI(t, api)

	imp := New(client, nil)
	groups, err := imp.Import(context.Background(), Query{AssetIDs: []string{"asset-001"}})
	require.NoError(t, err)
	require.Len(t, groups, 1)

	group := groups[0]
	assert.NotEmpty(t, group.ID)
	assert.Equal(t, "Pump Station", group.Name)
	assert.Equal(t, "asset-001", group.AssetID)
	assert.True(t, group.Expanded)

	require.Len(t, group.Aspects, 1)
	aspect := group.Aspects[0]
	assert.Equal(t, group.ID, aspect.GroupID)
	assert.Equal(t, "motor", aspect.AspectType)

	require.Len(t, aspect.Tracks, 3)
	assert.Equal(t, models.DataTypeLong, aspect.Tracks[0].DataType)
	assert.Equal(t, "count", aspect.Tracks[0].Unit)
	assert.Equal(t, models.DataTypeDouble, aspect.Tracks[1].DataType)
	// Unknown external types default to String.
	assert.Equal(t, models.DataTypeString, aspect.Tracks[2].DataType)
	for i, track := range aspect.Tracks {
		assert.Equal(t, i, track.Index)
		assert.Equal(t, aspect.ID, track.AspectID)
		assert.Empty(t, track.Clips)
	}
}

func TestImportFailureLeavesCacheUntouched(t *testing.T) {
	catalogDB, err := db.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer catalogDB.Close()
	catalog := db.NewCatalogRepository(catalogDB)

	api := &fakeAssetAPI{
		pageAssets:  [][]map[string]string{{{"assetId": "asset-001", "name": "Pump Station"}}},
		failAspects: true,
	}
	_, client := newTestAPI(t, api)

	imp := New(client, catalog)
	_, err = imp.Import(context.Background(), Query{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.True(t, apiErr.IsRetryable())

	_, err = imp.LoadCached(context.Background())
	assert.ErrorIs(t, err, db.ErrCatalogEmpty)
}

func TestImportWritesCacheAndLoadCachedServesIt(t *testing.T) {
	catalogDB, err := db.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer catalogDB.Close()
	catalog := db.NewCatalogRepository(catalogDB)

	api := &fakeAssetAPI{
		pageAssets: [][]map[string]string{{{"assetId": "asset-001", "name": "Pump Station"}}},
		aspects: map[string][]map[string]any{
			"asset-001": {
				{"name": "Motor", "variables": []map[string]string{
					{"name": "rpm", "unit": "1/min", "dataType": "DOUBLE"},
				}},
			},
		},
	}
	srv, client := newTestAPI(t, api)

	imp := New(client, catalog)
	imported, err := imp.Import(context.Background(), Query{})
	require.NoError(t, err)

	// The cache answers even after the API goes away.
	srv.Close()

	cached, err := imp.LoadCached(context.Background())
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, imported[0].ID, cached[0].ID)
	assert.Equal(t, "1/min", cached[0].Aspects[0].Tracks[0].Unit)

	importedAt, err := catalog.ImportedAt(context.Background())
	require.NoError(t, err)
	require.NotNil(t, importedAt)
	assert.WithinDuration(t, time.Now(), *importedAt, time.Minute)
}
