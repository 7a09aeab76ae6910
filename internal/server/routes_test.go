package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallgrim/tracksmith/internal/db"
	"github.com/hallgrim/tracksmith/internal/importer"
	"github.com/hallgrim/tracksmith/internal/models"
	"github.com/hallgrim/tracksmith/internal/syncjob"
	"github.com/hallgrim/tracksmith/internal/timeline"
)

type stubImporter struct {
	groups []*models.Group
	err    error
	cached []*models.Group
}

func (s *stubImporter) Import(ctx context.Context, q importer.Query) ([]*models.Group, error) {
	return s.groups, s.err
}

func (s *stubImporter) LoadCached(ctx context.Context) ([]*models.Group, error) {
	if s.cached == nil {
		return nil, db.ErrCatalogEmpty
	}
	return s.cached, nil
}

type stubTrigger struct {
	resp   *syncjob.TriggerResponse
	status *syncjob.PollResult
	err    error
}

func (s *stubTrigger) Trigger(ctx context.Context, mode string, mappings []syncjob.PropertyMapping, transform *syncjob.TransformationConfig) (*syncjob.TriggerResponse, error) {
	return s.resp, s.err
}

func (s *stubTrigger) JobStatus(ctx context.Context, jobID string) (*syncjob.PollResult, error) {
	return s.status, s.err
}

type stubWatcher struct {
	jobs map[string][]string
}

func (s *stubWatcher) Watch(jobID string, clipIDs []string) error {
	if s.jobs == nil {
		s.jobs = make(map[string][]string)
	}
	s.jobs[jobID] = clipIDs
	return nil
}

func (s *stubWatcher) WatchedJobs() int { return len(s.jobs) }

type testEnv struct {
	srv     *httptest.Server
	store   *timeline.Store
	trigger *stubTrigger
	watcher *stubWatcher
	imp     *stubImporter

	track1 string
	track2 string
	track3 string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := timeline.NewStore(timeline.WithState(timeline.State{
		Zoom:      10,
		Duration:  3600,
		StartTime: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}))

	groupID := store.AddGroup("Pump Station", "asset-001")
	aspectID := store.AddAspect(groupID, "Motor", "motor")
	env := &testEnv{
		store:   store,
		trigger: &stubTrigger{},
		watcher: &stubWatcher{},
		imp:     &stubImporter{},
		track1:  store.AddTrack(aspectID, "Rotations", "rotations"),
		track2:  store.AddTrack(aspectID, "Cycles", "cycles"),
		track3:  store.AddTrack(aspectID, "Load", "load"),
	}

	count, percent, long := "count", "%", models.DataTypeLong
	require.True(t, store.UpdateTrack(env.track1, models.TrackPatch{Unit: &count, DataType: &long}))
	require.True(t, store.UpdateTrack(env.track2, models.TrackPatch{Unit: &count, DataType: &long}))
	require.True(t, store.UpdateTrack(env.track3, models.TrackPatch{Unit: &percent, DataType: &long}))

	router := NewRouter(ServerConfig{
		Store:     store,
		Importer:  env.imp,
		Trigger:   env.trigger,
		Watcher:   env.watcher,
		StartTime: time.Now(),
		Version:   "test",
	})
	env.srv = httptest.NewServer(router)
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader([]byte("{}"))
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (e *testEnv) addClip(t *testing.T, trackID string, start, end float64) string {
	t.Helper()
	var created ClipIDResponse
	resp := e.do(t, http.MethodPost, "/clips", CreateClipRequest{TrackID: trackID, Start: start, End: end}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, created.ID)
	return created.ID
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	var health HealthResponse
	resp := env.do(t, http.MethodGet, "/health", nil, &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestTreeAndStatusEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.addClip(t, env.track1, 100, 200)

	var tree TreeResponse
	resp := env.do(t, http.MethodGet, "/tree", nil, &tree)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, tree.Groups, 1)
	assert.Equal(t, "Pump Station", tree.Groups[0].Name)

	var status StatusResponse
	env.do(t, http.MethodGet, "/status", nil, &status)
	assert.Equal(t, 1, status.Groups)
	assert.Equal(t, 3, status.Tracks)
	assert.Equal(t, 1, status.Clips)
}

func TestClipLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.addClip(t, env.track1, 100, 200)

	var clip models.Clip
	resp := env.do(t, http.MethodGet, "/clips/"+id, nil, &clip)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "count", clip.Unit)
	assert.Equal(t, models.ClipStateIdle, clip.State)

	name := "Window A"
	var changed ChangedResponse
	env.do(t, http.MethodPatch, "/clips/"+id, models.ClipPatch{Name: &name}, &changed)
	assert.True(t, changed.Changed)

	resp = env.do(t, http.MethodDelete, "/clips/"+id, nil, &changed)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, changed.Changed)

	// Engine no-op semantics surface as changed:false, not an error.
	resp = env.do(t, http.MethodDelete, "/clips/"+id, nil, &changed)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, changed.Changed)

	resp = env.do(t, http.MethodGet, "/clips/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateClipRejectsInvalidRange(t *testing.T) {
	env := newTestEnv(t)

	var errResp ErrorResponse
	resp := env.do(t, http.MethodPost, "/clips", CreateClipRequest{TrackID: env.track1, Start: 200, End: 100}, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "REJECTED", errResp.Code)
}

func TestMoveClipConflictOnIncompatibleTrack(t *testing.T) {
	env := newTestEnv(t)
	id := env.addClip(t, env.track1, 100, 200)

	resp := env.do(t, http.MethodPost, "/clips/"+id+"/move", PlaceClipRequest{TrackID: env.track3, Start: 100, End: 200}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var changed ChangedResponse
	resp = env.do(t, http.MethodPost, "/clips/"+id+"/move", PlaceClipRequest{TrackID: env.track2, Start: 300, End: 400}, &changed)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, changed.Changed)
}

func TestCopyAndDuplicateEndpoints(t *testing.T) {
	env := newTestEnv(t)
	id := env.addClip(t, env.track1, 100, 200)

	var copied ClipIDResponse
	resp := env.do(t, http.MethodPost, "/clips/"+id+"/copy", PlaceClipRequest{TrackID: env.track2, Start: 500, End: 600}, &copied)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, copied.ID)

	resp = env.do(t, http.MethodPost, "/clips/missing/duplicate", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var dup ClipIDResponse
	resp = env.do(t, http.MethodPost, "/clips/"+id+"/duplicate", nil, &dup)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestSelectionCopyPasteFlow(t *testing.T) {
	env := newTestEnv(t)
	a := env.addClip(t, env.track1, 100, 200)
	b := env.addClip(t, env.track1, 300, 400)

	var count CountResponse
	env.do(t, http.MethodPost, "/selection", SelectRequest{ClipID: a}, &count)
	assert.Equal(t, 1, count.Count)
	env.do(t, http.MethodPost, "/selection", SelectRequest{ClipID: b, Multi: true}, &count)
	assert.Equal(t, 2, count.Count)

	env.do(t, http.MethodPost, "/selection/copy", nil, &count)
	assert.Equal(t, 2, count.Count)

	var pasted ClipIDsResponse
	resp := env.do(t, http.MethodPost, "/selection/paste", PasteRequest{TrackID: env.track2, Time: 500}, &pasted)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, pasted.IDs, 2)

	env.do(t, http.MethodDelete, "/selection", nil, &count)
	assert.Equal(t, 0, count.Count)
	assert.Equal(t, 0, env.store.SelectionCount())
}

func TestMoveSelectionConflict(t *testing.T) {
	env := newTestEnv(t)
	a := env.addClip(t, env.track1, 100, 200)
	c := env.addClip(t, env.track3, 100, 200)

	var count CountResponse
	env.do(t, http.MethodPost, "/selection", SelectRequest{ClipID: a}, &count)
	env.do(t, http.MethodPost, "/selection", SelectRequest{ClipID: c, Multi: true}, &count)

	// track3's clip cannot land on track2.
	resp := env.do(t, http.MethodPost, "/selection/move", MoveSelectionRequest{TrackID: env.track2}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/selection/move", MoveSelectionRequest{DeltaSeconds: 50}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestViewportEndpointsKeepCoupling(t *testing.T) {
	env := newTestEnv(t)

	var state TimelineResponse
	env.do(t, http.MethodPost, "/timeline/zoom", ZoomRequest{Zoom: 20}, &state)
	assert.Equal(t, 20.0, state.Zoom)

	env.do(t, http.MethodPost, "/timeline/viewport", ViewportRequest{Start: 100, Duration: 600}, &state)
	assert.InDelta(t, state.ViewportStart*state.Zoom, state.ScrollX, 1e-6)

	env.do(t, http.MethodPost, "/timeline/scroll", ScrollRequest{X: 400}, &state)
	assert.InDelta(t, 20.0, state.ViewportStart, 1e-6)

	resp := env.do(t, http.MethodPost, "/timeline/range", TimelineRangeRequest{Start: "not-a-time", DurationSeconds: 100}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.do(t, http.MethodPost, "/timeline/range", TimelineRangeRequest{
		Start:           "2026-03-02T00:00:00Z",
		DurationSeconds: 7200,
	}, &state)
	assert.Equal(t, 7200.0, state.Duration)
	assert.Equal(t, 0.0, state.ScrollX)
}

func TestImportEndpointInstallsGroups(t *testing.T) {
	env := newTestEnv(t)
	env.imp.groups = []*models.Group{
		{ID: "g-new", Name: "Imported", Aspects: []*models.Aspect{}},
	}

	var imported ImportResponse
	resp := env.do(t, http.MethodPost, "/import", ImportRequest{TypeFilter: "pump"}, &imported)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, imported.Groups)

	groups := env.store.Snapshot()
	require.Len(t, groups, 1)
	assert.Equal(t, "g-new", groups[0].ID)
}

func TestImportEndpointFailure(t *testing.T) {
	env := newTestEnv(t)
	env.imp.err = errors.New("api unreachable")

	before := len(env.store.Snapshot())

	var errResp ErrorResponse
	resp := env.do(t, http.MethodPost, "/import", ImportRequest{}, &errResp)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "IMPORT_FAILED", errResp.Code)
	assert.Len(t, env.store.Snapshot(), before)
}

func TestSyncEndpointTriggersAndWatches(t *testing.T) {
	env := newTestEnv(t)
	source := env.addClip(t, env.track1, 100, 200)

	dst := env.addClip(t, env.track2, 100, 200)
	var changed ChangedResponse
	env.do(t, http.MethodPatch, "/clips/"+dst, models.ClipPatch{SourceClipID: &source}, &changed)
	require.True(t, changed.Changed)

	env.trigger.resp = &syncjob.TriggerResponse{JobID: "job-7", Status: "pending"}

	var sync SyncResponse
	resp := env.do(t, http.MethodPost, "/sync", SyncRequest{Mode: "full"}, &sync)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "job-7", sync.JobID)
	assert.Equal(t, 1, sync.Mappings)
	assert.Equal(t, []string{dst}, env.watcher.jobs["job-7"])
}

func TestSyncEndpointWithoutMappings(t *testing.T) {
	env := newTestEnv(t)
	env.addClip(t, env.track1, 100, 200)

	resp := env.do(t, http.MethodPost, "/sync", SyncRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJobStatusProxy(t *testing.T) {
	env := newTestEnv(t)
	env.trigger.status = &syncjob.PollResult{Status: "running", RecordsExtracted: 10, RecordsLoaded: 5}

	var result syncjob.PollResult
	resp := env.do(t, http.MethodGet, "/jobs/job-7", nil, &result)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "running", result.Status)

	env.trigger.err = fmt.Errorf("backend down")
	resp = env.do(t, http.MethodGet, "/jobs/job-7", nil, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
