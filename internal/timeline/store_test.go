package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hallgrim/tracksmith/internal/models"
)

// fixture is a small tree: one group, one aspect, three tracks. The first
// two tracks are mutually compatible (count/Long); the third differs in
// unit (%/Long).
type fixture struct {
	store   *Store
	groupID string
	aspect  string
	track1  string
	track2  string
	track3  string
}

var fixtureStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	opts = append([]Option{WithState(State{
		Zoom:         10,
		Duration:     3600,
		SnapInterval: 1,
		StartTime:    fixtureStart,
	})}, opts...)
	store := NewStore(opts...)

	f := &fixture{store: store}
	f.groupID = store.AddGroup("Pump Station", "asset-001")
	require.NotEmpty(t, f.groupID)

	f.aspect = store.AddAspect(f.groupID, "Electric_Motor_Data", "motor")
	require.NotEmpty(t, f.aspect)

	f.track1 = store.AddTrack(f.aspect, "Rotations", "rotations")
	f.track2 = store.AddTrack(f.aspect, "Cycles", "cycles")
	f.track3 = store.AddTrack(f.aspect, "Load", "load")
	require.NotEmpty(t, f.track3)

	count := "count"
	percent := "%"
	long := models.DataTypeLong
	require.True(t, store.UpdateTrack(f.track1, models.TrackPatch{Unit: &count, DataType: &long}))
	require.True(t, store.UpdateTrack(f.track2, models.TrackPatch{Unit: &count, DataType: &long}))
	require.True(t, store.UpdateTrack(f.track3, models.TrackPatch{Unit: &percent, DataType: &long}))

	return f
}

// addClip is a shorthand that fails the test when creation is rejected.
func (f *fixture) addClip(t *testing.T, trackID string, start, end float64) string {
	t.Helper()
	id := f.store.AddClip(trackID, ClipData{TimeRange: models.TimeRange{Start: start, End: end}})
	require.NotEmpty(t, id)
	return id
}

// clipCount returns the total number of clips across all tracks.
func (f *fixture) clipCount() int {
	total := 0
	for _, track := range f.store.AllTracks() {
		total += len(track.Clips)
	}
	return total
}
