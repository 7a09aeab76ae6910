package timeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallgrim/tracksmith/internal/models"
)

func TestMoveClipAcrossCompatibleTracks(t *testing.T) {
	f := newFixture(t)
	clipID := f.addClip(t, f.track1, 100, 200)

	require.True(t, f.store.MoveClip(clipID, f.track2, models.TimeRange{Start: 300, End: 400}))

	clip, ok := f.store.Clip(clipID)
	require.True(t, ok)
	assert.Equal(t, f.track2, clip.TrackID)
	assert.Equal(t, models.TimeRange{Start: 300, End: 400}, clip.TimeRange)

	// Ownership exclusivity: exactly one track holds the clip.
	owners := 0
	for _, track := range f.store.AllTracks() {
		for _, c := range track.Clips {
			if c.ID == clipID {
				owners++
			}
		}
	}
	assert.Equal(t, 1, owners)
	assert.Equal(t, 1, f.clipCount())
}

func TestMoveClipRejectsIncompatibleTarget(t *testing.T) {
	f := newFixture(t)
	clipID := f.addClip(t, f.track1, 100, 200)

	require.False(t, f.store.MoveClip(clipID, f.track3, models.TimeRange{Start: 300, End: 400}))

	clip, ok := f.store.Clip(clipID)
	require.True(t, ok)
	assert.Equal(t, f.track1, clip.TrackID)
	assert.Equal(t, models.TimeRange{Start: 100, End: 200}, clip.TimeRange)

	track3, _ := f.store.Track(f.track3)
	assert.Empty(t, track3.Clips)
}

func TestMoveClipSameTrackUpdatesRangeInPlace(t *testing.T) {
	f := newFixture(t)
	clipID := f.addClip(t, f.track1, 100, 200)

	require.True(t, f.store.MoveClip(clipID, f.track1, models.TimeRange{Start: 50, End: 150}))

	clip, _ := f.store.Clip(clipID)
	assert.Equal(t, models.TimeRange{Start: 50, End: 150}, clip.TimeRange)
	assert.Equal(t, f.track1, clip.TrackID)
}

func TestMoveClipClampsToZero(t *testing.T) {
	f := newFixture(t)
	clipID := f.addClip(t, f.track1, 100, 200)

	require.True(t, f.store.MoveClip(clipID, f.track1, models.TimeRange{Start: -30, End: 70}))

	clip, _ := f.store.Clip(clipID)
	assert.Equal(t, models.TimeRange{Start: 0, End: 100}, clip.TimeRange)
}

func TestMoveClipMissingEntitiesAreNoops(t *testing.T) {
	f := newFixture(t)
	clipID := f.addClip(t, f.track1, 0, 10)

	assert.False(t, f.store.MoveClip("missing", f.track2, models.TimeRange{Start: 0, End: 10}))
	assert.False(t, f.store.MoveClip(clipID, "missing", models.TimeRange{Start: 0, End: 10}))
}

func TestCopyClipSuffixesNameAndReturnsNewID(t *testing.T) {
	f := newFixture(t)
	clipID := f.addClip(t, f.track1, 100, 200)

	newID := f.store.CopyClip(clipID, f.track2, models.TimeRange{Start: 500, End: 600})
	require.NotEmpty(t, newID)
	require.NotEqual(t, clipID, newID)

	copied, ok := f.store.Clip(newID)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(copied.Name, " (Copy)"))
	assert.Equal(t, f.track2, copied.TrackID)
	assert.Equal(t, 2, f.clipCount())
}

func TestCopyClipRejectionReturnsEmptyID(t *testing.T) {
	f := newFixture(t)
	clipID := f.addClip(t, f.track1, 100, 200)

	assert.Empty(t, f.store.CopyClip(clipID, f.track3, models.TimeRange{Start: 0, End: 100}))
	assert.Equal(t, 1, f.clipCount())
}

func TestDuplicateClipPlacesCopyAfterOriginal(t *testing.T) {
	f := newFixture(t)
	clipID := f.addClip(t, f.track1, 100, 200)

	newID := f.store.DuplicateClip(clipID)
	require.NotEmpty(t, newID)

	dup, ok := f.store.Clip(newID)
	require.True(t, ok)
	assert.Equal(t, f.track1, dup.TrackID)
	assert.Equal(t, models.TimeRange{Start: 201, End: 301}, dup.TimeRange)

	assert.Empty(t, f.store.DuplicateClip("missing"))
}

func TestMoveSelectedClipsAppliesDeltaFromOriginals(t *testing.T) {
	f := newFixture(t)
	a := f.addClip(t, f.track1, 100, 200)
	b := f.addClip(t, f.track1, 300, 400)
	f.store.SelectClip(a, false, false)
	f.store.SelectClip(b, true, false)

	originals := map[string]models.TimeRange{
		a: {Start: 100, End: 200},
		b: {Start: 300, End: 400},
	}

	// Two calls with growing deltas, as during a drag: positions derive
	// from the snapshot each time, so deltas do not compound.
	require.True(t, f.store.MoveSelectedClips(50, "", originals))
	require.True(t, f.store.MoveSelectedClips(100, "", originals))

	clipA, _ := f.store.Clip(a)
	clipB, _ := f.store.Clip(b)
	assert.Equal(t, models.TimeRange{Start: 200, End: 300}, clipA.TimeRange)
	assert.Equal(t, models.TimeRange{Start: 400, End: 500}, clipB.TimeRange)
}

func TestMoveSelectedClipsBatchAbortsOnOneIncompatible(t *testing.T) {
	f := newFixture(t)
	a := f.addClip(t, f.track1, 100, 200)
	b := f.addClip(t, f.track3, 300, 400) // incompatible with track2
	f.store.SelectClip(a, false, false)
	f.store.SelectClip(b, true, false)

	require.False(t, f.store.MoveSelectedClips(50, f.track2, nil))

	// No partial effect: both clips keep their track and range.
	clipA, _ := f.store.Clip(a)
	clipB, _ := f.store.Clip(b)
	assert.Equal(t, f.track1, clipA.TrackID)
	assert.Equal(t, models.TimeRange{Start: 100, End: 200}, clipA.TimeRange)
	assert.Equal(t, f.track3, clipB.TrackID)
	assert.Equal(t, models.TimeRange{Start: 300, End: 400}, clipB.TimeRange)
}

func TestMoveSelectedClipsConsolidatesToTargetTrack(t *testing.T) {
	f := newFixture(t)
	a := f.addClip(t, f.track1, 100, 200)
	b := f.addClip(t, f.track2, 300, 400)
	f.store.SelectClip(a, false, false)
	f.store.SelectClip(b, true, false)

	require.True(t, f.store.MoveSelectedClips(0, f.track2, nil))

	clipA, _ := f.store.Clip(a)
	clipB, _ := f.store.Clip(b)
	assert.Equal(t, f.track2, clipA.TrackID)
	assert.Equal(t, f.track2, clipB.TrackID)
	assert.Equal(t, 2, f.clipCount())
}

func TestMoveSelectedClipsClampsAtZero(t *testing.T) {
	f := newFixture(t)
	a := f.addClip(t, f.track1, 10, 60)
	f.store.SelectClip(a, false, false)

	require.True(t, f.store.MoveSelectedClips(-100, "", map[string]models.TimeRange{
		a: {Start: 10, End: 60},
	}))

	clip, _ := f.store.Clip(a)
	assert.Equal(t, models.TimeRange{Start: 0, End: 50}, clip.TimeRange)
}

func TestCopySelectedClipsPreservesOffsets(t *testing.T) {
	f := newFixture(t)
	a := f.addClip(t, f.track1, 100, 200)
	b := f.addClip(t, f.track1, 300, 400)
	f.store.SelectClip(a, false, false)
	f.store.SelectClip(b, true, false)

	ids := f.store.CopySelectedClips(500, "")
	require.Len(t, ids, 2)

	first, _ := f.store.Clip(ids[0])
	second, _ := f.store.Clip(ids[1])
	assert.Equal(t, models.TimeRange{Start: 500, End: 600}, first.TimeRange)
	assert.Equal(t, models.TimeRange{Start: 700, End: 800}, second.TimeRange)
	assert.Equal(t, f.track1, first.TrackID)
	assert.Equal(t, f.track1, second.TrackID)
}

func TestCopySelectedClipsIgnoresTargetForMultiTrackSelection(t *testing.T) {
	f := newFixture(t)
	a := f.addClip(t, f.track1, 100, 200)
	b := f.addClip(t, f.track3, 300, 400)
	f.store.SelectClip(a, false, false)
	f.store.SelectClip(b, true, false)

	ids := f.store.CopySelectedClips(1000, f.track2)
	require.Len(t, ids, 2)

	first, _ := f.store.Clip(ids[0])
	second, _ := f.store.Clip(ids[1])
	// Copies stay on their own source tracks.
	assert.Equal(t, f.track1, first.TrackID)
	assert.Equal(t, f.track3, second.TrackID)
}

func TestCopySelectedClipsConsolidatesSingleSourceTrack(t *testing.T) {
	f := newFixture(t)
	a := f.addClip(t, f.track1, 100, 200)
	f.store.SelectClip(a, false, false)

	ids := f.store.CopySelectedClips(0, f.track2)
	require.Len(t, ids, 1)

	copied, _ := f.store.Clip(ids[0])
	assert.Equal(t, f.track2, copied.TrackID)
}
