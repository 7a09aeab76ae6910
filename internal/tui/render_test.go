package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallgrim/tracksmith/internal/models"
	"github.com/hallgrim/tracksmith/internal/timeline"
)

func TestClipSpan(t *testing.T) {
	tests := []struct {
		name      string
		r         models.TimeRange
		wantStart int
		wantEnd   int
		visible   bool
	}{
		{"fully inside", models.TimeRange{Start: 100, End: 200}, 10, 20, true},
		{"clamped left", models.TimeRange{Start: -50, End: 100}, 0, 10, true},
		{"clamped right", models.TimeRange{Start: 900, End: 1200}, 90, 100, true},
		{"before viewport", models.TimeRange{Start: -200, End: -100}, 0, 0, false},
		{"after viewport", models.TimeRange{Start: 1100, End: 1200}, 0, 0, false},
		{"sliver gets one column", models.TimeRange{Start: 100, End: 100.1}, 10, 11, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, visible := clipSpan(tt.r, 0, 1000, 100)
			assert.Equal(t, tt.visible, visible)
			if tt.visible {
				assert.Equal(t, tt.wantStart, start)
				assert.Equal(t, tt.wantEnd, end)
			}
		})
	}
}

func TestClipSpanHonorsViewportStart(t *testing.T) {
	start, end, visible := clipSpan(models.TimeRange{Start: 600, End: 700}, 500, 500, 100)
	require.True(t, visible)
	assert.Equal(t, 20, start)
	assert.Equal(t, 40, end)
}

func TestTimeToColumn(t *testing.T) {
	col, ok := timeToColumn(250, 0, 1000, 100)
	require.True(t, ok)
	assert.Equal(t, 25, col)

	_, ok = timeToColumn(-10, 0, 1000, 100)
	assert.False(t, ok)
	_, ok = timeToColumn(1000, 0, 1000, 100)
	assert.False(t, ok)
}

func TestClipLabel(t *testing.T) {
	clip := &models.Clip{Name: "Rotations", State: models.ClipStateIdle}
	assert.Equal(t, "Rot", clipLabel(clip, 3))
	assert.Equal(t, "Rotations▒▒▒", clipLabel(clip, 12))

	uploading := &models.Clip{Name: "R", State: models.ClipStateUploading, Progress: 42}
	assert.Contains(t, clipLabel(uploading, 10), "42%")

	failed := &models.Clip{Name: "R", State: models.ClipStateError}
	assert.True(t, strings.HasPrefix(clipLabel(failed, 10), "! "))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00:00", formatClock(0))
	assert.Equal(t, "01:01:05", formatClock(3665))
	assert.Equal(t, "00:00:00", formatClock(-5))
}

func TestViewRendersLanesAndRuler(t *testing.T) {
	store := timeline.NewStore()
	groupID := store.AddGroup("Pump Station", "asset-001")
	aspectID := store.AddAspect(groupID, "Motor", "motor")
	trackID := store.AddTrack(aspectID, "Rotations", "rotations")
	require.NotEmpty(t, store.AddClip(trackID, timeline.ClipData{
		Name:      "Window",
		TimeRange: models.TimeRange{Start: 0, End: 1800},
	}))

	m := newModel(store, Config{})
	m.width = 100
	m.height = 30
	m = refresh(t, m, store)

	out := m.View()
	assert.Contains(t, out, "tracksmith")
	assert.Contains(t, out, "Motor/Rotations")
	assert.Contains(t, out, "Window")
}

func TestViewEmptyCatalog(t *testing.T) {
	m := newModel(timeline.NewStore(), Config{})
	m.width = 100
	m.height = 30

	out := m.View()
	assert.Contains(t, out, "No tracks")
}
