package timeline

import (
	"time"

	"github.com/hallgrim/tracksmith/internal/models"
	"github.com/hallgrim/tracksmith/internal/timecode"
)

// Viewport controller. Zoom, scroll, and the visible viewport sub-range are
// coupled: no quantity changes without recomputing at least one other, and
// after every setter scrollX == viewportStart * zoom. All three mutate only
// through the setters in this file.

// SetZoom clamps and applies a new zoom. The viewport position is preserved;
// scroll follows.
func (s *Store) SetZoom(zoom float64) {
	s.mu.Lock()
	s.state.Zoom = clampZoom(zoom)
	s.state.ScrollX = s.state.ViewportStart * s.state.Zoom
	ev := s.event(models.EventTypeViewportChanged, models.EntityTypeTimeline, "viewport", nil)
	s.mu.Unlock()

	s.publish(ev)
}

// SetScroll applies scroll offsets directly. The scroll position is
// preserved; the viewport follows. This is the coupling direction for manual
// scrolling.
func (s *Store) SetScroll(x, y float64) {
	s.mu.Lock()
	s.state.ScrollX = x
	s.state.ScrollY = y
	s.state.ViewportStart = x / s.state.Zoom
	ev := s.event(models.EventTypeViewportChanged, models.EntityTypeTimeline, "viewport", nil)
	s.mu.Unlock()

	s.publish(ev)
}

// SetViewport applies a new visible sub-range. Start is clamped to
// [0, duration-viewportDuration] and the viewport duration to [1, duration].
// The viewport is preserved; scroll follows.
func (s *Store) SetViewport(start, duration float64) {
	s.mu.Lock()
	s.setViewportLocked(start, duration)
	ev := s.event(models.EventTypeViewportChanged, models.EntityTypeTimeline, "viewport", nil)
	s.mu.Unlock()

	s.publish(ev)
}

func (s *Store) setViewportLocked(start, duration float64) {
	if duration < 1 {
		duration = 1
	}
	if duration > s.state.Duration {
		duration = s.state.Duration
	}

	maxStart := s.state.Duration - duration
	if start < 0 {
		start = 0
	}
	if start > maxStart {
		start = maxStart
	}

	s.state.ViewportStart = start
	s.state.ViewportDuration = duration
	s.state.ScrollX = start * s.state.Zoom
}

// PanViewport shifts the viewport by deltaSeconds, clamped to the timeline.
func (s *Store) PanViewport(deltaSeconds float64) {
	s.mu.Lock()
	s.setViewportLocked(s.state.ViewportStart+deltaSeconds, s.state.ViewportDuration)
	ev := s.event(models.EventTypeViewportChanged, models.EntityTypeTimeline, "viewport", nil)
	s.mu.Unlock()

	s.publish(ev)
}

// ZoomViewport resizes the viewport to newDuration, re-centered on the
// current viewport midpoint.
func (s *Store) ZoomViewport(newDuration float64) {
	s.mu.Lock()
	center := s.state.ViewportStart + s.state.ViewportDuration/2
	s.setViewportLocked(center-newDuration/2, newDuration)
	ev := s.event(models.EventTypeViewportChanged, models.EntityTypeTimeline, "viewport", nil)
	s.mu.Unlock()

	s.publish(ev)
}

// ZoomViewportAround resizes the viewport to newDuration while preserving
// centerTime's relative position within the viewport.
func (s *Store) ZoomViewportAround(newDuration, centerTime float64) {
	s.mu.Lock()
	frac := 0.5
	if s.state.ViewportDuration > 0 {
		frac = (centerTime - s.state.ViewportStart) / s.state.ViewportDuration
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	s.setViewportLocked(centerTime-frac*newDuration, newDuration)
	ev := s.event(models.EventTypeViewportChanged, models.EntityTypeTimeline, "viewport", nil)
	s.mu.Unlock()

	s.publish(ev)
}

// SetPlayhead moves the playhead, clamped to [0, duration].
func (s *Store) SetPlayhead(seconds float64) {
	s.mu.Lock()
	if seconds < 0 {
		seconds = 0
	}
	if seconds > s.state.Duration {
		seconds = s.state.Duration
	}
	s.state.Playhead = seconds
	ev := s.event(models.EventTypeViewportChanged, models.EntityTypeTimeline, "playhead", nil)
	s.mu.Unlock()

	s.publish(ev)
}

// SetGridSnap toggles grid snapping.
func (s *Store) SetGridSnap(enabled bool) {
	s.mu.Lock()
	s.state.GridSnap = enabled
	s.mu.Unlock()
}

// SetSnapInterval sets the grid interval in seconds. Non-positive intervals
// are ignored.
func (s *Store) SetSnapInterval(seconds float64) {
	s.mu.Lock()
	if seconds > 0 {
		s.state.SnapInterval = seconds
	}
	s.mu.Unlock()
}

// MaybeSnap applies grid snapping to a time when snapping is enabled.
func (s *Store) MaybeSnap(t float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.GridSnap {
		return t
	}
	return timecode.Snap(t, s.state.SnapInterval)
}

// SetTimelineRange re-anchors the timeline to a new absolute start and total
// duration. Zoom is auto-reduced when the projected pixel width would exceed
// the cap. Playhead and scroll reset to 0 and the viewport widens to the
// full range. Every clip with absolute timestamps gets its relative range
// recomputed against the new anchor; clips without absolutes keep their
// stale relative position (legacy data fallback).
func (s *Store) SetTimelineRange(start time.Time, durationSeconds float64) {
	s.mu.Lock()
	if durationSeconds <= 0 {
		s.mu.Unlock()
		return
	}

	s.state.StartTime = start
	s.state.Duration = durationSeconds

	if durationSeconds*s.state.Zoom > maxTimelinePixels {
		s.state.Zoom = clampZoom(maxTimelinePixels / durationSeconds)
	}

	s.state.Playhead = 0
	s.state.ScrollX = 0
	s.state.ScrollY = 0
	s.state.ViewportStart = 0
	s.state.ViewportDuration = durationSeconds

	for _, clip := range s.flattenClipsLocked() {
		if clip.AbsoluteStart == nil || clip.AbsoluteEnd == nil {
			continue
		}
		clip.TimeRange = models.TimeRange{
			Start: timecode.ToRelative(*clip.AbsoluteStart, start),
			End:   timecode.ToRelative(*clip.AbsoluteEnd, start),
		}
	}

	ev := s.event(models.EventTypeTimelineRanged, models.EntityTypeTimeline, "timeline", nil)
	s.mu.Unlock()

	s.publish(ev)
}
