package timeline

import (
	"github.com/hallgrim/tracksmith/internal/models"
	"github.com/hallgrim/tracksmith/internal/timecode"
)

// Clip placement: relocation and duplication across tracks under the
// unit/data-type compatibility rule. Incompatible placements are rejected
// with state unchanged and a warning log; the caller receives a sentinel
// (false or ""), never an error.

// setClipRangeLocked updates a clip's relative range and re-resolves its
// absolute timestamps against the current anchor.
func (s *Store) setClipRangeLocked(clip *models.Clip, r models.TimeRange) {
	clip.TimeRange = r
	absStart := timecode.ToAbsolute(r.Start, s.state.StartTime)
	absEnd := timecode.ToAbsolute(r.End, s.state.StartTime)
	clip.AbsoluteStart = &absStart
	clip.AbsoluteEnd = &absEnd
}

// MoveClip relocates a clip to a target track at a new time range. Source
// and target track must agree on unit and data type or the move is rejected.
// A same-track move only updates the range. A cross-track move removes the
// clip from the source list and appends it to the target list in a single
// commit.
func (s *Store) MoveClip(clipID, targetTrackID string, newRange models.TimeRange) bool {
	s.mu.Lock()
	clip, sourceTrack := s.findClipLocked(clipID)
	if clip == nil {
		s.mu.Unlock()
		return false
	}
	targetTrack, _ := s.findTrackLocked(targetTrackID)
	if targetTrack == nil {
		s.mu.Unlock()
		return false
	}

	if !models.Compatible(sourceTrack, targetTrack) {
		s.logger.Warn().
			Str("clip_id", clipID).
			Str("source_track", sourceTrack.ID).
			Str("target_track", targetTrackID).
			Str("source_unit", sourceTrack.Unit).
			Str("target_unit", targetTrack.Unit).
			Msg("move rejected: incompatible unit or data type")
		s.mu.Unlock()
		return false
	}

	start := clampNonNegative(newRange.Start)
	r := models.TimeRange{Start: start, End: start + newRange.Duration()}

	if sourceTrack.ID == targetTrackID {
		s.setClipRangeLocked(clip, r)
	} else {
		for i, c := range sourceTrack.Clips {
			if c.ID == clipID {
				sourceTrack.Clips = append(sourceTrack.Clips[:i], sourceTrack.Clips[i+1:]...)
				break
			}
		}
		clip.TrackID = targetTrackID
		s.setClipRangeLocked(clip, r)
		targetTrack.Clips = append(targetTrack.Clips, clip)
	}

	ev := s.event(models.EventTypeClipMoved, models.EntityTypeClip, clipID, models.MovePayload{
		FromTrackID: sourceTrack.ID,
		ToTrackID:   targetTrackID,
		TimeRange:   r,
	})
	s.mu.Unlock()

	s.publish(ev)
	return true
}

// CopyClip duplicates a clip onto a target track at a new range, with the
// same compatibility check as MoveClip. The copy's name is suffixed
// " (Copy)". Returns the new clip id, or "" on rejection.
func (s *Store) CopyClip(clipID, targetTrackID string, newRange models.TimeRange) string {
	s.mu.Lock()
	id, triggerUpload, ev := s.copyClipLocked(clipID, targetTrackID, newRange)
	s.mu.Unlock()

	s.publish(ev)
	if triggerUpload {
		s.fireUpload(id)
	}
	return id
}

func (s *Store) copyClipLocked(clipID, targetTrackID string, newRange models.TimeRange) (string, bool, *models.Event) {
	clip, sourceTrack := s.findClipLocked(clipID)
	if clip == nil {
		return "", false, nil
	}
	targetTrack, _ := s.findTrackLocked(targetTrackID)
	if targetTrack == nil {
		return "", false, nil
	}

	if !models.Compatible(sourceTrack, targetTrack) {
		s.logger.Warn().
			Str("clip_id", clipID).
			Str("target_track", targetTrackID).
			Msg("copy rejected: incompatible unit or data type")
		return "", false, nil
	}

	start := clampNonNegative(newRange.Start)
	return s.addClipLocked(targetTrackID, ClipData{
		Name:         clip.Name + " (Copy)",
		TimeRange:    models.TimeRange{Start: start, End: start + newRange.Duration()},
		State:        clip.State,
		Progress:     clip.Progress,
		SourceClipID: clip.SourceClipID,
	})
}

// DuplicateClip places a copy of a clip immediately after the original on
// the same track: the copy starts one second after the original ends and
// keeps its duration. Returns the new clip id, or "" when the clip is
// missing.
func (s *Store) DuplicateClip(clipID string) string {
	s.mu.Lock()
	clip, track := s.findClipLocked(clipID)
	if clip == nil {
		s.mu.Unlock()
		return ""
	}
	start := clip.TimeRange.End + 1
	id, triggerUpload, ev := s.copyClipLocked(clipID, track.ID, models.TimeRange{
		Start: start,
		End:   start + clip.TimeRange.Duration(),
	})
	s.mu.Unlock()

	s.publish(ev)
	if triggerUpload {
		s.fireUpload(id)
	}
	return id
}

// MoveSelectedClips moves every selected clip by deltaTime seconds,
// optionally consolidating them onto a target track. Compatibility is
// pre-validated for the whole batch before anything moves: one incompatible
// clip aborts the entire batch with no partial effect.
//
// Each clip's new position derives from its position in originalPositions —
// the pre-drag snapshot supplied by the caller — plus deltaTime, so repeated
// calls during one drag do not compound deltas. Clips missing from the
// snapshot fall back to their current position.
func (s *Store) MoveSelectedClips(deltaTime float64, targetTrackID string, originalPositions map[string]models.TimeRange) bool {
	s.mu.Lock()
	selected := make([]*models.Clip, 0, len(s.sel.clipIDs))
	for _, clip := range s.flattenClipsLocked() {
		if _, ok := s.sel.clipIDs[clip.ID]; ok {
			selected = append(selected, clip)
		}
	}
	if len(selected) == 0 {
		s.mu.Unlock()
		return false
	}

	var targetTrack *models.Track
	if targetTrackID != "" {
		targetTrack, _ = s.findTrackLocked(targetTrackID)
		if targetTrack == nil {
			s.mu.Unlock()
			return false
		}

		// Validate the whole batch up front; all-or-nothing.
		for _, clip := range selected {
			_, sourceTrack := s.findClipLocked(clip.ID)
			if !models.Compatible(sourceTrack, targetTrack) {
				s.logger.Warn().
					Str("clip_id", clip.ID).
					Str("target_track", targetTrackID).
					Msg("batch move rejected: incompatible clip in selection")
				s.mu.Unlock()
				return false
			}
		}
	}

	var evs []*models.Event
	for _, clip := range selected {
		original, ok := originalPositions[clip.ID]
		if !ok {
			original = clip.TimeRange
		}
		start := clampNonNegative(original.Start + deltaTime)
		r := models.TimeRange{Start: start, End: start + original.Duration()}

		_, sourceTrack := s.findClipLocked(clip.ID)
		if targetTrack != nil && sourceTrack.ID != targetTrack.ID {
			for i, c := range sourceTrack.Clips {
				if c.ID == clip.ID {
					sourceTrack.Clips = append(sourceTrack.Clips[:i], sourceTrack.Clips[i+1:]...)
					break
				}
			}
			clip.TrackID = targetTrack.ID
			targetTrack.Clips = append(targetTrack.Clips, clip)
		}
		s.setClipRangeLocked(clip, r)

		toTrack := sourceTrack.ID
		if targetTrack != nil {
			toTrack = targetTrack.ID
		}
		evs = append(evs, s.event(models.EventTypeClipMoved, models.EntityTypeClip, clip.ID, models.MovePayload{
			FromTrackID: sourceTrack.ID,
			ToTrackID:   toTrack,
			TimeRange:   r,
		}))
	}
	s.mu.Unlock()

	s.publish(evs...)
	return true
}

// CopySelectedClips copies every selected clip, anchoring the earliest
// clip's start to targetStartTime and preserving the relative offsets among
// the copies. targetTrackID is honored only when all selected clips share
// one source track; selections spanning multiple tracks keep each copy on
// its own original track. Returns the new clip ids.
func (s *Store) CopySelectedClips(targetStartTime float64, targetTrackID string) []string {
	s.mu.Lock()
	selected := make([]*models.Clip, 0, len(s.sel.clipIDs))
	for _, clip := range s.flattenClipsLocked() {
		if _, ok := s.sel.clipIDs[clip.ID]; ok {
			selected = append(selected, clip)
		}
	}
	if len(selected) == 0 {
		s.mu.Unlock()
		return nil
	}

	earliest := selected[0].TimeRange.Start
	singleSource := true
	for _, clip := range selected {
		if clip.TimeRange.Start < earliest {
			earliest = clip.TimeRange.Start
		}
		if clip.TrackID != selected[0].TrackID {
			singleSource = false
		}
	}

	var ids []string
	var uploads []string
	var evs []*models.Event
	for _, clip := range selected {
		target := clip.TrackID
		if singleSource && targetTrackID != "" {
			target = targetTrackID
		}
		offset := clip.TimeRange.Start - earliest
		start := clampNonNegative(targetStartTime + offset)

		id, triggerUpload, ev := s.copyClipLocked(clip.ID, target, models.TimeRange{
			Start: start,
			End:   start + clip.TimeRange.Duration(),
		})
		if id == "" {
			continue
		}
		ids = append(ids, id)
		if triggerUpload {
			uploads = append(uploads, id)
		}
		evs = append(evs, ev)
	}
	s.mu.Unlock()

	s.publish(evs...)
	for _, id := range uploads {
		s.fireUpload(id)
	}
	return ids
}
