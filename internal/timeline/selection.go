package timeline

import (
	"github.com/hallgrim/tracksmith/internal/models"
)

// Selection and clipboard. The selection set is authoritative; each clip's
// Selected flag is re-derived in the same commit as every selection change.

// SelectClip handles a click on a clip. With rangeSel set and an existing
// anchor that differs from id, the click extends the selection across the
// inclusive display-order span. With multi set the clip is added to the
// selection; otherwise the selection is replaced. The anchor always moves to
// the explicitly clicked clip, including on multi additions.
func (s *Store) SelectClip(id string, multi, rangeSel bool) {
	s.mu.Lock()
	clip, _ := s.findClipLocked(id)
	if clip == nil {
		s.mu.Unlock()
		return
	}

	if rangeSel && s.sel.lastSelected != "" && s.sel.lastSelected != id {
		s.selectRangeLocked(s.sel.lastSelected, id)
	} else {
		if !multi {
			s.sel.clipIDs = make(map[string]struct{})
		}
		s.sel.clipIDs[id] = struct{}{}
		s.sel.lastSelected = id
		s.reapplySelectionLocked()
	}

	ev := s.event(models.EventTypeSelectionChanged, models.EntityTypeClip, id, nil)
	s.mu.Unlock()

	s.publish(ev)
}

// SelectClipRange extends the selection across the inclusive display-order
// span between two clips. The union is additive; the anchor moves to toID.
func (s *Store) SelectClipRange(fromID, toID string) {
	s.mu.Lock()
	s.selectRangeLocked(fromID, toID)
	ev := s.event(models.EventTypeSelectionChanged, models.EntityTypeClip, toID, nil)
	s.mu.Unlock()

	s.publish(ev)
}

func (s *Store) selectRangeLocked(fromID, toID string) {
	flat := s.flattenClipsLocked()
	fromPos, toPos := -1, -1
	for i, clip := range flat {
		if clip.ID == fromID {
			fromPos = i
		}
		if clip.ID == toID {
			toPos = i
		}
	}
	if fromPos < 0 || toPos < 0 {
		return
	}

	lo, hi := fromPos, toPos
	if lo > hi {
		lo, hi = hi, lo
	}
	for i := lo; i <= hi; i++ {
		s.sel.clipIDs[flat[i].ID] = struct{}{}
	}
	s.sel.lastSelected = toID
	s.reapplySelectionLocked()
}

// DeselectClip removes a clip from the selection.
func (s *Store) DeselectClip(id string) {
	s.mu.Lock()
	if _, ok := s.sel.clipIDs[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.sel.clipIDs, id)
	if s.sel.lastSelected == id {
		s.sel.lastSelected = ""
	}
	s.reapplySelectionLocked()
	ev := s.event(models.EventTypeSelectionChanged, models.EntityTypeClip, id, nil)
	s.mu.Unlock()

	s.publish(ev)
}

// ClearSelection empties the selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	if len(s.sel.clipIDs) == 0 && s.sel.lastSelected == "" {
		s.mu.Unlock()
		return
	}
	s.sel.clipIDs = make(map[string]struct{})
	s.sel.lastSelected = ""
	s.reapplySelectionLocked()
	ev := s.event(models.EventTypeSelectionChanged, models.EntityTypeClip, "", nil)
	s.mu.Unlock()

	s.publish(ev)
}

// SelectAll selects every clip on the timeline.
func (s *Store) SelectAll() {
	s.mu.Lock()
	for _, clip := range s.flattenClipsLocked() {
		s.sel.clipIDs[clip.ID] = struct{}{}
	}
	s.reapplySelectionLocked()
	ev := s.event(models.EventTypeSelectionChanged, models.EntityTypeClip, "", nil)
	s.mu.Unlock()

	s.publish(ev)
}

// SelectTrackClips replaces the selection with exactly one track's clips.
func (s *Store) SelectTrackClips(trackID string) {
	s.mu.Lock()
	track, _ := s.findTrackLocked(trackID)
	if track == nil {
		s.mu.Unlock()
		return
	}
	s.sel.clipIDs = make(map[string]struct{})
	for _, clip := range track.Clips {
		s.sel.clipIDs[clip.ID] = struct{}{}
	}
	s.sel.lastSelected = ""
	s.reapplySelectionLocked()
	ev := s.event(models.EventTypeSelectionChanged, models.EntityTypeTrack, trackID, nil)
	s.mu.Unlock()

	s.publish(ev)
}

// SelectionAnchor returns the current range-select anchor clip id.
func (s *Store) SelectionAnchor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.lastSelected
}

// SelectionCount returns the number of selected clips.
func (s *Store) SelectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sel.clipIDs)
}

// IsSelected reports whether a clip is in the selection set.
func (s *Store) IsSelected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sel.clipIDs[id]
	return ok
}

// reapplySelectionLocked re-derives every clip's Selected flag from set
// membership, in the same commit as the set change.
func (s *Store) reapplySelectionLocked() {
	for _, clip := range s.flattenClipsLocked() {
		_, ok := s.sel.clipIDs[clip.ID]
		clip.Selected = ok
	}
}

// CopySelection snapshots the selected clips into the clipboard. The
// snapshot records the first selected clip's track as the common source
// track. A no-op when nothing is selected. Returns the number of clips
// copied.
func (s *Store) CopySelection() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copySelectionLocked()
}

func (s *Store) copySelectionLocked() int {
	var selected []*models.Clip
	for _, clip := range s.flattenClipsLocked() {
		if _, ok := s.sel.clipIDs[clip.ID]; ok {
			selected = append(selected, clip.Clone())
		}
	}
	if len(selected) == 0 {
		return 0
	}

	s.clip = &clipboard{
		clips:         selected,
		sourceTrackID: selected[0].TrackID,
	}
	return len(selected)
}

// ClipboardLen returns the number of clips in the clipboard.
func (s *Store) ClipboardLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clip == nil {
		return 0
	}
	return len(s.clip.clips)
}

// Paste creates a new clip on the target track for every clipboard entry,
// each at [targetTime, targetTime + originalDuration]. Paste is
// unconditional placement: no unit/data-type compatibility check is applied,
// unlike move and copy. Returns the new clip ids.
func (s *Store) Paste(targetTrackID string, targetTime float64) []string {
	s.mu.Lock()
	if s.clip == nil || len(s.clip.clips) == 0 {
		s.mu.Unlock()
		return nil
	}

	targetTime = clampNonNegative(targetTime)

	var ids []string
	var uploads []string
	var evs []*models.Event
	for _, original := range s.clip.clips {
		id, triggerUpload, ev := s.addClipLocked(targetTrackID, ClipData{
			Name:         original.Name,
			TimeRange:    models.TimeRange{Start: targetTime, End: targetTime + original.TimeRange.Duration()},
			State:        original.State,
			Progress:     original.Progress,
			SourceClipID: original.SourceClipID,
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

// Cut copies the selection to the clipboard, then deletes every selected
// clip. The two steps are discrete, not atomic. Returns the number of clips
// cut.
func (s *Store) Cut() int {
	s.mu.Lock()
	count := s.copySelectionLocked()
	if count == 0 {
		s.mu.Unlock()
		return 0
	}

	var evs []*models.Event
	for id := range s.sel.clipIDs {
		clip, track := s.findClipLocked(id)
		if clip == nil {
			continue
		}
		for i, c := range track.Clips {
			if c.ID == id {
				track.Clips = append(track.Clips[:i], track.Clips[i+1:]...)
				break
			}
		}
		evs = append(evs, s.event(models.EventTypeClipRemoved, models.EntityTypeClip, id, nil))
	}
	s.sel.clipIDs = make(map[string]struct{})
	s.sel.lastSelected = ""
	s.mu.Unlock()

	s.publish(evs...)
	return count
}
