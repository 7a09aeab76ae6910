package timeline

import (
	"github.com/hallgrim/tracksmith/internal/models"
	"github.com/hallgrim/tracksmith/internal/timecode"
)

// Entity tree mutation and lookup. Lookups on missing ids return ok=false;
// mutations on missing ids are no-ops returning false. Sibling Index fields
// stay contiguous 0-based after every removal, for groups included.

// defaultTrackHeight is the lane height assigned to new tracks.
const defaultTrackHeight = 60

// AddGroup appends a new group and returns its id.
func (s *Store) AddGroup(name, assetID string) string {
	s.mu.Lock()
	group := &models.Group{
		ID:       newID(),
		Name:     name,
		AssetID:  assetID,
		Expanded: true,
		Visible:  true,
		Index:    len(s.groups),
	}
	if group.Name == "" {
		group.Name = "Asset"
	}
	s.groups = append(s.groups, group)
	ev := s.event(models.EventTypeGroupAdded, models.EntityTypeGroup, group.ID, nil)
	s.mu.Unlock()

	s.publish(ev)
	return group.ID
}

// RemoveGroup removes a group and everything it owns. Remaining groups are
// re-indexed to stay contiguous.
func (s *Store) RemoveGroup(id string) bool {
	s.mu.Lock()
	idx := -1
	for i, g := range s.groups {
		if g.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	removed := s.groups[idx]
	s.groups = append(s.groups[:idx], s.groups[idx+1:]...)
	for i, g := range s.groups {
		g.Index = i
	}

	// Cascading removal drops owned clips from the selection too.
	for _, aspect := range removed.Aspects {
		for _, track := range aspect.Tracks {
			for _, clip := range track.Clips {
				delete(s.sel.clipIDs, clip.ID)
				if s.sel.lastSelected == clip.ID {
					s.sel.lastSelected = ""
				}
			}
		}
	}

	ev := s.event(models.EventTypeGroupRemoved, models.EntityTypeGroup, id, nil)
	s.mu.Unlock()

	s.publish(ev)
	return true
}

// UpdateGroup applies a partial update to a group.
func (s *Store) UpdateGroup(id string, patch models.GroupPatch) bool {
	s.mu.Lock()
	group, _ := s.findGroupLocked(id)
	if group == nil {
		s.mu.Unlock()
		return false
	}
	changed := patch.Apply(group)
	var ev *models.Event
	if changed {
		ev = s.event(models.EventTypeGroupUpdated, models.EntityTypeGroup, id, nil)
	}
	s.mu.Unlock()

	s.publish(ev)
	return changed
}

// ToggleGroupExpanded flips a group's expanded flag.
func (s *Store) ToggleGroupExpanded(id string) bool {
	s.mu.Lock()
	group, _ := s.findGroupLocked(id)
	if group == nil {
		s.mu.Unlock()
		return false
	}
	group.Expanded = !group.Expanded
	ev := s.event(models.EventTypeGroupUpdated, models.EntityTypeGroup, id, nil)
	s.mu.Unlock()

	s.publish(ev)
	return true
}

// ToggleGroupVisible flips a group's visible flag.
func (s *Store) ToggleGroupVisible(id string) bool {
	s.mu.Lock()
	group, _ := s.findGroupLocked(id)
	if group == nil {
		s.mu.Unlock()
		return false
	}
	group.Visible = !group.Visible
	ev := s.event(models.EventTypeGroupUpdated, models.EntityTypeGroup, id, nil)
	s.mu.Unlock()

	s.publish(ev)
	return true
}

// AddAspect appends a new aspect to a group and returns its id. Returns ""
// when the group does not exist.
func (s *Store) AddAspect(groupID, name, aspectType string) string {
	s.mu.Lock()
	group, _ := s.findGroupLocked(groupID)
	if group == nil {
		s.mu.Unlock()
		return ""
	}

	aspect := &models.Aspect{
		ID:         newID(),
		GroupID:    groupID,
		Name:       name,
		AspectType: aspectType,
		Expanded:   true,
		Visible:    true,
		Index:      len(group.Aspects),
	}
	if aspect.Name == "" {
		aspect.Name = "Aspect"
	}
	group.Aspects = append(group.Aspects, aspect)
	ev := s.event(models.EventTypeAspectAdded, models.EntityTypeAspect, aspect.ID, nil)
	s.mu.Unlock()

	s.publish(ev)
	return aspect.ID
}

// RemoveAspect removes an aspect and re-indexes its siblings.
func (s *Store) RemoveAspect(id string) bool {
	s.mu.Lock()
	aspect, group := s.findAspectLocked(id)
	if aspect == nil {
		s.mu.Unlock()
		return false
	}

	for i, a := range group.Aspects {
		if a.ID == id {
			group.Aspects = append(group.Aspects[:i], group.Aspects[i+1:]...)
			break
		}
	}
	for i, a := range group.Aspects {
		a.Index = i
	}

	for _, track := range aspect.Tracks {
		for _, clip := range track.Clips {
			delete(s.sel.clipIDs, clip.ID)
			if s.sel.lastSelected == clip.ID {
				s.sel.lastSelected = ""
			}
		}
	}

	ev := s.event(models.EventTypeAspectRemoved, models.EntityTypeAspect, id, nil)
	s.mu.Unlock()

	s.publish(ev)
	return true
}

// UpdateAspect applies a partial update to an aspect.
func (s *Store) UpdateAspect(id string, patch models.AspectPatch) bool {
	s.mu.Lock()
	aspect, _ := s.findAspectLocked(id)
	if aspect == nil {
		s.mu.Unlock()
		return false
	}
	changed := patch.Apply(aspect)
	var ev *models.Event
	if changed {
		ev = s.event(models.EventTypeAspectUpdated, models.EntityTypeAspect, id, nil)
	}
	s.mu.Unlock()

	s.publish(ev)
	return changed
}

// ToggleAspectExpanded flips an aspect's expanded flag.
func (s *Store) ToggleAspectExpanded(id string) bool {
	s.mu.Lock()
	aspect, _ := s.findAspectLocked(id)
	if aspect == nil {
		s.mu.Unlock()
		return false
	}
	aspect.Expanded = !aspect.Expanded
	ev := s.event(models.EventTypeAspectUpdated, models.EntityTypeAspect, id, nil)
	s.mu.Unlock()

	s.publish(ev)
	return true
}

// AddTrack appends a new track to an aspect and returns its id. Returns ""
// when the aspect does not exist.
func (s *Store) AddTrack(aspectID, name, property string) string {
	s.mu.Lock()
	aspect, _ := s.findAspectLocked(aspectID)
	if aspect == nil {
		s.mu.Unlock()
		return ""
	}

	track := &models.Track{
		ID:       newID(),
		AspectID: aspectID,
		Name:     name,
		Property: property,
		Index:    len(aspect.Tracks),
		Visible:  true,
		Height:   defaultTrackHeight,
	}
	if track.Name == "" {
		track.Name = "Track"
	}
	aspect.Tracks = append(aspect.Tracks, track)
	ev := s.event(models.EventTypeTrackAdded, models.EntityTypeTrack, track.ID, nil)
	s.mu.Unlock()

	s.publish(ev)
	return track.ID
}

// RemoveTrack removes a track and re-indexes its siblings.
func (s *Store) RemoveTrack(id string) bool {
	s.mu.Lock()
	track, aspect := s.findTrackLocked(id)
	if track == nil {
		s.mu.Unlock()
		return false
	}

	for i, t := range aspect.Tracks {
		if t.ID == id {
			aspect.Tracks = append(aspect.Tracks[:i], aspect.Tracks[i+1:]...)
			break
		}
	}
	for i, t := range aspect.Tracks {
		t.Index = i
	}

	for _, clip := range track.Clips {
		delete(s.sel.clipIDs, clip.ID)
		if s.sel.lastSelected == clip.ID {
			s.sel.lastSelected = ""
		}
	}

	ev := s.event(models.EventTypeTrackRemoved, models.EntityTypeTrack, id, nil)
	s.mu.Unlock()

	s.publish(ev)
	return true
}

// UpdateTrack applies a partial update to a track.
func (s *Store) UpdateTrack(id string, patch models.TrackPatch) bool {
	s.mu.Lock()
	track, _ := s.findTrackLocked(id)
	if track == nil {
		s.mu.Unlock()
		return false
	}
	changed := patch.Apply(track)
	var ev *models.Event
	if changed {
		ev = s.event(models.EventTypeTrackUpdated, models.EntityTypeTrack, id, nil)
	}
	s.mu.Unlock()

	s.publish(ev)
	return changed
}

// ToggleTrackVisible flips a track's visible flag.
func (s *Store) ToggleTrackVisible(id string) bool {
	s.mu.Lock()
	track, _ := s.findTrackLocked(id)
	if track == nil {
		s.mu.Unlock()
		return false
	}
	track.Visible = !track.Visible
	ev := s.event(models.EventTypeTrackUpdated, models.EntityTypeTrack, id, nil)
	s.mu.Unlock()

	s.publish(ev)
	return true
}

// ReorderTracks moves the track at fromIndex to toIndex within an aspect and
// re-indexes the whole slice.
func (s *Store) ReorderTracks(aspectID string, fromIndex, toIndex int) bool {
	s.mu.Lock()
	aspect, _ := s.findAspectLocked(aspectID)
	if aspect == nil ||
		fromIndex < 0 || fromIndex >= len(aspect.Tracks) ||
		toIndex < 0 || toIndex >= len(aspect.Tracks) {
		s.mu.Unlock()
		return false
	}

	track := aspect.Tracks[fromIndex]
	aspect.Tracks = append(aspect.Tracks[:fromIndex], aspect.Tracks[fromIndex+1:]...)
	rest := append([]*models.Track{}, aspect.Tracks[toIndex:]...)
	aspect.Tracks = append(aspect.Tracks[:toIndex], track)
	aspect.Tracks = append(aspect.Tracks, rest...)
	for i, t := range aspect.Tracks {
		t.Index = i
	}

	ev := s.event(models.EventTypeTrackUpdated, models.EntityTypeTrack, track.ID, nil)
	s.mu.Unlock()

	s.publish(ev)
	return true
}

// ClipData carries the caller-specified fields for a new clip.
type ClipData struct {
	Name         string
	TimeRange    models.TimeRange
	State        models.ClipState
	Progress     float64
	SourceClipID string
}

// AddClip creates a clip on a track and returns its id. The clip inherits
// the track's unit and data type; absolute timestamps are resolved against
// the current timeline anchor. State defaults to idle and an idle clip
// triggers the upload simulation (fire-and-forget). Returns "" when the
// track does not exist or the time range is invalid.
func (s *Store) AddClip(trackID string, data ClipData) string {
	s.mu.Lock()
	id, triggerUpload, ev := s.addClipLocked(trackID, data)
	s.mu.Unlock()

	s.publish(ev)
	if triggerUpload {
		s.fireUpload(id)
	}
	return id
}

// addClipLocked creates the clip under the store lock. It returns the new
// id, whether the upload simulation should fire, and the commit event.
func (s *Store) addClipLocked(trackID string, data ClipData) (string, bool, *models.Event) {
	track, _ := s.findTrackLocked(trackID)
	if track == nil {
		return "", false, nil
	}
	if data.TimeRange.Start < 0 || data.TimeRange.End <= data.TimeRange.Start {
		s.logger.Warn().
			Str("track_id", trackID).
			Float64("start", data.TimeRange.Start).
			Float64("end", data.TimeRange.End).
			Msg("rejecting clip with invalid time range")
		return "", false, nil
	}

	state := data.State
	if state == "" {
		state = models.ClipStateIdle
	}
	name := data.Name
	if name == "" {
		name = track.Name
	}

	absStart := timecode.ToAbsolute(data.TimeRange.Start, s.state.StartTime)
	absEnd := timecode.ToAbsolute(data.TimeRange.End, s.state.StartTime)

	clip := &models.Clip{
		ID:            newID(),
		TrackID:       trackID,
		Name:          name,
		TimeRange:     data.TimeRange,
		State:         state,
		Progress:      data.Progress,
		Unit:          track.Unit,
		DataType:      track.DataType,
		AbsoluteStart: &absStart,
		AbsoluteEnd:   &absEnd,
		SourceClipID:  data.SourceClipID,
	}
	track.Clips = append(track.Clips, clip)

	ev := s.event(models.EventTypeClipAdded, models.EntityTypeClip, clip.ID, nil)
	return clip.ID, state == models.ClipStateIdle, ev
}

// RemoveClip deletes a clip from its track and drops it from the selection.
func (s *Store) RemoveClip(id string) bool {
	s.mu.Lock()
	clip, track := s.findClipLocked(id)
	if clip == nil {
		s.mu.Unlock()
		return false
	}

	for i, c := range track.Clips {
		if c.ID == id {
			track.Clips = append(track.Clips[:i], track.Clips[i+1:]...)
			break
		}
	}
	delete(s.sel.clipIDs, id)
	if s.sel.lastSelected == id {
		s.sel.lastSelected = ""
	}

	ev := s.event(models.EventTypeClipRemoved, models.EntityTypeClip, id, nil)
	s.mu.Unlock()

	s.publish(ev)
	return true
}

// UpdateClip applies a partial update to a clip. Updating a missing clip is
// a no-op; this is the silent-drop path for progress updates arriving after
// the clip was deleted.
func (s *Store) UpdateClip(id string, patch models.ClipPatch) bool {
	s.mu.Lock()
	clip, _ := s.findClipLocked(id)
	if clip == nil {
		s.mu.Unlock()
		return false
	}
	changed := patch.Apply(clip)
	var ev *models.Event
	if changed {
		ev = s.event(models.EventTypeClipUpdated, models.EntityTypeClip, id, nil)
	}
	s.mu.Unlock()

	s.publish(ev)
	return changed
}

// Group returns a deep copy of a group.
func (s *Store) Group(id string) (*models.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, _ := s.findGroupLocked(id)
	if group == nil {
		return nil, false
	}
	return group.Clone(), true
}

// Aspect returns a deep copy of an aspect.
func (s *Store) Aspect(id string) (*models.Aspect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	aspect, _ := s.findAspectLocked(id)
	if aspect == nil {
		return nil, false
	}
	return aspect.Clone(), true
}

// Track returns a deep copy of a track.
func (s *Store) Track(id string) (*models.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	track, _ := s.findTrackLocked(id)
	if track == nil {
		return nil, false
	}
	return track.Clone(), true
}

// Clip returns a deep copy of a clip.
func (s *Store) Clip(id string) (*models.Clip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clip, _ := s.findClipLocked(id)
	if clip == nil {
		return nil, false
	}
	return clip.Clone(), true
}

// AllTracks returns deep copies of every track in display order.
func (s *Store) AllTracks() []*models.Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Track
	for _, group := range s.groups {
		for _, aspect := range group.Aspects {
			for _, track := range aspect.Tracks {
				out = append(out, track.Clone())
			}
		}
	}
	return out
}

// SelectedClips returns deep copies of the selected clips in display order.
func (s *Store) SelectedClips() []*models.Clip {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Clip
	for _, clip := range s.flattenClipsLocked() {
		if _, ok := s.sel.clipIDs[clip.ID]; ok {
			out = append(out, clip.Clone())
		}
	}
	return out
}

// InstallGroups replaces the current tree with imported groups. Indices are
// renumbered to match slice order; the selection is cleared.
func (s *Store) InstallGroups(groups []*models.Group) {
	s.mu.Lock()
	s.groups = make([]*models.Group, len(groups))
	for i, g := range groups {
		clone := g.Clone()
		clone.Index = i
		for j, a := range clone.Aspects {
			a.Index = j
			a.GroupID = clone.ID
			for k, t := range a.Tracks {
				t.Index = k
				t.AspectID = a.ID
			}
		}
		s.groups[i] = clone
	}
	s.sel.clipIDs = make(map[string]struct{})
	s.sel.lastSelected = ""
	s.clip = nil

	ev := s.event(models.EventTypeTimelineRanged, models.EntityTypeTimeline, "tree", nil)
	s.mu.Unlock()

	s.publish(ev)
}

// Lookup helpers. Linear scans are fine at the expected scale of tens of
// tracks.

func (s *Store) findGroupLocked(id string) (*models.Group, int) {
	for i, g := range s.groups {
		if g.ID == id {
			return g, i
		}
	}
	return nil, -1
}

func (s *Store) findAspectLocked(id string) (*models.Aspect, *models.Group) {
	for _, g := range s.groups {
		for _, a := range g.Aspects {
			if a.ID == id {
				return a, g
			}
		}
	}
	return nil, nil
}

func (s *Store) findTrackLocked(id string) (*models.Track, *models.Aspect) {
	for _, g := range s.groups {
		for _, a := range g.Aspects {
			for _, t := range a.Tracks {
				if t.ID == id {
					return t, a
				}
			}
		}
	}
	return nil, nil
}

func (s *Store) findClipLocked(id string) (*models.Clip, *models.Track) {
	for _, g := range s.groups {
		for _, a := range g.Aspects {
			for _, t := range a.Tracks {
				for _, c := range t.Clips {
					if c.ID == id {
						return c, t
					}
				}
			}
		}
	}
	return nil, nil
}

// flattenClipsLocked returns every clip in display order: groups, aspects,
// tracks and clips each in slice (index) order.
func (s *Store) flattenClipsLocked() []*models.Clip {
	var out []*models.Clip
	for _, g := range s.groups {
		for _, a := range g.Aspects {
			for _, t := range a.Tracks {
				out = append(out, t.Clips...)
			}
		}
	}
	return out
}
