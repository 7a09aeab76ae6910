package models

import "time"

// Patch structs carry partial updates with named optional fields. A nil field
// leaves the target value unchanged. Apply merges the patch in place and
// returns true when at least one field was set.

// GroupPatch is a partial update for a Group.
type GroupPatch struct {
	Name     *string `json:"name,omitempty"`
	AssetID  *string `json:"asset_id,omitempty"`
	Expanded *bool   `json:"expanded,omitempty"`
	Visible  *bool   `json:"visible,omitempty"`
}

// Apply merges the patch into the group.
func (p GroupPatch) Apply(g *Group) bool {
	if g == nil {
		return false
	}
	changed := false
	if p.Name != nil {
		g.Name = *p.Name
		changed = true
	}
	if p.AssetID != nil {
		g.AssetID = *p.AssetID
		changed = true
	}
	if p.Expanded != nil {
		g.Expanded = *p.Expanded
		changed = true
	}
	if p.Visible != nil {
		g.Visible = *p.Visible
		changed = true
	}
	return changed
}

// AspectPatch is a partial update for an Aspect.
type AspectPatch struct {
	Name       *string `json:"name,omitempty"`
	AspectType *string `json:"aspect_type,omitempty"`
	Expanded   *bool   `json:"expanded,omitempty"`
	Visible    *bool   `json:"visible,omitempty"`
}

// Apply merges the patch into the aspect.
func (p AspectPatch) Apply(a *Aspect) bool {
	if a == nil {
		return false
	}
	changed := false
	if p.Name != nil {
		a.Name = *p.Name
		changed = true
	}
	if p.AspectType != nil {
		a.AspectType = *p.AspectType
		changed = true
	}
	if p.Expanded != nil {
		a.Expanded = *p.Expanded
		changed = true
	}
	if p.Visible != nil {
		a.Visible = *p.Visible
		changed = true
	}
	return changed
}

// TrackPatch is a partial update for a Track.
type TrackPatch struct {
	Name     *string   `json:"name,omitempty"`
	Property *string   `json:"property,omitempty"`
	Unit     *string   `json:"unit,omitempty"`
	DataType *DataType `json:"data_type,omitempty"`
	Muted    *bool     `json:"muted,omitempty"`
	Locked   *bool     `json:"locked,omitempty"`
	Visible  *bool     `json:"visible,omitempty"`
	Height   *int      `json:"height,omitempty"`
}

// Apply merges the patch into the track.
func (p TrackPatch) Apply(t *Track) bool {
	if t == nil {
		return false
	}
	changed := false
	if p.Name != nil {
		t.Name = *p.Name
		changed = true
	}
	if p.Property != nil {
		t.Property = *p.Property
		changed = true
	}
	if p.Unit != nil {
		t.Unit = *p.Unit
		changed = true
	}
	if p.DataType != nil {
		t.DataType = *p.DataType
		changed = true
	}
	if p.Muted != nil {
		t.Muted = *p.Muted
		changed = true
	}
	if p.Locked != nil {
		t.Locked = *p.Locked
		changed = true
	}
	if p.Visible != nil {
		t.Visible = *p.Visible
		changed = true
	}
	if p.Height != nil {
		t.Height = *p.Height
		changed = true
	}
	return changed
}

// ClipPatch is a partial update for a Clip.
type ClipPatch struct {
	Name          *string    `json:"name,omitempty"`
	TimeRange     *TimeRange `json:"time_range,omitempty"`
	State         *ClipState `json:"state,omitempty"`
	Progress      *float64   `json:"progress,omitempty"`
	Unit          *string    `json:"unit,omitempty"`
	DataType      *DataType  `json:"data_type,omitempty"`
	AbsoluteStart *time.Time `json:"absolute_start,omitempty"`
	AbsoluteEnd   *time.Time `json:"absolute_end,omitempty"`
	SourceClipID  *string    `json:"source_clip_id,omitempty"`
}

// Apply merges the patch into the clip.
func (p ClipPatch) Apply(c *Clip) bool {
	if c == nil {
		return false
	}
	changed := false
	if p.Name != nil {
		c.Name = *p.Name
		changed = true
	}
	if p.TimeRange != nil {
		c.TimeRange = *p.TimeRange
		changed = true
	}
	if p.State != nil {
		c.State = *p.State
		changed = true
	}
	if p.Progress != nil {
		c.Progress = *p.Progress
		changed = true
	}
	if p.Unit != nil {
		c.Unit = *p.Unit
		changed = true
	}
	if p.DataType != nil {
		c.DataType = *p.DataType
		changed = true
	}
	if p.AbsoluteStart != nil {
		t := *p.AbsoluteStart
		c.AbsoluteStart = &t
		changed = true
	}
	if p.AbsoluteEnd != nil {
		t := *p.AbsoluteEnd
		c.AbsoluteEnd = &t
		changed = true
	}
	if p.SourceClipID != nil {
		c.SourceClipID = *p.SourceClipID
		changed = true
	}
	return changed
}
