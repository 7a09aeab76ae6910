// Package models defines the core domain types for Tracksmith.
package models

import (
	"time"
)

// DataType is the value type of a measured property.
type DataType string

const (
	DataTypeBoolean   DataType = "Boolean"
	DataTypeInt       DataType = "Int"
	DataTypeLong      DataType = "Long"
	DataTypeDouble    DataType = "Double"
	DataTypeString    DataType = "String"
	DataTypeBigString DataType = "Big_string"
	DataTypeTimestamp DataType = "Timestamp"
)

// ParseDataType maps an external API type string (BOOLEAN, INT, LONG, DOUBLE,
// STRING, BIG_STRING, TIMESTAMP) to a DataType. Unrecognized types default to
// String.
func ParseDataType(s string) DataType {
	switch s {
	case "BOOLEAN":
		return DataTypeBoolean
	case "INT":
		return DataTypeInt
	case "LONG":
		return DataTypeLong
	case "DOUBLE":
		return DataTypeDouble
	case "STRING":
		return DataTypeString
	case "BIG_STRING":
		return DataTypeBigString
	case "TIMESTAMP":
		return DataTypeTimestamp
	default:
		return DataTypeString
	}
}

// ClipState represents the sync lifecycle of a clip.
type ClipState string

const (
	ClipStateIdle       ClipState = "idle"
	ClipStateUploading  ClipState = "uploading"
	ClipStateProcessing ClipState = "processing"
	ClipStateComplete   ClipState = "complete"
	ClipStateError      ClipState = "error"
)

// IsTerminal returns true for states that end a clip's sync lifecycle.
func (s ClipState) IsTerminal() bool {
	return s == ClipStateComplete || s == ClipStateError
}

// TimeRange is a clip's position in seconds relative to the timeline start.
type TimeRange struct {
	// Start is the inclusive start offset in seconds.
	Start float64 `json:"start"`

	// End is the exclusive end offset in seconds. End > Start.
	End float64 `json:"end"`
}

// Duration returns the range length in seconds.
func (r TimeRange) Duration() float64 {
	return r.End - r.Start
}

// Group is a top-level entity representing one industrial asset.
// It exclusively owns its aspects.
type Group struct {
	// ID is the unique identifier for the group.
	ID string `json:"id"`

	// Name is the human-friendly asset name.
	Name string `json:"name"`

	// AssetID is the external asset-management system reference (optional).
	AssetID string `json:"asset_id,omitempty"`

	// Expanded controls whether the group's aspects are shown.
	Expanded bool `json:"expanded"`

	// Visible controls whether the group is rendered at all.
	Visible bool `json:"visible"`

	// Index is the sibling order among groups.
	Index int `json:"index"`

	// Aspects is the ordered list of owned aspects.
	Aspects []*Aspect `json:"aspects"`
}

// Aspect is a named category of measurements belonging to a Group.
type Aspect struct {
	// ID is the unique identifier for the aspect.
	ID string `json:"id"`

	// GroupID is a lookup-only back-reference to the owning group.
	GroupID string `json:"group_id"`

	// Name is the aspect name (e.g. "Electric_Motor_Data").
	Name string `json:"name"`

	// AspectType is the external aspect type name (optional).
	AspectType string `json:"aspect_type,omitempty"`

	// Expanded controls whether the aspect's tracks are shown.
	Expanded bool `json:"expanded"`

	// Visible controls whether the aspect is rendered.
	Visible bool `json:"visible"`

	// Index is the order within the group.
	Index int `json:"index"`

	// Tracks is the ordered list of owned tracks.
	Tracks []*Track `json:"tracks"`
}

// Track is a single measured property within an Aspect; one horizontal
// timeline lane.
type Track struct {
	// ID is the unique identifier for the track.
	ID string `json:"id"`

	// AspectID is a lookup-only back-reference to the owning aspect.
	AspectID string `json:"aspect_id"`

	// Name is the track display name.
	Name string `json:"name"`

	// Property is the measured property name (optional).
	Property string `json:"property,omitempty"`

	// Unit is the engineering unit of the property (optional).
	Unit string `json:"unit,omitempty"`

	// DataType is the value type of the property (optional).
	DataType DataType `json:"data_type,omitempty"`

	// Index is the order within the aspect.
	Index int `json:"index"`

	// Muted excludes the track from interaction.
	Muted bool `json:"muted"`

	// Locked prevents edits to the track's clips.
	Locked bool `json:"locked"`

	// Visible controls whether the lane is rendered.
	Visible bool `json:"visible"`

	// Height is the lane height in pixels.
	Height int `json:"height"`

	// Clips is the ordered list of owned clips.
	Clips []*Clip `json:"clips"`
}

// Clip is a time-bounded data window placed on a track.
type Clip struct {
	// ID is the unique identifier for the clip.
	ID string `json:"id"`

	// TrackID is the owning track's id.
	TrackID string `json:"track_id"`

	// Name is the clip display name.
	Name string `json:"name"`

	// TimeRange is the clip position in seconds relative to the timeline
	// start. It is a projection of the absolute timestamps under the current
	// anchor and is recomputed when the timeline is re-anchored.
	TimeRange TimeRange `json:"time_range"`

	// State is the sync lifecycle state.
	State ClipState `json:"state"`

	// Progress is the sync progress, 0-100.
	Progress float64 `json:"progress"`

	// Selected mirrors membership in the selection set. The selection set is
	// authoritative; this field is re-derived on every selection change.
	Selected bool `json:"selected"`

	// Unit is inherited from the track at creation time (optional).
	Unit string `json:"unit,omitempty"`

	// DataType is inherited from the track at creation time (optional).
	DataType DataType `json:"data_type,omitempty"`

	// AbsoluteStart and AbsoluteEnd are the durable time identity of the
	// clip, independent of timeline re-anchoring. When present they are the
	// source of truth for the clip's position.
	AbsoluteStart *time.Time `json:"absolute_start,omitempty"`
	AbsoluteEnd   *time.Time `json:"absolute_end,omitempty"`

	// SourceClipID links this clip to the clip it pulls data from when it is
	// the destination half of a sync mapping (optional).
	SourceClipID string `json:"source_clip_id,omitempty"`
}

// Clone returns a deep copy of the group and everything it owns.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	out := *g
	out.Aspects = make([]*Aspect, len(g.Aspects))
	for i, a := range g.Aspects {
		out.Aspects[i] = a.Clone()
	}
	return &out
}

// Clone returns a deep copy of the aspect and everything it owns.
func (a *Aspect) Clone() *Aspect {
	if a == nil {
		return nil
	}
	out := *a
	out.Tracks = make([]*Track, len(a.Tracks))
	for i, t := range a.Tracks {
		out.Tracks[i] = t.Clone()
	}
	return &out
}

// Clone returns a deep copy of the track and its clips.
func (t *Track) Clone() *Track {
	if t == nil {
		return nil
	}
	out := *t
	out.Clips = make([]*Clip, len(t.Clips))
	for i, c := range t.Clips {
		out.Clips[i] = c.Clone()
	}
	return &out
}

// Clone returns a deep copy of the clip.
func (c *Clip) Clone() *Clip {
	if c == nil {
		return nil
	}
	out := *c
	if c.AbsoluteStart != nil {
		t := *c.AbsoluteStart
		out.AbsoluteStart = &t
	}
	if c.AbsoluteEnd != nil {
		t := *c.AbsoluteEnd
		out.AbsoluteEnd = &t
	}
	return &out
}

// Validate checks if the clip's time range is valid.
func (c *Clip) Validate() error {
	validation := &ValidationErrors{}
	if c.TrackID == "" {
		validation.AddMessage("track_id", "track id is required")
	}
	if c.TimeRange.Start < 0 {
		validation.AddMessage("time_range.start", "start must be >= 0")
	}
	if c.TimeRange.End <= c.TimeRange.Start {
		validation.AddMessage("time_range.end", "end must be greater than start")
	}
	if c.Progress < 0 || c.Progress > 100 {
		validation.AddMessage("progress", "progress must be between 0 and 100")
	}
	return validation.Err()
}

// Compatible reports whether a clip originating on one track may be placed on
// another. Unit and data type must match exactly.
func Compatible(source, target *Track) bool {
	if source == nil || target == nil {
		return false
	}
	return source.Unit == target.Unit && source.DataType == target.DataType
}
