package models

import (
	"encoding/json"
	"time"
)

// EventType categorizes engine events.
type EventType string

const (
	// Tree events
	EventTypeGroupAdded    EventType = "group.added"
	EventTypeGroupRemoved  EventType = "group.removed"
	EventTypeGroupUpdated  EventType = "group.updated"
	EventTypeAspectAdded   EventType = "aspect.added"
	EventTypeAspectRemoved EventType = "aspect.removed"
	EventTypeAspectUpdated EventType = "aspect.updated"
	EventTypeTrackAdded    EventType = "track.added"
	EventTypeTrackRemoved  EventType = "track.removed"
	EventTypeTrackUpdated  EventType = "track.updated"

	// Clip events
	EventTypeClipAdded    EventType = "clip.added"
	EventTypeClipRemoved  EventType = "clip.removed"
	EventTypeClipUpdated  EventType = "clip.updated"
	EventTypeClipMoved    EventType = "clip.moved"
	EventTypeClipProgress EventType = "clip.progress"

	// Selection events
	EventTypeSelectionChanged EventType = "selection.changed"

	// Timeline events
	EventTypeViewportChanged EventType = "viewport.changed"
	EventTypeTimelineRanged  EventType = "timeline.reanchored"

	// Sync job events
	EventTypeJobStarted   EventType = "job.started"
	EventTypeJobCompleted EventType = "job.completed"
	EventTypeJobFailed    EventType = "job.failed"

	// System events
	EventTypeWarning EventType = "warning"
)

// EntityType identifies the kind of entity an event relates to.
type EntityType string

const (
	EntityTypeGroup    EntityType = "group"
	EntityTypeAspect   EntityType = "aspect"
	EntityTypeTrack    EntityType = "track"
	EntityTypeClip     EntityType = "clip"
	EntityTypeTimeline EntityType = "timeline"
	EntityTypeJob      EntityType = "job"
	EntityTypeSystem   EntityType = "system"
)

// Event is a notification emitted by the engine after a committed mutation.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID of the related entity.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Metadata contains additional context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ProgressPayload is the payload for clip.progress events.
type ProgressPayload struct {
	Progress float64   `json:"progress"`
	State    ClipState `json:"state"`
}

// MovePayload is the payload for clip.moved events.
type MovePayload struct {
	FromTrackID string    `json:"from_track_id"`
	ToTrackID   string    `json:"to_track_id"`
	TimeRange   TimeRange `json:"time_range"`
}
