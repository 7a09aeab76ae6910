// Package timeline implements the timeline state engine: the owned
// Group → Aspect → Track → Clip hierarchy, selection and clipboard, clip
// placement, the viewport controller, and the job-progress adapter.
//
// All state lives in a Store. Every exported operation is one atomic
// read-compute-commit section guarded by the store mutex; no reader ever
// observes a partially updated tree. Events describing committed mutations
// are published after the lock is released.
package timeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hallgrim/tracksmith/internal/events"
	"github.com/hallgrim/tracksmith/internal/logging"
	"github.com/hallgrim/tracksmith/internal/models"
)

// Zoom is clamped to this range everywhere. The lower bound admits
// multi-month timelines in a viewport-driven session; 200 px/s is the
// practical upper bound before individual samples stop being meaningful.
const (
	MinZoom = 0.0001
	MaxZoom = 200
)

// maxTimelinePixels caps the projected total width duration*zoom. Re-anchoring
// to a long range auto-reduces zoom so the projection stays under this.
const maxTimelinePixels = 500_000

// State holds the timeline's zoom/scroll/viewport quantities.
type State struct {
	// Zoom is the scale in pixels per second, clamped to [MinZoom, MaxZoom].
	Zoom float64 `json:"zoom"`

	// ScrollX and ScrollY are the scroll offsets in pixels.
	ScrollX float64 `json:"scroll_x"`
	ScrollY float64 `json:"scroll_y"`

	// Duration is the total timeline length in seconds.
	Duration float64 `json:"duration"`

	// Playhead is the playhead position in seconds.
	Playhead float64 `json:"playhead"`

	// GridSnap enables snapping times to the grid.
	GridSnap bool `json:"grid_snap"`

	// SnapInterval is the grid interval in seconds.
	SnapInterval float64 `json:"snap_interval"`

	// StartTime is the absolute anchor for relative second 0.
	StartTime time.Time `json:"start_time"`

	// ViewportStart and ViewportDuration describe the visible sub-range in
	// seconds. Invariant: ScrollX == ViewportStart * Zoom after every setter.
	ViewportStart    float64 `json:"viewport_start"`
	ViewportDuration float64 `json:"viewport_duration"`
}

// selection is the authoritative selection set plus the range anchor.
type selection struct {
	clipIDs map[string]struct{}

	// lastSelected is the most recently explicitly clicked clip; it anchors
	// range selection and is updated on every explicit click, including
	// multi-select additions.
	lastSelected string
}

// clipboard is an immutable snapshot of copied clips.
type clipboard struct {
	clips         []*models.Clip
	sourceTrackID string
}

// UploadHook is invoked (fire-and-forget) when a clip enters the idle state
// on creation, to start the external upload/sync simulation.
type UploadHook func(clipID string)

// Store is the single-writer state container for one editor session.
type Store struct {
	mu sync.Mutex

	groups    []*models.Group
	sel       selection
	clip      *clipboard
	state     State
	publisher events.Publisher
	upload    UploadHook
	logger    zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPublisher attaches an event publisher notified after each commit.
func WithPublisher(p events.Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithUploadHook attaches the upload-simulation trigger for idle clips.
func WithUploadHook(h UploadHook) Option {
	return func(s *Store) { s.upload = h }
}

// WithState seeds the initial timeline state. Zoom is clamped.
func WithState(state State) Option {
	return func(s *Store) {
		state.Zoom = clampZoom(state.Zoom)
		if state.ViewportDuration <= 0 {
			state.ViewportDuration = state.Duration
		}
		s.state = state
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sel:    selection{clipIDs: make(map[string]struct{})},
		logger: logging.Component("timeline"),
		state: State{
			Zoom:             10,
			Duration:         3600,
			SnapInterval:     1,
			StartTime:        time.Now().UTC().Truncate(time.Second),
			ViewportDuration: 3600,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current timeline state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a deep copy of the whole entity tree in display order.
func (s *Store) Snapshot() []*models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Group, len(s.groups))
	for i, g := range s.groups {
		out[i] = g.Clone()
	}
	return out
}

// newID generates an entity id.
func newID() string {
	return uuid.New().String()
}

func clampZoom(z float64) float64 {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

func clampNonNegative(t float64) float64 {
	if t < 0 {
		return 0
	}
	return t
}

// event builds an engine event. Payload marshal failures degrade to a
// payload-less event; notification must not fail a committed mutation.
func (s *Store) event(typ models.EventType, entityType models.EntityType, entityID string, payload any) *models.Event {
	ev := &models.Event{
		ID:         newID(),
		Timestamp:  time.Now().UTC(),
		Type:       typ,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			ev.Payload = data
		}
	}
	return ev
}

// publish sends events to the publisher. Callers invoke it after releasing
// the store mutex so handlers may re-enter the store.
func (s *Store) publish(evs ...*models.Event) {
	if s.publisher == nil {
		return
	}
	ctx := context.Background()
	for _, ev := range evs {
		if ev != nil {
			s.publisher.Publish(ctx, ev)
		}
	}
}

// fireUpload triggers the upload simulation for a clip, fire-and-forget.
func (s *Store) fireUpload(clipID string) {
	if s.upload == nil {
		return
	}
	go s.upload(clipID)
}
