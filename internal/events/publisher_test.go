package events

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallgrim/tracksmith/internal/models"
)

func TestFilterMatches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		event  *models.Event
		want   bool
	}{
		{
			name:   "empty filter matches any event",
			filter: Filter{},
			event:  &models.Event{Type: models.EventTypeClipAdded, EntityType: models.EntityTypeClip, EntityID: "clip-1"},
			want:   true,
		},
		{
			name:   "nil event returns false",
			filter: Filter{},
			event:  nil,
			want:   false,
		},
		{
			name:   "event type filter matches",
			filter: Filter{EventTypes: []models.EventType{models.EventTypeClipProgress}},
			event:  &models.Event{Type: models.EventTypeClipProgress, EntityType: models.EntityTypeClip, EntityID: "clip-1"},
			want:   true,
		},
		{
			name:   "event type filter rejects non-matching",
			filter: Filter{EventTypes: []models.EventType{models.EventTypeClipProgress}},
			event:  &models.Event{Type: models.EventTypeClipRemoved, EntityType: models.EntityTypeClip, EntityID: "clip-1"},
			want:   false,
		},
		{
			name:   "entity type filter matches",
			filter: Filter{EntityTypes: []models.EntityType{models.EntityTypeTrack}},
			event:  &models.Event{Type: models.EventTypeTrackUpdated, EntityType: models.EntityTypeTrack, EntityID: "track-1"},
			want:   true,
		},
		{
			name:   "entity id filter rejects other entities",
			filter: Filter{EntityID: "clip-1"},
			event:  &models.Event{Type: models.EventTypeClipUpdated, EntityType: models.EntityTypeClip, EntityID: "clip-2"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.event))
		})
	}
}

func TestPublishDeliversToMatchingSubscribers(t *testing.T) {
	p := NewInMemoryPublisher()

	var clipEvents, trackEvents atomic.Int64
	require.NoError(t, p.Subscribe("clips", Filter{EntityTypes: []models.EntityType{models.EntityTypeClip}}, func(*models.Event) {
		clipEvents.Add(1)
	}))
	require.NoError(t, p.Subscribe("tracks", Filter{EntityTypes: []models.EntityType{models.EntityTypeTrack}}, func(*models.Event) {
		trackEvents.Add(1)
	}))

	p.Publish(context.Background(), &models.Event{Type: models.EventTypeClipAdded, EntityType: models.EntityTypeClip, EntityID: "clip-1"})
	p.Publish(context.Background(), &models.Event{Type: models.EventTypeClipMoved, EntityType: models.EntityTypeClip, EntityID: "clip-1"})

	assert.Equal(t, int64(2), clipEvents.Load())
	assert.Equal(t, int64(0), trackEvents.Load())
}

func TestSubscribeValidation(t *testing.T) {
	p := NewInMemoryPublisher()

	assert.ErrorIs(t, p.Subscribe("", Filter{}, func(*models.Event) {}), ErrInvalidSubscriptionID)
	assert.ErrorIs(t, p.Subscribe("a", Filter{}, nil), ErrNilHandler)

	require.NoError(t, p.Subscribe("a", Filter{}, func(*models.Event) {}))
	assert.ErrorIs(t, p.Subscribe("a", Filter{}, func(*models.Event) {}), ErrSubscriptionExists)
	assert.Equal(t, 1, p.SubscriberCount())

	require.NoError(t, p.Unsubscribe("a"))
	assert.ErrorIs(t, p.Unsubscribe("a"), ErrSubscriptionNotFound)
	assert.Equal(t, 0, p.SubscriberCount())
}

func TestHandlerMayReenterPublisher(t *testing.T) {
	p := NewInMemoryPublisher()

	require.NoError(t, p.Subscribe("reentrant", Filter{}, func(*models.Event) {
		// Re-entering from a handler must not deadlock.
		_ = p.SubscriberCount()
	}))

	p.Publish(context.Background(), &models.Event{Type: models.EventTypeWarning, EntityType: models.EntityTypeSystem, EntityID: "sys"})
}
