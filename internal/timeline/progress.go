package timeline

import (
	"github.com/hallgrim/tracksmith/internal/models"
)

// Job progress adapter: applies asynchronous progress events from the sync
// backend to clip state. Delivery order and reliability are the backend's
// responsibility; the adapter does not defend against regressive updates.

// HandleProgress applies a progress event to a clip. Events for clips that
// no longer exist are silently dropped.
func (s *Store) HandleProgress(clipID string, progress float64, state models.ClipState) {
	s.mu.Lock()
	clip, _ := s.findClipLocked(clipID)
	if clip == nil {
		s.mu.Unlock()
		return
	}

	clip.Progress = progress
	clip.State = state

	ev := s.event(models.EventTypeClipProgress, models.EntityTypeClip, clipID, models.ProgressPayload{
		Progress: progress,
		State:    state,
	})
	s.mu.Unlock()

	s.publish(ev)
}
