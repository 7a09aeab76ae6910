package server

import (
	"time"

	"github.com/hallgrim/tracksmith/internal/models"
	"github.com/hallgrim/tracksmith/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	Groups      int `json:"groups"`
	Tracks      int `json:"tracks"`
	Clips       int `json:"clips"`
	Selected    int `json:"selected"`
	Clipboard   int `json:"clipboard"`
	WatchedJobs int `json:"watched_jobs"`
}

type TreeResponse struct {
	Groups []*models.Group `json:"groups"`
}

type TimelineResponse struct {
	Zoom             float64 `json:"zoom"`
	ScrollX          float64 `json:"scroll_x"`
	ScrollY          float64 `json:"scroll_y"`
	Duration         float64 `json:"duration"`
	Playhead         float64 `json:"playhead"`
	GridSnap         bool    `json:"grid_snap"`
	SnapInterval     float64 `json:"snap_interval"`
	StartTime        string  `json:"start_time"`
	ViewportStart    float64 `json:"viewport_start"`
	ViewportDuration float64 `json:"viewport_duration"`
}

type TimelineRangeRequest struct {
	Start           string  `json:"start"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type ViewportRequest struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

type ZoomRequest struct {
	Zoom float64 `json:"zoom"`
}

type ScrollRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PlayheadRequest struct {
	Seconds float64 `json:"seconds"`
}

type CreateClipRequest struct {
	TrackID string  `json:"track_id"`
	Name    string  `json:"name,omitempty"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

type ClipIDResponse struct {
	ID string `json:"id"`
}

type ClipIDsResponse struct {
	IDs []string `json:"ids"`
}

type ChangedResponse struct {
	Changed bool `json:"changed"`
}

type PlaceClipRequest struct {
	TrackID string  `json:"track_id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

type SelectRequest struct {
	ClipID string `json:"clip_id"`
	Multi  bool   `json:"multi,omitempty"`
	Range  bool   `json:"range,omitempty"`
}

type SelectRangeRequest struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type PasteRequest struct {
	TrackID string  `json:"track_id"`
	Time    float64 `json:"time"`
}

type MoveSelectionRequest struct {
	DeltaSeconds float64                     `json:"delta_seconds"`
	TrackID      string                      `json:"track_id,omitempty"`
	Originals    map[string]models.TimeRange `json:"originals,omitempty"`
}

type CopySelectionRequest struct {
	Time    float64 `json:"time"`
	TrackID string  `json:"track_id,omitempty"`
}

type ImportRequest struct {
	TypeFilter string   `json:"type_filter,omitempty"`
	AssetIDs   []string `json:"asset_ids,omitempty"`
	Cached     bool     `json:"cached,omitempty"`
}

type ImportResponse struct {
	Groups int `json:"groups"`
}

type SyncRequest struct {
	Mode string `json:"mode,omitempty"`
}

type SyncResponse struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Mappings int    `json:"mappings"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func TimelineToResponse(state timeline.State) TimelineResponse {
	return TimelineResponse{
		Zoom:             state.Zoom,
		ScrollX:          state.ScrollX,
		ScrollY:          state.ScrollY,
		Duration:         state.Duration,
		Playhead:         state.Playhead,
		GridSnap:         state.GridSnap,
		SnapInterval:     state.SnapInterval,
		StartTime:        state.StartTime.UTC().Format(time.RFC3339),
		ViewportStart:    state.ViewportStart,
		ViewportDuration: state.ViewportDuration,
	}
}
