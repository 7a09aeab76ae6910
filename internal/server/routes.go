package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hallgrim/tracksmith/internal/importer"
	"github.com/hallgrim/tracksmith/internal/models"
	"github.com/hallgrim/tracksmith/internal/syncjob"
)

// AssetImporter is the import surface the routes need. *importer.Importer
// satisfies it.
type AssetImporter interface {
	Import(ctx context.Context, q importer.Query) ([]*models.Group, error)
	LoadCached(ctx context.Context) ([]*models.Group, error)
}

// SyncTrigger is the sync backend surface the routes need.
// *syncjob.TriggerClient satisfies it.
type SyncTrigger interface {
	Trigger(ctx context.Context, mode string, mappings []syncjob.PropertyMapping, transform *syncjob.TransformationConfig) (*syncjob.TriggerResponse, error)
	JobStatus(ctx context.Context, jobID string) (*syncjob.PollResult, error)
}

// JobWatcher registers triggered jobs for status polling. *syncjob.Poller
// satisfies it.
type JobWatcher interface {
	Watch(jobID string, clipIDs []string) error
	WatchedJobs() int
}

// NewRouter builds the HTTP surface over the timeline store.
func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Get("/status", statusHandler(cfg))
	r.Get("/tree", treeHandler(cfg))

	r.Route("/timeline", func(r chi.Router) {
		r.Get("/", timelineHandler(cfg))
		r.Post("/range", timelineRangeHandler(cfg))
		r.Post("/zoom", zoomHandler(cfg))
		r.Post("/scroll", scrollHandler(cfg))
		r.Post("/viewport", viewportHandler(cfg))
		r.Post("/playhead", playheadHandler(cfg))
	})

	r.Route("/clips", func(r chi.Router) {
		r.Post("/", createClipHandler(cfg))
		r.Get("/{id}", getClipHandler(cfg))
		r.Patch("/{id}", patchClipHandler(cfg))
		r.Delete("/{id}", deleteClipHandler(cfg))
		r.Post("/{id}/move", moveClipHandler(cfg))
		r.Post("/{id}/copy", copyClipHandler(cfg))
		r.Post("/{id}/duplicate", duplicateClipHandler(cfg))
	})

	r.Route("/selection", func(r chi.Router) {
		r.Post("/", selectHandler(cfg))
		r.Post("/range", selectRangeHandler(cfg))
		r.Delete("/", clearSelectionHandler(cfg))
		r.Post("/copy", copySelectionHandler(cfg))
		r.Post("/cut", cutHandler(cfg))
		r.Post("/paste", pasteHandler(cfg))
		r.Post("/move", moveSelectionHandler(cfg))
		r.Post("/copy-to", copySelectionToHandler(cfg))
	})

	r.Post("/import", importHandler(cfg))
	r.Post("/sync", syncHandler(cfg))
	r.Get("/jobs/{id}", jobStatusHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups := cfg.Store.Snapshot()
		tracks := cfg.Store.AllTracks()

		clips := 0
		for _, track := range tracks {
			clips += len(track.Clips)
		}

		resp := StatusResponse{
			Groups:    len(groups),
			Tracks:    len(tracks),
			Clips:     clips,
			Selected:  cfg.Store.SelectionCount(),
			Clipboard: cfg.Store.ClipboardLen(),
		}
		if cfg.Watcher != nil {
			resp.WatchedJobs = cfg.Watcher.WatchedJobs()
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func treeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, TreeResponse{Groups: cfg.Store.Snapshot()})
	}
}

func timelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, TimelineToResponse(cfg.Store.State()))
	}
}

func timelineRangeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TimelineRangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "start must be RFC3339", "BAD_REQUEST")
			return
		}
		if req.DurationSeconds <= 0 {
			WriteError(w, http.StatusBadRequest, "duration_seconds must be positive", "BAD_REQUEST")
			return
		}

		cfg.Store.SetTimelineRange(start, req.DurationSeconds)
		WriteJSON(w, http.StatusOK, TimelineToResponse(cfg.Store.State()))
	}
}

func zoomHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ZoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Store.SetZoom(req.Zoom)
		WriteJSON(w, http.StatusOK, TimelineToResponse(cfg.Store.State()))
	}
}

func scrollHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScrollRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Store.SetScroll(req.X, req.Y)
		WriteJSON(w, http.StatusOK, TimelineToResponse(cfg.Store.State()))
	}
}

func viewportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ViewportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Store.SetViewport(req.Start, req.Duration)
		WriteJSON(w, http.StatusOK, TimelineToResponse(cfg.Store.State()))
	}
}

func playheadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlayheadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Store.SetPlayhead(req.Seconds)
		WriteJSON(w, http.StatusOK, TimelineToResponse(cfg.Store.State()))
	}
}

func createClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.TrackID == "" {
			WriteError(w, http.StatusBadRequest, "track_id is required", "BAD_REQUEST")
			return
		}

		id := cfg.Store.AddClip(req.TrackID, timelineClipData(req))
		if id == "" {
			WriteError(w, http.StatusBadRequest, "clip rejected: invalid range or unknown track", "REJECTED")
			return
		}

		WriteJSON(w, http.StatusCreated, ClipIDResponse{ID: id})
	}
}

func getClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clip, ok := cfg.Store.Clip(chi.URLParam(r, "id"))
		if !ok {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, clip)
	}
}

func patchClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch models.ClipPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		changed := cfg.Store.UpdateClip(chi.URLParam(r, "id"), patch)
		WriteJSON(w, http.StatusOK, ChangedResponse{Changed: changed})
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		changed := cfg.Store.RemoveClip(chi.URLParam(r, "id"))
		WriteJSON(w, http.StatusOK, ChangedResponse{Changed: changed})
	}
}

func moveClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlaceClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		moved := cfg.Store.MoveClip(chi.URLParam(r, "id"), req.TrackID, models.TimeRange{Start: req.Start, End: req.End})
		if !moved {
			WriteError(w, http.StatusConflict, "move rejected: missing entity or incompatible track", "REJECTED")
			return
		}
		WriteJSON(w, http.StatusOK, ChangedResponse{Changed: true})
	}
}

func copyClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlaceClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		id := cfg.Store.CopyClip(chi.URLParam(r, "id"), req.TrackID, models.TimeRange{Start: req.Start, End: req.End})
		if id == "" {
			WriteError(w, http.StatusConflict, "copy rejected: missing entity or incompatible track", "REJECTED")
			return
		}
		WriteJSON(w, http.StatusCreated, ClipIDResponse{ID: id})
	}
}

func duplicateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := cfg.Store.DuplicateClip(chi.URLParam(r, "id"))
		if id == "" {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusCreated, ClipIDResponse{ID: id})
	}
}

func selectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.ClipID == "" {
			WriteError(w, http.StatusBadRequest, "clip_id is required", "BAD_REQUEST")
			return
		}

		cfg.Store.SelectClip(req.ClipID, req.Multi, req.Range)
		WriteJSON(w, http.StatusOK, CountResponse{Count: cfg.Store.SelectionCount()})
	}
}

func selectRangeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectRangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		cfg.Store.SelectClipRange(req.FromID, req.ToID)
		WriteJSON(w, http.StatusOK, CountResponse{Count: cfg.Store.SelectionCount()})
	}
}

func clearSelectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Store.ClearSelection()
		WriteJSON(w, http.StatusOK, CountResponse{Count: 0})
	}
}

func copySelectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, CountResponse{Count: cfg.Store.CopySelection()})
	}
}

func cutHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, CountResponse{Count: cfg.Store.Cut()})
	}
}

func pasteHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PasteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.TrackID == "" {
			WriteError(w, http.StatusBadRequest, "track_id is required", "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusOK, ClipIDsResponse{IDs: cfg.Store.Paste(req.TrackID, req.Time)})
	}
}

func moveSelectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MoveSelectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		moved := cfg.Store.MoveSelectedClips(req.DeltaSeconds, req.TrackID, req.Originals)
		if !moved {
			WriteError(w, http.StatusConflict, "batch move rejected", "REJECTED")
			return
		}
		WriteJSON(w, http.StatusOK, ChangedResponse{Changed: true})
	}
}

func copySelectionToHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CopySelectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusOK, ClipIDsResponse{IDs: cfg.Store.CopySelectedClips(req.Time, req.TrackID)})
	}
}

func importHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Importer == nil {
			WriteError(w, http.StatusServiceUnavailable, "importer not configured", "UNAVAILABLE")
			return
		}

		var req ImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		var groups []*models.Group
		var err error
		if req.Cached {
			groups, err = cfg.Importer.LoadCached(r.Context())
		} else {
			groups, err = cfg.Importer.Import(r.Context(), importer.Query{
				TypeFilter: req.TypeFilter,
				AssetIDs:   req.AssetIDs,
			})
		}
		if err != nil {
			WriteError(w, http.StatusBadGateway, err.Error(), "IMPORT_FAILED")
			return
		}

		cfg.Store.InstallGroups(groups)
		WriteJSON(w, http.StatusOK, ImportResponse{Groups: len(groups)})
	}
}

func syncHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Trigger == nil {
			WriteError(w, http.StatusServiceUnavailable, "sync backend not configured", "UNAVAILABLE")
			return
		}

		var req SyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		mode := req.Mode
		if mode == "" {
			mode = syncjob.SyncModeFull
		}
		if mode != syncjob.SyncModeFull && mode != syncjob.SyncModeIncremental {
			WriteError(w, http.StatusBadRequest, "mode must be full or incremental", "BAD_REQUEST")
			return
		}

		groups := cfg.Store.Snapshot()
		mappings := syncjob.BuildMappings(groups)
		if len(mappings) == 0 {
			WriteError(w, http.StatusBadRequest, "no linked clip pairs to sync", "BAD_REQUEST")
			return
		}

		transform := mappingTransform(cfg, mappings)
		resp, err := cfg.Trigger.Trigger(r.Context(), mode, mappings, transform)
		if err != nil {
			WriteError(w, http.StatusBadGateway, err.Error(), "SYNC_FAILED")
			return
		}

		if cfg.Watcher != nil {
			clipIDs := make([]string, 0, len(mappings))
			for _, m := range mappings {
				clipIDs = append(clipIDs, m.DestinationClipID)
			}
			if err := cfg.Watcher.Watch(resp.JobID, clipIDs); err != nil {
				cfg.Logger.Warn().Err(err).Str("job_id", resp.JobID).Msg("failed to watch sync job")
			}
		}

		WriteJSON(w, http.StatusAccepted, SyncResponse{
			JobID:    resp.JobID,
			Status:   resp.Status,
			Mappings: len(mappings),
		})
	}
}

// mappingTransform derives the timestamp shift from the first mapped pair
// whose windows differ.
func mappingTransform(cfg ServerConfig, mappings []syncjob.PropertyMapping) *syncjob.TransformationConfig {
	for _, m := range mappings {
		source, ok := cfg.Store.Clip(m.SourceClipID)
		if !ok {
			continue
		}
		destination, ok := cfg.Store.Clip(m.DestinationClipID)
		if !ok {
			continue
		}
		if transform := syncjob.TimestampShift(source, destination); transform != nil {
			return transform
		}
	}
	return nil
}

func jobStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Trigger == nil {
			WriteError(w, http.StatusServiceUnavailable, "sync backend not configured", "UNAVAILABLE")
			return
		}

		result, err := cfg.Trigger.JobStatus(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusBadGateway, err.Error(), "SYNC_FAILED")
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}
