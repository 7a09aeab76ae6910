// Package syncjob talks to the sync backend: job triggering, bounded status
// polling, and a local upload simulator for development.
package syncjob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hallgrim/tracksmith/internal/logging"
	"github.com/hallgrim/tracksmith/internal/models"
)

// Sync modes accepted by the backend.
const (
	SyncModeFull        = "full"
	SyncModeIncremental = "incremental"
)

// TriggerError represents a non-2xx response from the sync backend.
type TriggerError struct {
	StatusCode int
	Body       string
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("sync trigger failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// PropertyMapping pairs a source clip with the destination clip that pulls
// its data.
type PropertyMapping struct {
	SourceClipID      string `json:"source_clip_id"`
	DestinationClipID string `json:"destination_clip_id"`
	SourceTrackID     string `json:"source_track_id,omitempty"`
	DestinationTrack  string `json:"destination_track_id,omitempty"`
}

// TransformationConfig shifts timestamps when the source and destination
// windows differ.
type TransformationConfig struct {
	TimestampShiftSeconds float64 `json:"timestamp_shift_seconds"`
}

type triggerRequest struct {
	SyncMode             string                `json:"sync_mode"`
	PropertyMappings     []PropertyMapping     `json:"property_mappings,omitempty"`
	TransformationConfig *TransformationConfig `json:"transformation_config,omitempty"`
	SyncKey              string                `json:"sync_key,omitempty"`
}

// TriggerResponse is the backend's answer to a trigger request.
type TriggerResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	SyncKey string `json:"sync_key,omitempty"`
}

// PollResult is one job status snapshot.
type PollResult struct {
	Status           string `json:"status"`
	RecordsExtracted int64  `json:"records_extracted,omitempty"`
	RecordsLoaded    int64  `json:"records_loaded,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Terminal reports whether the status ends the job.
func (r PollResult) Terminal() bool {
	return r.Status == "completed" || r.Status == "failed"
}

// TriggerClient triggers sync jobs and reads their status. A sync_key
// returned by the backend is remembered; later incremental triggers send the
// minimal key-only payload instead of the full mapping list.
type TriggerClient struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	mu      sync.Mutex
	syncKey string
}

// NewTriggerClient creates a client for the sync backend at baseURL.
func NewTriggerClient(baseURL string) *TriggerClient {
	return &TriggerClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logging.Component("syncjob"),
	}
}

// BuildMappings collects the source/destination clip pairs from a group tree.
// A clip with SourceClipID set is the destination half of a mapping.
func BuildMappings(groups []*models.Group) []PropertyMapping {
	byID := make(map[string]*models.Clip)
	for _, group := range groups {
		for _, aspect := range group.Aspects {
			for _, track := range aspect.Tracks {
				for _, clip := range track.Clips {
					byID[clip.ID] = clip
				}
			}
		}
	}

	var mappings []PropertyMapping
	for _, group := range groups {
		for _, aspect := range group.Aspects {
			for _, track := range aspect.Tracks {
				for _, clip := range track.Clips {
					if clip.SourceClipID == "" {
						continue
					}
					m := PropertyMapping{
						SourceClipID:      clip.SourceClipID,
						DestinationClipID: clip.ID,
						DestinationTrack:  clip.TrackID,
					}
					if source, ok := byID[clip.SourceClipID]; ok {
						m.SourceTrackID = source.TrackID
					}
					mappings = append(mappings, m)
				}
			}
		}
	}
	return mappings
}

// TimestampShift derives the transformation config from a mapped clip pair:
// the offset between the source and destination absolute start times. Returns
// nil when the windows align or either clip lacks absolutes.
func TimestampShift(source, destination *models.Clip) *TransformationConfig {
	if source == nil || destination == nil {
		return nil
	}
	if source.AbsoluteStart == nil || destination.AbsoluteStart == nil {
		return nil
	}
	shift := destination.AbsoluteStart.Sub(*source.AbsoluteStart).Seconds()
	if shift == 0 {
		return nil
	}
	return &TransformationConfig{TimestampShiftSeconds: shift}
}

// Trigger starts a sync job. On incremental mode with a remembered sync_key
// the request carries only the key. Any sync_key in the response replaces the
// remembered one.
func (c *TriggerClient) Trigger(ctx context.Context, mode string, mappings []PropertyMapping, transform *TransformationConfig) (*TriggerResponse, error) {
	req := triggerRequest{SyncMode: mode}

	c.mu.Lock()
	key := c.syncKey
	c.mu.Unlock()

	if mode == SyncModeIncremental && key != "" {
		req.SyncKey = key
	} else {
		req.PropertyMappings = mappings
		req.TransformationConfig = transform
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal trigger request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sync/jobs", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create trigger request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("trigger request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TriggerError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result TriggerResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode trigger response: %w", err)
	}

	if result.SyncKey != "" {
		c.mu.Lock()
		c.syncKey = result.SyncKey
		c.mu.Unlock()
	}

	c.logger.Info().
		Str("job_id", result.JobID).
		Str("status", result.Status).
		Str("mode", mode).
		Int("mappings", len(req.PropertyMappings)).
		Bool("keyed", req.SyncKey != "").
		Msg("triggered sync job")

	return &result, nil
}

// JobStatus reads one status snapshot for a job.
func (c *TriggerClient) JobStatus(ctx context.Context, jobID string) (*PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/sync/jobs/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TriggerError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result PollResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &result, nil
}

// SyncKey returns the remembered incremental sync key, if any.
func (c *TriggerClient) SyncKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncKey
}
