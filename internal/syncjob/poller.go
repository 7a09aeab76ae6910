package syncjob

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hallgrim/tracksmith/internal/logging"
	"github.com/hallgrim/tracksmith/internal/models"
)

// Poller errors.
var (
	ErrPollerAlreadyRunning = errors.New("poller already running")
	ErrPollerNotRunning     = errors.New("poller not running")
)

// ProgressSink receives derived progress updates for destination clips. The
// timeline store's job progress adapter satisfies it.
type ProgressSink interface {
	HandleProgress(clipID string, progress float64, state models.ClipState)
}

// StatusReader reads job status snapshots. *TriggerClient satisfies it.
type StatusReader interface {
	JobStatus(ctx context.Context, jobID string) (*PollResult, error)
}

// PollerConfig contains configuration for the job status poller.
type PollerConfig struct {
	// Interval is the fixed delay between polls. Default: 2s
	Interval time.Duration

	// MaxAttempts bounds how many polls a job gets before it is treated as
	// timed out. Default: 150
	MaxAttempts int
}

// DefaultPollerConfig returns sensible defaults.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:    2 * time.Second,
		MaxAttempts: 150,
	}
}

// DeriveProgress maps one status snapshot to clip progress and state.
// Progress is loaded/extracted*100, 100 on completed; below 50% the clip is
// uploading, at or above it is processing; terminal statuses map to
// complete/error.
func DeriveProgress(result PollResult) (float64, models.ClipState) {
	switch result.Status {
	case "completed":
		return 100, models.ClipStateComplete
	case "failed":
		return 0, models.ClipStateError
	}

	var progress float64
	if result.RecordsExtracted > 0 {
		progress = float64(result.RecordsLoaded) / float64(result.RecordsExtracted) * 100
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	if progress < 50 {
		return progress, models.ClipStateUploading
	}
	return progress, models.ClipStateProcessing
}

// watchedJob is one job under observation.
type watchedJob struct {
	jobID    string
	clipIDs  []string
	attempts int
}

// Poller polls job status at a fixed interval with a bounded attempt count
// and relays derived progress to the sink. A job exceeding the bound forces
// its destination clips to error at 0 progress.
type Poller struct {
	config PollerConfig
	reader StatusReader
	sink   ProgressSink
	logger zerolog.Logger

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	jobs    map[string]*watchedJob
}

// NewPoller creates a job status Poller.
func NewPoller(config PollerConfig, reader StatusReader, sink ProgressSink) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultPollerConfig().Interval
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultPollerConfig().MaxAttempts
	}

	return &Poller{
		config: config,
		reader: reader,
		sink:   sink,
		logger: logging.Component("job-poller"),
		jobs:   make(map[string]*watchedJob),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrPollerAlreadyRunning
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.logger.Info().
		Dur("interval", p.config.Interval).
		Int("max_attempts", p.config.MaxAttempts).
		Msg("job poller starting")

	p.wg.Add(1)
	go p.runLoop()

	return nil
}

// Stop halts the polling loop.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrPollerNotRunning
	}

	p.logger.Info().Msg("job poller stopping")
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info().Msg("job poller stopped")
	return nil
}

// IsRunning returns true if the poller is running.
func (p *Poller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Watch registers a job for polling. clipIDs are the destination clips whose
// progress the job drives.
func (p *Poller) Watch(jobID string, clipIDs []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return ErrPollerNotRunning
	}

	p.jobs[jobID] = &watchedJob{jobID: jobID, clipIDs: clipIDs}
	p.logger.Debug().Str("job_id", jobID).Int("clips", len(clipIDs)).Msg("watching job")
	return nil
}

// WatchedJobs returns the number of jobs currently under observation.
func (p *Poller) WatchedJobs() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.jobs)
}

// runLoop is the main polling loop.
func (p *Poller) runLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollTick()
		}
	}
}

// pollTick performs one polling cycle over all watched jobs.
func (p *Poller) pollTick() {
	p.mu.RLock()
	jobs := make([]*watchedJob, 0, len(p.jobs))
	for _, job := range p.jobs {
		jobs = append(jobs, job)
	}
	p.mu.RUnlock()

	for _, job := range jobs {
		p.pollJob(job)
	}
}

func (p *Poller) pollJob(job *watchedJob) {
	result, err := p.reader.JobStatus(p.ctx, job.jobID)

	p.mu.Lock()
	job.attempts++
	attempts := job.attempts
	p.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.logger.Warn().Err(err).Str("job_id", job.jobID).Msg("job status poll failed")
		if attempts >= p.config.MaxAttempts {
			p.timeout(job)
		}
		return
	}

	progress, state := DeriveProgress(*result)
	for _, clipID := range job.clipIDs {
		p.sink.HandleProgress(clipID, progress, state)
	}

	p.logger.Debug().
		Str("job_id", job.jobID).
		Str("status", result.Status).
		Float64("progress", progress).
		Msg("polled job status")

	if result.Terminal() {
		p.forget(job.jobID)
		return
	}

	if attempts >= p.config.MaxAttempts {
		p.timeout(job)
	}
}

// timeout forces the job's destination clips to error at 0 progress and
// stops watching the job.
func (p *Poller) timeout(job *watchedJob) {
	p.logger.Warn().Str("job_id", job.jobID).Int("attempts", job.attempts).Msg("job poll attempts exhausted")
	for _, clipID := range job.clipIDs {
		p.sink.HandleProgress(clipID, 0, models.ClipStateError)
	}
	p.forget(job.jobID)
}

func (p *Poller) forget(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.jobs, jobID)
}
