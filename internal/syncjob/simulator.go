package syncjob

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hallgrim/tracksmith/internal/logging"
	"github.com/hallgrim/tracksmith/internal/models"
)

const defaultSimulatorTick = 200 * time.Millisecond

// simulatorSteps is the progress ramp one simulated upload walks through
// before its terminal event.
var simulatorSteps = []float64{10, 25, 40, 55, 70, 85, 95}

// Simulator is the mock sync backend: for each clip handed to it, it emits a
// ramp of progress events through the sink, ending in complete or an injected
// error. Updates for clips deleted mid-transfer are dropped by the sink's
// not-found semantics; the simulator itself never checks.
type Simulator struct {
	sink   ProgressSink
	tick   time.Duration
	failFn func(clipID string) bool
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// SimulatorOption customizes the simulator.
type SimulatorOption func(*Simulator)

// WithTick sets the delay between simulated progress events.
func WithTick(tick time.Duration) SimulatorOption {
	return func(s *Simulator) {
		if tick > 0 {
			s.tick = tick
		}
	}
}

// WithFailure injects upload failures: clips for which fn returns true end in
// error instead of complete.
func WithFailure(fn func(clipID string) bool) SimulatorOption {
	return func(s *Simulator) {
		s.failFn = fn
	}
}

// NewSimulator creates a Simulator delivering to the given sink.
func NewSimulator(sink ProgressSink, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		sink:   sink,
		tick:   defaultSimulatorTick,
		logger: logging.Component("sync-simulator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start makes the simulator accept uploads until Stop or context
// cancellation.
func (s *Simulator) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
}

// Stop cancels all in-flight simulations and waits for them to exit.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
}

// UploadClip simulates one clip upload asynchronously. It matches the
// timeline store's upload hook signature, so a started simulator can be wired
// directly as the hook for clips entering idle. Before Start it is a no-op.
func (s *Simulator) UploadClip(clipID string) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.run(ctx, clipID)
	}()
}

func (s *Simulator) run(ctx context.Context, clipID string) {
	s.logger.Debug().Str("clip_id", clipID).Msg("simulating upload")

	for _, progress := range simulatorSteps {
		if err := sleepCtx(ctx, s.tick); err != nil {
			return
		}

		state := models.ClipStateUploading
		if progress >= 50 {
			state = models.ClipStateProcessing
		}
		s.sink.HandleProgress(clipID, progress, state)
	}

	if err := sleepCtx(ctx, s.tick); err != nil {
		return
	}

	if s.failFn != nil && s.failFn(clipID) {
		s.sink.HandleProgress(clipID, 0, models.ClipStateError)
		s.logger.Debug().Str("clip_id", clipID).Msg("simulated upload failed")
		return
	}

	s.sink.HandleProgress(clipID, 100, models.ClipStateComplete)
	s.logger.Debug().Str("clip_id", clipID).Msg("simulated upload complete")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
