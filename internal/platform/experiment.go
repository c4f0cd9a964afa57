package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gaiaf/internal/evo"
	"gaiaf/internal/logging"
	"gaiaf/internal/model"
	"gaiaf/internal/storage"
)

const progressLogInterval = 100

type ExperimentOptions struct {
	ID       string
	Config   model.ExperimentConfig
	Cycle    *evo.Cycle
	Seeder   Seeder
	Recorder evo.StatusRecorder
	Logger   *slog.Logger
	Now      func() time.Time
}

// Experiment seeds a population and drives its cycles. Pause and Resume
// may be called from any goroutine while Run is in progress.
type Experiment struct {
	id        string
	createdAt time.Time
	config    model.ExperimentConfig
	cycle     *evo.Cycle
	seeder    Seeder
	recorder  evo.StatusRecorder
	logger    *slog.Logger

	mu     sync.Mutex
	state  model.ExperimentState
	resume chan struct{}
}

func NewExperiment(opts ExperimentOptions) (*Experiment, error) {
	if opts.ID == "" {
		return nil, fmt.Errorf("experiment id is required")
	}
	if opts.Cycle == nil {
		return nil, fmt.Errorf("cycle is required")
	}
	if opts.Seeder == nil {
		return nil, fmt.Errorf("seeder is required")
	}
	if opts.Config.CycleCount < 0 {
		return nil, fmt.Errorf("cycle count must be >= 0")
	}
	if opts.Recorder == nil {
		opts.Recorder = evo.NopStatusRecorder{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Experiment{
		id:        opts.ID,
		createdAt: now().UTC(),
		config:    opts.Config,
		cycle:     opts.Cycle,
		seeder:    opts.Seeder,
		recorder:  opts.Recorder,
		logger:    logger.With("component", "experiment", "experiment", opts.ID),
		state:     model.StateStopped,
	}, nil
}

func (e *Experiment) ID() string {
	return e.id
}

func (e *Experiment) Config() model.ExperimentConfig {
	return e.config
}

func (e *Experiment) State() model.ExperimentState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Experiment) Summary() model.ExperimentSummary {
	return model.ExperimentSummary{
		ID:        e.id,
		State:     e.State(),
		CreatedAt: e.createdAt,
		Config:    e.config,
	}
}

// Run seeds the population and runs the configured number of cycles. A
// cancelled context stops the experiment and returns the context error. Any
// other failure leaves the experiment in the exception state.
func (e *Experiment) Run(ctx context.Context) error {
	e.start()
	return e.execute(ctx)
}

func (e *Experiment) start() {
	e.transition(model.StateRunning)
	e.logger.Info("experiment started", "cycles", e.config.CycleCount, "capacity", e.cycle.Capacity(), "seed", e.config.Seed)
}

func (e *Experiment) execute(ctx context.Context) error {
	if err := e.seeder.Seed(ctx, e.id); err != nil {
		return e.abort(ctx, fmt.Errorf("seed experiment %s: %w", e.id, err))
	}

	for completed := 1; completed <= e.config.CycleCount; completed++ {
		if err := e.waitWhilePaused(ctx); err != nil {
			return e.abort(ctx, err)
		}
		if err := e.cycle.MutationCycle(ctx, e.id); err != nil {
			return e.abort(ctx, err)
		}
		if completed%progressLogInterval == 0 {
			e.logger.Info("cycles completed", "completed", completed, "total", e.config.CycleCount)
		}
		if e.config.Pausable && e.config.PauseCycles > 0 && completed%e.config.PauseCycles == 0 {
			if err := e.Pause(); err == nil {
				e.logger.Info("experiment paused", "completed", completed)
			}
		}
	}

	e.transition(model.StateStopped)
	e.logger.Info("experiment finished")
	return nil
}

// Pause holds the run before its next cycle. Only a running experiment can
// be paused.
func (e *Experiment) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != model.StateRunning {
		return fmt.Errorf("%w: experiment %s is %s, not running", storage.ErrInvalidArgument, e.id, e.state)
	}
	e.state = model.StatePaused
	e.resume = make(chan struct{})
	e.recorder.SetState(e.id, model.StatePaused)
	return nil
}

// Resume releases a paused run.
func (e *Experiment) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != model.StatePaused {
		return fmt.Errorf("%w: experiment %s is %s, not paused", storage.ErrInvalidArgument, e.id, e.state)
	}
	e.state = model.StateRunning
	close(e.resume)
	e.resume = nil
	e.recorder.SetState(e.id, model.StateRunning)
	return nil
}

func (e *Experiment) waitWhilePaused(ctx context.Context) error {
	for {
		e.mu.Lock()
		if e.state != model.StatePaused {
			e.mu.Unlock()
			return ctx.Err()
		}
		wake := e.resume
		e.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

func (e *Experiment) abort(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, ctxErr) || errors.Is(err, evo.ErrCycleFailure)) {
		e.transition(model.StateStopped)
		e.logger.Info("experiment cancelled")
		return ctxErr
	}
	e.transition(model.StateException)
	e.logger.Error("experiment failed", "error", err)
	return err
}

func (e *Experiment) transition(state model.ExperimentState) {
	e.mu.Lock()
	e.state = state
	if e.resume != nil {
		close(e.resume)
		e.resume = nil
	}
	e.mu.Unlock()
	e.recorder.SetState(e.id, state)
}
