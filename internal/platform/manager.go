package platform

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gaiaf/internal/evaluate"
	"gaiaf/internal/evo"
	"gaiaf/internal/logging"
	"gaiaf/internal/model"
	"gaiaf/internal/storage"
)

type ManagerConfig struct {
	Populations storage.PopulationStore
	Organisms   storage.OrganismStore
	Evaluator   evaluate.Evaluator
	Status      *StatusRepository
	Metrics     *Metrics
	Experiment  model.ExperimentConfig
	Logger      *slog.Logger
	IDFunc      func() string
	Now         func() time.Time
}

// Manager owns every experiment in the process and the configuration used
// for new ones. Asynchronous runs share the manager's lifetime and end on
// Shutdown.
type Manager struct {
	populations storage.PopulationStore
	organisms   storage.OrganismStore
	evaluator   evaluate.Evaluator
	status      *StatusRepository
	recorder    evo.StatusRecorder
	logger      *slog.Logger
	newID       func() string
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.RWMutex
	config      model.ExperimentConfig
	experiments map[string]*managedExperiment
}

type managedExperiment struct {
	experiment *Experiment
	cancel     context.CancelFunc
	err        error
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Populations == nil {
		return nil, fmt.Errorf("population store is required")
	}
	if cfg.Organisms == nil {
		return nil, fmt.Errorf("organism store is required")
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if cfg.Experiment == (model.ExperimentConfig{}) {
		cfg.Experiment = model.DefaultExperimentConfig()
	}
	if err := cfg.Experiment.Validate(); err != nil {
		return nil, err
	}
	if cfg.Status == nil {
		cfg.Status = NewStatusRepository()
	}
	recorder := MultiRecorder{cfg.Status}
	if cfg.Metrics != nil {
		recorder = append(recorder, cfg.Metrics)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.IDFunc == nil {
		cfg.IDFunc = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		populations: cfg.Populations,
		organisms:   cfg.Organisms,
		evaluator:   cfg.Evaluator,
		status:      cfg.Status,
		recorder:    recorder,
		logger:      logger,
		newID:       cfg.IDFunc,
		now:         cfg.Now,
		ctx:         ctx,
		cancel:      cancel,
		config:      cfg.Experiment,
		experiments: make(map[string]*managedExperiment),
	}, nil
}

func (m *Manager) Config() model.ExperimentConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// UpdateConfig replaces the configuration for experiments started later.
func (m *Manager) UpdateConfig(cfg model.ExperimentConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidArgument, err)
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// StartExperiment launches a new experiment in the background and returns
// its initial status.
func (m *Manager) StartExperiment() (model.ExperimentStatus, error) {
	entry, err := m.create(m.ctx)
	if err != nil {
		return model.ExperimentStatus{}, err
	}
	runCtx, cancel := context.WithCancel(m.ctx)
	m.mu.Lock()
	entry.cancel = cancel
	m.mu.Unlock()
	entry.experiment.start()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		err := entry.experiment.execute(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("experiment run failed", "experiment", entry.experiment.ID(), "error", err)
		}
		m.mu.Lock()
		entry.err = err
		m.mu.Unlock()
	}()
	return m.status.Get(entry.experiment.ID())
}

// RunExperiment runs a new experiment to completion on the calling goroutine.
func (m *Manager) RunExperiment(ctx context.Context) (model.ExperimentStatus, error) {
	entry, err := m.create(ctx)
	if err != nil {
		return model.ExperimentStatus{}, err
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.mu.Lock()
	entry.cancel = cancel
	m.mu.Unlock()

	runErr := entry.experiment.Run(runCtx)
	m.mu.Lock()
	entry.err = runErr
	m.mu.Unlock()

	status, err := m.status.Get(entry.experiment.ID())
	if err != nil {
		return model.ExperimentStatus{}, err
	}
	return status, runErr
}

// RunAll runs n experiments concurrently and waits for all of them. The
// first failure cancels the rest.
func (m *Manager) RunAll(ctx context.Context, n int) ([]model.ExperimentStatus, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: experiment count must be >= 1", storage.ErrInvalidArgument)
	}
	statuses := make([]model.ExperimentStatus, n)
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			status, err := m.RunExperiment(gCtx)
			statuses[i] = status
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return statuses, err
	}
	return statuses, nil
}

func (m *Manager) Pause(experimentID string) error {
	entry, err := m.lookup(experimentID)
	if err != nil {
		return err
	}
	return entry.experiment.Pause()
}

func (m *Manager) Resume(experimentID string) error {
	entry, err := m.lookup(experimentID)
	if err != nil {
		return err
	}
	return entry.experiment.Resume()
}

// Stop cancels a run. The experiment ends in the stopped state before its
// next cycle.
func (m *Manager) Stop(experimentID string) error {
	entry, err := m.lookup(experimentID)
	if err != nil {
		return err
	}
	m.mu.RLock()
	cancel := entry.cancel
	m.mu.RUnlock()
	if cancel == nil {
		return fmt.Errorf("%w: experiment %s is not running", storage.ErrInvalidArgument, experimentID)
	}
	cancel()
	return nil
}

func (m *Manager) Status(experimentID string) (model.ExperimentStatus, error) {
	return m.status.Get(experimentID)
}

func (m *Manager) Experiment(experimentID string) (model.ExperimentSummary, error) {
	entry, err := m.lookup(experimentID)
	if err != nil {
		return model.ExperimentSummary{}, err
	}
	return entry.experiment.Summary(), nil
}

// Experiments lists summaries ordered by creation time, then id.
func (m *Manager) Experiments() []model.ExperimentSummary {
	m.mu.RLock()
	out := make([]model.ExperimentSummary, 0, len(m.experiments))
	for _, entry := range m.experiments {
		out = append(out, entry.experiment.Summary())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Wait blocks until every background run has returned and joins their
// failures. Cancellations are not failures.
func (m *Manager) Wait() error {
	m.wg.Wait()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var errs []error
	for _, entry := range m.experiments {
		if entry.err != nil && !errors.Is(entry.err, context.Canceled) {
			errs = append(errs, entry.err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown cancels background runs and waits for them.
func (m *Manager) Shutdown() error {
	m.cancel()
	return m.Wait()
}

func (m *Manager) create(ctx context.Context) (*managedExperiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := m.Config()
	id := m.newID()
	if cfg.Seed == 0 {
		cfg.Seed = randomSeed()
	}

	cycle, err := evo.NewCycle(evo.CycleConfig{
		Populations: m.populations,
		Organisms:   m.organisms,
		Evaluator:   m.evaluator,
		Status:      m.recorder,
		Capacity:    cfg.Capacity,
		Seed:        cfg.Seed,
		Logger:      m.logger,
	})
	if err != nil {
		return nil, err
	}
	experiment, err := NewExperiment(ExperimentOptions{
		ID:     id,
		Config: cfg,
		Cycle:  cycle,
		Seeder: BasicSeeder{
			Populations: m.populations,
			Organisms:   m.organisms,
			Evaluator:   m.evaluator,
		},
		Recorder: m.recorder,
		Logger:   m.logger,
		Now:      m.now,
	})
	if err != nil {
		return nil, err
	}

	entry := &managedExperiment{experiment: experiment}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.experiments[id]; exists {
		return nil, fmt.Errorf("%w: experiment already exists: %s", storage.ErrInvalidArgument, id)
	}
	m.experiments[id] = entry
	m.status.Create(id, model.StateStopped)
	return entry, nil
}

// randomSeed draws a non-zero seed from a fresh uuid.
func randomSeed() int64 {
	u := uuid.New()
	seed := int64(binary.BigEndian.Uint64(u[:8]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}

func (m *Manager) lookup(experimentID string) (*managedExperiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.experiments[experimentID]
	if !ok {
		return nil, fmt.Errorf("%w: experiment %s", storage.ErrNotFound, experimentID)
	}
	return entry, nil
}
