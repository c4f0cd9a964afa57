// Package gaiaf wires stores, evaluator and experiment manager into one
// client for embedding or for the command line.
package gaiaf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"gaiaf/internal/api"
	"gaiaf/internal/evaluate"
	"gaiaf/internal/genome"
	"gaiaf/internal/logging"
	"gaiaf/internal/model"
	"gaiaf/internal/platform"
	"gaiaf/internal/storage"
)

const defaultDBPath = "gaiaf.db"

type Options struct {
	StoreKind string
	DBPath    string
	// HistoryPath is a CSV price history. Empty requires History.
	HistoryPath string
	History     []*genome.Sequence
	Prediction  evaluate.PredictionConfig
	Experiment  model.ExperimentConfig
	Logger      *slog.Logger
	// Registry receives the experiment metrics. Nil creates a private one.
	Registry *prometheus.Registry
}

type Client struct {
	populations *storage.MemoryPopulationStore
	organisms   storage.OrganismStore
	manager     *platform.Manager
	registry    *prometheus.Registry
	logger      *slog.Logger
}

func New(opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	history := opts.History
	if len(history) == 0 {
		if opts.HistoryPath == "" {
			return nil, fmt.Errorf("history path is required")
		}
		loaded, err := evaluate.LoadHistoryFile(opts.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		history = loaded
	}
	prediction := opts.Prediction
	if prediction == (evaluate.PredictionConfig{}) {
		prediction = evaluate.DefaultPredictionConfig()
	}
	evaluator, err := evaluate.NewPredictionEvaluator(history, prediction)
	if err != nil {
		return nil, err
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	organisms, err := storage.NewOrganismStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	populations := storage.NewMemoryPopulationStore()
	manager, err := platform.NewManager(platform.ManagerConfig{
		Populations: populations,
		Organisms:   organisms,
		Evaluator:   evaluator,
		Metrics:     platform.NewMetrics(registry),
		Experiment:  opts.Experiment,
		Logger:      logger,
	})
	if err != nil {
		_ = storage.CloseIfSupported(organisms)
		return nil, err
	}

	return &Client{
		populations: populations,
		organisms:   organisms,
		manager:     manager,
		registry:    registry,
		logger:      logger,
	}, nil
}

// Init prepares the organism store. Call it once before running experiments.
func (c *Client) Init(ctx context.Context) error {
	return c.organisms.Init(ctx)
}

// Close stops background experiments and releases the organism store.
func (c *Client) Close() error {
	return errors.Join(c.manager.Shutdown(), storage.CloseIfSupported(c.organisms))
}

func (c *Client) Manager() *platform.Manager {
	return c.manager
}

func (c *Client) Populations() storage.PopulationStore {
	return c.populations
}

func (c *Client) Organisms() storage.OrganismStore {
	return c.organisms
}

// Run executes n experiments concurrently with the current configuration.
func (c *Client) Run(ctx context.Context, n int) ([]model.ExperimentStatus, error) {
	return c.manager.RunAll(ctx, n)
}

// Best returns the lowest scoring member of an experiment's population.
func (c *Client) Best(ctx context.Context, experimentID string) (model.ScoredOrganism, error) {
	page, err := c.populations.ScoredOrganisms(ctx, experimentID, 0, 1)
	if err != nil {
		return model.ScoredOrganism{}, err
	}
	if len(page) == 0 {
		return model.ScoredOrganism{}, fmt.Errorf("%w: population for experiment %s", storage.ErrNotFound, experimentID)
	}
	return page[0], nil
}

// Handler serves the HTTP API and /metrics.
func (c *Client) Handler() http.Handler {
	handlers := api.NewHandlers(c.manager, c.populations, c.organisms, c.logger)
	return api.NewRouter(handlers, c.registry)
}
