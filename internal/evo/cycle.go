package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"gaiaf/internal/evaluate"
	"gaiaf/internal/genome"
	"gaiaf/internal/logging"
	"gaiaf/internal/model"
	"gaiaf/internal/storage"
)

const (
	TopParentPercent    = 0.10
	BottomParentPercent = 0.90
)

var ErrCycleFailure = errors.New("mutation cycle failed")

// StatusRecorder receives per-experiment progress from cycles.
type StatusRecorder interface {
	CycleCompleted(experimentID string)
	OrganismsReplaced(experimentID string, count int)
	SetState(experimentID string, state model.ExperimentState)
}

type NopStatusRecorder struct{}

func (NopStatusRecorder) CycleCompleted(string) {}

func (NopStatusRecorder) OrganismsReplaced(string, int) {}

func (NopStatusRecorder) SetState(string, model.ExperimentState) {}

type CycleConfig struct {
	Populations storage.PopulationStore
	Organisms   storage.OrganismStore
	Breeder     Breeder
	Mutator     *Mutator
	Evaluator   evaluate.Evaluator
	Status      StatusRecorder
	Capacity    int
	Seed        int64
	Logger      *slog.Logger
}

// Cycle runs generations against the population store. It owns its random
// source and is not safe for concurrent use; run one Cycle per experiment.
type Cycle struct {
	cfg    CycleConfig
	rng    *rand.Rand
	logger *slog.Logger
}

func NewCycle(cfg CycleConfig) (*Cycle, error) {
	if cfg.Populations == nil {
		return nil, fmt.Errorf("population store is required")
	}
	if cfg.Organisms == nil {
		return nil, fmt.Errorf("organism store is required")
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("capacity must be > 0")
	}
	if cfg.Breeder == nil {
		cfg.Breeder = RotationBreeder{}
	}
	if cfg.Mutator == nil {
		cfg.Mutator = NewMutator()
	}
	if cfg.Status == nil {
		cfg.Status = NopStatusRecorder{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Cycle{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: logger.With("component", "cycle"),
	}, nil
}

func (c *Cycle) Capacity() int {
	return c.cfg.Capacity
}

// MutationCycle runs select, breed, mutate, evaluate and maintain in order.
// A failing stage marks the experiment exception and aborts the cycle without
// reporting completion.
func (c *Cycle) MutationCycle(ctx context.Context, experimentID string) error {
	if err := c.runCycle(ctx, experimentID); err != nil {
		c.cfg.Status.SetState(experimentID, model.StateException)
		c.logger.Error("cycle failed", "experiment", experimentID, "error", err)
		return fmt.Errorf("%w: experiment %s: %w", ErrCycleFailure, experimentID, err)
	}
	c.cfg.Status.CycleCompleted(experimentID)
	return nil
}

func (c *Cycle) runCycle(ctx context.Context, experimentID string) error {
	parents, err := c.SelectParents(ctx, experimentID)
	if err != nil {
		return fmt.Errorf("select parents: %w", err)
	}
	organisms, err := c.parentOrganisms(ctx, parents)
	if err != nil {
		return err
	}
	children := c.BreedParents(organisms)
	if err := c.MutateChildren(children); err != nil {
		return err
	}
	scored, err := c.EvaluateChildren(ctx, children, experimentID)
	if err != nil {
		return err
	}
	if _, err := c.MaintainPopulation(ctx, parents, scored, experimentID); err != nil {
		return fmt.Errorf("maintain population: %w", err)
	}
	return nil
}

// SelectParents draws one parent from the best tenth and one from the worst
// nine tenths of the population.
func (c *Cycle) SelectParents(ctx context.Context, experimentID string) ([]model.ScoredOrganism, error) {
	top, err := c.cfg.Populations.RandomFromTopPercent(ctx, c.rng, experimentID, TopParentPercent)
	if err != nil {
		return nil, err
	}
	bottom, err := c.cfg.Populations.RandomFromBottomPercent(ctx, c.rng, experimentID, BottomParentPercent)
	if err != nil {
		return nil, err
	}
	return []model.ScoredOrganism{top, bottom}, nil
}

func (c *Cycle) parentOrganisms(ctx context.Context, parents []model.ScoredOrganism) ([]*genome.Organism, error) {
	organisms := make([]*genome.Organism, 0, len(parents))
	for _, parent := range parents {
		if parent.Organism != nil {
			organisms = append(organisms, parent.Organism)
			continue
		}
		organism, err := c.cfg.Organisms.GetOrganism(ctx, parent.OrganismID)
		if err != nil {
			return nil, fmt.Errorf("load parent %s: %w", parent.OrganismID, err)
		}
		organisms = append(organisms, organism)
	}
	return organisms, nil
}

func (c *Cycle) BreedParents(parents []*genome.Organism) []*genome.Organism {
	return c.cfg.Breeder.Breed(parents)
}

func (c *Cycle) MutateChildren(children []*genome.Organism) error {
	for _, child := range children {
		applied, err := c.cfg.Mutator.Mutate(c.rng, child)
		if err != nil {
			return err
		}
		if child != nil {
			c.logger.Debug("mutated child", "organism", child.ID, "mutations", len(applied))
		}
	}
	return nil
}

// EvaluateChildren scores each child. Result ids stay empty until the
// population store assigns them.
func (c *Cycle) EvaluateChildren(ctx context.Context, children []*genome.Organism, experimentID string) ([]model.ScoredOrganism, error) {
	scored := make([]model.ScoredOrganism, 0, len(children))
	for _, child := range children {
		if child == nil {
			continue
		}
		score, err := c.cfg.Evaluator.Evaluate(ctx, child)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", child.ID, err)
		}
		scored = append(scored, model.ScoredOrganism{
			Score:        score,
			OrganismID:   child.ID,
			Organism:     child,
			ExperimentID: experimentID,
		})
	}
	return scored, nil
}

type familyMember struct {
	scored model.ScoredOrganism
	parent bool
}

// MaintainPopulation reconciles parents and scored children against the
// store. Below capacity every child is kept. At capacity the two best of the
// family decide: parents only keeps the population, one child replaces the
// worse parent, two children replace both parents. It returns the number of
// replacements, which is also reported to the status recorder.
func (c *Cycle) MaintainPopulation(ctx context.Context, parents, children []model.ScoredOrganism, experimentID string) (int, error) {
	if len(parents) > 2 {
		return 0, fmt.Errorf("%w: expected 2 parents, got %d", storage.ErrInvalidArgument, len(parents))
	}
	if len(parents) < 2 || len(children) == 0 {
		return 0, nil
	}

	size, err := c.cfg.Populations.Size(ctx, experimentID)
	if err != nil {
		return 0, err
	}
	if size < c.cfg.Capacity {
		for _, child := range children {
			if err := c.persist(ctx, child, experimentID); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}

	family := make([]familyMember, 0, len(parents)+len(children))
	for _, parent := range parents {
		family = append(family, familyMember{scored: parent, parent: true})
	}
	for _, child := range children {
		family = append(family, familyMember{scored: child})
	}
	sort.SliceStable(family, func(i, j int) bool {
		return family[i].scored.Score < family[j].scored.Score
	})

	var winners []model.ScoredOrganism
	for _, member := range family[:2] {
		if !member.parent {
			winners = append(winners, member.scored)
		}
	}

	var losers []model.ScoredOrganism
	switch len(winners) {
	case 0:
		return 0, nil
	case 1:
		worse := parents[1]
		if parents[0].Score > parents[1].Score {
			worse = parents[0]
		}
		losers = []model.ScoredOrganism{worse}
	default:
		losers = parents
		if parents[0].ID == parents[1].ID {
			losers = parents[:1]
		}
	}

	for _, loser := range losers {
		if err := c.remove(ctx, loser); err != nil {
			return 0, err
		}
	}
	for _, winner := range winners {
		if err := c.persist(ctx, winner, experimentID); err != nil {
			return 0, err
		}
	}

	replaced := len(winners)
	c.cfg.Status.OrganismsReplaced(experimentID, replaced)
	c.logger.Debug("population maintained", "experiment", experimentID, "replaced", replaced)
	return replaced, nil
}

func (c *Cycle) persist(ctx context.Context, child model.ScoredOrganism, experimentID string) error {
	if child.Organism != nil {
		if err := c.cfg.Organisms.SaveOrganism(ctx, child.Organism); err != nil {
			return fmt.Errorf("save organism %s: %w", child.OrganismID, err)
		}
	}
	child.ExperimentID = experimentID
	if _, err := c.cfg.Populations.Save(ctx, child); err != nil {
		return fmt.Errorf("save scored organism %s: %w", child.OrganismID, err)
	}
	return nil
}

func (c *Cycle) remove(ctx context.Context, parent model.ScoredOrganism) error {
	if err := c.cfg.Populations.Delete(ctx, parent.ID); err != nil {
		return fmt.Errorf("delete scored organism %s: %w", parent.ID, err)
	}
	if err := c.cfg.Organisms.DeleteOrganism(ctx, parent.OrganismID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete organism %s: %w", parent.OrganismID, err)
		}
		c.logger.Debug("parent organism already absent", "organism", parent.OrganismID)
	}
	return nil
}
