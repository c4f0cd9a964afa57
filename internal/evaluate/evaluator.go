// Package evaluate scores organisms. Scores are error metrics: lower is
// better and zero is a perfect fit.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gaiaf/internal/genome"
)

type Evaluator interface {
	Evaluate(ctx context.Context, organism *genome.Organism) (float64, error)
}

type EvaluatorFunc func(ctx context.Context, organism *genome.Organism) (float64, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, organism *genome.Organism) (float64, error) {
	return f(ctx, organism)
}

const (
	DefaultTargetIndex = 1
	DefaultLeadCount   = 3
)

var ErrNoHistory = errors.New("evaluation history is empty")

type PredictionConfig struct {
	// TargetIndex selects the column compared against predictions.
	TargetIndex int
	// LeadCount is how many ticks are consumed before predictions are scored.
	LeadCount int
}

func DefaultPredictionConfig() PredictionConfig {
	return PredictionConfig{TargetIndex: DefaultTargetIndex, LeadCount: DefaultLeadCount}
}

// PredictionEvaluator feeds each history tick to the organism and treats the
// last produced value as a prediction for the tick LeadCount-1 steps later.
// Until LeadCount predictions are queued the current prediction is zero. The
// score is the summed absolute error against the target column.
type PredictionEvaluator struct {
	history []*genome.Sequence
	cfg     PredictionConfig
}

func NewPredictionEvaluator(history []*genome.Sequence, cfg PredictionConfig) (*PredictionEvaluator, error) {
	if cfg.LeadCount < 1 {
		return nil, fmt.Errorf("lead count must be at least 1, got %d", cfg.LeadCount)
	}
	if len(history) == 0 {
		return nil, ErrNoHistory
	}
	cached := make([]*genome.Sequence, 0, len(history))
	for i, tick := range history {
		if tick == nil || tick.Len() == 0 {
			return nil, fmt.Errorf("history tick %d is empty", i)
		}
		cached = append(cached, tick.Clone())
	}
	return &PredictionEvaluator{history: cached, cfg: cfg}, nil
}

func (e *PredictionEvaluator) Config() PredictionConfig {
	return e.cfg
}

func (e *PredictionEvaluator) Evaluate(ctx context.Context, organism *genome.Organism) (float64, error) {
	if organism == nil {
		return 0, errors.New("organism is required")
	}
	pending := make([]float64, 0, e.cfg.LeadCount)
	total := 0.0
	for i, tick := range e.history {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		working := tick.Clone()
		if err := organism.Consume(working); err != nil {
			return 0, fmt.Errorf("tick %d: %w", i, err)
		}
		future, err := working.Last()
		if err != nil {
			return 0, fmt.Errorf("tick %d: %w", i, err)
		}

		pending = append(pending, future)
		current := 0.0
		if len(pending) >= e.cfg.LeadCount {
			current = pending[0]
			pending = pending[1:]
		}

		actual, err := working.ValueAt(e.cfg.TargetIndex)
		if err != nil {
			return 0, fmt.Errorf("tick %d: %w", i, err)
		}
		total += math.Abs(current - actual)
	}
	// Overflowed pipelines rank last instead of poisoning the ordering.
	if math.IsNaN(total) {
		return math.Inf(1), nil
	}
	return total, nil
}
