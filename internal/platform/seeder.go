package platform

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"gaiaf/internal/evaluate"
	"gaiaf/internal/genome"
	"gaiaf/internal/model"
	"gaiaf/internal/storage"
)

const seedConstant = 1.5

// Seeder fills an experiment's population before its first cycle.
type Seeder interface {
	Seed(ctx context.Context, experimentID string) error
}

// BasicSeeder seeds five hand-built organisms covering every gene kind.
type BasicSeeder struct {
	Populations storage.PopulationStore
	Organisms   storage.OrganismStore
	Evaluator   evaluate.Evaluator
	IDFunc      func() string
}

func (s BasicSeeder) Seed(ctx context.Context, experimentID string) error {
	if s.Populations == nil || s.Organisms == nil || s.Evaluator == nil {
		return fmt.Errorf("seeder requires population store, organism store and evaluator")
	}
	for _, organism := range s.SeedOrganisms() {
		if err := s.Organisms.SaveOrganism(ctx, organism); err != nil {
			return fmt.Errorf("save seed %s: %w", organism.ID, err)
		}
		score, err := s.Evaluator.Evaluate(ctx, organism)
		if err != nil {
			return fmt.Errorf("evaluate seed %s: %w", organism.ID, err)
		}
		if _, err := s.Populations.Save(ctx, model.ScoredOrganism{
			Score:        score,
			OrganismID:   organism.ID,
			Organism:     organism,
			ExperimentID: experimentID,
		}); err != nil {
			return fmt.Errorf("save scored seed %s: %w", organism.ID, err)
		}
	}
	return nil
}

// SeedOrganisms builds a fresh set of seed organisms with unique ids.
func (s BasicSeeder) SeedOrganisms() []*genome.Organism {
	suffix := s.suffix()
	gene := func(name string, kind genome.Kind) *genome.Gene {
		if kind.ConstantCount() == 0 {
			return genome.NewGene(name+"-"+suffix, kind)
		}
		return genome.NewGene(name+"-"+suffix, kind, seedConstant)
	}
	chromosome := func(name string, genes ...*genome.Gene) *genome.Chromosome {
		return genome.NewChromosome(name+"-"+suffix, genes...)
	}

	return []*genome.Organism{
		genome.NewOrganism("simple-arithmetic-"+suffix,
			chromosome("arithmetic",
				gene("add", genome.KindAdd),
				gene("multiply", genome.KindMultiply),
			),
		),
		genome.NewOrganism("trigonometric-"+suffix,
			chromosome("trig",
				gene("sine", genome.KindSine),
				gene("multiply", genome.KindMultiply),
			),
		),
		genome.NewOrganism("data-transformation-"+suffix,
			chromosome("offset",
				gene("add", genome.KindAdd),
				gene("subtract", genome.KindSubtract),
			),
			chromosome("scale",
				gene("multiply", genome.KindMultiply),
				gene("divide", genome.KindDivide),
			),
		),
		genome.NewOrganism("reductive-"+suffix,
			chromosome("reduce",
				gene("divide", genome.KindDivide),
				gene("subtract", genome.KindSubtract),
				gene("sine", genome.KindSine),
			),
		),
		genome.NewOrganism("basic-composite-"+suffix,
			chromosome("scale", gene("multiply", genome.KindMultiply)),
			chromosome("wave",
				gene("add", genome.KindAdd),
				gene("sine", genome.KindSine),
			),
			chromosome("shift", gene("subtract", genome.KindSubtract)),
		),
	}
}

func (s BasicSeeder) suffix() string {
	if s.IDFunc != nil {
		return s.IDFunc()
	}
	return uuid.NewString()[:8]
}
