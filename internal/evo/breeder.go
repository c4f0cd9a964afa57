package evo

import (
	"github.com/google/uuid"

	"gaiaf/internal/genome"
)

// Breeder recombines parents into as many children as parents supplied.
type Breeder interface {
	Name() string
	Breed(parents []*genome.Organism) []*genome.Organism
}

// RotationBreeder performs chromosome-rotation crossover: child i takes its
// chromosome at position p from parent (i+p) mod N, skipping positions that
// parent lacks. Children hold deep copies only.
type RotationBreeder struct {
	IDFunc func() string
}

func (RotationBreeder) Name() string {
	return "chromosome_rotation"
}

func (b RotationBreeder) Breed(parents []*genome.Organism) []*genome.Organism {
	if len(parents) == 0 {
		return []*genome.Organism{}
	}
	newID := b.IDFunc
	if newID == nil {
		newID = uuid.NewString
	}

	maxChromosomes := 0
	for _, parent := range parents {
		if parent != nil && len(parent.Chromosomes) > maxChromosomes {
			maxChromosomes = len(parent.Chromosomes)
		}
	}

	n := len(parents)
	children := make([]*genome.Organism, 0, n)
	for i := 0; i < n; i++ {
		child := genome.NewOrganism(newID())
		for p := 0; p < maxChromosomes; p++ {
			source := parents[(i+p)%n]
			if source == nil || p >= len(source.Chromosomes) || source.Chromosomes[p] == nil {
				continue
			}
			child.Chromosomes = append(child.Chromosomes, source.Chromosomes[p].Clone())
		}
		children = append(children, child)
	}
	return children
}
