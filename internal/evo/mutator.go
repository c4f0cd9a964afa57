package evo

import (
	"fmt"
	"math/rand"

	"gaiaf/internal/genome"
)

const (
	DefaultMinMutations = 1
	DefaultMaxMutations = 5
)

// Mutator applies a random number of structural mutations to an organism.
// Each step draws from the organism's current candidate list, so later
// steps see the structure left by earlier ones.
type Mutator struct {
	MinMutations int
	MaxMutations int
}

func NewMutator() *Mutator {
	return &Mutator{MinMutations: DefaultMinMutations, MaxMutations: DefaultMaxMutations}
}

func (m *Mutator) Name() string {
	return "structural"
}

// Mutate returns the mutations applied, in order. A nil organism or one that
// offers no candidates is left untouched.
func (m *Mutator) Mutate(rng *rand.Rand, organism *genome.Organism) ([]genome.Mutation, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if organism == nil {
		return nil, nil
	}
	minCount, maxCount := m.bounds()
	count := minCount + rng.Intn(maxCount-minCount+1)

	applied := make([]genome.Mutation, 0, count)
	for i := 0; i < count; i++ {
		candidates := organism.Mutations()
		if len(candidates) == 0 {
			break
		}
		resolved, err := genome.Resolve(organism, candidates[rng.Intn(len(candidates))], rng)
		if err != nil {
			return applied, fmt.Errorf("mutate %s: %w", organism.ID, err)
		}
		if err := genome.ApplyMutation(organism, resolved); err != nil {
			return applied, fmt.Errorf("mutate %s: %w", organism.ID, err)
		}
		applied = append(applied, resolved)
	}
	return applied, nil
}

func (m *Mutator) bounds() (int, int) {
	minCount, maxCount := m.MinMutations, m.MaxMutations
	if minCount <= 0 {
		minCount = DefaultMinMutations
	}
	if maxCount <= 0 {
		maxCount = DefaultMaxMutations
	}
	if maxCount < minCount {
		maxCount = minCount
	}
	return minCount, maxCount
}
