package storage

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"

	"gaiaf/internal/model"
)

// MemoryPopulationStore is an in-process PopulationStore. Each experiment has
// its own ranked list and lock; the store lock guards only the lookup maps.
// Lock order is population, then store.
type MemoryPopulationStore struct {
	mu          sync.RWMutex
	populations map[string]*population
	index       map[string]model.ScoredOrganism
}

type population struct {
	mu     sync.RWMutex
	ranked rankedList
}

func NewMemoryPopulationStore() *MemoryPopulationStore {
	return &MemoryPopulationStore{
		populations: make(map[string]*population),
		index:       make(map[string]model.ScoredOrganism),
	}
}

// Save stores candidate, assigning a result id when it has none. Saving an id
// that is already stored replaces the earlier entry, also when it belonged to
// another experiment.
func (s *MemoryPopulationStore) Save(_ context.Context, candidate model.ScoredOrganism) (model.ScoredOrganism, error) {
	if candidate.ExperimentID == "" {
		return model.ScoredOrganism{}, fmt.Errorf("%w: experiment id is required", ErrInvalidArgument)
	}
	if math.IsNaN(candidate.Score) {
		return model.ScoredOrganism{}, fmt.Errorf("%w: score is NaN", ErrInvalidArgument)
	}
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	if candidate.Organism != nil {
		candidate.Organism = candidate.Organism.Clone()
		if candidate.OrganismID == "" {
			candidate.OrganismID = candidate.Organism.ID
		}
	}

	pop := s.populationFor(candidate.ExperimentID)
	for {
		s.mu.RLock()
		previous, replacing := s.index[candidate.ID]
		previousPop := s.populations[previous.ExperimentID]
		s.mu.RUnlock()
		if !replacing {
			previousPop = nil
		}

		unlock := lockPopulations(candidate.ExperimentID, pop, previous.ExperimentID, previousPop)
		s.mu.Lock()
		current, ok := s.index[candidate.ID]
		if ok != replacing || current.ExperimentID != previous.ExperimentID {
			// The entry changed between lookup and locking; retry with
			// the populations it lives in now.
			s.mu.Unlock()
			unlock()
			continue
		}
		if ok && !previousPop.ranked.remove(current.Score, current.ID) {
			s.mu.Unlock()
			unlock()
			return model.ScoredOrganism{}, fmt.Errorf("%w: scored organism %s missing from ranking", ErrNotFound, current.ID)
		}
		pop.ranked.insert(candidate)
		s.index[candidate.ID] = candidate
		s.mu.Unlock()
		unlock()
		return copyScored(candidate), nil
	}
}

// lockPopulations write-locks one or two populations in experiment id order
// and returns the matching unlock.
func lockPopulations(firstID string, first *population, secondID string, second *population) func() {
	if second == nil || second == first {
		first.mu.Lock()
		return first.mu.Unlock
	}
	if secondID < firstID {
		first, second = second, first
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

func (s *MemoryPopulationStore) Delete(_ context.Context, resultID string) error {
	s.mu.RLock()
	entry, ok := s.index[resultID]
	pop := s.populations[entry.ExperimentID]
	s.mu.RUnlock()
	if !ok || pop == nil {
		return fmt.Errorf("%w: scored organism %s", ErrNotFound, resultID)
	}

	pop.mu.Lock()
	defer pop.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under both locks: a concurrent delete may have won.
	current, ok := s.index[resultID]
	if !ok || current.ExperimentID != entry.ExperimentID {
		return fmt.Errorf("%w: scored organism %s", ErrNotFound, resultID)
	}
	if !pop.ranked.remove(current.Score, resultID) {
		return fmt.Errorf("%w: scored organism %s missing from ranking", ErrNotFound, resultID)
	}
	delete(s.index, resultID)
	return nil
}

func (s *MemoryPopulationStore) Get(_ context.Context, resultID string) (model.ScoredOrganism, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.index[resultID]
	if !ok {
		return model.ScoredOrganism{}, fmt.Errorf("%w: scored organism %s", ErrNotFound, resultID)
	}
	return copyScored(entry), nil
}

// RandomFromTopPercent picks uniformly among the best ceil(size*percent)
// entries, always considering at least one.
func (s *MemoryPopulationStore) RandomFromTopPercent(_ context.Context, rng *rand.Rand, experimentID string, percent float64) (model.ScoredOrganism, error) {
	pop, err := s.sampling(rng, experimentID, percent)
	if err != nil {
		return model.ScoredOrganism{}, err
	}
	pop.mu.RLock()
	defer pop.mu.RUnlock()

	size := pop.ranked.Len()
	if size == 0 {
		return model.ScoredOrganism{}, emptyPopulation(experimentID)
	}
	cutoff := int(math.Ceil(float64(size) * percent))
	if cutoff > size {
		cutoff = size
	}
	if cutoff < 1 {
		cutoff = 1
	}
	entry, _ := pop.ranked.at(rng.Intn(cutoff))
	return copyScored(entry), nil
}

// RandomFromBottomPercent picks uniformly among ranks [cutoff, size) where
// cutoff is ceil(size*(1-percent)) kept below size.
func (s *MemoryPopulationStore) RandomFromBottomPercent(_ context.Context, rng *rand.Rand, experimentID string, percent float64) (model.ScoredOrganism, error) {
	pop, err := s.sampling(rng, experimentID, percent)
	if err != nil {
		return model.ScoredOrganism{}, err
	}
	pop.mu.RLock()
	defer pop.mu.RUnlock()

	size := pop.ranked.Len()
	if size == 0 {
		return model.ScoredOrganism{}, emptyPopulation(experimentID)
	}
	cutoff := int(math.Ceil(float64(size) * (1 - percent)))
	if cutoff >= size {
		cutoff = size - 1
	}
	if cutoff < 0 {
		cutoff = 0
	}
	entry, _ := pop.ranked.at(cutoff + rng.Intn(size-cutoff))
	return copyScored(entry), nil
}

func (s *MemoryPopulationStore) sampling(rng *rand.Rand, experimentID string, percent float64) (*population, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrInvalidArgument)
	}
	if math.IsNaN(percent) || percent < 0 || percent > 1 {
		return nil, fmt.Errorf("%w: percent must be between 0.0 and 1.0, got %v", ErrInvalidArgument, percent)
	}
	pop := s.lookup(experimentID)
	if pop == nil {
		return nil, emptyPopulation(experimentID)
	}
	return pop, nil
}

func (s *MemoryPopulationStore) Size(_ context.Context, experimentID string) (int, error) {
	pop := s.lookup(experimentID)
	if pop == nil {
		return 0, nil
	}
	pop.mu.RLock()
	defer pop.mu.RUnlock()
	return pop.ranked.Len(), nil
}

// OrganismIDs lists the experiment's result ids in score order.
func (s *MemoryPopulationStore) OrganismIDs(_ context.Context, experimentID string) ([]string, error) {
	pop := s.lookup(experimentID)
	if pop == nil {
		return []string{}, nil
	}
	pop.mu.RLock()
	defer pop.mu.RUnlock()

	ids := make([]string, 0, pop.ranked.Len())
	pop.ranked.walk(func(_ int, entry model.ScoredOrganism) bool {
		ids = append(ids, entry.ID)
		return true
	})
	return ids, nil
}

// ScoredOrganisms returns a score-ascending page. A zero limit returns every
// entry from offset on.
func (s *MemoryPopulationStore) ScoredOrganisms(_ context.Context, experimentID string, offset, limit int) ([]model.ScoredOrganism, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must be non-negative", ErrInvalidArgument)
	}
	pop := s.lookup(experimentID)
	if pop == nil {
		return []model.ScoredOrganism{}, nil
	}
	pop.mu.RLock()
	defer pop.mu.RUnlock()

	page := pop.ranked.slice(offset, limit)
	out := make([]model.ScoredOrganism, 0, len(page))
	for _, entry := range page {
		out = append(out, copyScored(entry))
	}
	return out, nil
}

func (s *MemoryPopulationStore) ExperimentIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.populations))
	for id := range s.populations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// CheckInvariants verifies the ranked structure of one experiment.
func (s *MemoryPopulationStore) CheckInvariants(experimentID string) error {
	pop := s.lookup(experimentID)
	if pop == nil {
		return nil
	}
	pop.mu.RLock()
	defer pop.mu.RUnlock()
	if err := pop.ranked.check(); err != nil {
		return fmt.Errorf("experiment %s: %w", experimentID, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var err error
	pop.ranked.walk(func(rank int, entry model.ScoredOrganism) bool {
		indexed, ok := s.index[entry.ID]
		if !ok || indexed.Score != entry.Score || indexed.ExperimentID != experimentID {
			err = fmt.Errorf("experiment %s: rank %d (%s) not indexed", experimentID, rank, entry.ID)
			return false
		}
		return true
	})
	return err
}

func (s *MemoryPopulationStore) lookup(experimentID string) *population {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.populations[experimentID]
}

func (s *MemoryPopulationStore) populationFor(experimentID string) *population {
	if pop := s.lookup(experimentID); pop != nil {
		return pop
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pop, ok := s.populations[experimentID]
	if !ok {
		pop = &population{}
		s.populations[experimentID] = pop
	}
	return pop
}

func copyScored(entry model.ScoredOrganism) model.ScoredOrganism {
	entry.Organism = entry.Organism.Clone()
	return entry
}

func emptyPopulation(experimentID string) error {
	return fmt.Errorf("%w: population is empty for experiment %s", ErrInvalidArgument, experimentID)
}
