package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gaiaf/internal/genome"
)

// MemoryOrganismStore keeps genome payloads in process. Organisms are cloned
// on the way in and out.
type MemoryOrganismStore struct {
	mu          sync.RWMutex
	initialized bool
	organisms   map[string]*genome.Organism
}

func NewMemoryOrganismStore() *MemoryOrganismStore {
	return &MemoryOrganismStore{}
}

func (s *MemoryOrganismStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.organisms = make(map[string]*genome.Organism)
	return nil
}

func (s *MemoryOrganismStore) SaveOrganism(_ context.Context, organism *genome.Organism) error {
	if organism == nil || organism.ID == "" {
		return fmt.Errorf("%w: organism with id is required", ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.organisms[organism.ID] = organism.Clone()
	return nil
}

func (s *MemoryOrganismStore) GetOrganism(_ context.Context, id string) (*genome.Organism, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	organism, ok := s.organisms[id]
	if !ok {
		return nil, fmt.Errorf("%w: organism %s", ErrNotFound, id)
	}
	return organism.Clone(), nil
}

func (s *MemoryOrganismStore) DeleteOrganism(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	if _, ok := s.organisms[id]; !ok {
		return fmt.Errorf("%w: organism %s", ErrNotFound, id)
	}
	delete(s.organisms, id)
	return nil
}

func (s *MemoryOrganismStore) OrganismIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	ids := make([]string, 0, len(s.organisms))
	for id := range s.organisms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

var errNotInitialized = errors.New("store is not initialized")
