package storage

import (
	"context"
	"errors"
	"math/rand"

	"gaiaf/internal/genome"
	"gaiaf/internal/model"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// PopulationStore ranks scored organisms per experiment id. Lower scores rank
// first, so the top percent holds the best organisms.
type PopulationStore interface {
	Save(ctx context.Context, candidate model.ScoredOrganism) (model.ScoredOrganism, error)
	Delete(ctx context.Context, resultID string) error
	Get(ctx context.Context, resultID string) (model.ScoredOrganism, error)
	RandomFromTopPercent(ctx context.Context, rng *rand.Rand, experimentID string, percent float64) (model.ScoredOrganism, error)
	RandomFromBottomPercent(ctx context.Context, rng *rand.Rand, experimentID string, percent float64) (model.ScoredOrganism, error)
	Size(ctx context.Context, experimentID string) (int, error)
	OrganismIDs(ctx context.Context, experimentID string) ([]string, error)
	ScoredOrganisms(ctx context.Context, experimentID string, offset, limit int) ([]model.ScoredOrganism, error)
	ExperimentIDs(ctx context.Context) ([]string, error)
}

// OrganismStore holds full genome payloads by organism id.
type OrganismStore interface {
	Init(ctx context.Context) error
	SaveOrganism(ctx context.Context, organism *genome.Organism) error
	GetOrganism(ctx context.Context, id string) (*genome.Organism, error)
	DeleteOrganism(ctx context.Context, id string) error
	OrganismIDs(ctx context.Context) ([]string, error)
}
