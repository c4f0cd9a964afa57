package model

import (
	"time"

	"gaiaf/internal/genome"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// DefaultExperimentID partitions single-experiment deployments.
const DefaultExperimentID = "default"

// OrganismRecord is the persisted form of a genome payload.
type OrganismRecord struct {
	VersionedRecord
	ID       string           `json:"id"`
	Organism *genome.Organism `json:"organism"`
}

// ScoredOrganism pairs an evaluated organism with its fitness. ID is the
// result id assigned by the population store and is distinct from
// OrganismID. Lower scores are better.
type ScoredOrganism struct {
	ID           string           `json:"id"`
	Score        float64          `json:"score"`
	OrganismID   string           `json:"organismId"`
	Organism     *genome.Organism `json:"organism,omitempty"`
	ExperimentID string           `json:"experimentId"`
}

type ScoredOrganismSummary struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type ScoredOrganismPage struct {
	Items      []ScoredOrganismSummary `json:"items"`
	TotalCount int                     `json:"totalCount"`
	Offset     int                     `json:"offset"`
	Limit      int                     `json:"limit"`
}

type ExperimentState string

const (
	StateRunning   ExperimentState = "running"
	StatePaused    ExperimentState = "paused"
	StateStopped   ExperimentState = "stopped"
	StateException ExperimentState = "exception"
)

var ExperimentStates = []ExperimentState{StateRunning, StatePaused, StateStopped, StateException}

type ExperimentStatus struct {
	ID                string          `json:"id"`
	ExperimentID      string          `json:"experimentId"`
	CyclesCompleted   int             `json:"cyclesCompleted"`
	OrganismsReplaced int             `json:"organismsReplaced"`
	State             ExperimentState `json:"status"`
}

// ExperimentConfig controls one experiment run.
type ExperimentConfig struct {
	CycleCount  int   `json:"cycleCount" yaml:"cycle_count" validate:"gte=1"`
	Capacity    int   `json:"repoCapacity" yaml:"capacity" validate:"gte=2"`
	Pausable    bool  `json:"pausable" yaml:"pausable"`
	PauseCycles int   `json:"pauseCycles" yaml:"pause_cycles" validate:"gte=0"`
	Seed        int64 `json:"seed" yaml:"seed"`
}

func DefaultExperimentConfig() ExperimentConfig {
	return ExperimentConfig{
		CycleCount:  1500,
		Capacity:    200,
		PauseCycles: 0,
	}
}

type ExperimentSummary struct {
	ID        string           `json:"id"`
	State     ExperimentState  `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	Config    ExperimentConfig `json:"configuration"`
}
