package platform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"gaiaf/internal/evo"
	"gaiaf/internal/model"
	"gaiaf/internal/storage"
)

var (
	_ evo.StatusRecorder = (*StatusRepository)(nil)
	_ evo.StatusRecorder = MultiRecorder(nil)
)

// StatusRepository keeps one ExperimentStatus per experiment. Records are
// created on first use and copies are returned from every read.
type StatusRepository struct {
	mu       sync.RWMutex
	statuses map[string]model.ExperimentStatus
}

func NewStatusRepository() *StatusRepository {
	return &StatusRepository{statuses: make(map[string]model.ExperimentStatus)}
}

// Create registers a fresh status for experimentID, replacing any earlier one.
func (r *StatusRepository) Create(experimentID string, state model.ExperimentState) model.ExperimentStatus {
	status := model.ExperimentStatus{
		ID:           uuid.NewString(),
		ExperimentID: experimentID,
		State:        state,
	}
	r.mu.Lock()
	r.statuses[experimentID] = status
	r.mu.Unlock()
	return status
}

func (r *StatusRepository) Get(experimentID string) (model.ExperimentStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status, ok := r.statuses[experimentID]
	if !ok {
		return model.ExperimentStatus{}, fmt.Errorf("%w: status for experiment %s", storage.ErrNotFound, experimentID)
	}
	return status, nil
}

func (r *StatusRepository) Save(status model.ExperimentStatus) error {
	if status.ExperimentID == "" {
		return fmt.Errorf("%w: experiment id is required", storage.ErrInvalidArgument)
	}
	if status.ID == "" {
		status.ID = uuid.NewString()
	}
	r.mu.Lock()
	r.statuses[status.ExperimentID] = status
	r.mu.Unlock()
	return nil
}

// List returns every status ordered by experiment id.
func (r *StatusRepository) List() []model.ExperimentStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ExperimentStatus, 0, len(r.statuses))
	for _, status := range r.statuses {
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExperimentID < out[j].ExperimentID })
	return out
}

func (r *StatusRepository) CycleCompleted(experimentID string) {
	r.update(experimentID, func(status *model.ExperimentStatus) {
		status.CyclesCompleted++
	})
}

func (r *StatusRepository) OrganismsReplaced(experimentID string, count int) {
	r.update(experimentID, func(status *model.ExperimentStatus) {
		status.OrganismsReplaced += count
	})
}

func (r *StatusRepository) SetState(experimentID string, state model.ExperimentState) {
	r.update(experimentID, func(status *model.ExperimentStatus) {
		status.State = state
	})
}

func (r *StatusRepository) update(experimentID string, fn func(*model.ExperimentStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status, ok := r.statuses[experimentID]
	if !ok {
		status = model.ExperimentStatus{ID: uuid.NewString(), ExperimentID: experimentID}
	}
	fn(&status)
	r.statuses[experimentID] = status
}

// MultiRecorder fans progress out to several recorders in order.
type MultiRecorder []evo.StatusRecorder

func (m MultiRecorder) CycleCompleted(experimentID string) {
	for _, recorder := range m {
		recorder.CycleCompleted(experimentID)
	}
}

func (m MultiRecorder) OrganismsReplaced(experimentID string, count int) {
	for _, recorder := range m {
		recorder.OrganismsReplaced(experimentID, count)
	}
}

func (m MultiRecorder) SetState(experimentID string, state model.ExperimentState) {
	for _, recorder := range m {
		recorder.SetState(experimentID, state)
	}
}
