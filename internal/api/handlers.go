// Package api exposes experiments and the organism repository over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gaiaf/internal/genome"
	"gaiaf/internal/logging"
	"gaiaf/internal/model"
	"gaiaf/internal/storage"
)

// ExperimentService is the experiment control surface the handlers need.
type ExperimentService interface {
	StartExperiment() (model.ExperimentStatus, error)
	Config() model.ExperimentConfig
	UpdateConfig(cfg model.ExperimentConfig) error
	Experiment(experimentID string) (model.ExperimentSummary, error)
	Experiments() []model.ExperimentSummary
	Status(experimentID string) (model.ExperimentStatus, error)
	Pause(experimentID string) error
	Resume(experimentID string) error
	Stop(experimentID string) error
}

type Handlers struct {
	experiments ExperimentService
	populations storage.PopulationStore
	organisms   storage.OrganismStore
	logger      *slog.Logger
}

func NewHandlers(experiments ExperimentService, populations storage.PopulationStore, organisms storage.OrganismStore, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handlers{
		experiments: experiments,
		populations: populations,
		organisms:   organisms,
		logger:      logger.With("component", "api"),
	}
}

func (h *Handlers) HandleStart(c *gin.Context) {
	status, err := h.experiments.StartExperiment()
	if err != nil {
		h.fail(c, "start experiment", err)
		return
	}
	h.logger.Info("experiment started", "experiment", status.ExperimentID)
	c.JSON(http.StatusOK, status)
}

func (h *Handlers) HandleGetConfiguration(c *gin.Context) {
	c.JSON(http.StatusOK, h.experiments.Config())
}

func (h *Handlers) HandleUpdateConfiguration(c *gin.Context) {
	var cfg model.ExperimentConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	if err := h.experiments.UpdateConfig(cfg); err != nil {
		h.fail(c, "update configuration", err)
		return
	}
	c.JSON(http.StatusOK, h.experiments.Config())
}

func (h *Handlers) HandleGetExperimentConfiguration(c *gin.Context) {
	summary, err := h.experiments.Experiment(c.Param("id"))
	if err != nil {
		h.fail(c, "get experiment configuration", err)
		return
	}
	c.JSON(http.StatusOK, summary.Config)
}

func (h *Handlers) HandleGetStatus(c *gin.Context) {
	status, err := h.experiments.Status(c.Param("id"))
	if err != nil {
		h.fail(c, "get status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handlers) HandlePause(c *gin.Context) {
	h.control(c, "pause", h.experiments.Pause)
}

func (h *Handlers) HandleResume(c *gin.Context) {
	h.control(c, "resume", h.experiments.Resume)
}

func (h *Handlers) HandleStop(c *gin.Context) {
	h.control(c, "stop", h.experiments.Stop)
}

func (h *Handlers) control(c *gin.Context, action string, fn func(string) error) {
	id := c.Param("id")
	if err := fn(id); err != nil {
		h.fail(c, action+" experiment", err)
		return
	}
	status, err := h.experiments.Status(id)
	if err != nil {
		h.fail(c, "get status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handlers) HandleListExperiments(c *gin.Context) {
	c.JSON(http.StatusOK, ExperimentListResponse{Experiments: h.experiments.Experiments()})
}

// HandleListScoredOrganisms pages an experiment's population in score
// order. limit defaults to 50 and is capped at 1000.
func (h *Handlers) HandleListScoredOrganisms(c *gin.Context) {
	query := pageQuery{Limit: defaultPageLimit}
	if err := c.ShouldBindQuery(&query); err != nil || query.Offset < 0 || query.Limit < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "offset must be >= 0 and limit >= 1", Code: "INVALID_PAGE"})
		return
	}
	if query.Limit > maxPageLimit {
		query.Limit = maxPageLimit
	}

	ctx := c.Request.Context()
	experimentID := c.Param("id")
	total, err := h.populations.Size(ctx, experimentID)
	if err != nil {
		h.fail(c, "count scored organisms", err)
		return
	}
	entries, err := h.populations.ScoredOrganisms(ctx, experimentID, query.Offset, query.Limit)
	if err != nil {
		h.fail(c, "list scored organisms", err)
		return
	}
	items := make([]model.ScoredOrganismSummary, 0, len(entries))
	for _, entry := range entries {
		items = append(items, model.ScoredOrganismSummary{ID: entry.ID, Score: entry.Score})
	}
	c.JSON(http.StatusOK, model.ScoredOrganismPage{
		Items:      items,
		TotalCount: total,
		Offset:     query.Offset,
		Limit:      query.Limit,
	})
}

func (h *Handlers) HandleGetScoredOrganism(c *gin.Context) {
	ctx := c.Request.Context()
	scored, err := h.populations.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, "get scored organism", err)
		return
	}
	if scored.Organism == nil {
		organism, err := h.organisms.GetOrganism(ctx, scored.OrganismID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			h.fail(c, "get organism", err)
			return
		}
		scored.Organism = organism
	}
	c.JSON(http.StatusOK, scored)
}

func (h *Handlers) HandleListOrganisms(c *gin.Context) {
	ids, err := h.organisms.OrganismIDs(c.Request.Context())
	if err != nil {
		h.fail(c, "list organisms", err)
		return
	}
	c.JSON(http.StatusOK, ids)
}

// HandleSaveOrganism stores the posted organism, assigning an id when it
// has none, and answers 201 with the stored organism.
func (h *Handlers) HandleSaveOrganism(c *gin.Context) {
	var organism genome.Organism
	if err := c.ShouldBindJSON(&organism); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	if organism.ID == "" {
		organism.ID = uuid.NewString()
	}
	if err := organism.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_ORGANISM"})
		return
	}
	if err := h.organisms.SaveOrganism(c.Request.Context(), &organism); err != nil {
		h.fail(c, "save organism", err)
		return
	}
	c.JSON(http.StatusCreated, &organism)
}

func (h *Handlers) HandleGetOrganism(c *gin.Context) {
	organism, err := h.organisms.GetOrganism(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get organism", err)
		return
	}
	c.JSON(http.StatusOK, organism)
}

func (h *Handlers) HandleDeleteOrganism(c *gin.Context) {
	if err := h.organisms.DeleteOrganism(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete organism", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) fail(c *gin.Context, action string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(action+" failed", "path", c.FullPath(), "error", err)
	} else {
		h.logger.Warn(action+" rejected", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, storage.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
