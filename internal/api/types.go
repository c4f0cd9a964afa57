package api

import (
	"gaiaf/internal/model"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 1000
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type ExperimentListResponse struct {
	Experiments []model.ExperimentSummary `json:"experiments"`
}

type pageQuery struct {
	Offset int `form:"offset,default=0"`
	Limit  int `form:"limit,default=50"`
}
