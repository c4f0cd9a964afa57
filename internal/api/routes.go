package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the experiment and organism endpoints on rg.
//
//	POST   /experiment/start
//	GET    /experiment/configuration
//	PUT    /experiment/configuration
//	GET    /experiment/list
//	GET    /experiment/scored-organism/:id
//	GET    /experiment/:id/configuration
//	GET    /experiment/:id/status
//	POST   /experiment/:id/pause
//	POST   /experiment/:id/resume
//	POST   /experiment/:id/stop
//	GET    /experiment/:id/scored-organisms
//	GET    /organism/repo/list
//	POST   /organism/repo
//	GET    /organism/repo/:id
//	DELETE /organism/repo/:id
func RegisterRoutes(rg gin.IRouter, h *Handlers) {
	experiments := rg.Group("/experiment")
	experiments.POST("/start", h.HandleStart)
	experiments.GET("/configuration", h.HandleGetConfiguration)
	experiments.PUT("/configuration", h.HandleUpdateConfiguration)
	experiments.GET("/list", h.HandleListExperiments)
	experiments.GET("/scored-organism/:id", h.HandleGetScoredOrganism)
	experiments.GET("/:id/configuration", h.HandleGetExperimentConfiguration)
	experiments.GET("/:id/status", h.HandleGetStatus)
	experiments.POST("/:id/pause", h.HandlePause)
	experiments.POST("/:id/resume", h.HandleResume)
	experiments.POST("/:id/stop", h.HandleStop)
	experiments.GET("/:id/scored-organisms", h.HandleListScoredOrganisms)

	organisms := rg.Group("/organism/repo")
	organisms.GET("/list", h.HandleListOrganisms)
	organisms.POST("", h.HandleSaveOrganism)
	organisms.GET("/:id", h.HandleGetOrganism)
	organisms.DELETE("/:id", h.HandleDeleteOrganism)
}

// NewRouter builds an engine with recovery, the API routes and /metrics.
func NewRouter(h *Handlers, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	RegisterRoutes(router, h)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return router
}
