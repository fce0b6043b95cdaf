package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/sortline-service/internal/middleware"
)

// SortRoutes handles sortation route registration.
type SortRoutes struct {
	handler *Handler
}

// NewSortRoutes creates a new SortRoutes instance.
func NewSortRoutes(handler *Handler) *SortRoutes {
	return &SortRoutes{handler: handler}
}

// RegisterRoutes registers the sortation endpoints on the given group.
func (r *SortRoutes) RegisterRoutes(rg *gin.RouterGroup, cfg *RouterConfig) {
	r.RegisterPublicRoutes(rg)
}

// RegisterPublicRoutes registers the sortation endpoints. Mutating
// endpoints carry a request deadline; the events endpoint does not,
// since the websocket connection outlives any request timeout.
func (r *SortRoutes) RegisterPublicRoutes(rg *gin.RouterGroup) {
	deadline := middleware.Timeout(middleware.TimeoutConfig{
		Timeout:      10 * time.Second,
		ErrorMessage: "Request timeout",
	})

	rg.POST("/jobs", deadline, r.handler.LoadJob)
	rg.GET("/jobs/:jobID/progress", r.handler.JobProgress)
	rg.GET("/jobs/:jobID/putaside", r.handler.PutAsideList)
	rg.POST("/jobs/:jobID/putaside/drain", deadline, r.handler.Drain)
	rg.GET("/jobs/:jobID/events", r.handler.Events)

	rg.POST("/sessions", deadline, r.handler.CreateSession)
	rg.POST("/sessions/:sessionID/pause", deadline, r.handler.PauseSession)
	rg.POST("/sessions/:sessionID/complete", deadline, r.handler.CompleteSession)
	rg.POST("/scan", deadline, r.handler.Scan)
	rg.POST("/undo", deadline, r.handler.Undo)

	rg.POST("/checks", deadline, r.handler.StartCheck)
	rg.POST("/checks/:checkID/scan", deadline, r.handler.CheckScan)
	rg.POST("/checks/:checkID/complete", deadline, r.handler.CompleteCheck)
	rg.POST("/checks/:checkID/cancel", deadline, r.handler.CancelCheck)
}

// GetHandler returns the underlying handler.
func (r *SortRoutes) GetHandler() *Handler {
	return r.handler
}
