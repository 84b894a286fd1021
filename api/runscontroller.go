package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LaChance971123/NewAutoContent/pipeline"
)

// CreateRunRequest is the payload accepted by POST /api/runs.
type CreateRunRequest struct {
	Script     string           `json:"script" binding:"required"`
	ScriptName string           `json:"scriptName"`
	Options    pipeline.Options `json:"options"`
}

// RegisterRunRoutes registers run lifecycle routes.
func (s *Server) RegisterRunRoutes(r *gin.Engine) {
	r.POST("/api/runs", s.handleCreateRun)
	r.GET("/api/runs", s.handleListRuns)
	r.GET("/api/runs/:id", s.handleGetRun)
	r.GET("/api/runs/:id/events", s.handleRunEvents)
}

// handleCreateRun starts a run and returns its ID without waiting for the
// pipeline to finish.
func (s *Server) handleCreateRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ScriptName == "" {
		req.ScriptName = "api"
	}

	// Detach from the request context: the run outlives the HTTP exchange.
	run, err := s.pipeline.Start(context.Background(), req.Script, req.ScriptName, req.Options)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.registry.Add(run)
	s.logger.Info("run started", "run", run.ID, "source", c.ClientIP())

	c.JSON(http.StatusAccepted, gin.H{
		"runId":  run.ID,
		"status": string(run.State()),
		"dir":    run.Dir,
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	runs := s.registry.List()
	out := make([]pipeline.Metadata, 0, len(runs))
	for _, run := range runs {
		out = append(out, run.Metadata())
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (s *Server) handleGetRun(c *gin.Context) {
	run, ok := s.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run.Metadata())
}

// handleRunEvents returns the buffered event history for a run.
func (s *Server) handleRunEvents(c *gin.Context) {
	run, ok := s.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runId":  run.ID,
		"status": string(run.State()),
		"events": run.Events.Snapshot(),
	})
}
