package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes registers the liveness probe.
func (s *Server) RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"outputDir":  s.cfg.OutputDir,
			"activeRuns": len(s.registry.List()),
		})
	})
}
