// Package api exposes pipeline runs over HTTP for front-ends and automation.
package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/LaChance971123/NewAutoContent/config"
	"github.com/LaChance971123/NewAutoContent/pipeline"
)

// Server wires the pipeline and its run registry into HTTP handlers.
type Server struct {
	cfg      config.Config
	pipeline *pipeline.Pipeline
	registry *pipeline.Registry
	logger   *slog.Logger
}

// NewServer creates the API server around an existing pipeline.
func NewServer(cfg config.Config, p *pipeline.Pipeline, registry *pipeline.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, pipeline: p, registry: registry, logger: logger}
}

// NewRouter constructs a Gin engine with registered routes.
func (s *Server) NewRouter() *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	s.RegisterHealthRoutes(r)
	s.RegisterRunRoutes(r)
	return r
}
