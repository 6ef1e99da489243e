// Package server exposes the fax pipeline and the document index over
// HTTP.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shora051/Digital-Faxing-Simulation/internal/export"
	"github.com/shora051/Digital-Faxing-Simulation/internal/pipeline"
	"github.com/shora051/Digital-Faxing-Simulation/internal/repository"
)

type Server struct {
	pipe      *pipeline.Pipeline
	docs      repository.DocumentRepository
	users     repository.UserRepository
	exporter  *export.Service
	uploadDir string
	logger    *slog.Logger
}

func New(pipe *pipeline.Pipeline, docs repository.DocumentRepository, users repository.UserRepository, exporter *export.Service, uploadDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	return &Server{
		pipe:      pipe,
		docs:      docs,
		users:     users,
		exporter:  exporter,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// Router constructs the Gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api/v1")
	api.POST("/signup", s.handleSignup)
	api.POST("/login", s.handleLogin)
	api.POST("/fax/send", s.handleSendFax)
	api.POST("/fax/receive", s.handleReceiveFax)
	api.GET("/documents", s.handleListDocuments)
	api.GET("/documents/search", s.handleSearchDocuments)
	api.GET("/documents/export", s.handleExportDocuments)
	api.GET("/documents/:id", s.handleGetDocument)

	return r
}
