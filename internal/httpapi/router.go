package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/SnakeSolid/pgrestore-web/internal/config"
	"github.com/SnakeSolid/pgrestore-web/internal/downloader"
	"github.com/SnakeSolid/pgrestore-web/internal/jobmanager"
	"github.com/SnakeSolid/pgrestore-web/internal/logger"
	"github.com/SnakeSolid/pgrestore-web/internal/pathindex"
	"github.com/SnakeSolid/pgrestore-web/internal/worker"
)

// WorkerFactory builds the Worker for a single restore request. The
// httpapi package depends on this indirection, not on internal/worker's
// construction details, so routing stays independent of how a job's
// external-tool paths and destination get resolved.
type WorkerFactory func(jobid int, destinationIndex int, databaseName string, ignoreErrors bool) (*worker.Worker, error)

// Server holds every dependency the HTTP surface needs.
type Server struct {
	cfg           *config.Config
	jobs          *jobmanager.Manager
	index         *pathindex.Index
	downloader    *downloader.Downloader
	newWorker     WorkerFactory
	log           *logger.Logger
}

// New returns a Server ready to have its router built.
func New(
	cfg *config.Config,
	jobs *jobmanager.Manager,
	index *pathindex.Index,
	dl *downloader.Downloader,
	newWorker WorkerFactory,
	log *logger.Logger,
) *Server {
	return &Server{
		cfg:        cfg,
		jobs:       jobs,
		index:      index,
		downloader: dl,
		newWorker:  newWorker,
		log:        log.With("component", "httpapi"),
	}
}

// Router builds the gin engine for the service's HTTP API, under
// /api/v1, with CORS applied per http_server.cors configuration.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	router.Use(s.corsMiddleware())

	api := router.Group("/api/v1")
	api.GET("/settings", s.handleSettings)
	api.POST("/restore", s.handleRestore)
	api.POST("/abort", s.handleAbort)
	api.POST("/status", s.handleStatus)
	api.GET("/jobs", s.handleJobs)
	api.POST("/jobs", s.handleJobs)
	api.POST("/search", s.handleSearch)

	return router
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Content-Type"}

	block := s.cfg.HTTPServer.CORS
	switch {
	case block == nil || block.Type == config.CORSAllowAny:
		corsCfg.AllowAllOrigins = true
	case block.Type == config.CORSWhitelist:
		corsCfg.AllowOrigins = block.Whitelist
	default:
		corsCfg.AllowAllOrigins = true
	}

	return cors.New(corsCfg)
}
