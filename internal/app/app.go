// Package app wires the service's components together: configuration,
// logging, the job manager, path index, scanner, downloader and HTTP
// API.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/SnakeSolid/pgrestore-web/internal/config"
	"github.com/SnakeSolid/pgrestore-web/internal/downloader"
	"github.com/SnakeSolid/pgrestore-web/internal/httpapi"
	"github.com/SnakeSolid/pgrestore-web/internal/jobmanager"
	"github.com/SnakeSolid/pgrestore-web/internal/logger"
	"github.com/SnakeSolid/pgrestore-web/internal/pathindex"
	"github.com/SnakeSolid/pgrestore-web/internal/scanner"
	"github.com/SnakeSolid/pgrestore-web/internal/worker"
)

// App holds every long-lived component of a running instance.
type App struct {
	Log    *logger.Logger
	Cfg    *config.Config
	Jobs   *jobmanager.Manager
	Index  *pathindex.Index
	Router *gin.Engine

	scanner *scanner.Scanner
	cancel  context.CancelFunc
}

// New loads and validates configuration at configPath, builds every
// component, and returns an App ready to Start and Run. Configuration
// failures are fatal and returned as an error for the caller to exit on.
func New(configPath, logMode string) (*App, error) {
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Sync()
		return nil, fmt.Errorf("validate config: %w", err)
	}

	jobs := jobmanager.New(cfg.JoblogsPath, cfg.MaxJobs, log)
	index := pathindex.New()
	sc := scanner.New(cfg.SearchConfig, index, log)

	dl, err := downloader.New(cfg.HTTPClient, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init downloader: %w", err)
	}

	factory := newWorkerFactory(cfg, jobs, log)
	server := httpapi.New(cfg, jobs, index, dl, factory, log)

	return &App{
		Log:     log,
		Cfg:     cfg,
		Jobs:    jobs,
		Index:   index,
		Router:  server.Router(),
		scanner: sc,
	}, nil
}

// newWorkerFactory closes over configuration to build a worker.Worker
// for a single restore request, resolving the request's destination
// index and per-request overrides (database name, ignore_errors) at
// call time.
func newWorkerFactory(cfg *config.Config, jobs *jobmanager.Manager, log *logger.Logger) httpapi.WorkerFactory {
	return func(jobid int, destinationIndex int, databaseName string, ignoreErrors bool) (*worker.Worker, error) {
		if destinationIndex < 0 || destinationIndex >= len(cfg.Destinations) {
			return nil, fmt.Errorf("invalid destination id %d", destinationIndex)
		}

		return worker.New(
			jobid,
			jobs,
			cfg.Destinations[destinationIndex],
			databaseName,
			cfg.Commands.CreatedbPath,
			cfg.Commands.DropdbPath,
			cfg.Commands.PgrestorePath,
			cfg.RestoreJobs,
			cfg.Templates.Full,
			ignoreErrors,
			cfg.IndexesPath,
			log,
		), nil
	}
}

// Start launches the background scanner loop. Safe to call once.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.scanner.Run(ctx)
}

// Run blocks serving HTTP on addr until the server stops.
func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

// Close stops the scanner and flushes logs.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
