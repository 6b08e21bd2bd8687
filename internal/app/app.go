// Package app wires configuration into a running generation service.
package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/timmy/quill/internal/config"
	"github.com/timmy/quill/internal/llm"
	"github.com/timmy/quill/internal/logger"
	"github.com/timmy/quill/internal/repository"
	"github.com/timmy/quill/internal/service"
	"github.com/timmy/quill/internal/storage"
)

// App holds the long-lived components shared by the API server and the CLI.
type App struct {
	Config       *config.Config
	DB           *gorm.DB
	Router       *llm.Router
	Registry     *service.TaskRegistry
	Dispatcher   *service.Dispatcher
	Orchestrator *service.Orchestrator
}

// New connects the database, probes provider families and assembles the
// orchestrator with its collaborators.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	router := llm.NewRouterFromConfig(&cfg.Providers)

	backend, err := service.NewNotifierFromConfig(&cfg.Notify)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}
	dispatcher := service.NewDispatcher(backend, cfg.Notify.QueueSize, cfg.Notify.Timeout)
	dispatcher.Start()

	registry := service.NewTaskRegistry(cfg.Generation.MaxConcurrent)
	orch := service.NewOrchestrator(
		repository.NewArticleRepository(db),
		router,
		service.NewSERPAnalyzer(&cfg.Topic),
		dispatcher,
		registry,
		service.NewOrchestratorConfig(&cfg.Generation),
	)

	if cfg.Archive.Enabled {
		objects, err := storage.NewStorage(cfg.Archive.StorageConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize archive storage: %w", err)
		}
		if s3, ok := objects.(*storage.S3Storage); ok {
			if err := s3.EnsureBucket(ctx); err != nil {
				logger.CtxWarn(ctx, "Archive bucket check failed: %v", err)
			}
		}
		orch.SetArchiver(service.NewArchiver(objects, cfg.Archive.Prefix))
		logger.CtxInfo(ctx, "Article archive enabled: bucket=%s", cfg.Archive.Bucket)
	}

	return &App{
		Config:       cfg,
		DB:           db,
		Router:       router,
		Registry:     registry,
		Dispatcher:   dispatcher,
		Orchestrator: orch,
	}, nil
}

// Close cancels running generations, drains pending notifications and
// closes the database.
func (a *App) Close(ctx context.Context) error {
	if err := a.Orchestrator.Shutdown(ctx); err != nil {
		logger.CtxWarn(ctx, "Generations still running at shutdown: %v", err)
	}
	if err := a.Dispatcher.Stop(ctx); err != nil {
		logger.CtxWarn(ctx, "Notifications dropped at shutdown: %v", err)
	}
	if err := a.Dispatcher.Close(); err != nil {
		logger.CtxWarn(ctx, "Failed to close notifier: %v", err)
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
