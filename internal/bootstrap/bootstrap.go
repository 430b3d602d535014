// Package bootstrap wires configuration into the repositories and services
// shared by the HTTP server and the command line tool.
package bootstrap

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"alfredoptarigan/cv-screener/internal/config"
	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/repositories"
	"alfredoptarigan/cv-screener/internal/services"
)

type App struct {
	Config       *config.Config
	DB           *gorm.DB
	Evaluations  repositories.EvaluationRepository
	Runs         repositories.RunRepository
	Documents    repositories.DocumentRepository
	Storage      services.StorageService
	Gemini       services.GeminiService
	Selector     services.ModelSelector
	TalentPool   services.TalentPool
	Orchestrator services.Orchestrator
}

// OpenStore opens the database and the repositories only. Commands that never
// call the model use it so they run without credentials.
func OpenStore(cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := config.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("database ready", "driver", cfg.Database.Driver)

	return &App{
		Config:      cfg,
		DB:          db,
		Evaluations: repositories.NewEvaluationRepository(db),
		Runs:        repositories.NewRunRepository(db),
		Documents:   repositories.NewDocumentRepository(db),
		Storage:     services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.MaxFileSize),
		TalentPool:  services.NewDisabledTalentPool(),
	}, nil
}

// New builds every service on top of OpenStore. The configuration must
// already be validated.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	app, err := OpenStore(cfg, log)
	if err != nil {
		return nil, err
	}

	gemini, err := services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.EmbedModel, log.With("component", "gemini"))
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Gemini = gemini

	if cfg.Gemini.AutoSelect {
		app.Selector = &services.CatalogSelector{
			Catalog:     gemini,
			Capability:  services.CapabilityGenerateContent,
			Preferences: cfg.Gemini.ModelPreferences,
			Fallback:    cfg.Gemini.Model,
			Log:         log.With("component", "model_selector"),
		}
	} else {
		app.Selector = services.StaticSelector{Model: cfg.Gemini.Model}
	}

	if cfg.Qdrant.Enabled() {
		pool, err := services.NewQdrantTalentPool(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, gemini, log.With("component", "talent_pool"))
		if err != nil {
			app.Close()
			return nil, err
		}
		if err := pool.Init(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize talent pool: %w", err)
		}
		app.TalentPool = pool
		log.Info("talent pool ready", "collection", cfg.Qdrant.Collection)
	}

	scorer := services.NewScorer(gemini, app.Selector, services.ScorerConfig{
		MaxChars:          cfg.Scoring.MaxChars,
		Timeout:           cfg.Scoring.Timeout,
		MaxAttempts:       cfg.Scoring.MaxAttempts,
		RetryInitialDelay: cfg.Scoring.RetryInitialDelay,
		Temperature:       cfg.Gemini.Temperature,
	}, log.With("component", "scorer"))

	app.Orchestrator = services.NewOrchestrator(
		app.Evaluations,
		services.NewTextExtractor(log.With("component", "extractor")),
		scorer,
		services.NewReportRenderer(),
		app.TalentPool,
		services.OrchestratorConfig{
			Delay:       cfg.Scoring.Delay,
			Concurrency: cfg.Scoring.Concurrency,
			Units:       cfg.Scoring.Units,
		},
		log.With("component", "orchestrator"),
	)
	return app, nil
}

// NewWorker builds the background worker that drains queued runs.
func (a *App) NewWorker(log *logger.Logger) services.Worker {
	return services.NewWorker(
		a.Runs,
		a.Documents,
		a.Storage,
		a.Orchestrator,
		a.Config.Worker.Concurrency,
		a.Config.Worker.PollInterval,
		log.With("component", "worker"),
	)
}

func (a *App) Close() {
	if a.DB == nil {
		return
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
