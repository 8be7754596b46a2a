package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/apply"
	"github.com/jonathan/job-agent/internal/compose"
	"github.com/jonathan/job-agent/internal/config"
	"github.com/jonathan/job-agent/internal/filter"
	"github.com/jonathan/job-agent/internal/llm"
	"github.com/jonathan/job-agent/internal/logging"
	"github.com/jonathan/job-agent/internal/notify"
	"github.com/jonathan/job-agent/internal/pipeline"
	"github.com/jonathan/job-agent/internal/render"
	"github.com/jonathan/job-agent/internal/repo"
	"github.com/jonathan/job-agent/internal/source"
)

// app bundles everything a command needs after wiring.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	repo      repo.Repository
	pipelines *pipeline.Pipelines
	llmClient llm.Client
}

func (a *app) close() {
	if a.llmClient != nil {
		_ = a.llmClient.Close()
	}
	if a.repo != nil {
		a.repo.Close()
	}
	_ = a.logger.Sync()
}

// buildApp loads config and constructs the full collaborator graph.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDebug {
		cfg.Debug = true
	}

	logger, err := logging.New(cfg.LogJSON, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	var repository repo.Repository
	if cfg.DatabaseURL != "" {
		repository, err = repo.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("using postgres repository")
	} else {
		repository = repo.NewMemory()
		logger.Warn("no database configured, job records will not survive restarts")
	}

	llmClient, err := llm.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		repository.Close()
		return nil, err
	}

	masterCV, err := compose.LoadMasterCV(cfg.MasterCVPath)
	if err != nil {
		repository.Close()
		return nil, err
	}

	renderer, err := render.NewTemplateRenderer(cfg.TemplateID, cfg.OutputDir, logger)
	if err != nil {
		repository.Close()
		return nil, err
	}

	var applier apply.Applier
	if cfg.ApplyMethod == "browser" {
		applier = apply.NewBrowser(cfg.ApplyTimeout, logger)
	} else {
		applier = apply.NewManual(logger)
	}

	extractor := source.NewExtractor(llmClient, source.Options{
		MinDescription: cfg.MinDescription,
		UseBrowser:     cfg.UseBrowser,
	}, logger)

	pipelines := pipeline.New(
		repository,
		extractor,
		filter.New(llmClient, cfg.FilterCriteria, logger),
		compose.NewLLMComposer(llmClient, logger),
		renderer,
		applier,
		notify.New(cfg.WebhookURL, logger),
		masterCV,
		pipeline.Options{
			RetryCeiling:   cfg.RetryCeiling,
			ResumeParallel: cfg.ResumeParallel,
			ExtractTimeout: cfg.ExtractTimeout,
			ComposeTimeout: cfg.ComposeTimeout,
			RenderTimeout:  cfg.RenderTimeout,
			ApplyTimeout:   cfg.ApplyTimeout,
		},
		logger,
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		repo:      repository,
		pipelines: pipelines,
		llmClient: llmClient,
	}, nil
}
