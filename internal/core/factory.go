// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package core builds the analysis pipeline, version store and optional
// persistence from configuration. The CLI and the HTTP server share it.
package core

import (
	"context"
	"fmt"
	"time"

	"lexscan/internal/archive"
	"lexscan/internal/batch"
	"lexscan/internal/compliance"
	"lexscan/internal/config"
	"lexscan/internal/entities"
	"lexscan/internal/extraction"
	"lexscan/internal/fingerprint"
	"lexscan/internal/logger"
	"lexscan/internal/observability"
	"lexscan/internal/orchestrator"
	"lexscan/internal/patterns"
	"lexscan/internal/resilience"
	"lexscan/internal/versioning"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisPingTimeout bounds the startup connectivity check
const redisPingTimeout = 5 * time.Second

// App is the wired set of services
type App struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Observer     *observability.StandardObserver
	Orchestrator *orchestrator.Orchestrator
	Versions     *versioning.Store
	Batch        *batch.Processor
	// Archive is nil when persistence is disabled
	Archive *archive.Archive

	redis *redis.Client
}

// BuildOptions adjusts Build for the caller
type BuildOptions struct {
	// NoArchive skips opening the archive even when configured
	NoArchive bool
}

// Build wires every service described by cfg. Archived histories are
// restored into the version store before Build returns.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts BuildOptions) (*App, error) {
	app := &App{Config: cfg, Logger: log}

	level := observability.LevelMetrics
	if logger.ParseLevel(cfg.Logging.Level) == zerolog.DebugLevel {
		level = observability.LevelDebug
	}
	app.Observer = observability.NewStandardObserver(level, logger.Component(log, "observer"))

	library, err := buildLibrary(cfg)
	if err != nil {
		return nil, err
	}

	var service entities.EntityService
	if cfg.EntityService.Enabled {
		service = entities.NewLLMService(entities.LLMConfig{
			BaseURL:           cfg.EntityService.BaseURL,
			APIKey:            cfg.EntityService.APIKey,
			Model:             cfg.EntityService.Model,
			RequestsPerSecond: cfg.EntityService.RequestsPerSecond,
			Burst:             cfg.EntityService.Burst,
		}, logger.Component(log, "entity_service"))
	}

	var ocr extraction.OCRService
	if cfg.OCR.Endpoint != "" {
		retry := resilience.DefaultRetryConfig()
		retry.MaxRetries = cfg.OCR.MaxRetries
		ocr = extraction.NewHTTPOCRClient(cfg.OCR.Endpoint, cfg.OCR.Timeout,
			extraction.WithRetry(retry),
			extraction.WithLogger(logger.Component(log, "ocr")))
	}

	var jobs orchestrator.JobStore
	if cfg.Redis.Addr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := app.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			app.redis.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		jobs = orchestrator.NewRedisJobStore(app.redis, cfg.Redis.KeyPrefix, cfg.Redis.TTL)
	}

	var families []compliance.Family
	for _, f := range cfg.Compliance.Families {
		families = append(families, compliance.Family(f))
	}

	app.Orchestrator = orchestrator.New(orchestrator.Config{
		Fingerprinter: fingerprint.New(logger.Component(log, "fingerprint")),
		OCR:           ocr,
		Library:       library,
		Recognizer:    entities.NewRecognizer(library, service, logger.Component(log, "entities")),
		Checker:       compliance.NewChecker(families),
		Jobs:          jobs,
		Observer:      app.Observer,
		Logger:        logger.Component(log, "orchestrator"),
		Analyzer:      cfg.Analysis.Analyzer,
		Version:       cfg.Analysis.AnalysisVersion,
	})

	app.Versions = versioning.NewStore(
		versioning.WithMaxVersions(cfg.Versioning.MaxVersionsPerDocument),
		versioning.WithLogger(logger.Component(log, "versioning")),
	)

	app.Batch = batch.NewProcessor(app.Orchestrator,
		batch.WithVersioner(app.Versions),
		batch.WithObserver(app.Observer),
		batch.WithLogger(logger.Component(log, "batch")))

	if !opts.NoArchive && (cfg.Archive.InMemory || cfg.Archive.Path != "") {
		app.Archive, err = archive.Open(archive.Config{
			Path:     cfg.Archive.Path,
			InMemory: cfg.Archive.InMemory,
			Logger:   logger.Component(log, "archive"),
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		n, err := app.Archive.Restore(ctx, app.Versions)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to restore archived histories: %w", err)
		}
		log.Debug().Int("documents", n).Msg("restored archived histories")
	}

	return app, nil
}

func buildLibrary(cfg *config.Config) (*patterns.Library, error) {
	if cfg.Patterns.File == "" {
		return patterns.Default(), nil
	}
	library, err := patterns.LoadFile(cfg.Patterns.File, cfg.Patterns.Extend)
	if err != nil {
		return nil, fmt.Errorf("failed to load pattern file: %w", err)
	}
	return library, nil
}

// BatchOptions returns batch options seeded from configuration
func (a *App) BatchOptions() batch.Options {
	return batch.Options{
		Concurrency: a.Config.Batch.Concurrency,
		ChunkSize:   a.Config.Batch.ChunkSize,
		AutoVersion: a.Config.Batch.AutoVersion,
		Analysis:    orchestrator.Options{EnableOCR: a.Config.Analysis.EnableOCR},
	}
}

// Persist writes the version store to the archive, if one is open
func (a *App) Persist(ctx context.Context) error {
	if a.Archive == nil {
		return nil
	}
	return a.Archive.Sync(ctx, a.Versions)
}

// Close releases the archive and the redis connection
func (a *App) Close() error {
	var firstErr error
	if a.Archive != nil {
		if err := a.Archive.Close(); err != nil {
			firstErr = err
		}
		a.Archive = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.redis = nil
	}
	return firstErr
}
