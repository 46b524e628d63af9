package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finances/internal/backend"
	"finances/internal/cache"
	"finances/internal/cli"
	"finances/internal/config"
	"finances/internal/core"
	"finances/internal/log"
	"finances/internal/services"
	gsheet "finances/internal/sheets/google"
	"finances/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)
	logger.Info("Starting finances-worker", log.FieldOperation, log.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	defer result.Cleanup()

	amqpClient, err := factory.ConnectAMQP(ctx, backend.AMQPConfigFromAppConfig(cfg))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// A memory store is private to this process, so imports would never reach the API
	shared := backendCfg.Type == backend.SQLiteBackend

	g, gctx := errgroup.WithContext(ctx)

	if shared {
		categoryCache := cache.NewLRUCache[core.Category](cfg.CategoryCacheSize, cfg.CategoryCacheTTL)
		caches := cache.NewManager()
		caches.Register("categories", categoryCache)
		caches.StartCleanup(gctx, time.Minute)
		defer caches.Stop()

		resolver := services.NewCategoryResolver(result.Store, categoryCache)
		importer := services.NewImportTransactionsService(cfg.UploadDir, resolver, result.Store, amqpClient)
		importWorker := worker.NewImportWorker(importer)

		g.Go(func() error {
			logger.Info("Consuming import requests", "queue", cfg.AMQPImportQueue)
			return amqpClient.ConsumeImportRequests(gctx, importWorker.HandleImportRequest)
		})
	} else {
		logger.Warn("Import consumer disabled: backend is not shared with the API", "backend", backendCfg.Type)
	}

	if cfg.MirrorEnabled() {
		mirror, err := newMirror(gctx, cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", log.FieldError, err)
			os.Exit(1)
		}
		// Without a shared store, created events are mirrored from the message snapshot
		var store services.Store
		if shared {
			store = result.Store
		}
		mirrorWorker := worker.NewMirrorWorker(store, mirror)

		g.Go(func() error {
			logger.Info("Consuming transaction events", "queue", cfg.AMQPEventsQueue,
				"spreadsheet_id", cfg.GoogleSpreadsheetID)
			return amqpClient.ConsumeTransactionEvents(gctx, mirrorWorker.HandleEvent)
		})
	} else {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}

func newMirror(ctx context.Context, cfg *config.Config) (*gsheet.Client, error) {
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, err
	}
	return client, nil
}
