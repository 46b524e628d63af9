package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finances/internal/backend"
	"finances/internal/cache"
	"finances/internal/cli"
	"finances/internal/config"
	"finances/internal/core"
	apphttp "finances/internal/http"
	"finances/internal/log"
	"finances/internal/middleware/ratelimit"
	"finances/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg)
	ctx := context.Background()

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
	store := result.Store

	// Events are published only when a broker is configured
	var events services.EventPublisher
	var importQueue apphttp.ImportPublisher
	amqpClient, err := factory.ConnectAMQP(ctx, backend.AMQPConfigFromAppConfig(cfg))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	if amqpClient != nil {
		events = amqpClient
		if cfg.ImportMode == config.ImportModeAsync {
			importQueue = amqpClient
		}
	}

	categoryCache := cache.NewLRUCache[core.Category](cfg.CategoryCacheSize, cfg.CategoryCacheTTL)
	resolver := services.NewCategoryResolver(store, categoryCache)
	balance := services.NewBalanceService(store)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Balance:        balance,
		Creator:        services.NewCreateTransactionService(balance, resolver, store, events),
		Deleter:        services.NewDeleteTransactionService(store, events),
		Importer:       services.NewImportTransactionsService(cfg.UploadDir, resolver, store, events),
		Categories:     resolver,
		Store:          store,
		ImportQueue:    importQueue,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	})

	caches := cache.NewManager()
	caches.Register("categories", categoryCache)
	caches.Register("rate_limit", srv.RateLimiter())
	caches.StartCleanup(ctx, time.Minute)

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting finances server",
		"port", cfg.Port,
		"backend", backendCfg.Type,
		"import_mode", cfg.ImportMode,
		"events", amqpClient != nil,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
