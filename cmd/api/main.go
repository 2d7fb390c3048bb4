package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storedir/store-directory/docs"
	"github.com/storedir/store-directory/internal/auth"
	"github.com/storedir/store-directory/internal/config"
	"github.com/storedir/store-directory/internal/database"
	"github.com/storedir/store-directory/internal/http/handler"
	"github.com/storedir/store-directory/internal/http/middleware"
	"github.com/storedir/store-directory/internal/http/router"
	"github.com/storedir/store-directory/internal/jobs"
	"github.com/storedir/store-directory/internal/logger"
	"github.com/storedir/store-directory/internal/repository"
	"github.com/storedir/store-directory/internal/service"
	"github.com/storedir/store-directory/internal/storage"
	"github.com/storedir/store-directory/internal/web"
	"go.uber.org/zap"
)

// @title Store Directory API
// @version 1.0
// @description Directory of retail stores with per-store item search URLs.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and an HS256 token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API key for write operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Basic configuration first, for logging setup
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	}

	// In development secrets come from the environment; elsewhere Key Vault is consulted
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(ctx, &cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		version, err := database.Migrate(db, &cfg.Database, log)
		if err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("Database schema up to date", zap.Int64("version", version))
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	storeRepo := repository.NewStoreRepository(db)
	storeService := service.NewStoreService(storeRepo, fileStorage, log)

	if cfg.Database.SeedDefaults {
		seeded, err := storeService.SeedDefaults(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed stores: %w", err)
		}
		if seeded > 0 {
			log.Info("Seeded default stores", zap.Int("count", seeded))
		}
	}

	renderer, err := web.NewRenderer(cfg.App.Name)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	authMiddleware := auth.NewMiddleware(&cfg.Auth, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	storeHandler := handler.NewStoreHandler(storeService, log)
	pageHandler := handler.NewPageHandler(storeService, renderer, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		authMiddleware,
		rateLimiter,
		storeHandler,
		pageHandler,
	)

	var scheduler *jobs.Scheduler
	if cfg.Export.Enabled {
		scheduler = jobs.NewScheduler(log)

		if err := jobs.RegisterExportJob(
			scheduler,
			storeService,
			log,
			cfg.Export.Cron,
			cfg.Export.TimeoutDuration(),
			cfg.Export.Retain,
			cfg.Export.RunOnStartup,
		); err != nil {
			log.Error("Failed to register export job", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started with export job",
				zap.String("cron_expr", cfg.Export.Cron),
				zap.Duration("timeout", cfg.Export.TimeoutDuration()),
				zap.Int("retain", cfg.Export.Retain),
				zap.Bool("run_on_startup", cfg.Export.RunOnStartup),
			)
		}
	} else {
		log.Info("Periodic export disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn("Error closing database connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
