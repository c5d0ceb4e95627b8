package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grantwell/grantwell/internal/api"
	"github.com/grantwell/grantwell/internal/api/middleware"
	"github.com/grantwell/grantwell/internal/config"
	"github.com/grantwell/grantwell/internal/fetch"
	"github.com/grantwell/grantwell/internal/logger"
	"github.com/grantwell/grantwell/internal/manager"
	"github.com/grantwell/grantwell/internal/metrics"
	"github.com/grantwell/grantwell/internal/repository"
	"github.com/grantwell/grantwell/internal/sources"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	savedGrantRepo := repository.NewSavedGrantRepository(db)

	// Build the source registry from environment credentials
	registry := sources.NewRegistry(sources.NewResolver(nil))
	for _, id := range cfg.Sources.Enabled {
		if d, ok := registry.Get(id); ok {
			d.Enabled = true
		} else {
			logger.Warn("Unknown source in sources.enabled: %q", id)
		}
	}

	report := registry.Validate()
	logger.Info("Source registry ready: %d/%d enabled, %d credentialed",
		report.EnabledSources, report.TotalSources, report.CredentialedSources)
	for _, e := range report.Errors {
		logger.Warn("Source validation: %s", e)
	}

	// Initialize metrics
	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Fatal("Failed to initialize metrics: %v", err)
	}

	// Wire fetchers and the manager
	fetchers := fetch.NewFetchers(registry)
	mgr := manager.New(registry, fetchers,
		manager.WithCollector(collector),
		manager.WithSearchWorkers(cfg.Search.Workers),
	)

	// Setup router
	router := api.SetupRouter(mgr, savedGrantRepo, collector, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting API server on port %d (mode=%s)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
