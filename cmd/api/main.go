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

	"github.com/tessa/caseload/internal/api"
	"github.com/tessa/caseload/internal/api/middleware"
	"github.com/tessa/caseload/internal/config"
	"github.com/tessa/caseload/internal/helpdesk"
	"github.com/tessa/caseload/internal/logger"
	"github.com/tessa/caseload/internal/report"
	"github.com/tessa/caseload/internal/service"
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
	appLogger := logger.New(nil)
	logger.SetDefaultLogger(appLogger)

	if cfg.Helpdesk.Token == "" {
		appLogger.Warn("HELPDESK_TOKEN is not set, remote calls will be unauthenticated")
	}

	// Initialize helpdesk API client
	client := helpdesk.NewClient(&helpdesk.Config{
		BaseURL:           cfg.Helpdesk.BaseURL,
		Token:             cfg.Helpdesk.Token,
		DefaultTimeout:    cfg.Helpdesk.DefaultTimeout,
		MinTimeout:        cfg.Helpdesk.MinTimeout,
		MaxTimeout:        cfg.Helpdesk.MaxTimeout,
		SafetyMargin:      cfg.Helpdesk.SafetyMargin,
		MaxAttempts:       cfg.Helpdesk.MaxAttempts,
		BackoffBase:       cfg.Helpdesk.BackoffBase,
		SlowCallThreshold: cfg.Helpdesk.SlowCallThreshold,
	}, appLogger)

	// Initialize report engine and job registry
	engine := report.NewEngine(client, &report.EngineConfig{
		StepBudget:       cfg.Report.StepBudget,
		StepSafetyMargin: cfg.Report.StepSafetyMargin,
		MinCallWindow:    cfg.Report.MinCallWindow,
		PageSize:         cfg.Report.PageSize,
		ContactBatchSize: cfg.Report.ContactBatchSize,
		DirectoryTTL:     cfg.Report.DirectoryTTL,
		MaxTimeoutStreak: cfg.Report.MaxTimeoutStreak,
	}, appLogger)
	registry := report.NewRegistry(cfg.Report.JobTTL, cfg.Report.ContactTTL)

	caseloadService := service.NewCaseloadService(registry, engine, appLogger, &service.CaseloadConfig{
		MaxPageSize: cfg.Report.MaxPageSize,
	})

	// Setup router
	router := api.SetupRouter(caseloadService, cfg.Server.Mode, middleware.CORSConfig{
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
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting caseload API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
