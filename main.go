package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xyqotech/xyqo-home/config"
	"github.com/xyqotech/xyqo-home/handler"
	"github.com/xyqotech/xyqo-home/middleware"
	"github.com/xyqotech/xyqo-home/pkg/logger"
	"github.com/xyqotech/xyqo-home/service"
)

func main() {
	// Best-effort .env loading before config reads the environment
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize services
	store, err := buildStore(cfg)
	if err != nil {
		slog.Error("failed to initialize report store", "error", err)
		os.Exit(1)
	}

	analyzer := service.NewAnalyzer(&cfg.OpenAI)
	if !analyzer.Configured() {
		slog.Warn("OPENAI_API_KEY not set, analyze requests will be refused")
	}

	contractHandler := handler.NewContractHandler(analyzer, store)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(&cfg.CORS))
	router.Use(middleware.RateLimit(100, time.Minute))

	router.GET("/health", contractHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1/contract")
	{
		api.POST("/analyze", contractHandler.Analyze)
		api.GET("/download/:id", contractHandler.Download)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// buildStore selects the report store backend from config.
func buildStore(cfg *config.Config) (service.ReportStore, error) {
	switch cfg.Store.Backend {
	case "minio":
		store, err := service.NewMinioStore(&cfg.Minio)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(context.Background()); err != nil {
			return nil, err
		}
		slog.Info("using minio report store", "bucket", cfg.Minio.Bucket)
		return store, nil
	case "memory":
		slog.Info("using in-memory report store", "max_reports", cfg.Store.MaxReports)
		return service.NewMemoryStore(cfg.Store.MaxReports), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
