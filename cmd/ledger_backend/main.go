package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/SscSPs/portfolio_ledger/internal/adapters/events"
	"github.com/SscSPs/portfolio_ledger/internal/adapters/quotes"
	"github.com/SscSPs/portfolio_ledger/internal/core/services"
	"github.com/SscSPs/portfolio_ledger/internal/handlers"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
	"github.com/SscSPs/portfolio_ledger/internal/platform/config"
	"github.com/SscSPs/portfolio_ledger/internal/platform/store"
	"github.com/SscSPs/portfolio_ledger/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// @title Portfolio Ledger API
// @version 1.0
// @description Paper-trading ledger: accounts, cash, holdings and an append-only history.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logger.Warn("Unknown log level, keeping info", slog.String("level", cfg.LogLevel))
	}

	ctx := context.Background()

	repos, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer repos.Close()
	logger.Info("Ledger store ready.", slog.String("driver", cfg.DatabaseDriver))

	quoteProvider, err := quotes.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize quote provider", slog.String("error", err.Error()))
		os.Exit(1)
	}

	posthogClient := utils.InitializePosthogClient(cfg.PosthogAPIKey, cfg.PosthogEndpoint, logger)
	defer posthogClient.Close()

	publisher, closeEvents := events.NewFromConfig(cfg, posthogClient, logger)
	defer closeEvents()

	serviceContainer := services.NewServiceContainer(cfg, repos, quoteProvider, publisher)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, CORS, analytics)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
	}))
	r.Use(middleware.PosthogMiddleware(posthogClient))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := handlers.RegisterRoutes(r, cfg, serviceContainer); err != nil {
		logger.Error("Failed to register routes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
