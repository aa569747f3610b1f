package main

import (
	"context"
	"log/slog"
	"os"

	portssvc "github.com/SscSPs/oversight/internal/core/ports/services"
	"github.com/SscSPs/oversight/internal/core/services"
	"github.com/SscSPs/oversight/internal/handlers"
	"github.com/SscSPs/oversight/internal/middleware"
	"github.com/SscSPs/oversight/internal/notification"
	"github.com/SscSPs/oversight/internal/platform/config"
	"github.com/SscSPs/oversight/internal/platform/storage"
	"github.com/SscSPs/oversight/internal/utils"
	"github.com/SscSPs/oversight/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// @title Oversight API
// @version 1.0
// @description Purchase requisition approvals: HOD and Finance decisions, splits and exports.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	store, err := storage.Open(ctx, cfg, true, logger)
	if err != nil {
		logger.Error("Failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	var notifier portssvc.Notifier = notification.LogNotifier{}
	if cfg.NATSURL != "" {
		nc, err := notification.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("Failed to connect to NATS", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer nc.Drain()
		notifier = notification.NewNATSNotifier(nc, cfg.NATSSubjectPrefix)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Error("Failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	loginLimiter, err := middleware.NewLimiter(cfg.LoginRateLimit, redisClient, "oversight_login")
	if err != nil {
		logger.Error("Failed to create login rate limiter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	posthogClient := utils.InitializePosthogClient(cfg.PosthogAPIKey, cfg.PosthogEndpoint, logger)
	defer posthogClient.Close()

	if err := handlers.RegisterValidators(); err != nil {
		logger.Error("Failed to register validators", slog.String("error", err.Error()))
		os.Exit(1)
	}

	serviceContainer := services.NewServiceContainer(cfg, store.Repos, notifier)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, serviceContainer, handlers.RouterDeps{
		LoginLimiter: loginLimiter,
		Posthog:      posthogClient,
	})

	logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("db_driver", cfg.DBDriver))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
