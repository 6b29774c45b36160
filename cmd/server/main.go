package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"journeyrewards/internal/cache"
	"journeyrewards/internal/catalog"
	"journeyrewards/internal/config"
	"journeyrewards/internal/database"
	"journeyrewards/internal/events"
	"journeyrewards/internal/notifications"
	"journeyrewards/internal/repositories"
	"journeyrewards/internal/response"
	"journeyrewards/internal/router"
	"journeyrewards/internal/services"
	"journeyrewards/internal/utils/appinfo"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger.Info("Starting JourneyRewards application",
		zap.String("version", appinfo.Version()),
		zap.String("environment", cfg.Server.Environment),
		zap.String("store", cfg.Store.Driver),
		zap.String("cache", cfg.Cache.Provider),
	)

	ctx := context.Background()

	repos, err := initStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}

	cacheInstance, err := cache.NewCache(&cache.Config{
		Provider:      cfg.Cache.Provider,
		TTL:           cfg.Cache.TTL,
		MaxKeys:       cfg.Cache.MaxKeys,
		KeyPrefix:     cfg.Cache.KeyPrefix,
		RedisURL:      cfg.Cache.RedisURL,
		RedisDB:       cfg.Cache.RedisDB,
		RedisPassword: cfg.Cache.RedisPassword,
		PoolSize:      cfg.Cache.PoolSize,
	}, logger.Named("cache"))
	if err != nil {
		logger.Fatal("Failed to create cache", zap.Error(err))
	}

	eventBus := events.NewEventBus(&events.EventBusConfig{
		BufferSize:     cfg.Events.BufferSize,
		WorkerCount:    cfg.Events.WorkerCount,
		HandlerTimeout: cfg.Events.HandlerTimeout,
	}, logger.Named("events"))
	if err := eventBus.Start(ctx); err != nil {
		logger.Fatal("Failed to start event bus", zap.Error(err))
	}

	serviceCollection, err := services.NewServiceCollection(repos, catalog.Default(), services.ServiceOptions{
		Cache:    cacheInstance,
		EventBus: eventBus,
		Sink:     notifications.NewEventSink(eventBus, logger.Named("notifications")),
		Location: time.Local,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	// Badge events fan out to open websocket connections
	hub := notifications.NewHub(serviceCollection.Badges, notifications.DefaultHubConfig(), logger.Named("hub"))
	if err := hub.Register(eventBus); err != nil {
		logger.Fatal("Failed to register notification hub", zap.Error(err))
	}

	responseConfig := response.DefaultConfig()
	responseConfig.PrettyJSON = !cfg.IsProduction()
	responseBuilder := response.NewBuilder(responseConfig, logger)

	handler := router.SetupRouter(serviceCollection, hub, responseBuilder, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server",
			zap.String("address", server.Addr),
			zap.String("health_check", "/health"),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Shutting down application...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("Server shutdown completed")
	}

	hub.Close()
	if err := serviceCollection.Shutdown(shutdownCtx); err != nil {
		logger.Error("Service shutdown reported errors", zap.Error(err))
	}

	logger.Info("Application shutdown completed")
}

// initStore opens the configured persistence backend. Postgres connects
// with retry and applies migrations when AutoMigrate is set.
func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repositories.Collection, error) {
	if cfg.Store.Driver == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		return repositories.NewMemoryCollection(nil, logger.Named("store")), nil
	}

	dbManager, err := database.NewManager(ctx, &cfg.Database, logger.Named("database"))
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := dbManager.Migrate(cfg.Database.MigrationsPath); err != nil {
			dbManager.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if status := dbManager.Health(healthCtx); status.Status != database.StatusHealthy {
		logger.Warn("Database reported degraded health",
			zap.String("status", status.Status),
			zap.String("error", status.Error),
		)
	}

	return repositories.NewCollection(dbManager, logger.Named("store"))
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if cfg.Logging.Format == "json" || cfg.Logging.Format == "console" {
		zc.Encoding = cfg.Logging.Format
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
