package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"journeyrewards/internal/cache"
	"journeyrewards/internal/catalog"
	"journeyrewards/internal/events"
	"journeyrewards/internal/notifications"
	"journeyrewards/internal/repositories"
	"journeyrewards/internal/utils/appinfo"
)

// ServiceCollection holds all services with dependency injection
type ServiceCollection struct {
	// Core Services
	Ledger   *LedgerService
	Badges   *BadgeService
	Activity *ActivityService
	Stats    StatsAggregator

	// Infrastructure Components
	Catalog      *catalog.Catalog
	Repositories *repositories.Collection
	Cache        cache.Cache
	EventBus     events.EventBus
	Logger       *zap.Logger

	startTime time.Time
}

// ServiceHealth represents the health status of the service collection
type ServiceHealth struct {
	Status       string                   `json:"status"`
	Version      string                   `json:"version"`
	Timestamp    time.Time                `json:"timestamp"`
	Dependencies map[string]ServiceStatus `json:"dependencies"`
	Uptime       string                   `json:"uptime"`
	Issues       []string                 `json:"issues,omitempty"`
}

// ServiceStatus represents the status of an individual dependency
type ServiceStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ServiceOptions carries the optional collaborators
type ServiceOptions struct {
	Cache    cache.Cache
	EventBus events.EventBus
	Sink     notifications.Sink
	// Location is the time zone calendar days are computed in
	Location *time.Location
}

// NewServiceCollection wires the services over repos and cat
func NewServiceCollection(repos *repositories.Collection, cat *catalog.Catalog, opts ServiceOptions, logger *zap.Logger) (*ServiceCollection, error) {
	if repos == nil {
		return nil, fmt.Errorf("repository collection is required")
	}
	if cat == nil {
		return nil, fmt.Errorf("badge catalog is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNoopCache()
	}

	stats := NewPostStatsAggregator(repos.Post, opts.Location)
	ledger := NewLedgerService(repos, opts.Cache, opts.EventBus, logger.Named("ledger"))
	badges := NewBadgeService(repos, cat, stats, ledger, opts.Sink, opts.Cache, logger.Named("badges"))
	activity := NewActivityService(repos, ledger, badges, opts.EventBus, opts.Location, logger.Named("activity"))

	logger.Info("Service collection initialized", zap.Int("badges", cat.Len()))

	return &ServiceCollection{
		Ledger:       ledger,
		Badges:       badges,
		Activity:     activity,
		Stats:        stats,
		Catalog:      cat,
		Repositories: repos,
		Cache:        opts.Cache,
		EventBus:     opts.EventBus,
		Logger:       logger,
		startTime:    time.Now(),
	}, nil
}

// HealthCheck reports the state of the store, cache and event bus
func (sc *ServiceCollection) HealthCheck(ctx context.Context) *ServiceHealth {
	health := &ServiceHealth{
		Status:       "healthy",
		Version:      appinfo.Version(),
		Timestamp:    time.Now(),
		Dependencies: make(map[string]ServiceStatus),
		Uptime:       time.Since(sc.startTime).Round(time.Second).String(),
	}

	check := func(name string, err error) {
		if err == nil {
			health.Dependencies[name] = ServiceStatus{Status: "healthy"}
			return
		}
		health.Dependencies[name] = ServiceStatus{Status: "unhealthy", Error: err.Error()}
		health.Issues = append(health.Issues, fmt.Sprintf("%s: %v", name, err))
	}

	storeStatus := fmt.Sprint(sc.Repositories.HealthCheck(ctx)["status"])
	var storeErr error
	if storeStatus != "healthy" {
		storeErr = fmt.Errorf("store is %s", storeStatus)
	}
	check("store", storeErr)
	check("cache", sc.Cache.Health(ctx))
	if sc.EventBus != nil {
		check("events", sc.EventBus.Health())
	}

	if len(health.Issues) > 0 {
		health.Status = "degraded"
		if storeStatus == "unhealthy" {
			health.Status = "unhealthy"
		}
	}

	sc.Logger.Debug("Health check completed",
		zap.String("status", health.Status),
		zap.Int("issues", len(health.Issues)),
	)
	return health
}

// Shutdown stops the event bus and releases the cache and store
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("Shutting down services")

	var errs []error
	if sc.EventBus != nil {
		if err := sc.EventBus.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}
	}
	if err := sc.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if err := sc.Repositories.Close(); err != nil {
		errs = append(errs, fmt.Errorf("repositories: %w", err))
	}
	return errors.Join(errs...)
}
