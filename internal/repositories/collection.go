package repositories

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"journeyrewards/internal/database"
)

// Collection holds all repository instances for dependency injection
type Collection struct {
	User  UserRepository
	Point PointRepository
	Badge BadgeRepository
	Post  PostRepository

	db     *database.Manager
	logger *zap.Logger
}

// NewCollection creates the postgres-backed repositories
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	collection := &Collection{
		User:   NewUserRepository(db, logger),
		Point:  NewPointRepository(db, logger),
		Badge:  NewBadgeRepository(db, logger),
		Post:   NewPostRepository(db, logger),
		db:     db,
		logger: logger,
	}

	logger.Info("Repository collection initialized", zap.String("driver", "postgres"))
	return collection, nil
}

// NewMemoryCollection creates repositories sharing one in-memory store.
// now may be nil to use the wall clock.
func NewMemoryCollection(now func() time.Time, logger *zap.Logger) *Collection {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := newMemoryStore(now)
	logger.Info("Repository collection initialized", zap.String("driver", "memory"))
	return &Collection{
		User:   &memoryUserRepository{s: s},
		Point:  &memoryPointRepository{s: s},
		Badge:  &memoryBadgeRepository{s: s},
		Post:   &memoryPostRepository{s: s},
		logger: logger,
	}
}

// HealthCheck reports store health. The memory store is always healthy.
func (c *Collection) HealthCheck(ctx context.Context) map[string]interface{} {
	health := map[string]interface{}{
		"timestamp": time.Now(),
	}
	if c.db == nil {
		health["driver"] = "memory"
		health["status"] = database.StatusHealthy
		return health
	}

	status := c.db.Health(ctx)
	health["driver"] = "postgres"
	health["status"] = status.Status
	health["database"] = status
	health["metrics"] = c.db.Metrics()
	return health
}

// Close releases the database connection, if any
func (c *Collection) Close() error {
	if c.db == nil {
		return nil
	}
	c.logger.Info("Closing repository collection")
	return c.db.Close()
}
