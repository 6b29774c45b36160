package repositories

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"journeyrewards/internal/database"
)

// BaseRepository provides the query helpers shared by postgres repositories
type BaseRepository struct {
	db            *database.Manager
	logger        *zap.Logger
	slowThreshold time.Duration
}

// NewBaseRepository creates a base repository
func NewBaseRepository(db *database.Manager, logger *zap.Logger) *BaseRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseRepository{
		db:            db,
		logger:        logger,
		slowThreshold: 100 * time.Millisecond,
	}
}

// ===============================
// CORE DATABASE OPERATIONS
// ===============================

// ExecContext executes a statement, logging slow calls with their args
func (r *BaseRepository) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, args...)
	r.logSlow(query, time.Since(start), args)
	return result, err
}

// QueryContext executes a query that returns rows
func (r *BaseRepository) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	r.logSlow(query, time.Since(start), args)
	return rows, err
}

// QueryRowContext executes a query that returns a single row
func (r *BaseRepository) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := r.db.QueryRowContext(ctx, query, args...)
	r.logSlow(query, time.Since(start), args)
	return row
}

func (r *BaseRepository) logSlow(query string, d time.Duration, args []interface{}) {
	if d > r.slowThreshold {
		r.logger.Warn("Slow repository query",
			zap.String("query", r.truncateQuery(query)),
			zap.Duration("duration", d),
			zap.Any("args", args),
		)
	}
}

// ===============================
// UTILITY METHODS
// ===============================

// truncateQuery truncates long queries for logging
func (r *BaseRepository) truncateQuery(query string) string {
	const maxLength = 200
	if len(query) <= maxLength {
		return query
	}
	return query[:maxLength] + "..."
}

// IsNotFound checks if error is a "not found" error
func (r *BaseRepository) IsNotFound(err error) bool {
	return err == sql.ErrNoRows
}

// GetLogger returns the logger instance
func (r *BaseRepository) GetLogger() *zap.Logger {
	return r.logger
}
