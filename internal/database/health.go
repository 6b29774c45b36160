package database

import (
	"context"
	"time"
)

// Health check statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus represents the current health status of the database
type HealthStatus struct {
	Status          string        `json:"status"`
	Timestamp       time.Time     `json:"timestamp"`
	ResponseTime    time.Duration `json:"response_time"`
	ConnectionCount int           `json:"connection_count"`
	Error           string        `json:"error,omitempty"`
}

// Health pings the database. A ping slower than one second is degraded.
func (m *Manager) Health(ctx context.Context) *HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := m.DB().PingContext(ctx)
	status := &HealthStatus{
		Status:          StatusHealthy,
		Timestamp:       time.Now(),
		ResponseTime:    time.Since(start),
		ConnectionCount: m.DB().Stats().OpenConnections,
	}

	switch {
	case err != nil:
		status.Status = StatusUnhealthy
		status.Error = err.Error()
	case status.ResponseTime > time.Second:
		status.Status = StatusDegraded
	}
	return status
}
