package database

import (
	"database/sql"
	"sync/atomic"
	"time"
)

// Metrics counts queries, failures and slow queries
type Metrics struct {
	queryCount     int64
	queryDuration  int64 // nanoseconds
	errorCount     int64
	slowQueryCount int64

	slowQueryThreshold time.Duration
}

// MetricsSnapshot provides a point-in-time view of metrics
type MetricsSnapshot struct {
	QueryCount       int64         `json:"query_count"`
	ErrorCount       int64         `json:"error_count"`
	SlowQueryCount   int64         `json:"slow_query_count"`
	AvgQueryDuration time.Duration `json:"avg_query_duration"`
	OpenConnections  int           `json:"open_connections"`
	InUse            int           `json:"in_use"`
	Idle             int           `json:"idle"`
	WaitCount        int64         `json:"wait_count"`
	Timestamp        time.Time     `json:"timestamp"`
}

// NewMetrics creates a metrics collector. A zero threshold defaults to 100ms.
func NewMetrics(slowQueryThreshold time.Duration) *Metrics {
	if slowQueryThreshold <= 0 {
		slowQueryThreshold = 100 * time.Millisecond
	}
	return &Metrics{slowQueryThreshold: slowQueryThreshold}
}

// Record adds one query and reports whether it was slow
func (m *Metrics) Record(d time.Duration, err error) bool {
	atomic.AddInt64(&m.queryCount, 1)
	atomic.AddInt64(&m.queryDuration, int64(d))
	if err != nil {
		atomic.AddInt64(&m.errorCount, 1)
	}
	if d > m.slowQueryThreshold {
		atomic.AddInt64(&m.slowQueryCount, 1)
		return true
	}
	return false
}

// Snapshot returns the counters merged with pool statistics
func (m *Metrics) Snapshot(stats sql.DBStats) MetricsSnapshot {
	count := atomic.LoadInt64(&m.queryCount)
	var avg time.Duration
	if count > 0 {
		avg = time.Duration(atomic.LoadInt64(&m.queryDuration) / count)
	}
	return MetricsSnapshot{
		QueryCount:       count,
		ErrorCount:       atomic.LoadInt64(&m.errorCount),
		SlowQueryCount:   atomic.LoadInt64(&m.slowQueryCount),
		AvgQueryDuration: avg,
		OpenConnections:  stats.OpenConnections,
		InUse:            stats.InUse,
		Idle:             stats.Idle,
		WaitCount:        stats.WaitCount,
		Timestamp:        time.Now(),
	}
}
