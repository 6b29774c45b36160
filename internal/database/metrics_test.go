package database

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(50 * time.Millisecond)

	assert.False(t, m.Record(10*time.Millisecond, nil))
	assert.True(t, m.Record(80*time.Millisecond, nil))
	assert.False(t, m.Record(30*time.Millisecond, errors.New("boom")))

	snap := m.Snapshot(sql.DBStats{OpenConnections: 3, InUse: 1, Idle: 2})
	assert.Equal(t, int64(3), snap.QueryCount)
	assert.Equal(t, int64(1), snap.ErrorCount)
	assert.Equal(t, int64(1), snap.SlowQueryCount)
	assert.Equal(t, 40*time.Millisecond, snap.AvgQueryDuration)
	assert.Equal(t, 3, snap.OpenConnections)
}

func TestMetricsDefaultThreshold(t *testing.T) {
	m := NewMetrics(0)
	assert.False(t, m.Record(99*time.Millisecond, nil))
	assert.True(t, m.Record(101*time.Millisecond, nil))
}

func TestTruncateQuery(t *testing.T) {
	short := "SELECT 1"
	assert.Equal(t, short, truncateQuery(short))

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	out := truncateQuery(string(long))
	assert.Len(t, out, 203)
}
