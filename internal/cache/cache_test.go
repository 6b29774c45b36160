package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T, maxKeys int) (Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(&Config{TTL: time.Minute, MaxKeys: maxKeys, Now: clock.Now}, zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })
	return c, clock
}

func TestMemoryCacheExpiresWithClock(t *testing.T) {
	c, clock := newTestCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	clock.Advance(59 * time.Second)
	_, ok = c.Get(ctx, "k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.ExpiredKeys)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, clock := newTestCache(t, 2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	clock.Advance(time.Second)
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	clock.Advance(time.Second)
	_, _ = c.Get(ctx, "a")
	clock.Advance(time.Second)
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, ok := c.Get(ctx, "b")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryCacheDeletePattern(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "rewards:user:1:badges", []byte("x"), 0))
	require.NoError(t, c.Set(ctx, "rewards:user:1:stats", []byte("x"), 0))
	require.NoError(t, c.Set(ctx, "rewards:user:2:stats", []byte("x"), 0))

	require.NoError(t, c.DeletePattern(ctx, "rewards:user:1:*"))

	_, ok := c.Get(ctx, "rewards:user:1:badges")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "rewards:user:2:stats")
	assert.True(t, ok)
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'z'

	got, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
}

func TestFetchCachesResult(t *testing.T) {
	c, clock := newTestCache(t, 10)
	ctx := context.Background()
	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"First Trip"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, c, zap.NewNop(), "badges", 0, load)
		require.NoError(t, err)
		assert.Equal(t, []string{"First Trip"}, got)
	}
	assert.Equal(t, 1, calls)

	clock.Advance(2 * time.Minute)
	_, err := Fetch(ctx, c, zap.NewNop(), "badges", 0, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := Fetch(ctx, c, zap.NewNop(), "k", 0, func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNewCacheProviders(t *testing.T) {
	c, err := NewCache(&Config{Provider: "none"}, nil)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)

	_, err = NewCache(&Config{Provider: "memcached"}, nil)
	assert.Error(t, err)
}
