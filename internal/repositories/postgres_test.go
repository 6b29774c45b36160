package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"journeyrewards/internal/config"
	"journeyrewards/internal/database"
	"journeyrewards/internal/models"
)

// openTestDatabase connects to DATABASE_URL and applies migrations. Tests
// using it are skipped when the variable is unset.
func openTestDatabase(t *testing.T) *Collection {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping postgres repository tests")
	}

	cfg := &config.DatabaseConfig{
		URL:             url,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		ConnectRetries:  1,
		ConnectTimeout:  5 * time.Second,
	}
	logger := zap.NewNop()
	db, err := database.NewManager(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NoError(t, db.Migrate("../../migrations"))

	c, err := NewCollection(db, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func createTestUser(t *testing.T, c *Collection) *models.User {
	t.Helper()
	user := &models.User{Username: fmt.Sprintf("pg_%d", time.Now().UnixNano())}
	require.NoError(t, c.User.Create(context.Background(), user))
	return user
}

func TestPostgresIncrementBalanceConcurrent(t *testing.T) {
	c := openTestDatabase(t)
	user := createTestUser(t, c)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.User.IncrementBalance(ctx, user.ID, 60)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := c.User.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), got.Points)
	assert.Equal(t, 2, got.Level)
}

func TestPostgresBadgeAwardConflict(t *testing.T) {
	c := openTestDatabase(t)
	user := createTestUser(t, c)
	ctx := context.Background()

	award := &models.BadgeAward{
		UserID:        user.ID,
		BadgeName:     "First Trip",
		BadgeSnapshot: models.BadgeSnapshot{Name: "First Trip", PointReward: 50},
		PointsAwarded: 50,
	}
	require.NoError(t, c.Badge.Create(ctx, award))
	assert.NotZero(t, award.ID)

	err := c.Badge.Create(ctx, &models.BadgeAward{UserID: user.ID, BadgeName: "First Trip"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	awards, err := c.Badge.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, awards, 1)
	assert.Equal(t, int64(50), awards[0].BadgeSnapshot.PointReward)
}

func TestPostgresLedgerRoundTrip(t *testing.T) {
	c := openTestDatabase(t)
	user := createTestUser(t, c)
	ctx := context.Background()

	post := &models.Post{UserID: user.ID, Location: "Gyeongju Bulguksa", Category: models.CategoryLandmark, IsPublic: true}
	require.NoError(t, c.Post.Create(ctx, post))

	tx := &models.PointTransaction{
		UserID:        user.ID,
		Amount:        10,
		Reason:        models.ReasonPostCreated,
		RelatedPostID: &post.ID,
		BalanceAfter:  10,
		Metadata:      models.Metadata{"source": "test"},
	}
	require.NoError(t, c.Point.Append(ctx, tx))

	history, err := c.Point.ListByUser(ctx, user.ID, models.DefaultPagination())
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].RelatedPost)
	assert.Equal(t, "Gyeongju Bulguksa", history[0].RelatedPost.Location)
	assert.Equal(t, "test", history[0].Metadata["source"])

	require.NoError(t, c.Point.Append(ctx, &models.PointTransaction{
		UserID:       user.ID,
		Amount:       50,
		Reason:       models.ReasonBadgeEarned,
		BalanceAfter: 60,
		Metadata:     models.Metadata{"badgeName": "First Trip", "points": 50},
	}))
	totals, err := c.Point.BadgeRewardTotals(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"First Trip": 50}, totals)

	changed, err := c.User.UpdateStreak(ctx, user.ID, 1, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = c.User.UpdateStreak(ctx, user.ID, 2, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
}
