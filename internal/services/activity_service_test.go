package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journeyrewards/internal/catalog"
	"journeyrewards/internal/models"
)

func TestRecordActivityCreditsAndAwards(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.addPosts(t, 1, nil)

	result, err := f.svc.Activity.RecordActivity(ctx, f.user.ID, models.ReasonPostCreated, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Award)
	assert.Equal(t, int64(10), result.Award.Points)
	assert.Equal(t, []string{catalog.BadgeFirstTrip}, badgeNames(result.Badges))
	assert.Equal(t, int64(60), f.balance(t))
}

func TestRecordActivityUnknownReasonStillChecksBadges(t *testing.T) {
	f := newFixture(t, nil)
	f.addPosts(t, 1, nil)

	result, err := f.svc.Activity.RecordActivity(context.Background(), f.user.ID, "unknown reason", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, result.Award)
	assert.Len(t, result.Badges, 1)
}

func TestRecordActivityMissingUser(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Activity.RecordActivity(context.Background(), 4242, models.ReasonPostLiked, nil, nil)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestRecordVisitStreaks(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	at := func(day, hour int) time.Time { return time.Date(2024, 6, day, hour, 0, 0, 0, time.UTC) }

	visit, err := f.svc.Activity.RecordVisit(ctx, f.user.ID, at(1, 8))
	require.NoError(t, err)
	assert.True(t, visit.CheckedIn)
	assert.Equal(t, 1, visit.ConsecutiveDays)
	require.Len(t, visit.Awards, 1)
	assert.Equal(t, int64(5), visit.Awards[0].Points)

	// same day
	visit, err = f.svc.Activity.RecordVisit(ctx, f.user.ID, at(1, 22))
	require.NoError(t, err)
	assert.False(t, visit.CheckedIn)
	assert.Equal(t, 1, visit.ConsecutiveDays)
	assert.Empty(t, visit.Awards)

	// next day extends the streak
	visit, err = f.svc.Activity.RecordVisit(ctx, f.user.ID, at(2, 7))
	require.NoError(t, err)
	assert.True(t, visit.CheckedIn)
	assert.Equal(t, 2, visit.ConsecutiveDays)
	require.Len(t, visit.Awards, 2)
	assert.Equal(t, models.ReasonDailyCheckIn, visit.Awards[0].Transaction.Reason)
	assert.Equal(t, models.ReasonConsecutiveVisit, visit.Awards[1].Transaction.Reason)

	// a gap resets it
	visit, err = f.svc.Activity.RecordVisit(ctx, f.user.ID, at(4, 7))
	require.NoError(t, err)
	assert.Equal(t, 1, visit.ConsecutiveDays)
	assert.Len(t, visit.Awards, 1)

	assert.Equal(t, int64(5+5+10+5), f.balance(t))
}

func TestSevenDayStreakUnlocksBadge(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var last *VisitResult
	for day := 1; day <= 7; day++ {
		visit, err := f.svc.Activity.RecordVisit(ctx, f.user.ID, time.Date(2024, 7, day, 12, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		if day < 7 {
			assert.NotContains(t, badgeNames(visit.Badges), catalog.BadgeFaithfulVisitor)
		}
		last = visit
	}
	assert.Equal(t, 7, last.ConsecutiveDays)
	assert.Equal(t, []string{catalog.BadgeFaithfulVisitor}, badgeNames(last.Badges))
}

func TestRecordVisitMissingUser(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Activity.RecordVisit(context.Background(), 4242, time.Now())
	assert.True(t, errors.Is(err, ErrUserNotFound))
}
