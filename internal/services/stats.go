package services

import (
	"context"
	"time"

	"journeyrewards/internal/models"
	"journeyrewards/internal/repositories"
)

// StatsAggregator computes the statistics badge conditions are checked
// against.
type StatsAggregator interface {
	UserStats(ctx context.Context, user *models.User) (*models.UserStats, error)
}

type postStatsAggregator struct {
	posts repositories.PostRepository
	loc   *time.Location
}

// NewPostStatsAggregator aggregates over the user's visible posts. Daily
// post counts are bucketed by calendar day in loc (UTC when nil).
func NewPostStatsAggregator(posts repositories.PostRepository, loc *time.Location) StatsAggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &postStatsAggregator{posts: posts, loc: loc}
}

func (a *postStatsAggregator) UserStats(ctx context.Context, user *models.User) (*models.UserStats, error) {
	posts, err := a.posts.ListVisibleByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return ComputeUserStats(posts, user.ConsecutiveDays, a.loc), nil
}

// ComputeUserStats folds a post set into UserStats. Posts without a
// location count toward totals but not toward any region.
func ComputeUserStats(posts []*models.PostSummary, consecutiveDays int, loc *time.Location) *models.UserStats {
	if loc == nil {
		loc = time.UTC
	}
	stats := &models.UserStats{
		PostCount:          len(posts),
		CategoryPostCounts: make(map[models.PostCategory]int),
		ConsecutiveDays:    consecutiveDays,
	}

	regions := make(map[string]int)
	days := make(map[string]int)
	for _, p := range posts {
		stats.LikesReceived += p.Likes
		stats.CommentCount += p.CommentsCount
		stats.CategoryPostCounts[p.Category]++
		if p.Likes > stats.MaxSinglePostLikes {
			stats.MaxSinglePostLikes = p.Likes
		}
		if region := p.Region(); region != "" {
			regions[region]++
			if regions[region] > stats.MaxRegionPosts {
				stats.MaxRegionPosts = regions[region]
			}
		}
		day := p.CreatedAt.In(loc).Format(time.DateOnly)
		days[day]++
		if days[day] > stats.MaxDailyPosts {
			stats.MaxDailyPosts = days[day]
		}
	}
	stats.DistinctRegions = len(regions)

	return stats
}
