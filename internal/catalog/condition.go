package catalog

import (
	"fmt"

	"journeyrewards/internal/models"
)

// ConditionKind names a condition variant on the wire.
type ConditionKind string

const (
	KindPostCount         ConditionKind = "post_count"
	KindLikesReceived     ConditionKind = "likes_received"
	KindCommentCount      ConditionKind = "comment_count"
	KindDistinctRegions   ConditionKind = "distinct_regions"
	KindCategoryPostCount ConditionKind = "category_post_count"
	KindConsecutiveDays   ConditionKind = "consecutive_days"
	KindSinglePostLikes   ConditionKind = "single_post_likes"
	KindRegionMaxPosts    ConditionKind = "region_max_posts"
	KindDailyPosts        ConditionKind = "daily_posts"
)

// Condition is the closed set of unlock conditions. Only types in this
// package implement it.
type Condition interface {
	Kind() ConditionKind
	Threshold() int
	String() string
	sealed()
}

// PostCountAtLeast is satisfied by at least N visible posts.
type PostCountAtLeast struct{ N int }

// LikesReceivedAtLeast is satisfied by at least N likes summed over posts.
type LikesReceivedAtLeast struct{ N int }

// CommentCountAtLeast is satisfied by at least N comments summed over posts.
type CommentCountAtLeast struct{ N int }

// DistinctRegionCountAtLeast is satisfied by posts in at least N regions.
type DistinctRegionCountAtLeast struct{ N int }

// CategoryPostCountAtLeast is satisfied by at least N posts in Category.
type CategoryPostCountAtLeast struct {
	Category models.PostCategory
	N        int
}

// ConsecutiveDaysAtLeast is satisfied by a check-in streak of at least N days.
type ConsecutiveDaysAtLeast struct{ N int }

// SinglePostLikesAtLeast is satisfied when one post has at least N likes.
type SinglePostLikesAtLeast struct{ N int }

// RegionMaxPostsAtLeast is satisfied by at least N posts in a single region.
type RegionMaxPostsAtLeast struct{ N int }

// DailyPostsAtLeast is satisfied by at least N posts on one calendar day.
type DailyPostsAtLeast struct{ N int }

func (PostCountAtLeast) Kind() ConditionKind           { return KindPostCount }
func (LikesReceivedAtLeast) Kind() ConditionKind       { return KindLikesReceived }
func (CommentCountAtLeast) Kind() ConditionKind        { return KindCommentCount }
func (DistinctRegionCountAtLeast) Kind() ConditionKind { return KindDistinctRegions }
func (CategoryPostCountAtLeast) Kind() ConditionKind   { return KindCategoryPostCount }
func (ConsecutiveDaysAtLeast) Kind() ConditionKind     { return KindConsecutiveDays }
func (SinglePostLikesAtLeast) Kind() ConditionKind     { return KindSinglePostLikes }
func (RegionMaxPostsAtLeast) Kind() ConditionKind      { return KindRegionMaxPosts }
func (DailyPostsAtLeast) Kind() ConditionKind          { return KindDailyPosts }

func (c PostCountAtLeast) Threshold() int           { return c.N }
func (c LikesReceivedAtLeast) Threshold() int       { return c.N }
func (c CommentCountAtLeast) Threshold() int        { return c.N }
func (c DistinctRegionCountAtLeast) Threshold() int { return c.N }
func (c CategoryPostCountAtLeast) Threshold() int   { return c.N }
func (c ConsecutiveDaysAtLeast) Threshold() int     { return c.N }
func (c SinglePostLikesAtLeast) Threshold() int     { return c.N }
func (c RegionMaxPostsAtLeast) Threshold() int      { return c.N }
func (c DailyPostsAtLeast) Threshold() int          { return c.N }

func (c PostCountAtLeast) String() string     { return fmt.Sprintf("posts >= %d", c.N) }
func (c LikesReceivedAtLeast) String() string { return fmt.Sprintf("likes received >= %d", c.N) }
func (c CommentCountAtLeast) String() string  { return fmt.Sprintf("comments >= %d", c.N) }
func (c DistinctRegionCountAtLeast) String() string {
	return fmt.Sprintf("distinct regions >= %d", c.N)
}
func (c CategoryPostCountAtLeast) String() string {
	return fmt.Sprintf("%s posts >= %d", c.Category, c.N)
}
func (c ConsecutiveDaysAtLeast) String() string { return fmt.Sprintf("consecutive days >= %d", c.N) }
func (c SinglePostLikesAtLeast) String() string { return fmt.Sprintf("likes on one post >= %d", c.N) }
func (c RegionMaxPostsAtLeast) String() string  { return fmt.Sprintf("posts in one region >= %d", c.N) }
func (c DailyPostsAtLeast) String() string      { return fmt.Sprintf("posts in one day >= %d", c.N) }

func (PostCountAtLeast) sealed()           {}
func (LikesReceivedAtLeast) sealed()       {}
func (CommentCountAtLeast) sealed()        {}
func (DistinctRegionCountAtLeast) sealed() {}
func (CategoryPostCountAtLeast) sealed()   {}
func (ConsecutiveDaysAtLeast) sealed()     {}
func (SinglePostLikesAtLeast) sealed()     {}
func (RegionMaxPostsAtLeast) sealed()      {}
func (DailyPostsAtLeast) sealed()          {}

// Satisfied evaluates c against stats. Every variant is matched here; an
// unknown variant is an error rather than a silent false.
func Satisfied(c Condition, stats *models.UserStats) (bool, error) {
	if stats == nil {
		return false, fmt.Errorf("catalog: nil stats")
	}
	switch cond := c.(type) {
	case PostCountAtLeast:
		return stats.PostCount >= cond.N, nil
	case LikesReceivedAtLeast:
		return stats.LikesReceived >= cond.N, nil
	case CommentCountAtLeast:
		return stats.CommentCount >= cond.N, nil
	case DistinctRegionCountAtLeast:
		return stats.DistinctRegions >= cond.N, nil
	case CategoryPostCountAtLeast:
		// a missing category counts as zero
		return stats.CategoryPostCounts[cond.Category] >= cond.N, nil
	case ConsecutiveDaysAtLeast:
		return stats.ConsecutiveDays >= cond.N, nil
	case SinglePostLikesAtLeast:
		return stats.MaxSinglePostLikes >= cond.N, nil
	case RegionMaxPostsAtLeast:
		return stats.MaxRegionPosts >= cond.N, nil
	case DailyPostsAtLeast:
		return stats.MaxDailyPosts >= cond.N, nil
	default:
		return false, fmt.Errorf("catalog: unhandled condition %T", c)
	}
}
