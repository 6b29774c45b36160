package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BadgeSnapshot freezes the catalog display data at award time.
type BadgeSnapshot struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	PointReward int64  `json:"point_reward"`
}

// Value implements driver.Valuer
func (s BadgeSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner
func (s *BadgeSnapshot) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = BadgeSnapshot{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("badge snapshot: cannot scan %T", value)
	}
}

// BadgeAward records that a user unlocked a badge. At most one per (user, badge).
type BadgeAward struct {
	ID            int64         `json:"id" db:"id"`
	UserID        int64         `json:"user_id" db:"user_id"`
	BadgeName     string        `json:"badge_name" db:"badge_name"`
	BadgeSnapshot BadgeSnapshot `json:"badge_snapshot" db:"badge_snapshot"`
	PointsAwarded int64         `json:"points_awarded" db:"points_awarded"`
	Notified      bool          `json:"notified" db:"notified"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// UserBadge is an award merged with the badge's current catalog display fields.
type UserBadge struct {
	ID            int64     `json:"id"`
	BadgeName     string    `json:"badge_name"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	VisualTheme   string    `json:"visual_theme"`
	Tier          string    `json:"tier,omitempty"`
	Difficulty    int       `json:"difficulty,omitempty"`
	Hidden        bool      `json:"hidden"`
	PointsAwarded int64     `json:"points_awarded"`
	Notified      bool      `json:"notified"`
	AwardedAt     time.Time `json:"awarded_at"`
}

// AwardedBadge is a badge newly unlocked by an evaluation run.
type AwardedBadge struct {
	BadgeName     string        `json:"badge_name"`
	Snapshot      BadgeSnapshot `json:"badge"`
	PointsAwarded int64         `json:"points_awarded"`
	Balance       int64         `json:"balance"`
	AwardedAt     time.Time     `json:"awarded_at"`
}

// UserStats are the aggregates badge conditions are evaluated against.
type UserStats struct {
	PostCount          int                  `json:"post_count"`
	LikesReceived      int                  `json:"likes_received"`
	CommentCount       int                  `json:"comment_count"`
	DistinctRegions    int                  `json:"distinct_regions"`
	CategoryPostCounts map[PostCategory]int `json:"category_post_counts"`
	MaxSinglePostLikes int                  `json:"max_single_post_likes"`
	MaxRegionPosts     int                  `json:"max_region_posts"`
	MaxDailyPosts      int                  `json:"max_daily_posts"`
	ConsecutiveDays    int                  `json:"consecutive_days"`
}
