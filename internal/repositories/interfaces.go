package repositories

import (
	"context"
	"time"

	"journeyrewards/internal/models"
)

// ===============================
// CORE REPOSITORY INTERFACES
// ===============================

// UserRepository is the user balance store. Points change only through
// IncrementBalance.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// GetByID returns nil, nil when the user does not exist.
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// IncrementBalance atomically adds amount to the stored balance and
	// returns the new balance and level. ErrNotFound when the user is missing.
	IncrementBalance(ctx context.Context, userID, amount int64) (balance int64, level int, err error)
	// AppendBadgeName adds badgeName to the user's badge list if absent.
	AppendBadgeName(ctx context.Context, userID int64, badgeName string) error
	// UpdateStreak stores the visit streak. It reports false without writing
	// when visitDate is already the stored last visit date.
	UpdateStreak(ctx context.Context, userID int64, consecutiveDays int, visitDate time.Time) (bool, error)

	GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
}

// PointRepository is the append-only point ledger
type PointRepository interface {
	// Append inserts the transaction and fills ID and CreatedAt.
	Append(ctx context.Context, tx *models.PointTransaction) error
	// ListByUser returns a page newest first, with RelatedPost joined.
	ListByUser(ctx context.Context, userID int64, params models.PaginationParams) ([]*models.PointTransaction, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	// StatsByUser groups transactions by reason, largest total first.
	StatsByUser(ctx context.Context, userID int64) ([]*models.ReasonBreakdown, error)
	SumByUser(ctx context.Context, userID int64) (int64, error)
	// BadgeRewardTotals sums badge_earned credits per metadata badgeName.
	BadgeRewardTotals(ctx context.Context, userID int64) (map[string]int64, error)
}

// BadgeRepository stores badge awards, unique per (user, badge)
type BadgeRepository interface {
	Exists(ctx context.Context, userID int64, badgeName string) (bool, error)
	// Create inserts the award and fills ID and CreatedAt. It returns
	// ErrDuplicate when the pair already exists.
	Create(ctx context.Context, award *models.BadgeAward) error
	// ListByUser returns awards newest first.
	ListByUser(ctx context.Context, userID int64) ([]*models.BadgeAward, error)
	// ListPending returns un-notified awards oldest first.
	ListPending(ctx context.Context, userID int64) ([]*models.BadgeAward, error)
	// MarkNotified flips notified to true; false if nothing changed.
	MarkNotified(ctx context.Context, userID int64, badgeName string) (bool, error)
}

// PostRepository is the read side the stats aggregator works from
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	// ListVisibleByUser returns the user's public posts oldest first.
	ListVisibleByUser(ctx context.Context, userID int64) ([]*models.PostSummary, error)
}
