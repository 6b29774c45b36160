package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"journeyrewards/internal/database"
	"journeyrewards/internal/models"
)

// badgeRepository implements BadgeRepository on postgres. The
// (user_id, badge_name) unique constraint is the source of idempotency.
type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a postgres badge award repository
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const badgeAwardColumns = `id, user_id, badge_name, badge_snapshot, points_awarded, notified, created_at`

// Exists checks for an award without locking
func (r *badgeRepository) Exists(ctx context.Context, userID int64, badgeName string) (bool, error) {
	var exists bool
	err := r.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM badge_awards WHERE user_id = $1 AND badge_name = $2)`,
		userID, badgeName,
	).Scan(&exists)
	if err != nil {
		return false, storeError("check badge award", err)
	}
	return exists, nil
}

// Create inserts the award. A conflicting row yields no RETURNING row,
// which is reported as ErrDuplicate.
func (r *badgeRepository) Create(ctx context.Context, award *models.BadgeAward) error {
	query := `
		INSERT INTO badge_awards (user_id, badge_name, badge_snapshot, points_awarded, notified)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (user_id, badge_name) DO NOTHING
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query,
		award.UserID, award.BadgeName, award.BadgeSnapshot, award.PointsAwarded,
	).Scan(&award.ID, &award.CreatedAt)
	if err != nil {
		if r.IsNotFound(err) || IsUniqueViolation(err) {
			return fmt.Errorf("badge %q for user %d: %w", award.BadgeName, award.UserID, ErrDuplicate)
		}
		return storeError("create badge award", err)
	}
	award.Notified = false
	return nil
}

// ListByUser returns the user's awards newest first
func (r *badgeRepository) ListByUser(ctx context.Context, userID int64) ([]*models.BadgeAward, error) {
	return r.list(ctx, `
		SELECT `+badgeAwardColumns+`
		FROM badge_awards
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
}

// ListPending returns awards the user has not been shown yet
func (r *badgeRepository) ListPending(ctx context.Context, userID int64) ([]*models.BadgeAward, error) {
	return r.list(ctx, `
		SELECT `+badgeAwardColumns+`
		FROM badge_awards
		WHERE user_id = $1 AND NOT notified
		ORDER BY created_at ASC, id ASC`, userID)
}

func (r *badgeRepository) list(ctx context.Context, query string, userID int64) ([]*models.BadgeAward, error) {
	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storeError("list badge awards", err)
	}
	defer rows.Close()

	awards := make([]*models.BadgeAward, 0)
	for rows.Next() {
		var a models.BadgeAward
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.BadgeName, &a.BadgeSnapshot,
			&a.PointsAwarded, &a.Notified, &a.CreatedAt,
		); err != nil {
			return nil, storeError("scan badge award", err)
		}
		awards = append(awards, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate badge awards", err)
	}
	return awards, nil
}

// MarkNotified flips the notified flag once
func (r *badgeRepository) MarkNotified(ctx context.Context, userID int64, badgeName string) (bool, error) {
	result, err := r.ExecContext(ctx,
		`UPDATE badge_awards SET notified = TRUE WHERE user_id = $1 AND badge_name = $2 AND NOT notified`,
		userID, badgeName,
	)
	if err != nil {
		return false, storeError("mark badge notified", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storeError("mark badge notified", err)
	}
	return n > 0, nil
}
