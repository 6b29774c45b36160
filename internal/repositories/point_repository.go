package repositories

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"journeyrewards/internal/database"
	"journeyrewards/internal/models"
)

// pointRepository implements PointRepository on postgres
type pointRepository struct {
	*BaseRepository
}

// NewPointRepository creates a postgres point ledger
func NewPointRepository(db *database.Manager, logger *zap.Logger) PointRepository {
	return &pointRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Append inserts a ledger row. created_at uses clock_timestamp so rows
// appended within one transaction still order by write time.
func (r *pointRepository) Append(ctx context.Context, tx *models.PointTransaction) error {
	query := `
		INSERT INTO point_transactions
			(user_id, amount, reason, related_post_id, balance_after, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, clock_timestamp())
		RETURNING id, created_at`

	if tx.Metadata == nil {
		tx.Metadata = models.Metadata{}
	}
	err := r.QueryRowContext(ctx, query,
		tx.UserID, tx.Amount, tx.Reason, tx.RelatedPostID, tx.BalanceAfter, tx.Metadata,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return storeError("append point transaction", err)
	}
	return nil
}

// ListByUser returns one page of the user's ledger, newest first
func (r *pointRepository) ListByUser(ctx context.Context, userID int64, params models.PaginationParams) ([]*models.PointTransaction, error) {
	query := `
		SELECT t.id, t.user_id, t.amount, t.reason, t.related_post_id,
		       t.balance_after, t.metadata, t.created_at,
		       p.location, p.image_url
		FROM point_transactions t
		LEFT JOIN posts p ON p.id = t.related_post_id
		WHERE t.user_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.QueryContext(ctx, query, userID, params.Limit, params.Offset)
	if err != nil {
		return nil, storeError("list point transactions", err)
	}
	defer rows.Close()

	history := make([]*models.PointTransaction, 0, params.Limit)
	for rows.Next() {
		var (
			tx        models.PointTransaction
			relatedID sql.NullInt64
			location  sql.NullString
			imageURL  sql.NullString
		)
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.Amount, &tx.Reason, &relatedID,
			&tx.BalanceAfter, &tx.Metadata, &tx.CreatedAt,
			&location, &imageURL,
		); err != nil {
			return nil, storeError("scan point transaction", err)
		}
		if relatedID.Valid {
			id := relatedID.Int64
			tx.RelatedPostID = &id
			if location.Valid {
				tx.RelatedPost = &models.RelatedPost{ID: id, Location: location.String, ImageURL: imageURL.String}
			}
		}
		history = append(history, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate point transactions", err)
	}
	return history, nil
}

// CountByUser counts the user's ledger rows
func (r *pointRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM point_transactions WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return 0, storeError("count point transactions", err)
	}
	return total, nil
}

// StatsByUser groups the ledger by reason
func (r *pointRepository) StatsByUser(ctx context.Context, userID int64) ([]*models.ReasonBreakdown, error) {
	query := `
		SELECT reason, COUNT(*), COALESCE(SUM(amount), 0) AS total
		FROM point_transactions
		WHERE user_id = $1
		GROUP BY reason
		ORDER BY total DESC, reason ASC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storeError("aggregate point transactions", err)
	}
	defer rows.Close()

	breakdown := make([]*models.ReasonBreakdown, 0)
	for rows.Next() {
		b := &models.ReasonBreakdown{}
		if err := rows.Scan(&b.Reason, &b.Count, &b.TotalPoints); err != nil {
			return nil, storeError("scan reason breakdown", err)
		}
		b.Label = b.Reason.Label()
		breakdown = append(breakdown, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate reason breakdown", err)
	}
	return breakdown, nil
}

// SumByUser sums the user's ledger
func (r *pointRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM point_transactions WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return 0, storeError("sum point transactions", err)
	}
	return total, nil
}

// BadgeRewardTotals sums the badge_earned credits of a user per badge
func (r *pointRepository) BadgeRewardTotals(ctx context.Context, userID int64) (map[string]int64, error) {
	query := `
		SELECT metadata->>'badgeName' AS badge_name, COALESCE(SUM(amount), 0)
		FROM point_transactions
		WHERE user_id = $1 AND reason = $2 AND metadata->>'badgeName' IS NOT NULL
		GROUP BY badge_name`

	rows, err := r.QueryContext(ctx, query, userID, models.ReasonBadgeEarned)
	if err != nil {
		return nil, storeError("sum badge rewards", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var (
			name  string
			total int64
		)
		if err := rows.Scan(&name, &total); err != nil {
			return nil, storeError("scan badge reward", err)
		}
		totals[name] = total
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate badge rewards", err)
	}
	return totals, nil
}
