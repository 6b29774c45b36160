package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"journeyrewards/internal/database"
	"journeyrewards/internal/models"
)

// userRepository implements UserRepository on postgres
type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates a postgres user repository
func NewUserRepository(db *database.Manager, logger *zap.Logger) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create inserts a user with an empty balance
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, points, level, badges)
		VALUES ($1, 0, 1, '{}')
		RETURNING id, points, level, created_at, updated_at`

	err := r.QueryRowContext(ctx, query, user.Username).Scan(
		&user.ID, &user.Points, &user.Level, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
		}
		return storeError("create user", err)
	}
	user.Badges = []string{}

	r.GetLogger().Info("User created",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
	)
	return nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, points, level, badges, consecutive_days,
		       last_visit_date, created_at, updated_at
		FROM users
		WHERE id = $1`

	var (
		user      models.User
		lastVisit sql.NullTime
	)
	err := r.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Points, &user.Level,
		pq.Array(&user.Badges), &user.ConsecutiveDays,
		&lastVisit, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, storeError("get user by ID", err)
	}
	if lastVisit.Valid {
		t := lastVisit.Time
		user.LastVisitDate = &t
	}
	if user.Badges == nil {
		user.Badges = []string{}
	}
	return &user, nil
}

// IncrementBalance adds amount in a single UPDATE so concurrent credits
// cannot lose an update. Level is derived from the same new total.
func (r *userRepository) IncrementBalance(ctx context.Context, userID, amount int64) (int64, int, error) {
	query := `
		UPDATE users
		SET points = points + $2,
		    level = ((points + $2) / $3) + 1,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING points, level`

	var (
		balance int64
		level   int
	)
	err := r.QueryRowContext(ctx, query, userID, amount, models.PointsPerLevel).Scan(&balance, &level)
	if err != nil {
		return 0, 0, storeError("increment balance", err)
	}
	return balance, level, nil
}

// AppendBadgeName is idempotent: the name is only appended when absent
func (r *userRepository) AppendBadgeName(ctx context.Context, userID int64, badgeName string) error {
	query := `
		UPDATE users
		SET badges = array_append(badges, $2::text), updated_at = NOW()
		WHERE id = $1 AND NOT ($2::text = ANY(badges))`

	if _, err := r.ExecContext(ctx, query, userID, badgeName); err != nil {
		return storeError("append badge name", err)
	}
	return nil
}

// UpdateStreak is a compare-and-set on last_visit_date so two visits on the
// same day cannot both advance the streak.
func (r *userRepository) UpdateStreak(ctx context.Context, userID int64, consecutiveDays int, visitDate time.Time) (bool, error) {
	query := `
		UPDATE users
		SET consecutive_days = $2, last_visit_date = $3::date, updated_at = NOW()
		WHERE id = $1 AND last_visit_date IS DISTINCT FROM $3::date`

	result, err := r.ExecContext(ctx, query, userID, consecutiveDays, visitDate.Format("2006-01-02"))
	if err != nil {
		return false, storeError("update streak", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storeError("update streak", err)
	}
	return n > 0, nil
}

// GetLeaderboard returns the top users by points
func (r *userRepository) GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT id, username, points, level, COALESCE(array_length(badges, 1), 0)
		FROM users
		ORDER BY points DESC, id ASC
		LIMIT $1`

	rows, err := r.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, storeError("get leaderboard", err)
	}
	defer rows.Close()

	entries := make([]*models.LeaderboardEntry, 0, limit)
	for rows.Next() {
		entry := &models.LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&entry.UserID, &entry.Username, &entry.Points, &entry.Level, &entry.BadgeCount); err != nil {
			return nil, storeError("scan leaderboard row", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate leaderboard", err)
	}
	return entries, nil
}
