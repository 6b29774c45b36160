package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"journeyrewards/internal/cache"
	"journeyrewards/internal/events"
	"journeyrewards/internal/models"
	"journeyrewards/internal/repositories"
)

// ===============================
// REWARD TABLE
// ===============================

// pointValues is the compiled-in reward table. Reasons missing here
// (ReasonOther, unknown strings) are worth nothing.
var pointValues = map[models.PointReason]int64{
	models.ReasonPostCreated:        10,
	models.ReasonPostLiked:          2,
	models.ReasonCommentCreated:     3,
	models.ReasonCommentLiked:       1,
	models.ReasonBadgeEarned:        50,
	models.ReasonDailyCheckIn:       5,
	models.ReasonEventParticipation: 20,
	models.ReasonReferralSignup:     100,
	models.ReasonProfileCompleted:   30,
	models.ReasonFirstTripLogged:    50,
	models.ReasonConsecutiveVisit:   10,
}

// PointRule is one row of the public reward table
type PointRule struct {
	Reason models.PointReason `json:"reason"`
	Label  string             `json:"label"`
	Points int64              `json:"points"`
}

// PointsFor returns the table value for reason, 0 when it earns nothing
func PointsFor(reason models.PointReason) int64 {
	return pointValues[reason]
}

// Rules returns the reward table in display order
func Rules() []PointRule {
	rules := make([]PointRule, 0, len(models.AllPointReasons))
	for _, r := range models.AllPointReasons {
		rules = append(rules, PointRule{Reason: r, Label: r.Label(), Points: pointValues[r]})
	}
	return rules
}

// ===============================
// LEDGER SERVICE
// ===============================

// ledgerLockStripes bounds the per-user lock table
const ledgerLockStripes = 64

// LedgerService records point transactions and keeps balances in step
// with them. The balance is moved with an atomic increment and the
// transaction row carries the value that increment returned.
type LedgerService struct {
	users     repositories.UserRepository
	points    repositories.PointRepository
	badges    repositories.BadgeRepository
	cache     cache.Cache
	bus       events.EventBus
	logger    *zap.Logger
	validator *validator.Validate

	// serializes increment+append per user so, within this process,
	// ledger rows are appended in the same order as balance changes
	locks [ledgerLockStripes]sync.Mutex
}

// NewLedgerService creates the ledger service. c and bus may be nil.
func NewLedgerService(repos *repositories.Collection, c cache.Cache, bus events.EventBus, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.NewNoopCache()
	}
	return &LedgerService{
		users:     repos.User,
		points:    repos.Point,
		badges:    repos.Badge,
		cache:     c,
		bus:       bus,
		logger:    logger,
		validator: validator.New(),
	}
}

func (s *LedgerService) lockFor(userID int64) *sync.Mutex {
	return &s.locks[uint64(userID)%ledgerLockStripes]
}

func statsCacheKey(userID int64) string {
	return fmt.Sprintf("points:stats:%d", userID)
}

// Rules returns the reward table
func (s *LedgerService) Rules() []PointRule {
	return Rules()
}

// AwardPoints credits the table value of reason. It returns nil, nil when
// the reason is worth nothing; a missing user is ErrUserNotFound.
func (s *LedgerService) AwardPoints(ctx context.Context, userID int64, reason models.PointReason, relatedPostID *int64, metadata models.Metadata) (*models.PointsAward, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeFailure("get user", userID, err)
	}
	if user == nil {
		return nil, userNotFound(userID)
	}

	amount := PointsFor(reason)
	if amount == 0 {
		s.logger.Debug("Reason carries no points, skipping",
			zap.Int64("user_id", userID),
			zap.String("reason", string(reason)),
		)
		return nil, nil
	}

	return s.credit(ctx, userID, reason, amount, relatedPostID, metadata)
}

// CreditPoints records an explicit amount, used for badge rewards whose
// size comes from the catalog rather than the reward table.
func (s *LedgerService) CreditPoints(ctx context.Context, userID int64, reason models.PointReason, amount int64, relatedPostID *int64, metadata models.Metadata) (*models.PointsAward, error) {
	if amount <= 0 {
		return nil, nil
	}
	if !reason.IsValid() {
		return nil, NewValidationError(fmt.Sprintf("unknown point reason %q", reason), nil)
	}
	return s.credit(ctx, userID, reason, amount, relatedPostID, metadata)
}

func (s *LedgerService) credit(ctx context.Context, userID int64, reason models.PointReason, amount int64, relatedPostID *int64, metadata models.Metadata) (*models.PointsAward, error) {
	mu := s.lockFor(userID)
	mu.Lock()
	balance, level, err := s.users.IncrementBalance(ctx, userID, amount)
	if err != nil {
		mu.Unlock()
		return nil, storeFailure("increment balance", userID, err)
	}

	tx := &models.PointTransaction{
		UserID:        userID,
		Amount:        amount,
		Reason:        reason,
		RelatedPostID: relatedPostID,
		BalanceAfter:  balance,
		Metadata:      metadata.Clone(),
	}
	err = s.points.Append(ctx, tx)
	mu.Unlock()
	if err != nil {
		// the increment is committed; Reconcile will report the drift
		s.logger.Error("Balance incremented but transaction not recorded",
			zap.Int64("user_id", userID),
			zap.String("reason", string(reason)),
			zap.Int64("amount", amount),
			zap.Int64("balance", balance),
			zap.Error(err),
		)
		return nil, storeFailure("append transaction", userID, err)
	}

	oldLevel := models.LevelForPoints(balance - amount)
	award := &models.PointsAward{
		Points:      amount,
		Balance:     balance,
		Level:       level,
		LeveledUp:   level > oldLevel,
		Transaction: tx,
	}

	s.logger.Info("Points awarded",
		zap.Int64("user_id", userID),
		zap.String("reason", string(reason)),
		zap.Int64("amount", amount),
		zap.Int64("balance", balance),
		zap.Int64("transaction_id", tx.ID),
	)
	if award.LeveledUp {
		s.logger.Info("User leveled up",
			zap.Int64("user_id", userID),
			zap.Int("old_level", oldLevel),
			zap.Int("new_level", level),
		)
	}

	if err := s.cache.Delete(ctx, statsCacheKey(userID)); err != nil {
		s.logger.Warn("Failed to invalidate stats cache", zap.Int64("user_id", userID), zap.Error(err))
	}
	s.publish(ctx, events.NewPointsAwardedEvent(userID, string(reason), amount, balance, tx.ID))
	if award.LeveledUp {
		s.publish(ctx, events.NewLevelUpEvent(userID, oldLevel, level))
	}

	return award, nil
}

func (s *LedgerService) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishAsync(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err),
		)
	}
}

// GetUserHistory returns one page of the user's ledger, newest first
func (s *LedgerService) GetUserHistory(ctx context.Context, userID int64, params models.PaginationParams) (*models.PointHistory, error) {
	if err := s.validator.Struct(params); err != nil {
		return nil, NewValidationError("invalid pagination parameters", err)
	}

	history, err := s.points.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, storeFailure("list transactions", userID, err)
	}
	total, err := s.points.CountByUser(ctx, userID)
	if err != nil {
		return nil, storeFailure("count transactions", userID, err)
	}
	if history == nil {
		history = []*models.PointTransaction{}
	}

	return &models.PointHistory{
		History: history,
		Total:   total,
		HasMore: int64(params.Offset+params.Limit) < total,
	}, nil
}

// GetStatistics groups the user's ledger by reason, largest total first
func (s *LedgerService) GetStatistics(ctx context.Context, userID int64) (*models.PointStatistics, error) {
	stats, err := cache.Fetch(ctx, s.cache, s.logger, statsCacheKey(userID), 0, func() (*models.PointStatistics, error) {
		breakdown, err := s.points.StatsByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		out := &models.PointStatistics{Breakdown: make([]*models.ReasonBreakdown, 0, len(breakdown))}
		for _, b := range breakdown {
			out.TotalPoints += b.TotalPoints
			out.Breakdown = append(out.Breakdown, b)
		}
		return out, nil
	})
	if err != nil {
		return nil, storeFailure("compute statistics", userID, err)
	}
	return stats, nil
}

// Reconcile compares the stored balance with the sum of the ledger and
// every badge award with the badge_earned credits recorded for it
func (s *LedgerService) Reconcile(ctx context.Context, userID int64) (*models.Reconciliation, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeFailure("get user", userID, err)
	}
	if user == nil {
		return nil, userNotFound(userID)
	}

	total, err := s.points.SumByUser(ctx, userID)
	if err != nil {
		return nil, storeFailure("sum transactions", userID, err)
	}

	missing, err := s.MissingBadgeRewards(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &models.Reconciliation{
		UserID:              userID,
		StoredBalance:       user.Points,
		LedgerTotal:         total,
		Drift:               user.Points - total,
		MissingBadgeRewards: missing,
	}
	result.Consistent = result.Drift == 0 && len(missing) == 0
	if result.Drift != 0 {
		s.logger.Warn("Balance drift detected",
			zap.Int64("user_id", userID),
			zap.Int64("stored_balance", user.Points),
			zap.Int64("ledger_total", total),
			zap.Int64("drift", result.Drift),
		)
	}
	if len(missing) > 0 {
		s.logger.Warn("Badge rewards missing from ledger",
			zap.Int64("user_id", userID),
			zap.Int("count", len(missing)),
		)
	}
	return result, nil
}

// MissingBadgeRewards lists the user's awards, in award order, whose
// badge_earned credits add up to less than the points the award promised
func (s *LedgerService) MissingBadgeRewards(ctx context.Context, userID int64) ([]*models.MissingBadgeReward, error) {
	awards, err := s.badges.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeFailure("list badges", userID, err)
	}
	credited, err := s.points.BadgeRewardTotals(ctx, userID)
	if err != nil {
		return nil, storeFailure("sum badge rewards", userID, err)
	}

	missing := make([]*models.MissingBadgeReward, 0)
	// ListByUser is newest first
	for i := len(awards) - 1; i >= 0; i-- {
		a := awards[i]
		if a.PointsAwarded <= 0 || credited[a.BadgeName] >= a.PointsAwarded {
			continue
		}
		missing = append(missing, &models.MissingBadgeReward{
			BadgeName: a.BadgeName,
			Expected:  a.PointsAwarded,
			Credited:  credited[a.BadgeName],
		})
	}
	return missing, nil
}

// Leaderboard returns the top users by points
func (s *LedgerService) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	if err := s.validator.Var(limit, "min=1,max=100"); err != nil {
		return nil, NewValidationError("limit must be between 1 and 100", err)
	}
	entries, err := s.users.GetLeaderboard(ctx, limit)
	if err != nil {
		return nil, NewInternalError("failed to load leaderboard", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}
	return entries, nil
}
