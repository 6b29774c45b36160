package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"journeyrewards/internal/cache"
	"journeyrewards/internal/catalog"
	"journeyrewards/internal/models"
	"journeyrewards/internal/notifications"
	"journeyrewards/internal/repositories"
)

// BadgeService evaluates the catalog against a user's statistics and
// awards each badge at most once.
type BadgeService struct {
	users   repositories.UserRepository
	badges  repositories.BadgeRepository
	catalog *catalog.Catalog
	stats   StatsAggregator
	ledger  *LedgerService
	sink    notifications.Sink
	cache   cache.Cache
	logger  *zap.Logger

	// held from award row to credit, and while repairing, so a repair
	// never sees an award whose credit is still in flight
	locks [ledgerLockStripes]sync.Mutex
}

// NewBadgeService creates the evaluator. sink and c may be nil.
func NewBadgeService(
	repos *repositories.Collection,
	cat *catalog.Catalog,
	stats StatsAggregator,
	ledger *LedgerService,
	sink notifications.Sink,
	c cache.Cache,
	logger *zap.Logger,
) *BadgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = notifications.NopSink{}
	}
	if c == nil {
		c = cache.NewNoopCache()
	}
	return &BadgeService{
		users:   repos.User,
		badges:  repos.Badge,
		catalog: cat,
		stats:   stats,
		ledger:  ledger,
		sink:    sink,
		cache:   c,
		logger:  logger,
	}
}

func badgesCacheKey(userID int64) string {
	return fmt.Sprintf("badges:user:%d", userID)
}

func (s *BadgeService) lockFor(userID int64) *sync.Mutex {
	return &s.locks[uint64(userID)%ledgerLockStripes]
}

// Catalog returns the catalog the service evaluates
func (s *BadgeService) Catalog() *catalog.Catalog {
	return s.catalog
}

// ===============================
// EVALUATION
// ===============================

// CheckAndAwardBadges awards every catalog badge the user now qualifies
// for and returns them in catalog order. A missing user yields an empty
// list. When some badges fail, the ones that succeeded are returned
// together with a *BadgeEvaluationError. Rewards of earlier awards that
// never reached the ledger are credited first.
func (s *BadgeService) CheckAndAwardBadges(ctx context.Context, userID int64) ([]*models.AwardedBadge, error) {
	awarded := make([]*models.AwardedBadge, 0)

	// before loading the user so stats see the repaired balance
	_, failures, err := s.repair(ctx, userID)
	if err != nil {
		s.logger.Warn("Skipping badge reward repair", zap.Int64("user_id", userID), zap.Error(err))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return awarded, storeFailure("get user", userID, err)
	}
	if user == nil {
		s.logger.Debug("Badge check for unknown user", zap.Int64("user_id", userID))
		return awarded, nil
	}

	stats, err := s.stats.UserStats(ctx, user)
	if err != nil {
		return awarded, storeFailure("compute user stats", userID, err)
	}

	for _, def := range s.catalog.All() {
		// fast path only; the unique constraint decides at write time
		exists, err := s.badges.Exists(ctx, userID, def.Name)
		if err != nil {
			failures = append(failures, BadgeFailure{BadgeName: def.Name, Err: storeFailure("check badge", userID, err)})
			continue
		}
		if exists {
			continue
		}

		ok, err := catalog.Satisfied(def.Condition, stats)
		if err != nil {
			failures = append(failures, BadgeFailure{BadgeName: def.Name, Err: err})
			continue
		}
		if !ok {
			continue
		}

		badge, err := s.award(ctx, user, def)
		if errors.Is(err, ErrDuplicateAward) {
			s.logger.Debug("Badge already awarded concurrently",
				zap.Int64("user_id", userID),
				zap.String("badge_name", def.Name),
			)
			continue
		}
		if err != nil {
			failures = append(failures, BadgeFailure{BadgeName: def.Name, Err: err})
			continue
		}
		awarded = append(awarded, badge)
	}

	if len(awarded) > 0 {
		s.invalidate(ctx, userID)
	}

	if len(failures) > 0 {
		evalErr := &BadgeEvaluationError{UserID: userID, Failures: failures}
		s.logger.Warn("Badge evaluation finished with failures",
			zap.Int64("user_id", userID),
			zap.Int("awarded", len(awarded)),
			zap.Error(evalErr),
		)
		return awarded, evalErr
	}
	return awarded, nil
}

// award writes the award row, then the user's badge list, the point
// credit and the notification. Only the award row is load-bearing for
// idempotency; a credit that fails after it is left for repair.
func (s *BadgeService) award(ctx context.Context, user *models.User, def catalog.BadgeDefinition) (*models.AwardedBadge, error) {
	mu := s.lockFor(user.ID)
	mu.Lock()
	defer mu.Unlock()

	record := &models.BadgeAward{
		UserID:        user.ID,
		BadgeName:     def.Name,
		BadgeSnapshot: def.Snapshot(),
		PointsAwarded: def.PointReward,
	}
	if err := s.badges.Create(ctx, record); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateAward
		}
		return nil, storeFailure("create badge award", user.ID, err)
	}

	if err := s.users.AppendBadgeName(ctx, user.ID, def.Name); err != nil {
		s.logger.Error("Badge awarded but not added to user badge list",
			zap.Int64("user_id", user.ID),
			zap.String("badge_name", def.Name),
			zap.Error(err),
		)
	}

	balance := user.Points
	credit, err := s.ledger.CreditPoints(ctx, user.ID, models.ReasonBadgeEarned, def.PointReward, nil, models.Metadata{
		"badgeName": def.Name,
		"points":    def.PointReward,
	})
	if err != nil {
		s.logger.Error("Badge awarded but reward not credited",
			zap.Int64("user_id", user.ID),
			zap.String("badge_name", def.Name),
			zap.Int64("points", def.PointReward),
			zap.Error(err),
		)
		return nil, err
	}
	if credit != nil {
		balance = credit.Balance
	}

	s.logger.Info("Badge awarded",
		zap.Int64("user_id", user.ID),
		zap.String("badge_name", def.Name),
		zap.Int64("points", def.PointReward),
	)

	// best effort
	if err := s.sink.Notify(ctx, notifications.Notification{
		Type:        notifications.TypeBadge,
		UserID:      user.ID,
		BadgeName:   def.Name,
		Description: def.Description,
		Icon:        def.Icon,
		PointReward: def.PointReward,
		AwardedAt:   record.CreatedAt,
	}); err != nil {
		s.logger.Warn("Badge notification failed",
			zap.Int64("user_id", user.ID),
			zap.String("badge_name", def.Name),
			zap.Error(err),
		)
	}

	return &models.AwardedBadge{
		BadgeName:     def.Name,
		Snapshot:      record.BadgeSnapshot,
		PointsAwarded: def.PointReward,
		Balance:       balance,
		AwardedAt:     record.CreatedAt,
	}, nil
}

// RepairBadgeRewards credits the outstanding reward of every award whose
// badge_earned credits fall short, and returns what it credited. Each
// repair is its own ledger row tagged with the badge name, so running it
// again credits nothing.
func (s *BadgeService) RepairBadgeRewards(ctx context.Context, userID int64) ([]*models.MissingBadgeReward, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeFailure("get user", userID, err)
	}
	if user == nil {
		return nil, userNotFound(userID)
	}

	repaired, failures, err := s.repair(ctx, userID)
	if err != nil {
		return repaired, err
	}
	if len(repaired) > 0 {
		s.invalidate(ctx, userID)
	}
	if len(failures) > 0 {
		return repaired, &BadgeEvaluationError{UserID: userID, Failures: failures}
	}
	return repaired, nil
}

func (s *BadgeService) repair(ctx context.Context, userID int64) ([]*models.MissingBadgeReward, []BadgeFailure, error) {
	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	repaired := make([]*models.MissingBadgeReward, 0)
	missing, err := s.ledger.MissingBadgeRewards(ctx, userID)
	if err != nil {
		return repaired, nil, err
	}

	var failures []BadgeFailure
	for _, m := range missing {
		amount := m.Outstanding()
		if _, err := s.ledger.CreditPoints(ctx, userID, models.ReasonBadgeEarned, amount, nil, models.Metadata{
			"badgeName": m.BadgeName,
			"points":    amount,
			"repair":    true,
		}); err != nil {
			s.logger.Error("Badge reward repair failed",
				zap.Int64("user_id", userID),
				zap.String("badge_name", m.BadgeName),
				zap.Int64("points", amount),
				zap.Error(err),
			)
			failures = append(failures, BadgeFailure{BadgeName: m.BadgeName, Err: err})
			continue
		}
		s.logger.Info("Badge reward repaired",
			zap.Int64("user_id", userID),
			zap.String("badge_name", m.BadgeName),
			zap.Int64("points", amount),
		)
		repaired = append(repaired, m)
	}
	return repaired, failures, nil
}

// ===============================
// QUERIES
// ===============================

// GetUserBadges lists the user's awards newest first. Display fields come
// from the current catalog; points awarded are the historical value.
func (s *BadgeService) GetUserBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	badges, err := cache.Fetch(ctx, s.cache, s.logger, badgesCacheKey(userID), 0, func() ([]*models.UserBadge, error) {
		awards, err := s.badges.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		out := make([]*models.UserBadge, 0, len(awards))
		for _, a := range awards {
			out = append(out, s.merge(a))
		}
		return out, nil
	})
	if err != nil {
		return nil, storeFailure("list badges", userID, err)
	}
	return badges, nil
}

// merge falls back to the award snapshot for badges no longer in the catalog
func (s *BadgeService) merge(a *models.BadgeAward) *models.UserBadge {
	ub := &models.UserBadge{
		ID:            a.ID,
		BadgeName:     a.BadgeName,
		Description:   a.BadgeSnapshot.Description,
		Icon:          a.BadgeSnapshot.Icon,
		PointsAwarded: a.PointsAwarded,
		Notified:      a.Notified,
		AwardedAt:     a.CreatedAt,
	}
	if def, ok := s.catalog.Lookup(a.BadgeName); ok {
		ub.Description = def.Description
		ub.Icon = def.Icon
		ub.VisualTheme = def.VisualTheme
		ub.Tier = string(def.Tier)
		ub.Difficulty = def.Difficulty
		ub.Hidden = def.Hidden
	}
	return ub
}

// PendingNotifications returns awards the user has not been shown yet,
// oldest first
func (s *BadgeService) PendingNotifications(ctx context.Context, userID int64) ([]notifications.Notification, error) {
	awards, err := s.badges.ListPending(ctx, userID)
	if err != nil {
		return nil, storeFailure("list pending badges", userID, err)
	}
	out := make([]notifications.Notification, 0, len(awards))
	for _, a := range awards {
		out = append(out, notifications.Notification{
			Type:        notifications.TypeBadge,
			UserID:      a.UserID,
			BadgeName:   a.BadgeName,
			Description: a.BadgeSnapshot.Description,
			Icon:        a.BadgeSnapshot.Icon,
			PointReward: a.PointsAwarded,
			AwardedAt:   a.CreatedAt,
		})
	}
	return out, nil
}

// MarkNotified flips the award's notified flag. It reports false when
// there was no pending award with that name.
func (s *BadgeService) MarkNotified(ctx context.Context, userID int64, badgeName string) (bool, error) {
	changed, err := s.badges.MarkNotified(ctx, userID, badgeName)
	if err != nil {
		return false, storeFailure("mark badge notified", userID, err)
	}
	if changed {
		s.invalidate(ctx, userID)
	}
	return changed, nil
}

func (s *BadgeService) invalidate(ctx context.Context, userID int64) {
	if err := s.cache.Delete(ctx, badgesCacheKey(userID)); err != nil {
		s.logger.Warn("Failed to invalidate badge cache", zap.Int64("user_id", userID), zap.Error(err))
	}
}
