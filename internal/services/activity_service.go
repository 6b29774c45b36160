package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"journeyrewards/internal/events"
	"journeyrewards/internal/models"
	"journeyrewards/internal/repositories"
)

// ActivityResult is what one user action earned
type ActivityResult struct {
	Award  *models.PointsAward    `json:"award,omitempty"`
	Badges []*models.AwardedBadge `json:"badges"`
}

// VisitResult is the outcome of a daily check-in
type VisitResult struct {
	ConsecutiveDays int                    `json:"consecutive_days"`
	CheckedIn       bool                   `json:"checked_in"`
	Awards          []*models.PointsAward  `json:"awards"`
	Badges          []*models.AwardedBadge `json:"badges"`
}

// ActivityService is the entry point for user actions: credit the
// action, then re-evaluate badges.
type ActivityService struct {
	users  repositories.UserRepository
	ledger *LedgerService
	badges *BadgeService
	bus    events.EventBus
	loc    *time.Location
	logger *zap.Logger
}

// NewActivityService creates the activity service. Visit days are
// calendar days in loc (UTC when nil).
func NewActivityService(repos *repositories.Collection, ledger *LedgerService, badges *BadgeService, bus events.EventBus, loc *time.Location, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ActivityService{
		users:  repos.User,
		ledger: ledger,
		badges: badges,
		bus:    bus,
		loc:    loc,
		logger: logger,
	}
}

// RecordActivity credits reason and then checks badges. Badge failures
// are logged; the credit and any badges that did succeed are returned.
func (s *ActivityService) RecordActivity(ctx context.Context, userID int64, reason models.PointReason, relatedPostID *int64, metadata models.Metadata) (*ActivityResult, error) {
	award, err := s.ledger.AwardPoints(ctx, userID, reason, relatedPostID, metadata)
	if err != nil {
		return nil, err
	}

	badges, err := s.checkBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ActivityResult{Award: award, Badges: badges}, nil
}

// RecordVisit registers a visit at the given time. The first visit of a
// day earns the check-in reward; a visit on the day after the previous
// one extends the streak and earns the consecutive-visit reward, and a
// longer gap resets the streak to 1.
func (s *ActivityService) RecordVisit(ctx context.Context, userID int64, at time.Time) (*VisitResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeFailure("get user", userID, err)
	}
	if user == nil {
		return nil, userNotFound(userID)
	}

	y, m, d := at.In(s.loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, s.loc)

	result := &VisitResult{
		ConsecutiveDays: user.ConsecutiveDays,
		Awards:          []*models.PointsAward{},
		Badges:          []*models.AwardedBadge{},
	}

	streak := 1
	if user.LastVisitDate != nil {
		ly, lm, ld := user.LastVisitDate.Date()
		last := time.Date(ly, lm, ld, 0, 0, 0, 0, s.loc)
		switch {
		case last.Equal(today):
			return result, nil
		case last.AddDate(0, 0, 1).Equal(today):
			streak = user.ConsecutiveDays + 1
		}
	}

	updated, err := s.users.UpdateStreak(ctx, userID, streak, today)
	if err != nil {
		return nil, storeFailure("update streak", userID, err)
	}
	if !updated {
		// a concurrent visit got there first
		return result, nil
	}
	result.ConsecutiveDays = streak
	result.CheckedIn = true

	s.logger.Info("Visit recorded",
		zap.Int64("user_id", userID),
		zap.Int("consecutive_days", streak),
	)
	if s.bus != nil {
		if err := s.bus.PublishAsync(ctx, events.NewStreakUpdatedEvent(userID, streak)); err != nil {
			s.logger.Warn("Failed to publish streak event", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	date := today.Format(time.DateOnly)
	award, err := s.ledger.AwardPoints(ctx, userID, models.ReasonDailyCheckIn, nil, models.Metadata{"date": date})
	if err != nil {
		return nil, err
	}
	if award != nil {
		result.Awards = append(result.Awards, award)
	}

	if streak > 1 {
		award, err := s.ledger.AwardPoints(ctx, userID, models.ReasonConsecutiveVisit, nil, models.Metadata{
			"date":             date,
			"consecutive_days": streak,
		})
		if err != nil {
			return nil, err
		}
		if award != nil {
			result.Awards = append(result.Awards, award)
		}
	}

	badges, err := s.checkBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	result.Badges = badges
	return result, nil
}

func (s *ActivityService) checkBadges(ctx context.Context, userID int64) ([]*models.AwardedBadge, error) {
	badges, err := s.badges.CheckAndAwardBadges(ctx, userID)
	var evalErr *BadgeEvaluationError
	if err != nil && !errors.As(err, &evalErr) {
		return nil, err
	}
	return badges, nil
}
