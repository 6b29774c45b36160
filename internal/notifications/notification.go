// Package notifications delivers reward toasts to users. Delivery is
// fire-and-forget: a failed notification never fails an award.
package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"

	"journeyrewards/internal/events"
)

// Notification types
const (
	TypeBadge   = "badge"
	TypePoints  = "points"
	TypeLevelUp = "level_up"
	TypeStreak  = "streak"
)

// Notification is the payload pushed to the user. Only badge
// notifications are persisted and replayed; the others are live only.
type Notification struct {
	Type        string    `json:"type"`
	UserID      int64     `json:"user_id"`
	BadgeName   string    `json:"badge_name,omitempty"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	PointReward int64     `json:"point_reward"`
	Reason      string    `json:"reason,omitempty"`
	Balance     int64     `json:"balance,omitempty"`
	Level       int       `json:"level,omitempty"`
	Streak      int       `json:"streak,omitempty"`
	AwardedAt   time.Time `json:"awarded_at"`
}

// Sink receives badge notifications
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, n Notification) error

// Notify implements Sink
func (f SinkFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// EventSink publishes notifications on the event bus, where the websocket
// hub and any other subscriber pick them up.
type EventSink struct {
	bus    events.EventBus
	logger *zap.Logger
}

// NewEventSink creates a sink backed by bus
func NewEventSink(bus events.EventBus, logger *zap.Logger) *EventSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventSink{bus: bus, logger: logger}
}

// Notify enqueues a BadgeEarnedEvent without waiting for delivery
func (s *EventSink) Notify(ctx context.Context, n Notification) error {
	event := events.NewBadgeEarnedEvent(n.UserID, n.BadgeName, n.Description, n.Icon, n.PointReward)
	if !n.AwardedAt.IsZero() {
		event.Timestamp = n.AwardedAt
	}
	if err := s.bus.PublishAsync(ctx, event); err != nil {
		s.logger.Warn("Failed to publish badge notification",
			zap.Int64("user_id", n.UserID),
			zap.String("badge_name", n.BadgeName),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// NopSink discards notifications
type NopSink struct{}

// Notify implements Sink
func (NopSink) Notify(context.Context, Notification) error { return nil }
