package events

// Event types published by the rewards engine
const (
	EventPointsAwarded = "points.awarded"
	EventLevelUp       = "points.level_up"
	EventBadgeEarned   = "badge.earned"
	EventStreakUpdated = "streak.updated"
)

// PointsAwardedEvent is published after a ledger credit
type PointsAwardedEvent struct {
	BaseEvent
	Reason        string `json:"reason"`
	Amount        int64  `json:"amount"`
	Balance       int64  `json:"balance"`
	TransactionID int64  `json:"transaction_id"`
}

// LevelUpEvent is published when a credit crosses a level boundary
type LevelUpEvent struct {
	BaseEvent
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
}

// BadgeEarnedEvent carries the badge notification payload
type BadgeEarnedEvent struct {
	BaseEvent
	BadgeName   string `json:"badge_name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	PointReward int64  `json:"point_reward"`
}

// StreakUpdatedEvent is published when a visit advances or resets a streak
type StreakUpdatedEvent struct {
	BaseEvent
	ConsecutiveDays int `json:"consecutive_days"`
}

// NewPointsAwardedEvent creates a PointsAwardedEvent
func NewPointsAwardedEvent(userID int64, reason string, amount, balance, transactionID int64) *PointsAwardedEvent {
	return &PointsAwardedEvent{
		BaseEvent:     NewBaseEvent(EventPointsAwarded, userID),
		Reason:        reason,
		Amount:        amount,
		Balance:       balance,
		TransactionID: transactionID,
	}
}

// NewLevelUpEvent creates a LevelUpEvent
func NewLevelUpEvent(userID int64, oldLevel, newLevel int) *LevelUpEvent {
	return &LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// NewBadgeEarnedEvent creates a BadgeEarnedEvent
func NewBadgeEarnedEvent(userID int64, badgeName, description, icon string, pointReward int64) *BadgeEarnedEvent {
	return &BadgeEarnedEvent{
		BaseEvent:   NewBaseEvent(EventBadgeEarned, userID),
		BadgeName:   badgeName,
		Description: description,
		Icon:        icon,
		PointReward: pointReward,
	}
}

// NewStreakUpdatedEvent creates a StreakUpdatedEvent
func NewStreakUpdatedEvent(userID int64, consecutiveDays int) *StreakUpdatedEvent {
	return &StreakUpdatedEvent{
		BaseEvent:       NewBaseEvent(EventStreakUpdated, userID),
		ConsecutiveDays: consecutiveDays,
	}
}
