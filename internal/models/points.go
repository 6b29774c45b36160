package models

import "time"

// PointReason is the closed set of causes a point transaction can carry.
type PointReason string

const (
	ReasonPostCreated        PointReason = "post_created"
	ReasonPostLiked          PointReason = "post_liked"
	ReasonCommentCreated     PointReason = "comment_created"
	ReasonCommentLiked       PointReason = "comment_liked"
	ReasonBadgeEarned        PointReason = "badge_earned"
	ReasonDailyCheckIn       PointReason = "daily_check_in"
	ReasonEventParticipation PointReason = "event_participation"
	ReasonReferralSignup     PointReason = "referral_signup"
	ReasonProfileCompleted   PointReason = "profile_completed"
	ReasonFirstTripLogged    PointReason = "first_trip_logged"
	ReasonConsecutiveVisit   PointReason = "consecutive_visit"
	ReasonOther              PointReason = "other"
)

// AllPointReasons lists every reason in display order.
var AllPointReasons = []PointReason{
	ReasonPostCreated,
	ReasonPostLiked,
	ReasonCommentCreated,
	ReasonCommentLiked,
	ReasonBadgeEarned,
	ReasonDailyCheckIn,
	ReasonEventParticipation,
	ReasonReferralSignup,
	ReasonProfileCompleted,
	ReasonFirstTripLogged,
	ReasonConsecutiveVisit,
	ReasonOther,
}

var reasonLabels = map[PointReason]string{
	ReasonPostCreated:        "Post created",
	ReasonPostLiked:          "Post liked",
	ReasonCommentCreated:     "Comment created",
	ReasonCommentLiked:       "Comment liked",
	ReasonBadgeEarned:        "Badge earned",
	ReasonDailyCheckIn:       "Daily check-in",
	ReasonEventParticipation: "Event participation",
	ReasonReferralSignup:     "Referral signup",
	ReasonProfileCompleted:   "Profile completed",
	ReasonFirstTripLogged:    "First trip logged",
	ReasonConsecutiveVisit:   "Consecutive visit",
	ReasonOther:              "Other",
}

// IsValid reports whether r is one of the known reasons.
func (r PointReason) IsValid() bool {
	_, ok := reasonLabels[r]
	return ok
}

// Label is the human-readable name of the reason.
func (r PointReason) Label() string {
	if label, ok := reasonLabels[r]; ok {
		return label
	}
	return string(r)
}

// PointTransaction is one immutable ledger row.
type PointTransaction struct {
	ID            int64        `json:"id" db:"id"`
	UserID        int64        `json:"user_id" db:"user_id"`
	Amount        int64        `json:"amount" db:"amount"`
	Reason        PointReason  `json:"reason" db:"reason"`
	RelatedPostID *int64       `json:"related_post_id,omitempty" db:"related_post_id"`
	BalanceAfter  int64        `json:"balance_after" db:"balance_after"`
	Metadata      Metadata     `json:"metadata" db:"metadata"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	RelatedPost   *RelatedPost `json:"related_post,omitempty" db:"-"`
}

// PointsAward is the result of a successful credit.
type PointsAward struct {
	Points      int64             `json:"points"`
	Balance     int64             `json:"balance"`
	Level       int               `json:"level"`
	LeveledUp   bool              `json:"leveled_up"`
	Transaction *PointTransaction `json:"transaction"`
}

// PointHistory is one page of a user's ledger, newest first.
type PointHistory struct {
	History []*PointTransaction `json:"history"`
	Total   int64               `json:"total"`
	HasMore bool                `json:"has_more"`
}

// ReasonBreakdown aggregates a user's transactions for a single reason.
type ReasonBreakdown struct {
	Reason      PointReason `json:"reason"`
	Label       string      `json:"label"`
	Count       int64       `json:"count"`
	TotalPoints int64       `json:"total_points"`
}

// PointStatistics is the per-reason summary of a user's ledger.
type PointStatistics struct {
	TotalPoints int64              `json:"total_points"`
	Breakdown   []*ReasonBreakdown `json:"breakdown"`
}

// Reconciliation compares the stored balance with the ledger sum and
// each badge award with the badge_earned credits recorded for it.
type Reconciliation struct {
	UserID              int64                 `json:"user_id"`
	StoredBalance       int64                 `json:"stored_balance"`
	LedgerTotal         int64                 `json:"ledger_total"`
	Drift               int64                 `json:"drift"`
	MissingBadgeRewards []*MissingBadgeReward `json:"missing_badge_rewards"`
	Consistent          bool                  `json:"consistent"`
}

// MissingBadgeReward is an award whose reward never fully reached the ledger
type MissingBadgeReward struct {
	BadgeName string `json:"badge_name"`
	Expected  int64  `json:"expected"`
	Credited  int64  `json:"credited"`
}

// Outstanding is the amount still owed for the award
func (m *MissingBadgeReward) Outstanding() int64 {
	return m.Expected - m.Credited
}

// LeaderboardEntry is one row of the points leaderboard.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	Points     int64  `json:"points"`
	Level      int    `json:"level"`
	BadgeCount int    `json:"badge_count"`
}
