package rewards

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"journeyrewards/internal/contextutils"
	"journeyrewards/internal/models"
	"journeyrewards/internal/notifications"
	"journeyrewards/internal/response"
	"journeyrewards/internal/services"
	"journeyrewards/internal/validation"
)

// AckRequest is the body of POST /rewards/user/{userId}/ack
type AckRequest struct {
	BadgeName string `json:"badgeName" validate:"required,max=100"`
}

// CheckResult is returned by POST /rewards/check/{userId}
type CheckResult struct {
	Badges  []*models.AwardedBadge `json:"badges"`
	Count   int                    `json:"count"`
	Failed  int                    `json:"failed,omitempty"`
	Message string                 `json:"message"`
}

// RepairResult is the body of POST /rewards/repair/{userId}
type RepairResult struct {
	Repaired []*models.MissingBadgeReward `json:"repaired"`
	Count    int                          `json:"count"`
	Failed   int                          `json:"failed,omitempty"`
	Message  string                       `json:"message"`
}

// RewardsController serves the /rewards routes and the notification socket
type RewardsController struct {
	badges          *services.BadgeService
	hub             *notifications.Hub
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// NewRewardsController creates a new rewards controller. hub may be nil,
// in which case the websocket route answers 503.
func NewRewardsController(serviceCollection *services.ServiceCollection, hub *notifications.Hub, logger *zap.Logger, responseBuilder *response.Builder) *RewardsController {
	return &RewardsController{
		badges:          serviceCollection.Badges,
		hub:             hub,
		logger:          logger,
		responseBuilder: responseBuilder,
	}
}

// GetCatalog handles GET /rewards/badges
func (c *RewardsController) GetCatalog(w http.ResponseWriter, r *http.Request) {
	badges := c.badges.Catalog().All()
	c.responseBuilder.WriteSuccess(w, r, map[string]interface{}{
		"badges": badges,
		"count":  len(badges),
	})
}

// GetUserBadges handles GET /rewards/user/{userId}
func (c *RewardsController) GetUserBadges(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}
	badges, err := c.badges.GetUserBadges(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, map[string]interface{}{
		"badges": badges,
		"count":  len(badges),
	})
}

// GetPending handles GET /rewards/user/{userId}/pending
func (c *RewardsController) GetPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}
	pending, err := c.badges.PendingNotifications(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, map[string]interface{}{"pending": pending})
}

// Acknowledge handles POST /rewards/user/{userId}/ack
func (c *RewardsController) Acknowledge(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}

	var req AckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteValidationError(w, r, "Invalid request body format", err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	changed, err := c.badges.MarkNotified(r.Context(), userID, req.BadgeName)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, map[string]interface{}{
		"badgeName":    req.BadgeName,
		"acknowledged": changed,
	})
}

// Check handles POST /rewards/check/{userId}. Per-badge failures still
// produce a 200 describing the badges that were awarded.
func (c *RewardsController) Check(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}

	badges, err := c.badges.CheckAndAwardBadges(r.Context(), userID)
	result := CheckResult{Badges: badges, Count: len(badges)}

	var evalErr *services.BadgeEvaluationError
	switch {
	case errors.As(err, &evalErr):
		result.Failed = len(evalErr.Failures)
	case err != nil:
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if result.Count == 0 {
		result.Message = "No new badges earned"
	} else {
		result.Message = fmt.Sprintf("%d new badge(s) earned!", result.Count)
	}
	c.responseBuilder.WriteSuccess(w, r, result)
}

// Repair handles POST /rewards/repair/{userId}
func (c *RewardsController) Repair(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}

	repaired, err := c.badges.RepairBadgeRewards(r.Context(), userID)
	result := RepairResult{Repaired: repaired, Count: len(repaired)}

	var evalErr *services.BadgeEvaluationError
	switch {
	case errors.As(err, &evalErr):
		result.Failed = len(evalErr.Failures)
	case err != nil:
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if result.Count == 0 && result.Failed == 0 {
		result.Message = "Badge rewards are up to date"
	} else {
		result.Message = fmt.Sprintf("%d badge reward(s) credited", result.Count)
	}
	c.responseBuilder.WriteSuccess(w, r, result)
}

// Notifications handles GET /ws/notifications/{userId}
func (c *RewardsController) Notifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}
	if c.hub == nil {
		c.responseBuilder.WriteError(w, r, services.NewServiceUnavailableError("notifications are disabled", nil))
		return
	}
	contextutils.Logger(r.Context(), c.logger).Debug("Opening notification socket", zap.Int64("user_id", userID))
	c.hub.ServeWS(w, r, userID)
}

func (c *RewardsController) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil || id <= 0 {
		c.responseBuilder.WriteValidationError(w, r, "Invalid user ID", err)
		return 0, false
	}
	return id, true
}
