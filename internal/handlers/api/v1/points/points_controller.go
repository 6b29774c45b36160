package points

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"journeyrewards/internal/models"
	"journeyrewards/internal/response"
	"journeyrewards/internal/services"
	"journeyrewards/internal/validation"
)

// AwardRequest is the body of POST /points/award/{userId}
type AwardRequest struct {
	Reason        models.PointReason `json:"reason" validate:"required,max=64"`
	RelatedPostID *int64             `json:"relatedPostId,omitempty" validate:"omitempty,min=1"`
	Metadata      models.Metadata    `json:"metadata,omitempty"`
}

// HistoryQuery is the query of GET /points/history/{userId}
type HistoryQuery struct {
	Limit  int `json:"limit" validate:"min=1,max=100"`
	Offset int `json:"offset" validate:"min=0"`
}

// PointsController serves the /points routes
type PointsController struct {
	ledger          *services.LedgerService
	activity        *services.ActivityService
	logger          *zap.Logger
	responseBuilder *response.Builder
	now             func() time.Time
}

// NewPointsController creates a new points controller
func NewPointsController(serviceCollection *services.ServiceCollection, logger *zap.Logger, responseBuilder *response.Builder) *PointsController {
	return &PointsController{
		ledger:          serviceCollection.Ledger,
		activity:        serviceCollection.Activity,
		logger:          logger,
		responseBuilder: responseBuilder,
		now:             time.Now,
	}
}

// ===============================
// READ ENDPOINTS
// ===============================

// GetRules handles GET /points/rules
func (c *PointsController) GetRules(w http.ResponseWriter, r *http.Request) {
	c.responseBuilder.WriteSuccess(w, r, map[string]interface{}{
		"rules":            c.ledger.Rules(),
		"points_per_level": models.PointsPerLevel,
	})
}

// GetHistory handles GET /points/history/{userId}
func (c *PointsController) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}

	query := HistoryQuery{Limit: models.DefaultPagination().Limit}
	var err error
	if query.Limit, err = intParam(r, "limit", query.Limit); err != nil {
		c.responseBuilder.WriteValidationError(w, r, "limit must be an integer", err)
		return
	}
	if query.Offset, err = intParam(r, "offset", 0); err != nil {
		c.responseBuilder.WriteValidationError(w, r, "offset must be an integer", err)
		return
	}
	if err := validation.ValidateStruct(&query); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	history, err := c.ledger.GetUserHistory(r.Context(), userID, models.PaginationParams{
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, history)
}

// GetStats handles GET /points/stats/{userId}
func (c *PointsController) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}
	stats, err := c.ledger.GetStatistics(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, stats)
}

// Reconcile handles GET /points/reconcile/{userId}
func (c *PointsController) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}
	result, err := c.ledger.Reconcile(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, result)
}

// GetLeaderboard handles GET /points/leaderboard
func (c *PointsController) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		c.responseBuilder.WriteValidationError(w, r, "limit must be an integer", err)
		return
	}
	entries, err := c.ledger.Leaderboard(r.Context(), limit)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, map[string]interface{}{"leaderboard": entries})
}

// ===============================
// WRITE ENDPOINTS
// ===============================

// Award handles POST /points/award/{userId}
func (c *PointsController) Award(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}

	var req AwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteValidationError(w, r, "Invalid request body format", err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	result, err := c.activity.RecordActivity(r.Context(), userID, req.Reason, req.RelatedPostID, req.Metadata)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	message := fmt.Sprintf("%s carries no points", req.Reason)
	if result.Award != nil {
		message = fmt.Sprintf("%d points awarded", result.Award.Points)
	}
	c.responseBuilder.WriteSuccess(w, r, map[string]interface{}{
		"award":   result.Award,
		"badges":  result.Badges,
		"message": message,
	})
}

// CheckIn handles POST /points/checkin/{userId}
func (c *PointsController) CheckIn(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}
	visit, err := c.activity.RecordVisit(r.Context(), userID, c.now())
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, visit)
}

// ===============================
// HELPERS
// ===============================

func (c *PointsController) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil || id <= 0 {
		c.responseBuilder.WriteValidationError(w, r, "Invalid user ID", err)
		return 0, false
	}
	return id, true
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
