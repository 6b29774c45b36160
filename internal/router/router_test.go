package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"journeyrewards/internal/catalog"
	"journeyrewards/internal/models"
	"journeyrewards/internal/notifications"
	"journeyrewards/internal/repositories"
	"journeyrewards/internal/response"
	"journeyrewards/internal/services"
)

type envelope struct {
	Success   bool                  `json:"success"`
	Data      json.RawMessage       `json:"data"`
	Error     *response.ErrorDetail `json:"error"`
	RequestID string                `json:"request_id"`
	Timestamp int64                 `json:"timestamp"`
	Version   string                `json:"version"`
}

type testServer struct {
	handler http.Handler
	repos   *repositories.Collection
	user    *models.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repos := repositories.NewMemoryCollection(time.Now, nil)
	svc, err := services.NewServiceCollection(repos, catalog.Default(), services.ServiceOptions{
		Sink: notifications.NopSink{},
	}, zap.NewNop())
	require.NoError(t, err)

	user := &models.User{Username: "traveler"}
	require.NoError(t, repos.User.Create(context.Background(), user))

	builder := response.NewBuilder(response.DefaultConfig(), zap.NewNop())
	return &testServer{
		handler: SetupRouter(svc, nil, builder, zap.NewNop()),
		repos:   repos,
		user:    user,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (s *testServer) userPath(prefix string) string {
	return prefix + "/" + strconv.FormatInt(s.user.ID, 10)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)
	assert.NotZero(t, env.Timestamp)
	assert.Equal(t, response.DefaultConfig().APIVersion, env.Version)

	health := decode[services.ServiceHealth](t, env.Data)
	assert.Equal(t, "healthy", health.Status)
}

func TestSwaggerDocs(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc struct {
		Swagger string                     `json:"swagger"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc.Swagger)
	for _, path := range []string{
		"/health",
		"/points/rules",
		"/points/award/{userId}",
		"/rewards/check/{userId}",
		"/rewards/repair/{userId}",
		"/ws/notifications/{userId}",
	} {
		assert.Contains(t, doc.Paths, path)
	}

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/swagger/doc.json")
}

func TestRulesListsEveryReason(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodGet, "/points/rules", "")
	require.Equal(t, http.StatusOK, code)

	body := decode[struct {
		Rules          []services.PointRule `json:"rules"`
		PointsPerLevel int64                `json:"points_per_level"`
	}](t, env.Data)
	assert.Len(t, body.Rules, len(models.AllPointReasons))
	assert.Equal(t, int64(models.PointsPerLevel), body.PointsPerLevel)
}

func TestFirstTripOverHTTP(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.repos.Post.Create(context.Background(), &models.Post{
		UserID:   s.user.ID,
		Location: "Busan Haeundae",
		Category: models.CategoryScenic,
		IsPublic: true,
	}))

	code, env := s.do(t, http.MethodPost, s.userPath("/rewards/check"), "")
	require.Equal(t, http.StatusOK, code)
	check := decode[struct {
		Badges  []models.AwardedBadge `json:"badges"`
		Count   int                   `json:"count"`
		Message string                `json:"message"`
	}](t, env.Data)
	require.Equal(t, 1, check.Count)
	assert.Equal(t, catalog.BadgeFirstTrip, check.Badges[0].BadgeName)
	assert.Equal(t, "1 new badge(s) earned!", check.Message)

	// a second check awards nothing
	code, env = s.do(t, http.MethodPost, s.userPath("/rewards/check"), "")
	require.Equal(t, http.StatusOK, code)
	again := decode[struct {
		Count   int    `json:"count"`
		Message string `json:"message"`
	}](t, env.Data)
	assert.Zero(t, again.Count)
	assert.Equal(t, "No new badges earned", again.Message)

	code, env = s.do(t, http.MethodGet, s.userPath("/points/stats"), "")
	require.Equal(t, http.StatusOK, code)
	stats := decode[models.PointStatistics](t, env.Data)
	assert.Equal(t, int64(50), stats.TotalPoints)

	code, env = s.do(t, http.MethodGet, s.userPath("/rewards/user"), "")
	require.Equal(t, http.StatusOK, code)
	owned := decode[struct {
		Badges []models.UserBadge `json:"badges"`
		Count  int                `json:"count"`
	}](t, env.Data)
	require.Equal(t, 1, owned.Count)
	assert.Equal(t, catalog.BadgeFirstTrip, owned.Badges[0].BadgeName)
}

func TestAwardEndpoint(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, s.userPath("/points/award"), `{"reason":"comment_created"}`)
	require.Equal(t, http.StatusOK, code)
	body := decode[struct {
		Award   *models.PointsAward `json:"award"`
		Message string              `json:"message"`
	}](t, env.Data)
	require.NotNil(t, body.Award)
	assert.Equal(t, int64(3), body.Award.Points)
	assert.Equal(t, "3 points awarded", body.Message)

	code, env = s.do(t, http.MethodPost, s.userPath("/points/award"), `{"reason":"stargazing"}`)
	require.Equal(t, http.StatusOK, code)
	noop := decode[struct {
		Award *models.PointsAward `json:"award"`
	}](t, env.Data)
	assert.Nil(t, noop.Award)

	code, env = s.do(t, http.MethodGet, s.userPath("/points/history"), "")
	require.Equal(t, http.StatusOK, code)
	history := decode[models.PointHistory](t, env.Data)
	assert.Equal(t, int64(1), history.Total)
	assert.False(t, history.HasMore)
}

func TestAwardRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"missing reason", s.userPath("/points/award"), `{}`, http.StatusBadRequest},
		{"bad related post", s.userPath("/points/award"), `{"reason":"post_liked","relatedPostId":0}`, http.StatusBadRequest},
		{"malformed body", s.userPath("/points/award"), `{"reason":`, http.StatusBadRequest},
		{"unknown user", "/points/award/9999", `{"reason":"post_liked"}`, http.StatusNotFound},
		{"zero user id", "/points/award/0", `{"reason":"post_liked"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
		})
	}
}

func TestHistoryValidatesPagination(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, s.userPath("/points/history")+"?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, s.userPath("/points/history")+"?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, s.userPath("/points/history")+"?limit=5&offset=10", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestCheckInOncePerDay(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, s.userPath("/points/checkin"), "")
	require.Equal(t, http.StatusOK, code)
	first := decode[services.VisitResult](t, env.Data)
	assert.True(t, first.CheckedIn)
	assert.Equal(t, 1, first.ConsecutiveDays)
	require.Len(t, first.Awards, 1)
	assert.Equal(t, int64(5), first.Awards[0].Points)

	code, env = s.do(t, http.MethodPost, s.userPath("/points/checkin"), "")
	require.Equal(t, http.StatusOK, code)
	second := decode[services.VisitResult](t, env.Data)
	assert.False(t, second.CheckedIn)
	assert.Empty(t, second.Awards)
}

func TestPendingAndAcknowledge(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.repos.Post.Create(context.Background(), &models.Post{
		UserID: s.user.ID, Location: "Jeju Aewol", Category: models.CategoryFood, IsPublic: true,
	}))
	code, _ := s.do(t, http.MethodPost, s.userPath("/rewards/check"), "")
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodGet, s.userPath("/rewards/user")+"/pending", "")
	require.Equal(t, http.StatusOK, code)
	pending := decode[struct {
		Pending []notifications.Notification `json:"pending"`
	}](t, env.Data)
	require.Len(t, pending.Pending, 1)
	assert.Equal(t, catalog.BadgeFirstTrip, pending.Pending[0].BadgeName)

	code, env = s.do(t, http.MethodPost, s.userPath("/rewards/user")+"/ack", `{"badgeName":"First Trip"}`)
	require.Equal(t, http.StatusOK, code)
	ack := decode[struct {
		Acknowledged bool `json:"acknowledged"`
	}](t, env.Data)
	assert.True(t, ack.Acknowledged)

	code, env = s.do(t, http.MethodGet, s.userPath("/rewards/user")+"/pending", "")
	require.Equal(t, http.StatusOK, code)
	pending = decode[struct {
		Pending []notifications.Notification `json:"pending"`
	}](t, env.Data)
	assert.Empty(t, pending.Pending)

	code, _ = s.do(t, http.MethodPost, s.userPath("/rewards/user")+"/ack", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCatalogHidesNothingButFlagsHidden(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodGet, "/rewards/badges", "")
	require.Equal(t, http.StatusOK, code)

	body := decode[struct {
		Badges []struct {
			Name   string `json:"name"`
			Hidden bool   `json:"hidden"`
		} `json:"badges"`
		Count int `json:"count"`
	}](t, env.Data)
	assert.Equal(t, catalog.Default().Len(), body.Count)

	hidden := 0
	for _, b := range body.Badges {
		if b.Hidden {
			hidden++
		}
	}
	assert.Equal(t, 4, hidden)
}

func TestRepairAndReconcileOverHTTP(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, s.userPath("/rewards/repair"), "")
	require.Equal(t, http.StatusOK, code)
	repair := decode[struct {
		Repaired []*models.MissingBadgeReward `json:"repaired"`
		Count    int                          `json:"count"`
		Message  string                       `json:"message"`
	}](t, env.Data)
	assert.Zero(t, repair.Count)
	assert.Equal(t, "Badge rewards are up to date", repair.Message)

	code, env = s.do(t, http.MethodGet, s.userPath("/points/reconcile"), "")
	require.Equal(t, http.StatusOK, code)
	rec := decode[models.Reconciliation](t, env.Data)
	assert.True(t, rec.Consistent)
	assert.Empty(t, rec.MissingBadgeRewards)

	code, _ = s.do(t, http.MethodPost, "/rewards/repair/9999", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUnknownRoutesAndDisabledSocket(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)

	code, env = s.do(t, http.MethodDelete, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "METHOD_NOT_ALLOWED", env.Error.Type)
	assert.NotEmpty(t, env.RequestID)

	// 503 from a disabled hub is masked like every other 5xx
	code, env = s.do(t, http.MethodGet, s.userPath("/ws/notifications"), "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, response.GenericErrorMessage, env.Error.Message)
}
