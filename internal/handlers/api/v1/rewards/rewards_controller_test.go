package rewards

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"journeyrewards/internal/catalog"
	"journeyrewards/internal/events"
	"journeyrewards/internal/models"
	"journeyrewards/internal/notifications"
	"journeyrewards/internal/repositories"
	"journeyrewards/internal/response"
	"journeyrewards/internal/services"
)

type liveRewards struct {
	server *httptest.Server
	svc    *services.ServiceCollection
	repos  *repositories.Collection
	user   *models.User
}

// newLiveRewards wires the bus, sink and hub the way the server does
func newLiveRewards(t *testing.T) *liveRewards {
	t.Helper()
	ctx := context.Background()

	bus := events.NewEventBus(events.DefaultEventBusConfig(), zap.NewNop())
	require.NoError(t, bus.Start(ctx))
	t.Cleanup(func() { _ = bus.Stop(ctx) })

	repos := repositories.NewMemoryCollection(time.Now, nil)
	svc, err := services.NewServiceCollection(repos, catalog.Default(), services.ServiceOptions{
		EventBus: bus,
		Sink:     notifications.NewEventSink(bus, zap.NewNop()),
	}, zap.NewNop())
	require.NoError(t, err)

	hub := notifications.NewHub(svc.Badges, notifications.HubConfig{}, zap.NewNop())
	require.NoError(t, hub.Register(bus))
	t.Cleanup(hub.Close)

	controller := NewRewardsController(svc, hub, zap.NewNop(), response.NewBuilder(nil, nil))
	r := mux.NewRouter()
	r.HandleFunc("/rewards/check/{userId}", controller.Check).Methods(http.MethodPost)
	r.HandleFunc("/rewards/user/{userId}/pending", controller.GetPending).Methods(http.MethodGet)
	r.HandleFunc("/ws/notifications/{userId}", controller.Notifications)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	user := &models.User{Username: "wanderer"}
	require.NoError(t, repos.User.Create(ctx, user))

	return &liveRewards{server: server, svc: svc, repos: repos, user: user}
}

func (l *liveRewards) id() string { return strconv.FormatInt(l.user.ID, 10) }

func (l *liveRewards) pending(t *testing.T) []notifications.Notification {
	t.Helper()
	resp, err := http.Get(l.server.URL + "/rewards/user/" + l.id() + "/pending")
	require.NoError(t, err)
	defer resp.Body.Close()

	var env struct {
		Data struct {
			Pending []notifications.Notification `json:"pending"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env.Data.Pending
}

func TestBadgeNotificationReachesSocket(t *testing.T) {
	l := newLiveRewards(t)
	require.NoError(t, l.repos.Post.Create(context.Background(), &models.Post{
		UserID: l.user.ID, Location: "Gyeongju Bulguksa", Category: models.CategoryLandmark, IsPublic: true,
	}))

	wsURL := "ws" + strings.TrimPrefix(l.server.URL, "http") + "/ws/notifications/" + l.id()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	resp, err := http.Post(l.server.URL+"/rewards/check/"+l.id(), "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var n notifications.Notification
	require.NoError(t, conn.ReadJSON(&n))
	assert.Equal(t, notifications.TypeBadge, n.Type)
	assert.Equal(t, catalog.BadgeFirstTrip, n.BadgeName)
	assert.Equal(t, int64(50), n.PointReward)

	require.Eventually(t, func() bool { return len(l.pending(t)) == 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestPendingBadgeReplayedOnConnect(t *testing.T) {
	l := newLiveRewards(t)
	require.NoError(t, l.repos.Post.Create(context.Background(), &models.Post{
		UserID: l.user.ID, Location: "Seoul Jongno", Category: models.CategoryGeneral, IsPublic: true,
	}))

	// no socket yet: the award stays pending
	badges, err := l.svc.Badges.CheckAndAwardBadges(context.Background(), l.user.ID)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	require.Len(t, l.pending(t), 1)

	wsURL := "ws" + strings.TrimPrefix(l.server.URL, "http") + "/ws/notifications/" + l.id()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var n notifications.Notification
	require.NoError(t, conn.ReadJSON(&n))
	assert.Equal(t, catalog.BadgeFirstTrip, n.BadgeName)

	require.Eventually(t, func() bool { return len(l.pending(t)) == 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestNotificationsRejectsBadUserID(t *testing.T) {
	l := newLiveRewards(t)
	resp, err := http.Get(l.server.URL + "/ws/notifications/abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
