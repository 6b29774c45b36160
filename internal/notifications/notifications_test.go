package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"journeyrewards/internal/events"
)

type fakeAwardStore struct {
	mu      sync.Mutex
	pending map[int64][]Notification
	marked  []string
}

func newFakeAwardStore() *fakeAwardStore {
	return &fakeAwardStore{pending: make(map[int64][]Notification)}
}

func (s *fakeAwardStore) PendingNotifications(_ context.Context, userID int64) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.pending[userID]...), nil
}

func (s *fakeAwardStore) MarkNotified(_ context.Context, userID int64, badgeName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, badgeName)
	kept := s.pending[userID][:0]
	for _, n := range s.pending[userID] {
		if n.BadgeName != badgeName {
			kept = append(kept, n)
		}
	}
	s.pending[userID] = kept
	return true, nil
}

func (s *fakeAwardStore) markedNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.marked...)
}

func startHub(t *testing.T, store AwardStore, userID int64) (*Hub, *websocket.Conn) {
	t.Helper()
	hub := NewHub(store, DefaultHubConfig(), zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, userID)
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ConnectedClients(userID) == 1 }, time.Second, 10*time.Millisecond)
	return hub, conn
}

func readNotification(t *testing.T, conn *websocket.Conn) Notification {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var n Notification
	require.NoError(t, json.Unmarshal(data, &n))
	return n
}

func TestHubReplaysPendingOnConnect(t *testing.T) {
	store := newFakeAwardStore()
	store.pending[7] = []Notification{{Type: TypeBadge, UserID: 7, BadgeName: "First Trip", PointReward: 50}}

	_, conn := startHub(t, store, 7)

	n := readNotification(t, conn)
	assert.Equal(t, "First Trip", n.BadgeName)
	assert.Equal(t, int64(50), n.PointReward)
	require.Eventually(t, func() bool { return len(store.markedNames()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"First Trip"}, store.markedNames())
}

func TestHubDeliversBadgeEventsFromBus(t *testing.T) {
	ctx := context.Background()
	store := newFakeAwardStore()
	hub, conn := startHub(t, store, 7)

	bus := events.NewEventBus(events.DefaultEventBusConfig(), zap.NewNop())
	require.NoError(t, hub.Register(bus))

	require.NoError(t, bus.Publish(ctx, events.NewBadgeEarnedEvent(7, "Foodie", "20 food posts", "🍜", 150)))

	n := readNotification(t, conn)
	assert.Equal(t, TypeBadge, n.Type)
	assert.Equal(t, "Foodie", n.BadgeName)
	assert.Equal(t, "🍜", n.Icon)
	assert.Equal(t, []string{"Foodie"}, store.markedNames())
}

func TestHubPushesLiveRewardToasts(t *testing.T) {
	ctx := context.Background()
	store := newFakeAwardStore()
	hub, conn := startHub(t, store, 7)

	bus := events.NewEventBus(events.DefaultEventBusConfig(), zap.NewNop())
	require.NoError(t, hub.Register(bus))

	// badge rewards and one-day streaks produce no toast of their own
	require.NoError(t, bus.Publish(ctx, events.NewPointsAwardedEvent(7, "badge_earned", 50, 50, 1)))
	require.NoError(t, bus.Publish(ctx, events.NewStreakUpdatedEvent(7, 1)))

	require.NoError(t, bus.Publish(ctx, events.NewPointsAwardedEvent(7, "post_created", 10, 1000, 2)))
	n := readNotification(t, conn)
	assert.Equal(t, TypePoints, n.Type)
	assert.Equal(t, "post_created", n.Reason)
	assert.Equal(t, int64(10), n.PointReward)
	assert.Equal(t, int64(1000), n.Balance)

	require.NoError(t, bus.Publish(ctx, events.NewLevelUpEvent(7, 1, 2)))
	n = readNotification(t, conn)
	assert.Equal(t, TypeLevelUp, n.Type)
	assert.Equal(t, 2, n.Level)

	require.NoError(t, bus.Publish(ctx, events.NewStreakUpdatedEvent(7, 3)))
	n = readNotification(t, conn)
	assert.Equal(t, TypeStreak, n.Type)
	assert.Equal(t, 3, n.Streak)

	assert.Empty(t, store.markedNames(), "only badge toasts are acknowledged")
}

func TestHubWithoutClientLeavesAwardPending(t *testing.T) {
	store := newFakeAwardStore()
	hub := NewHub(store, HubConfig{}, nil)

	err := hub.Deliver(context.Background(), Notification{Type: TypeBadge, UserID: 9, BadgeName: "Lucky One"})
	require.NoError(t, err)
	assert.Empty(t, store.markedNames())
	assert.Zero(t, hub.ConnectedClients(9))
}

func TestHubDropsClientOnClose(t *testing.T) {
	hub, conn := startHub(t, newFakeAwardStore(), 3)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ConnectedClients(3) == 0 }, time.Second, 10*time.Millisecond)
}

func TestEventSinkPublishesBadgeEarned(t *testing.T) {
	ctx := context.Background()
	bus := events.NewEventBus(events.DefaultEventBusConfig(), zap.NewNop())
	require.NoError(t, bus.Start(ctx))
	t.Cleanup(func() { _ = bus.Stop(ctx) })

	received := make(chan *events.BadgeEarnedEvent, 1)
	require.NoError(t, bus.Subscribe(events.EventBadgeEarned, events.NewTypedEventHandler("test",
		func(_ context.Context, e *events.BadgeEarnedEvent) error {
			received <- e
			return nil
		})))

	sink := NewEventSink(bus, zap.NewNop())
	require.NoError(t, sink.Notify(ctx, Notification{Type: TypeBadge, UserID: 5, BadgeName: "Mega Star", PointReward: 300}))

	select {
	case e := <-received:
		assert.Equal(t, "Mega Star", e.BadgeName)
		assert.Equal(t, int64(300), e.PointReward)
		require.NotNil(t, e.UserID)
		assert.Equal(t, int64(5), *e.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("badge event not delivered")
	}
}

func TestEventSinkFailsOnStoppedBus(t *testing.T) {
	ctx := context.Background()
	bus := events.NewEventBus(events.DefaultEventBusConfig(), zap.NewNop())
	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Stop(ctx))

	err := NewEventSink(bus, nil).Notify(ctx, Notification{UserID: 1, BadgeName: "x"})
	assert.Error(t, err)
}
