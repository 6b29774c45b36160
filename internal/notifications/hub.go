package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"journeyrewards/internal/events"
	"journeyrewards/internal/models"
)

// AwardStore is what the hub needs to replay and acknowledge awards
type AwardStore interface {
	PendingNotifications(ctx context.Context, userID int64) ([]Notification, error)
	MarkNotified(ctx context.Context, userID int64, badgeName string) (bool, error)
}

// HubConfig tunes websocket delivery
type HubConfig struct {
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	SendBuffer     int
	EnqueueRetries int
	// CheckOrigin defaults to same-origin checking when nil
	CheckOrigin func(r *http.Request) bool
}

// DefaultHubConfig returns default hub settings
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		SendBuffer:     16,
		EnqueueRetries: 3,
	}
}

var errSendBufferFull = errors.New("send buffer full")

type client struct {
	conn   *websocket.Conn
	userID int64
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Hub keeps the open websocket connections per user and pushes reward
// notifications to them. A badge award is marked notified once it has
// been queued to at least one of the user's connections.
type Hub struct {
	mu       sync.RWMutex
	clients  map[int64]map[*client]struct{}
	store    AwardStore
	logger   *zap.Logger
	config   HubConfig
	upgrader websocket.Upgrader
}

// NewHub creates a hub
func NewHub(store AwardStore, config HubConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultHubConfig()
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = defaults.SendBuffer
	}
	if config.EnqueueRetries < 0 {
		config.EnqueueRetries = 0
	}

	return &Hub{
		clients: make(map[int64]map[*client]struct{}),
		store:   store,
		logger:  logger,
		config:  config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
	}
}

// Register subscribes the hub to the reward events it turns into toasts
func (h *Hub) Register(bus events.EventBus) error {
	subscriptions := map[string]events.EventHandler{
		events.EventBadgeEarned:   events.NewTypedEventHandler("notifications.hub.badge", h.HandleBadgeEarned),
		events.EventPointsAwarded: events.NewTypedEventHandler("notifications.hub.points", h.HandlePointsAwarded),
		events.EventLevelUp:       events.NewTypedEventHandler("notifications.hub.level", h.HandleLevelUp),
		events.EventStreakUpdated: events.NewTypedEventHandler("notifications.hub.streak", h.HandleStreakUpdated),
	}
	for eventType, handler := range subscriptions {
		if err := bus.Subscribe(eventType, handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleBadgeEarned delivers the event to the user's open connections
func (h *Hub) HandleBadgeEarned(ctx context.Context, e *events.BadgeEarnedEvent) error {
	if e.UserID == nil {
		return nil
	}
	return h.Deliver(ctx, Notification{
		Type:        TypeBadge,
		UserID:      *e.UserID,
		BadgeName:   e.BadgeName,
		Description: e.Description,
		Icon:        e.Icon,
		PointReward: e.PointReward,
		AwardedAt:   e.Timestamp,
	})
}

// HandlePointsAwarded pushes a points toast. Badge rewards are skipped;
// the badge toast already carries them.
func (h *Hub) HandlePointsAwarded(ctx context.Context, e *events.PointsAwardedEvent) error {
	if e.UserID == nil || e.Reason == string(models.ReasonBadgeEarned) {
		return nil
	}
	return h.Deliver(ctx, Notification{
		Type:        TypePoints,
		UserID:      *e.UserID,
		PointReward: e.Amount,
		Reason:      e.Reason,
		Balance:     e.Balance,
		AwardedAt:   e.Timestamp,
	})
}

// HandleLevelUp pushes a level-up toast
func (h *Hub) HandleLevelUp(ctx context.Context, e *events.LevelUpEvent) error {
	if e.UserID == nil {
		return nil
	}
	return h.Deliver(ctx, Notification{
		Type:      TypeLevelUp,
		UserID:    *e.UserID,
		Level:     e.NewLevel,
		AwardedAt: e.Timestamp,
	})
}

// HandleStreakUpdated pushes a toast when a streak advances past one day
func (h *Hub) HandleStreakUpdated(ctx context.Context, e *events.StreakUpdatedEvent) error {
	if e.UserID == nil || e.ConsecutiveDays < 2 {
		return nil
	}
	return h.Deliver(ctx, Notification{
		Type:      TypeStreak,
		UserID:    *e.UserID,
		Streak:    e.ConsecutiveDays,
		AwardedAt: e.Timestamp,
	})
}

// Deliver pushes n to every connection of n.UserID. A user with no open
// connection is not an error; the award stays pending.
func (h *Hub) Deliver(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	delivered := 0
	for _, c := range h.clientsFor(n.UserID) {
		if err := h.enqueue(ctx, c, payload); err != nil {
			h.logger.Warn("Dropping notification for slow client",
				zap.Int64("user_id", n.UserID),
				zap.String("type", n.Type),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	if delivered == 0 || n.Type != TypeBadge {
		return nil
	}

	if _, err := h.store.MarkNotified(ctx, n.UserID, n.BadgeName); err != nil {
		h.logger.Error("Failed to mark badge notified",
			zap.Int64("user_id", n.UserID),
			zap.String("badge_name", n.BadgeName),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// enqueue retries with backoff while the client's buffer is full
func (h *Hub) enqueue(ctx context.Context, c *client, payload []byte) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond

	return backoff.Retry(func() error {
		select {
		case <-c.done:
			return backoff.Permanent(errors.New("client closed"))
		case c.send <- payload:
			return nil
		default:
			return errSendBufferFull
		}
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(h.config.EnqueueRetries)), ctx))
}

func (h *Hub) clientsFor(userID int64) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		out = append(out, c)
	}
	return out
}

// ConnectedClients returns the number of open connections for a user
func (h *Hub) ConnectedClients(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// ServeWS upgrades the request, replays pending awards and keeps the
// connection until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, h.config.SendBuffer),
		done:   make(chan struct{}),
	}
	h.add(c)
	h.logger.Info("Notification client connected", zap.Int64("user_id", userID))

	go h.writePump(c)
	h.replayPending(r.Context(), userID)
	h.readPump(c)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

func (h *Hub) replayPending(ctx context.Context, userID int64) {
	pending, err := h.store.PendingNotifications(ctx, userID)
	if err != nil {
		h.logger.Warn("Failed to load pending notifications", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	for _, n := range pending {
		if err := h.Deliver(ctx, n); err != nil {
			h.logger.Warn("Failed to replay notification",
				zap.Int64("user_id", userID),
				zap.String("badge_name", n.BadgeName),
				zap.Error(err),
			)
		}
	}
}

// readPump discards inbound frames; it exists to observe the close
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.close()
		h.logger.Info("Notification client disconnected", zap.Int64("user_id", c.userID))
	}()

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Warn("WebSocket write failed", zap.Int64("user_id", c.userID), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	all := make([]*client, 0)
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.clients = make(map[int64]map[*client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.close()
	}
}
