package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"journeyrewards/internal/cache"
	"journeyrewards/internal/catalog"
	"journeyrewards/internal/models"
	"journeyrewards/internal/notifications"
	"journeyrewards/internal/repositories"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// recordingSink keeps every notification it receives
type recordingSink struct {
	mu   sync.Mutex
	sent []notifications.Notification
	err  error
}

func (s *recordingSink) Notify(_ context.Context, n notifications.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return s.err
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, n := range s.sent {
		out[i] = n.BadgeName
	}
	return out
}

type fixture struct {
	repos *repositories.Collection
	svc   *ServiceCollection
	sink  *recordingSink
	user  *models.User
}

func newFixture(t *testing.T, cat *catalog.Catalog) *fixture {
	t.Helper()
	if cat == nil {
		cat = catalog.Default()
	}
	clock := &stepClock{t: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
	repos := repositories.NewMemoryCollection(clock.Now, nil)

	c := cache.NewMemoryCache(&cache.Config{TTL: time.Minute, MaxKeys: 100}, zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })

	sink := &recordingSink{}
	svc, err := NewServiceCollection(repos, cat, ServiceOptions{Cache: c, Sink: sink}, zap.NewNop())
	require.NoError(t, err)

	user := &models.User{Username: "traveler"}
	require.NoError(t, repos.User.Create(context.Background(), user))

	return &fixture{repos: repos, svc: svc, sink: sink, user: user}
}

func (f *fixture) addPosts(t *testing.T, n int, mutate func(i int, p *models.Post)) {
	t.Helper()
	for i := 0; i < n; i++ {
		p := &models.Post{
			UserID:   f.user.ID,
			Location: fmt.Sprintf("Seoul District%d", i),
			Category: models.CategoryGeneral,
			IsPublic: true,
		}
		if mutate != nil {
			mutate(i, p)
		}
		require.NoError(t, f.repos.Post.Create(context.Background(), p))
	}
}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	u, err := f.repos.User.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	return u.Points
}
