package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishDispatchesToTypedAndPatternHandlers(t *testing.T) {
	bus := NewEventBus(nil, zap.NewNop())

	var got []string
	require.NoError(t, bus.Subscribe(EventBadgeEarned, NewTypedEventHandler("typed",
		func(ctx context.Context, e *BadgeEarnedEvent) error {
			got = append(got, "typed:"+e.BadgeName)
			return nil
		})))
	require.NoError(t, bus.SubscribePattern("badge.*", NewEventHandlerFunc("pattern",
		func(ctx context.Context, e Event) error {
			got = append(got, "pattern:"+e.GetEventType())
			return nil
		})))

	err := bus.Publish(context.Background(), NewBadgeEarnedEvent(7, "First Trip", "desc", "🌱", 50))
	require.NoError(t, err)
	assert.Equal(t, []string{"typed:First Trip", "pattern:badge.earned"}, got)

	stats := bus.Stats()
	assert.Equal(t, int64(1), stats.EventsPublished)
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, 2, stats.HandlersCount)
}

func TestPublishReportsHandlerFailureAndPanic(t *testing.T) {
	bus := NewEventBus(nil, zap.NewNop())
	require.NoError(t, bus.Subscribe(EventPointsAwarded, NewEventHandlerFunc("err",
		func(ctx context.Context, e Event) error { return errors.New("boom") })))
	require.NoError(t, bus.Subscribe(EventPointsAwarded, NewEventHandlerFunc("panic",
		func(ctx context.Context, e Event) error { panic("bad handler") })))

	err := bus.Publish(context.Background(), NewPointsAwardedEvent(1, "post_created", 10, 10, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 out of 2")
	assert.Equal(t, int64(1), bus.Stats().EventsFailed)
}

func TestPublishAsyncDeliversAfterStart(t *testing.T) {
	bus := NewEventBus(&EventBusConfig{BufferSize: 10, WorkerCount: 2}, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, bus.Start(ctx))
	defer bus.Stop(ctx)

	var wg sync.WaitGroup
	wg.Add(3)
	require.NoError(t, bus.Subscribe(EventLevelUp, NewEventHandlerFunc("count",
		func(ctx context.Context, e Event) error {
			wg.Done()
			return nil
		})))

	reqCtx, cancel := context.WithCancel(ctx)
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.PublishAsync(reqCtx, NewLevelUpEvent(1, 1, 2)))
	}
	cancel()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async events were not delivered")
	}
}

func TestPublishAsyncQueueFull(t *testing.T) {
	bus := NewEventBus(&EventBusConfig{BufferSize: 1, WorkerCount: 1}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, bus.PublishAsync(ctx, NewStreakUpdatedEvent(1, 2)))
	assert.Error(t, bus.PublishAsync(ctx, NewStreakUpdatedEvent(1, 3)))
	assert.Equal(t, int64(1), bus.Stats().EventsDropped)
}

func TestStoppedBusIsUnhealthy(t *testing.T) {
	bus := NewEventBus(nil, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, bus.Start(ctx))
	assert.NoError(t, bus.Health())

	require.NoError(t, bus.Stop(ctx))
	assert.Error(t, bus.Health())
	assert.Error(t, bus.PublishAsync(ctx, NewLevelUpEvent(1, 1, 2)))
}

func TestMatchesPattern(t *testing.T) {
	assert.True(t, matchesPattern("badge.earned", "*"))
	assert.True(t, matchesPattern("badge.earned", "badge.*"))
	assert.False(t, matchesPattern("points.awarded", "badge.*"))
	assert.True(t, matchesPattern("points.awarded", "points.awarded"))
}

func TestGenerateEventIDIsUnique(t *testing.T) {
	assert.NotEqual(t, GenerateEventID(), GenerateEventID())
}
