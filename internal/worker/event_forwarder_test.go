package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/club-kit/credit-service/internal/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	fail   bool
}

func (p *recordingPublisher) PublishEvent(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	if p.fail {
		return errors.New("redis down")
	}
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestEventForwarderPublishesQueuedEvents(t *testing.T) {
	pub := &recordingPublisher{}
	f := NewEventForwarder(pub, zap.NewNop(), 8)
	ctx, cancel := context.WithCancel(context.Background())
	go f.Run(ctx)

	require.True(t, f.Enqueue(events.Event{ID: "e1", Type: events.EventCreditAdjusted}))
	require.True(t, f.Enqueue(events.Event{ID: "e2", Type: events.EventStatusChanged}))
	require.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	<-f.Done()
	require.Equal(t, "e1", pub.events[0].ID)
}

func TestEventForwarderDropsWhenFull(t *testing.T) {
	f := NewEventForwarder(&recordingPublisher{}, zap.NewNop(), 1)
	require.True(t, f.Enqueue(events.Event{ID: "e1"}))
	require.False(t, f.Enqueue(events.Event{ID: "e2"}))
}

func TestEventForwarderFlushesOnShutdown(t *testing.T) {
	pub := &recordingPublisher{fail: true}
	f := NewEventForwarder(pub, zap.NewNop(), 4)
	f.Enqueue(events.Event{ID: "e1"})
	f.Enqueue(events.Event{ID: "e2"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Run(ctx)

	require.Equal(t, 2, pub.count())
}
