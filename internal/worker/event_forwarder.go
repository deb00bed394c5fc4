package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/club-kit/credit-service/internal/events"
)

const publishTimeout = 2 * time.Second

// EventForwarder drains queued events to a Publisher on its own goroutine so
// request handlers never block on Redis.
type EventForwarder struct {
	publisher events.Publisher
	logger    *zap.Logger
	queue     chan events.Event
	done      chan struct{}
	once      sync.Once
}

// NewEventForwarder builds a forwarder with a queue of size entries.
func NewEventForwarder(publisher events.Publisher, logger *zap.Logger, size int) *EventForwarder {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventForwarder{
		publisher: publisher,
		logger:    logger,
		queue:     make(chan events.Event, size),
		done:      make(chan struct{}),
	}
}

// Enqueue queues event without blocking. It reports false when the queue is full.
func (f *EventForwarder) Enqueue(event events.Event) bool {
	select {
	case f.queue <- event:
		return true
	default:
		f.logger.Warn("event queue full; dropping event", zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))
		return false
	}
}

// Run publishes queued events until ctx is cancelled, then flushes what is left.
func (f *EventForwarder) Run(ctx context.Context) {
	defer f.once.Do(func() { close(f.done) })
	for {
		select {
		case event := <-f.queue:
			f.publish(ctx, event)
		case <-ctx.Done():
			f.drain()
			return
		}
	}
}

// Done is closed once Run has returned.
func (f *EventForwarder) Done() <-chan struct{} {
	return f.done
}

func (f *EventForwarder) drain() {
	for {
		select {
		case event := <-f.queue:
			f.publish(context.Background(), event)
		default:
			return
		}
	}
}

func (f *EventForwarder) publish(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := f.publisher.PublishEvent(ctx, event); err != nil {
		f.logger.Warn("forward event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
