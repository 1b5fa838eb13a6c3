package negotiation

import (
	"sync"

	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/pkg/types"
)

const subscriberBuffer = 128

// Broker fans a run's event stream out to any number of consumers. The
// orchestrator is the single producer; the broker drains it promptly so the
// producer never stalls. A consumer that falls behind is disconnected rather
// than allowed to block the stream: drop the consumer, never drop events.
type Broker struct {
	runID  string
	logger *zap.Logger

	mu          sync.Mutex
	history     []types.Event
	subscribers map[chan types.Event]struct{}
	closed      bool
	done        chan struct{}
}

// NewBroker creates a broker and starts draining the given stream.
func NewBroker(runID string, stream <-chan types.Event, logger *zap.Logger) *Broker {
	b := &Broker{
		runID:       runID,
		logger:      logger,
		subscribers: make(map[chan types.Event]struct{}),
		done:        make(chan struct{}),
	}

	go b.pump(stream)

	return b
}

func (b *Broker) pump(stream <-chan types.Event) {
	for event := range stream {
		b.broadcast(event)
	}

	b.mu.Lock()
	b.closed = true
	for ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
	b.mu.Unlock()

	close(b.done)
}

func (b *Broker) broadcast(event types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, event)

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber fell behind; disconnect it.
			delete(b.subscribers, ch)
			close(ch)
			SubscribersDroppedTotal.Inc()
			b.logger.Warn("event-subscriber-dropped", zap.String("run-id", b.runID))
		}
	}
}

// Subscribe returns a replay of the events so far plus a live channel. The
// channel is closed when the run ends or the subscriber is dropped for
// falling behind.
func (b *Broker) Subscribe() ([]types.Event, <-chan types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	replay := make([]types.Event, len(b.history))
	copy(replay, b.history)

	ch := make(chan types.Event, subscriberBuffer)

	if b.closed {
		close(ch)
		return replay, ch
	}

	b.subscribers[ch] = struct{}{}

	return replay, ch
}

// Unsubscribe detaches a live channel returned by Subscribe.
func (b *Broker) Unsubscribe(ch <-chan types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subscribers {
		if (<-chan types.Event)(sub) == ch {
			delete(b.subscribers, sub)
			close(sub)
			return
		}
	}
}

// Done is closed once the underlying stream has ended.
func (b *Broker) Done() <-chan struct{} { return b.done }

// History returns a copy of all events observed so far.
func (b *Broker) History() []types.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]types.Event, len(b.history))
	copy(out, b.history)

	return out
}
