package negotiation

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/pkg/types"
)

func heartbeat(runID string, round int) types.Event {
	return &types.HeartbeatEvent{
		EventBase: types.NewEventBase(runID, types.EventHeartbeat, time.Now()),
		Round:     round,
	}
}

func TestBrokerReplayAndLive(t *testing.T) {
	stream := make(chan types.Event)
	b := NewBroker("run_1", stream, zap.NewNop())

	stream <- heartbeat("run_1", 0)
	stream <- heartbeat("run_1", 1)

	// Let the pump drain before subscribing so both events land in history.
	waitForHistory(t, b, 2)

	replay, live := b.Subscribe()
	if len(replay) != 2 {
		t.Fatalf("replay = %d events, want 2", len(replay))
	}

	stream <- heartbeat("run_1", 2)

	select {
	case event := <-live:
		if hb, ok := event.(*types.HeartbeatEvent); !ok || hb.Round != 2 {
			t.Errorf("live event = %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("live event not delivered")
	}

	close(stream)

	select {
	case _, open := <-live:
		if open {
			t.Error("expected channel close after stream end")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber channel not closed")
	}
}

func TestBrokerSubscribeAfterClose(t *testing.T) {
	stream := make(chan types.Event, 1)
	b := NewBroker("run_1", stream, zap.NewNop())

	stream <- heartbeat("run_1", 0)
	close(stream)

	<-b.Done()

	replay, live := b.Subscribe()
	if len(replay) != 1 {
		t.Errorf("replay = %d events, want 1", len(replay))
	}

	if _, open := <-live; open {
		t.Error("post-close subscription must return a closed channel")
	}
}

func TestBrokerDropsSlowSubscriber(t *testing.T) {
	stream := make(chan types.Event)
	b := NewBroker("run_1", stream, zap.NewNop())

	_, slow := b.Subscribe()

	// Never read from slow; overflow its buffer.
	for i := 0; i < subscriberBuffer+1; i++ {
		stream <- heartbeat("run_1", i)
	}

	select {
	case _, open := <-slow:
		if !open {
			t.Fatal("first receive should still succeed from the buffer")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("buffered event not available")
	}

	// The subscriber was disconnected, but the stream itself lost nothing.
	close(stream)
	<-b.Done()

	if got := len(b.History()); got != subscriberBuffer+1 {
		t.Errorf("history = %d events, want %d", got, subscriberBuffer+1)
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	stream := make(chan types.Event)
	b := NewBroker("run_1", stream, zap.NewNop())

	_, live := b.Subscribe()
	b.Unsubscribe(live)

	if _, open := <-live; open {
		t.Error("unsubscribed channel must be closed")
	}

	// Broadcasting after unsubscribe must not panic or block.
	stream <- heartbeat("run_1", 0)
	close(stream)
	<-b.Done()
}

func waitForHistory(t *testing.T, b *Broker, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(b.History()) >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}

	t.Fatalf("history never reached %d events", n)
}
