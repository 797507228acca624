package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ipnote/internal/models"
)

// loopback delivers every published payload to all subscribers in-process.
type loopback struct {
	mu          sync.Mutex
	subscribers []chan []byte
	failPublish error
	closed      bool
}

func (l *loopback) Publish(_ context.Context, payload []byte) error {
	if l.failPublish != nil {
		return l.failPublish
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.subscribers {
		ch <- payload
	}
	return nil
}

func (l *loopback) Subscribe(ctx context.Context, handle func([]byte)) error {
	ch := make(chan []byte, 16)
	l.mu.Lock()
	l.subscribers = append(l.subscribers, ch)
	l.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload := <-ch:
			handle(payload)
		}
	}
}

func (l *loopback) subscriberCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subscribers)
}

func (l *loopback) Close() error {
	l.closed = true
	return nil
}

type recordingSink struct {
	events chan models.Event
}

func (s *recordingSink) Deliver(event models.Event) {
	s.events <- event
}

func runBus(t *testing.T, transport *loopback) (*Bus, *recordingSink) {
	t.Helper()
	bus := NewBus(transport)
	sink := &recordingSink{events: make(chan models.Event, 16)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bus.Run(ctx, sink)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	deadline := time.Now().Add(2 * time.Second)
	for transport.subscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("bus did not subscribe in time")
		}
		time.Sleep(time.Millisecond)
	}
	return bus, sink
}

func next(t *testing.T, sink *recordingSink) models.Event {
	t.Helper()
	select {
	case event := <-sink.events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
	return models.Event{}
}

func TestBusRoundTrip(t *testing.T) {
	transport := &loopback{}
	bus, sink := runBus(t, transport)
	ctx := context.Background()

	subject := "안부"
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	msg := models.Message{
		ID: "m1", FromIP: "10.0.0.5", ToIP: "10.0.0.9", Subject: &subject, Body: "hello",
		Status: models.StatusSent, CreatedAt: at, UpdatedAt: at,
	}

	if err := bus.EmitIncoming(ctx, msg); err != nil {
		t.Fatalf("emit incoming: %v", err)
	}
	got := next(t, sink)
	if got.Type != models.EventMessageReceived || got.Message == nil {
		t.Fatalf("unexpected event %+v", got)
	}
	if got.Message.ID != "m1" || *got.Message.Subject != subject || !got.Message.CreatedAt.Equal(at) {
		t.Errorf("payload mismatch: %+v", got.Message)
	}

	msg.Status = models.StatusCanceled
	if err := bus.EmitUpdate(ctx, msg); err != nil {
		t.Fatalf("emit update: %v", err)
	}
	if got := next(t, sink); got.Type != models.EventMessageUpdated || got.Message.Status != models.StatusCanceled {
		t.Errorf("unexpected update event %+v", got)
	}

	deleted := models.DeletedMessage{ID: "m1", FromIP: "10.0.0.5", ToIP: "10.0.0.9"}
	if err := bus.EmitDeleted(ctx, deleted); err != nil {
		t.Fatalf("emit deleted: %v", err)
	}
	got = next(t, sink)
	if got.Type != models.EventMessageDeleted || got.Deleted == nil || *got.Deleted != deleted || got.Message != nil {
		t.Errorf("unexpected delete event %+v", got)
	}
}

func TestBusSkipsUndecodablePayloads(t *testing.T) {
	transport := &loopback{}
	bus, sink := runBus(t, transport)

	if err := transport.Publish(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	deleted := models.DeletedMessage{ID: "m2", FromIP: "10.0.0.5", ToIP: "10.0.0.9"}
	if err := bus.EmitDeleted(context.Background(), deleted); err != nil {
		t.Fatalf("emit deleted: %v", err)
	}
	if got := next(t, sink); got.Deleted == nil || got.Deleted.ID != "m2" {
		t.Errorf("expected the valid event after the bad one, got %+v", got)
	}
}

func TestBusPublishError(t *testing.T) {
	transport := &loopback{failPublish: errors.New("broker unreachable")}
	bus := NewBus(transport)

	err := bus.EmitIncoming(context.Background(), models.Message{ID: "m1"})
	if !errors.Is(err, transport.failPublish) {
		t.Errorf("expected wrapped transport error, got %v", err)
	}
	if err := bus.Close(); err != nil || !transport.closed {
		t.Errorf("expected close to reach the transport, err=%v", err)
	}
}
