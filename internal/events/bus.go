package events

import (
	"context"
	"encoding/json"
	"fmt"

	"ipnote/internal/models"
	"ipnote/internal/service"

	log "github.com/sirupsen/logrus"
)

// Transport moves encoded events between instances.
type Transport interface {
	Publish(ctx context.Context, payload []byte) error
	// Subscribe calls handle for every payload until ctx is done.
	Subscribe(ctx context.Context, handle func([]byte)) error
	Close() error
}

// Sink receives events decoded from the transport, normally the local gateway.
type Sink interface {
	Deliver(event models.Event)
}

// Bus publishes lifecycle events so every instance, including this one,
// can push them to its own sockets.
type Bus struct {
	transport Transport
}

var _ service.Notifier = (*Bus)(nil)

func NewBus(transport Transport) *Bus {
	return &Bus{transport: transport}
}

func (b *Bus) EmitIncoming(ctx context.Context, msg models.Message) error {
	return b.publish(ctx, models.Event{Type: models.EventMessageReceived, Message: &msg})
}

func (b *Bus) EmitUpdate(ctx context.Context, msg models.Message) error {
	return b.publish(ctx, models.Event{Type: models.EventMessageUpdated, Message: &msg})
}

func (b *Bus) EmitDeleted(ctx context.Context, msg models.DeletedMessage) error {
	return b.publish(ctx, models.Event{Type: models.EventMessageDeleted, Deleted: &msg})
}

func (b *Bus) publish(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	if err := b.transport.Publish(ctx, payload); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// Run forwards bus traffic to sink until ctx is done.
func (b *Bus) Run(ctx context.Context, sink Sink) error {
	return b.transport.Subscribe(ctx, func(payload []byte) {
		var event models.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("Error decoding bus event: %v", err)
			return
		}
		sink.Deliver(event)
	})
}

func (b *Bus) Close() error {
	return b.transport.Close()
}
