package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type NATSTransport struct {
	nc      *nats.Conn
	subject string
}

func NewNATSTransport(url, subject string) (*NATSTransport, error) {
	nc, err := nats.Connect(url, nats.Name("ipnote"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("Connected to NATS at %s", nc.ConnectedUrl())
	return &NATSTransport{nc: nc, subject: subject}, nil
}

func (t *NATSTransport) Publish(_ context.Context, payload []byte) error {
	return t.nc.Publish(t.subject, payload)
}

func (t *NATSTransport) Subscribe(ctx context.Context, handle func([]byte)) error {
	ch := make(chan *nats.Msg, 256)
	sub, err := t.nc.ChanSubscribe(t.subject, ch)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", t.subject, err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("Error unsubscribing from %s: %v", t.subject, err)
		}
	}()
	log.Printf("Subscribing to %s", t.subject)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			handle(msg.Data)
		}
	}
}

func (t *NATSTransport) Close() error {
	t.nc.Close()
	return nil
}
