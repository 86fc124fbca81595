package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSBroadcaster fans the change signal out over a NATS subject.
type NATSBroadcaster struct {
	conn    *nats.Conn
	subject string
}

func NewNATSBroadcaster(conn *nats.Conn, subject string) *NATSBroadcaster {
	return &NATSBroadcaster{conn: conn, subject: subject}
}

func (b *NATSBroadcaster) Broadcast(_ context.Context, origin string) error {
	return b.conn.Publish(b.subject, []byte(origin))
}

func (b *NATSBroadcaster) Listen(ctx context.Context, fn func(origin string)) error {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		fn(string(msg.Data))
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.subject, err)
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (b *NATSBroadcaster) Close() error {
	return b.conn.Drain()
}
