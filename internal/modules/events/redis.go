package events

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster fans the change signal out over a Redis Pub/Sub channel.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
}

func NewRedisBroadcaster(client *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, channel: channel}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, origin string) error {
	return b.client.Publish(ctx, b.channel, origin).Err()
}

func (b *RedisBroadcaster) Listen(ctx context.Context, fn func(origin string)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn(msg.Payload)
		}
	}
}

func (b *RedisBroadcaster) Close() error {
	return nil
}
