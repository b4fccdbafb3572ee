package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nereus-labs/nereus/internal/domain"
)

// SignalBus implements domain.SignalBus on Redis Pub/Sub. Channel names are
// not prefixed so other processes can subscribe with the plain names.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

// Publish sends a raw byte payload to a Pub/Sub channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe listens on the named channels until ctx is cancelled, at which
// point the returned channel is closed.
func (sb *SignalBus) Subscribe(ctx context.Context, channels ...string) (<-chan domain.BusMessage, error) {
	return sb.listen(ctx, sb.rdb.Subscribe(ctx, channels...), fmt.Sprint(channels))
}

// PSubscribe is Subscribe for glob patterns such as "chat:*".
func (sb *SignalBus) PSubscribe(ctx context.Context, patterns ...string) (<-chan domain.BusMessage, error) {
	return sb.listen(ctx, sb.rdb.PSubscribe(ctx, patterns...), fmt.Sprint(patterns))
}

func (sb *SignalBus) listen(ctx context.Context, pubsub *redis.PubSub, name string) (<-chan domain.BusMessage, error) {
	// Wait for the subscription confirmation so no message published after
	// return is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", name, err)
	}

	out := make(chan domain.BusMessage, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- domain.BusMessage{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

var _ domain.SignalBus = (*SignalBus)(nil)
