package domain

import (
	"context"
	"time"
)

// MarketCache keeps the last good market list outside the process.
type MarketCache interface {
	SetList(ctx context.Context, list MarketList) error
	GetList(ctx context.Context) (MarketList, error)
	Get(ctx context.Context, id string) (Market, error)
}

// TxCache keeps composed transactions for retrieval by digest.
type TxCache interface {
	Put(ctx context.Context, tx BuiltTx, ttl time.Duration) error
	Get(ctx context.Context, digest string) (BuiltTx, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Locker provides a distributed mutex with a TTL.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// SignalBus provides pub/sub between the refresh loop, chat, and WebSocket
// clients.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) (<-chan BusMessage, error)
	PSubscribe(ctx context.Context, patterns ...string) (<-chan BusMessage, error)
}

// BusMessage is one message received from the signal bus.
type BusMessage struct {
	Channel string
	Payload []byte
}

// Bus channel names.
const (
	ChannelMarkets    = "markets"
	ChannelChatPrefix = "chat:"
)
