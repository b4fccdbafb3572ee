package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nereus-labs/nereus/internal/domain"
)

// chatStreamMaxLen caps each market's chat stream, enforced with XADD
// MAXLEN ~.
const chatStreamMaxLen int64 = 10000

// ChatStore implements domain.ChatStore with one Redis stream per market, so
// chat survives restarts and is shared between replicas.
type ChatStore struct {
	client *Client
}

// NewChatStore creates a ChatStore backed by the given Client.
func NewChatStore(c *Client) *ChatStore {
	return &ChatStore{client: c}
}

func (cs *ChatStore) key(marketID string) string {
	return cs.client.Key("chat:stream:" + marketID)
}

// Append adds msg to the end of its market's stream.
func (cs *ChatStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redis: marshal chat message: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: cs.key(msg.MarketID),
		MaxLen: chatStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": data},
	}
	if err := cs.client.Underlying().XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: chat append %s: %w", msg.MarketID, err)
	}
	return nil
}

// List returns every message of the market in insertion order.
func (cs *ChatStore) List(ctx context.Context, marketID string) ([]domain.ChatMessage, error) {
	entries, err := cs.client.Underlying().XRange(ctx, cs.key(marketID), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("redis: chat list %s: %w", marketID, err)
	}

	messages := make([]domain.ChatMessage, 0, len(entries))
	for _, e := range entries {
		var data []byte
		switch v := e.Values["payload"].(type) {
		case string:
			data = []byte(v)
		case []byte:
			data = v
		default:
			continue
		}
		var msg domain.ChatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("redis: chat decode %s/%s: %w", marketID, e.ID, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

var _ domain.ChatStore = (*ChatStore)(nil)
