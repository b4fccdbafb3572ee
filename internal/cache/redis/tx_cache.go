package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nereus-labs/nereus/internal/domain"
)

// TxCache implements domain.TxCache with one JSON string per digest.
type TxCache struct {
	client *Client
}

// NewTxCache creates a TxCache backed by the given Client.
func NewTxCache(c *Client) *TxCache {
	return &TxCache{client: c}
}

func (tc *TxCache) key(digest string) string { return tc.client.Key("tx:" + digest) }

// Put stores tx under its digest for ttl.
func (tc *TxCache) Put(ctx context.Context, tx domain.BuiltTx, ttl time.Duration) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("redis: marshal tx %s: %w", tx.Digest, err)
	}
	if err := tc.client.Underlying().Set(ctx, tc.key(tx.Digest), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: put tx %s: %w", tx.Digest, err)
	}
	return nil
}

// Get returns the transaction stored under digest, or domain.ErrNotFound.
func (tc *TxCache) Get(ctx context.Context, digest string) (domain.BuiltTx, error) {
	data, err := tc.client.Underlying().Get(ctx, tc.key(digest)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.BuiltTx{}, domain.ErrNotFound
		}
		return domain.BuiltTx{}, fmt.Errorf("redis: get tx %s: %w", digest, err)
	}
	var tx domain.BuiltTx
	if err := json.Unmarshal(data, &tx); err != nil {
		return domain.BuiltTx{}, fmt.Errorf("redis: unmarshal tx %s: %w", digest, err)
	}
	return tx, nil
}

var _ domain.TxCache = (*TxCache)(nil)
