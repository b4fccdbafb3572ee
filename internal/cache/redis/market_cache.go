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

// MarketCache implements domain.MarketCache. The whole list is stored as one
// JSON value so a reader never sees a mix of two refreshes; each market is
// also stored under its own key for single lookups.
//
// Key schema:
//
//	markets:list  - JSON MarketList
//	market:{id}   - hash with field "data" containing JSON Market
type MarketCache struct {
	client *Client
	ttl    time.Duration
}

// NewMarketCache creates a MarketCache. A zero ttl keeps entries until the
// next refresh overwrites them.
func NewMarketCache(c *Client, ttl time.Duration) *MarketCache {
	return &MarketCache{client: c, ttl: ttl}
}

func (mc *MarketCache) listKey() string            { return mc.client.Key("markets:list") }
func (mc *MarketCache) marketKey(id string) string { return mc.client.Key("market:" + id) }

// SetList replaces the cached list and per-market entries in one
// transaction.
func (mc *MarketCache) SetList(ctx context.Context, list domain.MarketList) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("redis: marshal market list: %w", err)
	}

	rdb := mc.client.Underlying()
	pipe := rdb.TxPipeline()
	pipe.Set(ctx, mc.listKey(), data, mc.ttl)
	for _, m := range list.Markets {
		md, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("redis: marshal market %s: %w", m.ID, err)
		}
		key := mc.marketKey(m.ID)
		pipe.HSet(ctx, key, "data", md)
		if mc.ttl > 0 {
			pipe.Expire(ctx, key, mc.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set market list: %w", err)
	}
	return nil
}

// GetList returns the cached list, or domain.ErrNotFound.
func (mc *MarketCache) GetList(ctx context.Context) (domain.MarketList, error) {
	data, err := mc.client.Underlying().Get(ctx, mc.listKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MarketList{}, domain.ErrNotFound
		}
		return domain.MarketList{}, fmt.Errorf("redis: get market list: %w", err)
	}
	var list domain.MarketList
	if err := json.Unmarshal(data, &list); err != nil {
		return domain.MarketList{}, fmt.Errorf("redis: unmarshal market list: %w", err)
	}
	return list, nil
}

// Get retrieves one market by id, or domain.ErrNotFound.
func (mc *MarketCache) Get(ctx context.Context, id string) (domain.Market, error) {
	data, err := mc.client.Underlying().HGet(ctx, mc.marketKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %s: %w", id, err)
	}
	var market domain.Market
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %s: %w", id, err)
	}
	return market, nil
}

var _ domain.MarketCache = (*MarketCache)(nil)
