package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nereus-labs/nereus/internal/domain"
)

// unlockLua deletes a lock key only if it still holds the caller's token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker implements domain.Locker with SET NX PX and a token-checked
// release. Replicas use it so only one of them queries the chain per
// refresh interval.
type Locker struct {
	client   *Client
	unlockSc *redis.Script
}

// NewLocker creates a Locker backed by c.
func NewLocker(c *Client) *Locker {
	return &Locker{client: c, unlockSc: redis.NewScript(unlockLua)}
}

// Acquire takes the lock for ttl and returns its release function, which is
// safe to call more than once. A lock held elsewhere is domain.ErrLockHeld.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	lk := l.client.Key("lock:" + key)

	ok, err := l.client.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled.
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = l.unlockSc.Run(unlockCtx, l.client.rdb, []string{lk}, token).Err()
		})
	}, nil
}

var _ domain.Locker = (*Locker)(nil)
