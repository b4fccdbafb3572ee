package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nereus-labs/nereus/internal/domain"
)

type txEntry struct {
	tx      domain.BuiltTx
	expires time.Time
}

// TxCache keeps composed transactions until they expire. Expired entries
// are dropped lazily on access and on Put.
type TxCache struct {
	mu      sync.Mutex
	entries map[string]txEntry
	now     func() time.Time
}

// NewTxCache returns an empty TxCache.
func NewTxCache() *TxCache {
	return &TxCache{entries: make(map[string]txEntry), now: time.Now}
}

func (c *TxCache) Put(_ context.Context, tx domain.BuiltTx, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[tx.Digest] = txEntry{tx: tx, expires: now.Add(ttl)}
	return nil
}

func (c *TxCache) Get(_ context.Context, digest string) (domain.BuiltTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[digest]
	if !ok || c.now().After(e.expires) {
		delete(c.entries, digest)
		return domain.BuiltTx{}, fmt.Errorf("tx %s: %w", digest, domain.ErrNotFound)
	}
	return e.tx, nil
}

var _ domain.TxCache = (*TxCache)(nil)
