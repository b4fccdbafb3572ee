package domain

import (
	"context"
	"time"
)

// PriceHistoryStore persists one price point per market per refresh.
type PriceHistoryStore interface {
	InsertBatch(ctx context.Context, points []PricePoint) error
	ListByMarket(ctx context.Context, marketID string, since time.Time, limit int) ([]PricePoint, error)
}

// ChatStore holds chat messages per market, in insertion order.
type ChatStore interface {
	Append(ctx context.Context, msg ChatMessage) error
	List(ctx context.Context, marketID string) ([]ChatMessage, error)
}
