package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nereus-labs/nereus/internal/domain"
)

// PriceHistoryStore implements domain.PriceHistoryStore. Values are stored as
// BIGINT; contract prices and pool sizes stay well below 2^63.
type PriceHistoryStore struct {
	pool *pgxpool.Pool
}

// NewPriceHistoryStore creates a PriceHistoryStore backed by the given pool.
func NewPriceHistoryStore(pool *pgxpool.Pool) *PriceHistoryStore {
	return &PriceHistoryStore{pool: pool}
}

// InsertBatch writes all points in a single batch.
func (s *PriceHistoryStore) InsertBatch(ctx context.Context, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	const query = `
		INSERT INTO market_prices (
			market_id, yes_price, no_price, yes_shares, no_shares, balance, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(query,
			p.MarketID,
			int64(p.YesPrice), int64(p.NoPrice),
			int64(p.Yes), int64(p.No), int64(p.Balance),
			p.At,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert price batch: %w", err)
		}
	}
	return nil
}

// ListByMarket returns up to limit points observed at or after since, oldest
// first.
func (s *PriceHistoryStore) ListByMarket(ctx context.Context, marketID string, since time.Time, limit int) ([]domain.PricePoint, error) {
	const query = `
		SELECT market_id, yes_price, no_price, yes_shares, no_shares, balance, observed_at
		FROM (
			SELECT * FROM market_prices
			WHERE market_id = $1 AND observed_at >= $2
			ORDER BY observed_at DESC
			LIMIT $3
		) recent
		ORDER BY observed_at ASC`

	rows, err := s.pool.Query(ctx, query, marketID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list prices %s: %w", marketID, err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var (
			p                          domain.PricePoint
			yesPrice, noPrice, yes, no int64
			balance                    int64
		)
		if err := rows.Scan(&p.MarketID, &yesPrice, &noPrice, &yes, &no, &balance, &p.At); err != nil {
			return nil, fmt.Errorf("postgres: scan price %s: %w", marketID, err)
		}
		p.YesPrice, p.NoPrice = uint64(yesPrice), uint64(noPrice)
		p.Yes, p.No, p.Balance = uint64(yes), uint64(no), uint64(balance)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list prices %s: %w", marketID, err)
	}
	return points, nil
}

var _ domain.PriceHistoryStore = (*PriceHistoryStore)(nil)
