package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nereus-labs/nereus/internal/domain"
)

// ChatStore implements domain.ChatStore. Insertion order is the BIGSERIAL
// sequence, not the client-visible timestamp.
type ChatStore struct {
	pool *pgxpool.Pool
}

// NewChatStore creates a ChatStore backed by the given pool.
func NewChatStore(pool *pgxpool.Pool) *ChatStore {
	return &ChatStore{pool: pool}
}

func (s *ChatStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	const query = `
		INSERT INTO chat_messages (id, market_id, address, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, query, msg.ID, msg.MarketID, msg.Address, msg.Message, msg.Timestamp); err != nil {
		return fmt.Errorf("postgres: append chat %s: %w", msg.MarketID, err)
	}
	return nil
}

func (s *ChatStore) List(ctx context.Context, marketID string) ([]domain.ChatMessage, error) {
	const query = `
		SELECT id::text, market_id, address, message, created_at
		FROM chat_messages
		WHERE market_id = $1
		ORDER BY seq ASC`

	rows, err := s.pool.Query(ctx, query, marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list chat %s: %w", marketID, err)
	}
	defer rows.Close()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.MarketID, &m.Address, &m.Message, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan chat %s: %w", marketID, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list chat %s: %w", marketID, err)
	}
	return messages, nil
}

var _ domain.ChatStore = (*ChatStore)(nil)
