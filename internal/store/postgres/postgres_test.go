package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nereus-labs/nereus/internal/domain"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := os.Getenv("NEREUS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("NEREUS_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := New(ctx, ClientConfig{DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, c.RunMigrations(ctx))
	// A second run is a no-op.
	require.NoError(t, c.RunMigrations(ctx))
	t.Cleanup(c.Close)
	return c
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/nereus?sslmode=disable",
		DSN(ClientConfig{Host: "db", User: "u", Password: "p", Database: "nereus"}))
	assert.Equal(t, "postgres://x", DSN(ClientConfig{DSN: "postgres://x", Host: "ignored"}))
}

func TestPriceHistoryStore(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	store := NewPriceHistoryStore(c.Pool())

	market := "0x" + uuid.NewString()
	base := time.Now().UTC().Truncate(time.Second)
	var points []domain.PricePoint
	for i := 0; i < 5; i++ {
		points = append(points, domain.PricePoint{
			MarketID: market, YesPrice: uint64(100 + i), NoPrice: uint64(900 - i),
			Yes: 1, No: 2, Balance: 3, At: base.Add(time.Duration(i) * time.Minute),
		})
	}
	require.NoError(t, store.InsertBatch(ctx, points))

	got, err := store.ListByMarket(ctx, market, base.Add(time.Minute), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(102), got[0].YesPrice, "oldest of the three most recent")
	assert.Equal(t, uint64(104), got[2].YesPrice)
}

func TestChatStore(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	store := NewChatStore(c.Pool())

	market := "0x" + uuid.NewString()
	for _, text := range []string{"first", "second"} {
		require.NoError(t, store.Append(ctx, domain.ChatMessage{
			ID: uuid.NewString(), MarketID: market, Address: "0xabc", Message: text, Timestamp: time.Now().UTC(),
		}))
	}
	msgs, err := store.List(ctx, market)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Message)
	assert.Equal(t, "second", msgs[1].Message)

	empty, err := store.List(ctx, "0xnone")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
