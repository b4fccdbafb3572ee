package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nereus-labs/nereus/internal/config"
	"github.com/nereus-labs/nereus/internal/store/memory"
)

func TestWireWithoutBackends(t *testing.T) {
	cfg := config.Defaults()
	cfg.Chain.PackageID = "0x5"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, cleanup, err := Wire(context.Background(), &cfg, logger)
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, deps.Chain)
	assert.NotNil(t, deps.Builder)
	assert.NotNil(t, deps.Walrus)
	assert.NotNil(t, deps.Metrics)
	assert.IsType(t, &memory.ChatStore{}, deps.ChatStore)
	assert.IsType(t, &memory.TxCache{}, deps.TxCache)

	assert.Nil(t, deps.MarketCache)
	assert.Nil(t, deps.PriceHistory)
	assert.Nil(t, deps.SignalBus)
	assert.Nil(t, deps.Locker)
	assert.Nil(t, deps.Archiver)
}

func TestWireRejectsBadPackage(t *testing.T) {
	cfg := config.Defaults()
	cfg.Chain.PackageID = "nope"
	_, _, err := Wire(context.Background(), &cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestRunUnknownMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.Chain.PackageID = "0x5"
	cfg.Mode = "trade"
	a := New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer a.Close()
	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported mode")
}
