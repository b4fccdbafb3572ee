package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nereus-labs/nereus/internal/server"
	"github.com/nereus-labs/nereus/internal/server/handler"
	"github.com/nereus-labs/nereus/internal/server/ws"
	"github.com/nereus-labs/nereus/internal/service"
)

// newAggregator builds the market aggregator over state with every optional
// collaborator the deployment has enabled.
func (a *App) newAggregator(deps *Dependencies, state *service.State) *service.Aggregator {
	return service.NewAggregator(state, deps.Chain, service.AggregatorOptions{
		Cache:       deps.MarketCache,
		History:     deps.PriceHistory,
		Bus:         deps.SignalBus,
		Archiver:    deps.Archiver,
		Metrics:     deps.Metrics,
		Lock:        deps.Locker,
		LockTTL:     a.cfg.Aggregator.LockTTL.Duration,
		Concurrency: a.cfg.Aggregator.Concurrency,
	}, a.logger)
}

// ServerMode runs the refresh loop, the WebSocket hub and the HTTP API until
// ctx is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	state := service.NewState()
	agg := a.newAggregator(deps, state)
	if agg.WarmStart(ctx) {
		a.logger.InfoContext(ctx, "serving cached markets until the first refresh")
	}

	g.Go(func() error {
		return agg.RunLoop(ctx, a.cfg.Aggregator.RefreshInterval.Duration)
	})

	wallets := service.NewWalletService(state, deps.Chain, a.logger)
	chat := service.NewChatService(deps.ChatStore, deps.RateLimiter, service.ChatLimit{
		Limit:  a.cfg.Chat.RateLimit,
		Window: a.cfg.Chat.RateWindow.Duration,
	}, deps.SignalBus, deps.Metrics, a.logger)
	txs := service.NewTxService(deps.Builder, state, wallets, deps.TxCache, a.cfg.Tx.CacheTTL.Duration, deps.Metrics, a.logger)

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(agg, a.logger),
		Markets:   handler.NewMarketHandler(agg, service.NewHistoryService(deps.PriceHistory, state), a.logger),
		Chat:      handler.NewChatHandler(chat, a.logger),
		Wallets:   handler.NewWalletHandler(wallets, a.logger),
		Selection: handler.NewSelectionHandler(service.NewSelectionService(state), a.logger),
		Tx:        handler.NewTxHandler(txs, a.logger),
	}
	if deps.Walrus != nil {
		handlers.Walrus = handler.NewWalrusHandler(deps.Walrus, a.logger)
	}

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{AllowedOrigins: a.cfg.Server.CORSOrigins})
	if deps.SignalBus == nil {
		a.logger.WarnContext(ctx, "redis disabled: websocket clients receive no market or chat events")
	}
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Addr:        fmt.Sprintf(":%d", a.cfg.Server.Port),
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, deps.Metrics, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)))
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// RefreshMode performs one market refresh with every side effect (cache,
// history, bus, archive) and exits. It suits a cron job feeding replicas
// that run with a long refresh interval.
func (a *App) RefreshMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting refresh mode")

	start := time.Now()
	list, err := a.newAggregator(deps, service.NewState()).Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh mode: %w", err)
	}
	a.logger.InfoContext(ctx, "markets refreshed",
		slog.Int("count", len(list.Markets)),
		slog.Time("refreshed_at", list.RefreshedAt),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}
