package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/metrics"
)

// MarketSource reads market objects and their prices from chain.
type MarketSource interface {
	QueryMarketObjects(ctx context.Context) ([]domain.Market, error)
	GetPrices(ctx context.Context, m domain.Market) (domain.Prices, error)
}

// AggregatorOptions holds the optional collaborators of an Aggregator. Nil
// fields are skipped.
type AggregatorOptions struct {
	Cache    domain.MarketCache
	History  domain.PriceHistoryStore
	Bus      domain.SignalBus
	Archiver domain.MarketArchiver
	Metrics  *metrics.Metrics
	// Lock lets several replicas share one refresh per interval. A replica
	// that finds the lock held reloads the list from Cache instead.
	Lock    domain.Locker
	LockTTL time.Duration
	// Concurrency caps in-flight price lookups; zero means one goroutine per
	// market.
	Concurrency int
}

// Aggregator owns the market list. A refresh queries every market object,
// looks up all prices concurrently and publishes the result only if every
// lookup succeeded. A single failure discards the whole batch and leaves the
// previous list in place; there is no per-market retry.
type Aggregator struct {
	state   *State
	source  MarketSource
	opts    AggregatorOptions
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.Mutex
	trigger chan struct{}
}

// NewAggregator creates an Aggregator writing to state.
func NewAggregator(state *State, source MarketSource, opts AggregatorOptions, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		state:   state,
		source:  source,
		opts:    opts,
		logger:  logger.With(slog.String("component", "aggregator")),
		now:     time.Now,
		trigger: make(chan struct{}, 1),
	}
}

// Refresh rebuilds the market list. Concurrent calls are serialised.
func (a *Aggregator) Refresh(ctx context.Context) (domain.MarketList, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.opts.Lock != nil {
		release, err := a.opts.Lock.Acquire(ctx, refreshLockKey, a.lockTTL())
		switch {
		case errors.Is(err, domain.ErrLockHeld) && a.opts.Cache != nil:
			return a.follow(ctx)
		case err != nil && !errors.Is(err, domain.ErrLockHeld):
			a.logger.WarnContext(ctx, "refresh lock unavailable", slog.String("error", err.Error()))
		case err == nil:
			defer release()
		}
	}

	start := a.now()
	markets, err := a.collect(ctx)
	if err != nil {
		a.opts.Metrics.ObserveRefresh(a.now().Sub(start), 0, err)
		return domain.MarketList{}, err
	}

	list := domain.MarketList{Markets: markets, RefreshedAt: a.now().UTC()}
	a.state.replaceMarkets(list)
	a.opts.Metrics.ObserveRefresh(a.now().Sub(start), len(markets), nil)

	a.logger.InfoContext(ctx, "markets refreshed",
		slog.Int("count", len(markets)),
		slog.Duration("took", a.now().Sub(start)),
	)
	a.afterRefresh(ctx, list)
	return list, nil
}

const refreshLockKey = "markets:refresh"

func (a *Aggregator) lockTTL() time.Duration {
	if a.opts.LockTTL > 0 {
		return a.opts.LockTTL
	}
	return 30 * time.Second
}

// follow adopts the list another replica published to the cache. An older
// list than the one held is ignored.
func (a *Aggregator) follow(ctx context.Context) (domain.MarketList, error) {
	list, err := a.opts.Cache.GetList(ctx)
	if err != nil {
		return domain.MarketList{}, fmt.Errorf("aggregator: follow cached list: %w", err)
	}
	if cur := a.state.Markets(); list.RefreshedAt.After(cur.RefreshedAt) {
		a.state.replaceMarkets(list)
		a.logger.DebugContext(ctx, "markets loaded from cache", slog.Int("count", len(list.Markets)))
		return list, nil
	}
	return a.state.Markets(), nil
}

func (a *Aggregator) collect(ctx context.Context) ([]domain.Market, error) {
	markets, err := a.source.QueryMarketObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregator: query markets: %w", err)
	}

	enriched := make([]domain.Market, len(markets))
	g, gctx := errgroup.WithContext(ctx)
	if a.opts.Concurrency > 0 {
		g.SetLimit(a.opts.Concurrency)
	}
	for i, m := range markets {
		g.Go(func() error {
			prices, err := a.source.GetPrices(gctx, m)
			if err != nil {
				return fmt.Errorf("aggregator: prices for %s: %w", m.ID, err)
			}
			m.Prices = &prices
			enriched[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return enriched, nil
}

// marketsEvent is the payload published on the markets channel.
type marketsEvent struct {
	Type        string    `json:"type"`
	Count       int       `json:"count"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// afterRefresh fans the new list out to the cache, history, bus and archive.
// Failures are logged and do not affect the refresh result.
func (a *Aggregator) afterRefresh(ctx context.Context, list domain.MarketList) {
	if a.opts.Cache != nil {
		if err := a.opts.Cache.SetList(ctx, list); err != nil {
			a.logger.WarnContext(ctx, "market cache write failed", slog.String("error", err.Error()))
		}
	}

	if a.opts.History != nil {
		points := make([]domain.PricePoint, 0, len(list.Markets))
		for _, m := range list.Markets {
			if m.Prices == nil {
				continue
			}
			points = append(points, domain.PricePoint{
				MarketID: m.ID,
				YesPrice: m.Prices.Yes,
				NoPrice:  m.Prices.No,
				Yes:      m.Yes,
				No:       m.No,
				Balance:  m.Balance,
				At:       list.RefreshedAt,
			})
		}
		if err := a.opts.History.InsertBatch(ctx, points); err != nil {
			a.logger.WarnContext(ctx, "price history write failed", slog.String("error", err.Error()))
		}
	}

	if a.opts.Bus != nil {
		payload, _ := json.Marshal(marketsEvent{Type: domain.ChannelMarkets, Count: len(list.Markets), RefreshedAt: list.RefreshedAt})
		if err := a.opts.Bus.Publish(ctx, domain.ChannelMarkets, payload); err != nil {
			a.logger.WarnContext(ctx, "markets publish failed", slog.String("error", err.Error()))
		}
	}

	if a.opts.Archiver != nil {
		key, err := a.opts.Archiver.ArchiveMarkets(ctx, list)
		if err != nil {
			a.logger.WarnContext(ctx, "market archive failed", slog.String("error", err.Error()))
		} else {
			a.logger.DebugContext(ctx, "market list archived", slog.String("key", key))
		}
	}
}

// WarmStart seeds an empty state from the market cache so a restarted
// process serves the last good list before its first refresh completes.
func (a *Aggregator) WarmStart(ctx context.Context) bool {
	if a.opts.Cache == nil || len(a.state.Markets().Markets) > 0 {
		return false
	}
	list, err := a.opts.Cache.GetList(ctx)
	if err != nil {
		a.logger.DebugContext(ctx, "warm start skipped", slog.String("error", err.Error()))
		return false
	}
	a.state.replaceMarkets(list)
	a.logger.InfoContext(ctx, "warm start from cache",
		slog.Int("count", len(list.Markets)),
		slog.Time("refreshed_at", list.RefreshedAt),
	)
	return true
}

// Trigger asks RunLoop for an extra refresh. It never blocks; triggers that
// arrive while one is pending are merged.
func (a *Aggregator) Trigger() {
	select {
	case a.trigger <- struct{}{}:
	default:
	}
}

// RunLoop refreshes immediately, then on every tick and trigger until ctx is
// cancelled. Failed refreshes are logged and the loop continues.
func (a *Aggregator) RunLoop(ctx context.Context, interval time.Duration) error {
	a.refreshLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("aggregator loop stopped")
			return ctx.Err()
		case <-ticker.C:
			a.refreshLogged(ctx)
		case <-a.trigger:
			a.refreshLogged(ctx)
		}
	}
}

func (a *Aggregator) refreshLogged(ctx context.Context) {
	if _, err := a.Refresh(ctx); err != nil && ctx.Err() == nil {
		a.logger.ErrorContext(ctx, "market refresh failed", slog.String("error", err.Error()))
	}
}

// List returns the current market list.
func (a *Aggregator) List() domain.MarketList {
	return a.state.Markets()
}

// GetMarket returns one market from the current list.
func (a *Aggregator) GetMarket(id string) (domain.Market, error) {
	m, ok := a.state.Market(id)
	if !ok {
		return domain.Market{}, fmt.Errorf("market %s: %w", id, domain.ErrNotFound)
	}
	return m, nil
}
