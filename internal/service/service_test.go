package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/store/memory"
	"github.com/nereus-labs/nereus/internal/sui"
	"github.com/nereus-labs/nereus/internal/txbuilder"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func addr(s string) string {
	return sui.MustParseAddress(s).String()
}

type fakeSource struct {
	mu      sync.Mutex
	markets []domain.Market
	prices  map[string]domain.Prices
	failing map[string]bool
	queries int
}

func (f *fakeSource) QueryMarketObjects(context.Context) ([]domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	out := make([]domain.Market, len(f.markets))
	copy(out, f.markets)
	return out, nil
}

func (f *fakeSource) GetPrices(_ context.Context, m domain.Market) (domain.Prices, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[m.ID] {
		return domain.Prices{}, domain.ErrUpstream
	}
	return f.prices[m.ID], nil
}

type fakeCache struct {
	list domain.MarketList
	set  int
}

func (c *fakeCache) SetList(_ context.Context, l domain.MarketList) error {
	c.list = l
	c.set++
	return nil
}

func (c *fakeCache) GetList(context.Context) (domain.MarketList, error) {
	if c.list.Markets == nil {
		return domain.MarketList{}, domain.ErrNotFound
	}
	return c.list, nil
}

func (c *fakeCache) Get(_ context.Context, id string) (domain.Market, error) {
	if m, ok := c.list.Find(id); ok {
		return m, nil
	}
	return domain.Market{}, domain.ErrNotFound
}

type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.published == nil {
		b.published = make(map[string][][]byte)
	}
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, ...string) (<-chan domain.BusMessage, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBus) PSubscribe(context.Context, ...string) (<-chan domain.BusMessage, error) {
	return nil, errors.New("not implemented")
}

type fakeHistory struct {
	points []domain.PricePoint
}

func (h *fakeHistory) InsertBatch(_ context.Context, points []domain.PricePoint) error {
	h.points = append(h.points, points...)
	return nil
}

func (h *fakeHistory) ListByMarket(_ context.Context, id string, since time.Time, limit int) ([]domain.PricePoint, error) {
	var out []domain.PricePoint
	for _, p := range h.points {
		if p.MarketID == id && !p.At.Before(since) {
			out = append(out, p)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newSource(n int) *fakeSource {
	f := &fakeSource{prices: map[string]domain.Prices{}, failing: map[string]bool{}}
	for i := 1; i <= n; i++ {
		id := addr("0x" + strings.Repeat("a", i))
		f.markets = append(f.markets, domain.Market{ID: id, Topic: "topic", InitialSharedVersion: uint64(i), Yes: uint64(i), No: 1})
		f.prices[id] = domain.Prices{Yes: uint64(i) * 100, No: uint64(i) * 10}
	}
	return f
}

func TestAggregatorRefreshAttachesPrices(t *testing.T) {
	src := newSource(3)
	cache := &fakeCache{}
	bus := &fakeBus{}
	hist := &fakeHistory{}
	state := NewState()
	agg := NewAggregator(state, src, AggregatorOptions{Cache: cache, Bus: bus, History: hist, Concurrency: 2}, discard())

	list, err := agg.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Markets, 3)
	for _, m := range list.Markets {
		require.NotNil(t, m.Prices)
		assert.Equal(t, src.prices[m.ID], *m.Prices)
	}

	assert.Len(t, state.Markets().Markets, 3)
	assert.Equal(t, 1, cache.set)
	assert.Len(t, bus.published[domain.ChannelMarkets], 1)
	assert.Len(t, hist.points, 3)
}

func TestAggregatorFailureKeepsPreviousList(t *testing.T) {
	src := newSource(3)
	cache := &fakeCache{}
	state := NewState()
	agg := NewAggregator(state, src, AggregatorOptions{Cache: cache}, discard())

	first, err := agg.Refresh(context.Background())
	require.NoError(t, err)

	src.markets = append(src.markets, domain.Market{ID: addr("0xbad")})
	src.failing[addr("0xbad")] = true

	_, err = agg.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)

	assert.Equal(t, first, state.Markets())
	assert.Equal(t, 1, cache.set)
}

func TestAggregatorEmptyChain(t *testing.T) {
	agg := NewAggregator(NewState(), &fakeSource{}, AggregatorOptions{}, discard())
	list, err := agg.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list.Markets)
}

func TestAggregatorGetMarket(t *testing.T) {
	src := newSource(1)
	agg := NewAggregator(NewState(), src, AggregatorOptions{}, discard())
	_, err := agg.Refresh(context.Background())
	require.NoError(t, err)

	m, err := agg.GetMarket(src.markets[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "topic", m.Topic)

	_, err = agg.GetMarket(addr("0xdead"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAggregatorWarmStart(t *testing.T) {
	cache := &fakeCache{list: domain.MarketList{Markets: []domain.Market{{ID: addr("0x1")}}}}
	state := NewState()
	agg := NewAggregator(state, &fakeSource{}, AggregatorOptions{Cache: cache}, discard())

	assert.True(t, agg.WarmStart(context.Background()))
	assert.Len(t, state.Markets().Markets, 1)
	assert.False(t, agg.WarmStart(context.Background()))
}

func TestAggregatorRunLoopStops(t *testing.T) {
	src := newSource(1)
	agg := NewAggregator(NewState(), src, AggregatorOptions{}, discard())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- agg.RunLoop(ctx, time.Hour) }()

	require.Eventually(t, func() bool { return len(agg.List().Markets) == 1 }, time.Second, 5*time.Millisecond)
	agg.Trigger()
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.queries >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestStateReturnsCopies(t *testing.T) {
	state := NewState()
	state.replaceMarkets(domain.MarketList{Markets: []domain.Market{{ID: "a", Topic: "x"}}})
	got := state.Markets()
	got.Markets[0].Topic = "changed"
	m, ok := state.Market("a")
	require.True(t, ok)
	assert.Equal(t, "x", m.Topic)
}

func TestStateCopiesPrices(t *testing.T) {
	state := NewState()
	prices := &domain.Prices{Yes: 600, No: 400}
	state.replaceMarkets(domain.MarketList{Markets: []domain.Market{{ID: "a", Prices: prices}}})
	prices.Yes = 1

	got := state.Markets()
	require.NotNil(t, got.Markets[0].Prices)
	assert.Equal(t, uint64(600), got.Markets[0].Prices.Yes)
	got.Markets[0].Prices.Yes = 2

	one, ok := state.Market("a")
	require.True(t, ok)
	one.Prices.No = 3

	again := state.Markets()
	assert.Equal(t, domain.Prices{Yes: 600, No: 400}, *again.Markets[0].Prices)
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

func TestChatPostAndList(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChatStore()
	bus := &fakeBus{}
	svc := NewChatService(store, nil, ChatLimit{}, bus, nil, discard())

	msgs, err := svc.List(ctx, "m1")
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)

	first, err := svc.Post(ctx, "m1", " 0xabc ", " hello ")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", first.Address)
	assert.Equal(t, " hello ", first.Message)
	assert.NotEmpty(t, first.ID)

	_, err = svc.Post(ctx, "m1", "0xdef", "second")
	require.NoError(t, err)

	msgs, err = svc.List(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, " hello ", msgs[0].Message)
	assert.Equal(t, "second", msgs[1].Message)
	assert.Len(t, bus.published["chat:m1"], 2)
}

func TestChatListSeesPostForPaddedMarketID(t *testing.T) {
	ctx := context.Background()
	bus := &fakeBus{}
	svc := NewChatService(memory.NewChatStore(), nil, ChatLimit{}, bus, nil, discard())

	posted, err := svc.Post(ctx, " m1 ", "0xabc", "hi")
	require.NoError(t, err)
	assert.Equal(t, " m1 ", posted.MarketID)

	msgs, err := svc.List(ctx, " m1 ")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, posted.ID, msgs[0].ID)
	assert.Len(t, bus.published["chat: m1 "], 1)

	_, err = svc.Post(ctx, "   ", "0xabc", "hi")
	assert.ErrorIs(t, err, ErrChatFieldsRequired)
}

func TestChatPostValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChatStore()
	svc := NewChatService(store, nil, ChatLimit{}, nil, nil, discard())

	tests := []struct {
		name    string
		address string
		message string
		want    error
	}{
		{name: "missing address", address: "", message: "hi", want: ErrChatFieldsRequired},
		{name: "blank message", address: "0x1", message: "   ", want: ErrChatFieldsRequired},
		{name: "too long", address: "0x1", message: strings.Repeat("x", domain.MaxChatMessageLen+1), want: ErrChatTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Post(ctx, "m1", tt.address, tt.message)
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}

	msgs, err := svc.List(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = svc.Post(ctx, "m1", "0x1", strings.Repeat("é", domain.MaxChatMessageLen))
	assert.NoError(t, err)
}

func TestChatRateLimit(t *testing.T) {
	ctx := context.Background()
	limiter := &fakeLimiter{allow: false}
	svc := NewChatService(memory.NewChatStore(), limiter, ChatLimit{Limit: 1, Window: time.Minute}, nil, nil, discard())

	_, err := svc.Post(ctx, "m1", "0x1", "hi")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, []string{"chat:0x1"}, limiter.keys)

	limiter.err = errors.New("redis down")
	_, err = svc.Post(ctx, "m1", "0x1", "hi")
	assert.NoError(t, err)
}

func TestSelection(t *testing.T) {
	state := NewState()
	state.replaceMarkets(domain.MarketList{Markets: []domain.Market{{ID: "m1"}}})
	svc := NewSelectionService(state)

	sel, err := svc.SelectTrade("s1", "m1", domain.SideYes)
	require.NoError(t, err)
	assert.Equal(t, domain.SideYes, sel.Side)
	assert.Equal(t, sel, svc.Get("s1"))

	sel, err = svc.SetSelectedMarket("s1", "m1")
	require.NoError(t, err)
	assert.Empty(t, sel.Side)

	sel, err = svc.SetSelectedMarket("s1", "")
	require.NoError(t, err)
	assert.Empty(t, sel.MarketID)

	_, err = svc.SelectTrade("s1", "nope", domain.SideNo)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.SelectTrade("s1", "m1", domain.Side("maybe"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.SelectTrade("", "m1", domain.SideYes)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	assert.Equal(t, domain.Selection{SessionID: "other"}, svc.Get("other"))
}

type fakeWallet struct {
	coins []domain.Coin
	yes   []domain.Position
	no    []domain.Position
	err   error
	calls int
}

func (w *fakeWallet) USDCCoins(context.Context, string) ([]domain.Coin, error) {
	w.calls++
	return w.coins, w.err
}

func (w *fakeWallet) Positions(_ context.Context, _ string, side domain.Side) ([]domain.Position, error) {
	if side == domain.SideYes {
		return w.yes, w.err
	}
	return w.no, w.err
}

func ref(id string, version uint64) sui.ObjectRef {
	digest := base58.Encode([]byte(strings.Repeat("d", 32)))
	return sui.ObjectRef{ObjectID: sui.MustParseAddress(id), Version: version, Digest: digest}
}

func TestWalletFetchAndSnapshot(t *testing.T) {
	ctx := context.Background()
	src := &fakeWallet{
		coins: []domain.Coin{{Ref: ref("0xc1", 1), Balance: 5}},
		yes:   []domain.Position{{Ref: ref("0xe1", 2), MarketID: addr("0xbeef")}},
	}
	state := NewState()
	svc := NewWalletService(state, src, discard())

	snap, err := svc.FetchUser(ctx, "0x42")
	require.NoError(t, err)
	assert.Equal(t, addr("0x42"), snap.Owner)
	assert.Len(t, snap.USDC, 1)
	assert.Len(t, snap.YesPositions, 1)
	assert.Empty(t, snap.NoPositions)

	_, err = svc.Snapshot(ctx, addr("0x42"))
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	src.err = domain.ErrUpstream
	_, err = svc.FetchUser(ctx, "0x42")
	require.ErrorIs(t, err, domain.ErrUpstream)
	kept, ok := state.Wallet(addr("0x42"))
	require.True(t, ok)
	assert.Len(t, kept.USDC, 1)

	_, err = svc.FetchUser(ctx, "not-an-address")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func newTxFixture(t *testing.T, wallet *fakeWallet) (*TxService, *memory.TxCache, string) {
	t.Helper()
	state := NewState()
	market := addr("0xbeef")
	state.replaceMarkets(domain.MarketList{Markets: []domain.Market{{ID: market, InitialSharedVersion: 12}}})
	wallets := NewWalletService(state, wallet, discard())
	cache := memory.NewTxCache()
	svc := NewTxService(txbuilder.New(sui.MustParseAddress("0x5")), state, wallets, cache, 0, nil, discard())
	return svc, cache, market
}

func TestTxBuildBuyResolved(t *testing.T) {
	ctx := context.Background()
	wallet := &fakeWallet{coins: []domain.Coin{{Ref: ref("0xc1", 3), Balance: 10_000_000}}}
	svc, _, market := newTxFixture(t, wallet)

	built, err := svc.BuildBuy(ctx, BuyRequest{Sender: "0x42", MarketID: market, Side: domain.SideYes, Amount: 1_000_000})
	require.NoError(t, err)
	assert.Equal(t, domain.TxKindBuy, built.Kind)
	assert.Empty(t, built.Unresolved)
	require.NotEmpty(t, built.KindBytes)

	raw, err := base64.StdEncoding.DecodeString(built.KindBytes)
	require.NoError(t, err)
	assert.Equal(t, sui.Digest(raw), built.Digest)

	got, err := svc.Get(ctx, built.Digest)
	require.NoError(t, err)
	assert.Equal(t, built.Digest, got.Digest)
}

// txSteps lists the command kinds of a built transaction, with the Move
// function name for calls.
func txSteps(t *testing.T, built domain.BuiltTx) []string {
	t.Helper()
	var decoded struct {
		Commands []map[string]json.RawMessage `json:"commands"`
	}
	require.NoError(t, json.Unmarshal(built.Transaction, &decoded))
	var steps []string
	for _, cmd := range decoded.Commands {
		for kind, body := range cmd {
			if kind != "MoveCall" {
				steps = append(steps, kind)
				continue
			}
			var call struct {
				Function string `json:"function"`
			}
			require.NoError(t, json.Unmarshal(body, &call))
			steps = append(steps, call.Function)
		}
	}
	return steps
}

func TestTxBuildBuyIgnoresOtherMarketsPositions(t *testing.T) {
	ctx := context.Background()
	wallet := &fakeWallet{
		coins: []domain.Coin{{Ref: ref("0xc1", 3), Balance: 10_000_000}},
		yes: []domain.Position{
			{Ref: ref("0xe1", 2), MarketID: addr("0xaaaa")},
			{Ref: ref("0xe2", 2)},
		},
	}
	svc, _, market := newTxFixture(t, wallet)

	built, err := svc.BuildBuy(ctx, BuyRequest{Sender: "0x42", MarketID: market, Side: domain.SideYes, Amount: 1_000_000})
	require.NoError(t, err)
	assert.Equal(t, []string{"SplitCoins", "zero_yes", "bet_yes", "TransferObjects"}, txSteps(t, built))
	assert.NotContains(t, string(built.Transaction), addr("0xe1"))
	assert.NotContains(t, string(built.Transaction), addr("0xe2"))
}

func TestTxBuildBuyReusesSameMarketPosition(t *testing.T) {
	ctx := context.Background()
	wallet := &fakeWallet{
		coins: []domain.Coin{{Ref: ref("0xc1", 3), Balance: 10_000_000}},
		yes: []domain.Position{
			{Ref: ref("0xe1", 2), MarketID: addr("0xaaaa")},
			{Ref: ref("0xe3", 5), MarketID: addr("0xbeef")},
		},
	}
	svc, _, market := newTxFixture(t, wallet)

	built, err := svc.BuildBuy(ctx, BuyRequest{Sender: "0x42", MarketID: market, Side: domain.SideYes, Amount: 1_000_000})
	require.NoError(t, err)
	assert.Equal(t, []string{"SplitCoins", "bet_yes"}, txSteps(t, built))
	assert.Contains(t, string(built.Transaction), addr("0xe3"))
	assert.Empty(t, built.Unresolved)
}

func TestTxBuildBuyUnresolvedOverride(t *testing.T) {
	ctx := context.Background()
	svc, _, market := newTxFixture(t, &fakeWallet{})

	built, err := svc.BuildBuy(ctx, BuyRequest{
		Sender:   "0x42",
		MarketID: market,
		Side:     domain.SideNo,
		Amount:   1,
		USDC:     []string{"0xc9"},
	})
	require.NoError(t, err)
	assert.Empty(t, built.KindBytes)
	assert.Equal(t, []string{addr("0xc9")}, built.Unresolved)
	assert.Equal(t, sui.Digest(built.Transaction), built.Digest)
}

func TestTxBuildBuyErrors(t *testing.T) {
	ctx := context.Background()
	svc, _, market := newTxFixture(t, &fakeWallet{})

	_, err := svc.BuildBuy(ctx, BuyRequest{Sender: "0x42", MarketID: market, Side: domain.SideYes, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrNoFundingCoin)

	_, err = svc.BuildBuy(ctx, BuyRequest{Sender: "0x42", MarketID: "0x99", Side: domain.SideYes, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.BuildBuy(ctx, BuyRequest{Sender: "bob", MarketID: market, Side: domain.SideYes, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTxBuildOrderDefaultsFunding(t *testing.T) {
	ctx := context.Background()
	wallet := &fakeWallet{coins: []domain.Coin{{Ref: ref("0xc1", 3), Balance: 10}}}
	svc, _, market := newTxFixture(t, wallet)

	built, err := svc.BuildOrder(ctx, OrderRequest{
		Sender:      "0x42",
		MarketID:    market,
		MakerAmount: 10,
		TakerAmount: 20,
		Role:        txbuilder.RoleBuy,
		Token:       txbuilder.TokenYes,
		Expiration:  1_700_000_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxKindOrder, built.Kind)
	assert.NotEmpty(t, built.KindBytes)
}

func TestTxBuildCreateMarketLeavesObjectsUnresolved(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTxFixture(t, &fakeWallet{})

	built, err := svc.BuildCreateMarket(ctx, CreateMarketRequest{
		Sender:    "0x42",
		Objects:   []string{"0xa1", "0xa2"},
		Topic:     "Will it rain?",
		StartTime: 1,
		EndTime:   2,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{addr("0xa1"), addr("0xa2")}, built.Unresolved)

	_, err = svc.BuildCreateMarket(ctx, CreateMarketRequest{Sender: "0x42", Objects: []string{"0xa1"}, Topic: "x", StartTime: 1, EndTime: 2})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTxGetUnknown(t *testing.T) {
	svc, _, _ := newTxFixture(t, &fakeWallet{})
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := NewState()
	state.replaceMarkets(domain.MarketList{
		Markets:     []domain.Market{{ID: "m1", Yes: 3, No: 1, Prices: &domain.Prices{Yes: 7, No: 3}}},
		RefreshedAt: now,
	})
	hist := &fakeHistory{points: []domain.PricePoint{
		{MarketID: "m1", YesPrice: 1, At: now.Add(-48 * time.Hour)},
		{MarketID: "m1", YesPrice: 2, At: now.Add(-30 * time.Minute)},
	}}

	svc := NewHistoryService(hist, state)
	svc.now = func() time.Time { return now }

	points, err := svc.History(ctx, "m1", "1h")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, uint64(2), points[0].YesPrice)

	points, err = svc.History(ctx, "m1", "ALL")
	require.NoError(t, err)
	assert.Len(t, points, 2)

	_, err = svc.History(ctx, "m1", "5Y")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.History(ctx, "m2", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	fallback := NewHistoryService(nil, state)
	points, err = fallback.History(ctx, "m1", "")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, uint64(7), points[0].YesPrice)
}

type heldLock struct{ err error }

func (l heldLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() {}, nil
}

func TestAggregatorFollowsWhenLockHeld(t *testing.T) {
	src := newSource(2)
	cached := domain.MarketList{Markets: []domain.Market{{ID: "cached"}}, RefreshedAt: time.Now()}
	cache := &fakeCache{list: cached}
	state := NewState()
	agg := NewAggregator(state, src, AggregatorOptions{Cache: cache, Lock: heldLock{err: domain.ErrLockHeld}}, discard())

	list, err := agg.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", list.Markets[0].ID)
	assert.Zero(t, src.queries)
	assert.Zero(t, cache.set)

	agg.opts.Lock = heldLock{}
	list, err = agg.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, list.Markets, 2)
	assert.Equal(t, 1, src.queries)
}
