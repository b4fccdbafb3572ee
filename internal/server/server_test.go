package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/metrics"
	"github.com/nereus-labs/nereus/internal/platform/walrus"
	"github.com/nereus-labs/nereus/internal/server/handler"
	"github.com/nereus-labs/nereus/internal/service"
	"github.com/nereus-labs/nereus/internal/store/memory"
	"github.com/nereus-labs/nereus/internal/sui"
	"github.com/nereus-labs/nereus/internal/txbuilder"
)

var marketID = sui.MustParseAddress("0xbeef").String()

type chainFake struct {
	fail bool
}

func (c *chainFake) QueryMarketObjects(context.Context) ([]domain.Market, error) {
	if c.fail {
		return nil, domain.ErrUpstream
	}
	return []domain.Market{{
		ID:                   marketID,
		InitialSharedVersion: 4,
		Topic:                "Will it rain?",
		EndTime:              time.Now().Add(26 * time.Hour).UnixMilli(),
		Balance:              2_500_000,
		Yes:                  3,
		No:                   1,
	}}, nil
}

func (c *chainFake) GetPrices(context.Context, domain.Market) (domain.Prices, error) {
	return domain.Prices{Yes: 750_000_000, No: 250_000_000}, nil
}

func (c *chainFake) USDCCoins(context.Context, string) ([]domain.Coin, error) {
	digest := base58.Encode([]byte(strings.Repeat("x", 32)))
	return []domain.Coin{{Ref: sui.ObjectRef{ObjectID: sui.MustParseAddress("0xc0"), Version: 2, Digest: digest}, Balance: 5_000_000}}, nil
}

func (c *chainFake) Positions(context.Context, string, domain.Side) ([]domain.Position, error) {
	return nil, nil
}

type fixture struct {
	handler http.Handler
	chain   *chainFake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chain := &chainFake{}
	state := service.NewState()
	agg := service.NewAggregator(state, chain, service.AggregatorOptions{}, logger)
	_, err := agg.Refresh(context.Background())
	require.NoError(t, err)

	wallets := service.NewWalletService(state, chain, logger)
	m := metrics.New("nereus")
	txs := service.NewTxService(txbuilder.New(sui.MustParseAddress("0x5")), state, wallets, memory.NewTxCache(), 0, m, logger)

	blobs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"title":"Rain","prompt":"Did it rain?"}`)
	}))
	t.Cleanup(blobs.Close)

	srv := NewServer(Config{APIKey: "k"}, Handlers{
		Health:    handler.NewHealthHandler(agg, logger),
		Markets:   handler.NewMarketHandler(agg, service.NewHistoryService(nil, state), logger),
		Chat:      handler.NewChatHandler(service.NewChatService(memory.NewChatStore(), nil, service.ChatLimit{}, nil, m, logger), logger),
		Wallets:   handler.NewWalletHandler(wallets, logger),
		Selection: handler.NewSelectionHandler(service.NewSelectionService(state), logger),
		Tx:        handler.NewTxHandler(txs, logger),
		Walrus:    handler.NewWalrusHandler(walrus.NewClient(blobs.URL, "testnet", time.Second), logger),
	}, nil, nil, m, logger)
	return &fixture{handler: srv.Handler(), chain: chain}
}

func (f *fixture) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(header); i += 2 {
		r.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["markets"])
}

func TestListMarketsDerivedFields(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/markets", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[struct {
		Markets []struct {
			ID         string `json:"id"`
			YesPercent int    `json:"yes_percent"`
			NoPercent  int    `json:"no_percent"`
			YesPrice   string `json:"yes_price"`
			Pool       string `json:"pool"`
			TimeLeft   string `json:"time_left"`
		} `json:"markets"`
		Count int `json:"count"`
	}](t, w)
	require.Equal(t, 1, body.Count)
	m := body.Markets[0]
	assert.Equal(t, marketID, m.ID)
	assert.Equal(t, 75, m.YesPercent)
	assert.Equal(t, 25, m.NoPercent)
	assert.Equal(t, "0.75", m.YesPrice)
	assert.Equal(t, "2.5", m.Pool)
	assert.Equal(t, "1d 1h", m.TimeLeft)
}

func TestGetMarket(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/markets/"+marketID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/markets/0x1", "").Code)
}

func TestRefreshFailureKeepsList(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/markets/refresh", "").Code)

	f.chain.fail = true
	w := f.do(t, http.MethodPost, "/api/markets/refresh", "", "X-API-Key", "k")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = f.do(t, http.MethodGet, "/api/markets", "")
	assert.Contains(t, w.Body.String(), marketID)

	f.chain.fail = false
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/markets/refresh", "", "Authorization", "Bearer k").Code)
}

func TestHistoryFallback(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/markets/"+marketID+"/history?timeframe=1W", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Timeframe string              `json:"timeframe"`
		Points    []domain.PricePoint `json:"points"`
	}](t, w)
	assert.Equal(t, "1W", body.Timeframe)
	assert.Len(t, body.Points, 1)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/markets/"+marketID+"/history?timeframe=2Y", "").Code)
}

func TestChatEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/market/m1/chat", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/market/m1/chat", `{"address":"","message":"hi"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"address and message are required"}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/market/m1/chat", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/market/m1/chat", `{"address":"0xa","message":"first","extra":1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[domain.ChatMessage](t, w)
	assert.Equal(t, "first", first.Message)
	assert.False(t, first.Timestamp.IsZero())

	f.do(t, http.MethodPost, "/api/market/m1/chat", `{"address":"0xb","message":"second"}`)

	body := decode[struct {
		Messages []domain.ChatMessage `json:"messages"`
	}](t, f.do(t, http.MethodGet, "/api/market/m1/chat", ""))
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "first", body.Messages[0].Message)
	assert.Equal(t, "second", body.Messages[1].Message)

	other := f.do(t, http.MethodGet, "/api/market/m2/chat", "")
	assert.JSONEq(t, `{"messages":[]}`, other.Body.String())
}

func TestWalletEndpoint(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/wallets/0x42", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "5", body["usdc_balance"])

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/wallets/bob", "").Code)
}

func TestSelectionEndpoint(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPut, "/api/sessions/s1/selection", `{"market_id":"`+marketID+`","side":"YES"}`)
	require.Equal(t, http.StatusOK, w.Code)
	sel := decode[domain.Selection](t, w)
	assert.Equal(t, domain.SideYes, sel.Side)

	got := decode[domain.Selection](t, f.do(t, http.MethodGet, "/api/sessions/s1/selection", ""))
	assert.Equal(t, marketID, got.MarketID)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, "/api/sessions/s1/selection", `{"market_id":"0x9","side":"no"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/sessions/s1/selection", `{"market_id":"`+marketID+`","side":"maybe"}`).Code)
}

func TestTxEndpoints(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/tx/buy", `{"sender":"0x42","market_id":"`+marketID+`","side":"no","amount":"1.5"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	built := decode[domain.BuiltTx](t, w)
	assert.Equal(t, domain.TxKindBuy, built.Kind)
	assert.NotEmpty(t, built.KindBytes)

	w = f.do(t, http.MethodGet, "/api/tx/"+built.Digest, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, built.Digest, decode[domain.BuiltTx](t, w).Digest)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/tx/unknown", "").Code)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{name: "buy missing side", path: "/api/tx/buy", body: `{"sender":"0x42","market_id":"` + marketID + `","amount":"1"}`, want: http.StatusBadRequest},
		{name: "buy bad amount", path: "/api/tx/buy", body: `{"sender":"0x42","market_id":"` + marketID + `","side":"yes","amount":"1.1234567"}`, want: http.StatusBadRequest},
		{name: "buy zero amount", path: "/api/tx/buy", body: `{"sender":"0x42","market_id":"` + marketID + `","side":"yes","amount":"0"}`, want: http.StatusBadRequest},
		{name: "buy unknown market", path: "/api/tx/buy", body: `{"sender":"0x42","market_id":"0x77","side":"yes","amount":"1"}`, want: http.StatusNotFound},
		{name: "create market", path: "/api/tx/create-market", body: `{"sender":"0x42","objects":["0xa1","0xa2"],"topic":"t","start_time":1,"end_time":2}`, want: http.StatusCreated},
		{name: "create market one object", path: "/api/tx/create-market", body: `{"sender":"0x42","objects":["0xa1"],"topic":"t","start_time":1,"end_time":2}`, want: http.StatusBadRequest},
		{name: "create market end before start", path: "/api/tx/create-market", body: `{"sender":"0x42","objects":["0xa1","0xa2"],"topic":"t","start_time":5,"end_time":2}`, want: http.StatusBadRequest},
		{name: "order", path: "/api/tx/order", body: `{"sender":"0x42","market_id":"` + marketID + `","maker_amount":10,"taker_amount":20,"role":1,"token":0}`, want: http.StatusCreated},
		{name: "order bad role", path: "/api/tx/order", body: `{"sender":"0x42","market_id":"` + marketID + `","maker_amount":10,"role":2}`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestWalrusEndpoint(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/walrus/blob-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	blob := decode[walrus.Blob](t, w)
	assert.Equal(t, walrus.KindAIResolution, blob.Kind)
	assert.Equal(t, "blob-1", blob.ID)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/markets", "")
	w := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nereus_http_requests_total")
	assert.Contains(t, w.Body.String(), "nereus_markets_count 0")
}
