package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nereus-labs/nereus/internal/domain"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	List() domain.MarketList
	GetMarket(id string) (domain.Market, error)
	Refresh(ctx context.Context) (domain.MarketList, error)
}

// HistoryService serves stored price points.
type HistoryService interface {
	History(ctx context.Context, marketID, timeframe string) ([]domain.PricePoint, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	history HistoryService
	logger  *slog.Logger
	now     func() time.Time
}

// NewMarketHandler creates a MarketHandler with the given services and logger.
func NewMarketHandler(markets MarketService, history HistoryService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		history: history,
		logger:  logHandler(logger, "markets"),
		now:     time.Now,
	}
}

// marketView is a market plus the values the front end displays.
type marketView struct {
	domain.Market
	YesPercent int    `json:"yes_percent"`
	NoPercent  int    `json:"no_percent"`
	YesPrice   string `json:"yes_price,omitempty"`
	NoPrice    string `json:"no_price,omitempty"`
	Pool       string `json:"pool"`
	TimeLeft   string `json:"time_left"`
	Ended      bool   `json:"ended"`
}

func (h *MarketHandler) view(m domain.Market, now time.Time) marketView {
	v := marketView{
		Market:     m,
		YesPercent: m.YesPercent(),
		NoPercent:  m.NoPercent(),
		Pool:       domain.FormatUnits(m.Balance, domain.USDCDecimals),
		TimeLeft:   domain.TimeLeft(m.End(), now),
		Ended:      m.Ended(now),
	}
	if m.Prices != nil {
		v.YesPrice = domain.FormatUnits(m.Prices.Yes, domain.PriceDecimals)
		v.NoPrice = domain.FormatUnits(m.Prices.No, domain.PriceDecimals)
	}
	return v
}

type listMarketsResponse struct {
	Markets     []marketView `json:"markets"`
	Count       int          `json:"count"`
	RefreshedAt *time.Time   `json:"refreshed_at"`
}

func (h *MarketHandler) listResponse(list domain.MarketList) listMarketsResponse {
	now := h.now()
	resp := listMarketsResponse{
		Markets: make([]marketView, 0, len(list.Markets)),
		Count:   len(list.Markets),
	}
	for _, m := range list.Markets {
		resp.Markets = append(resp.Markets, h.view(m, now))
	}
	if !list.RefreshedAt.IsZero() {
		t := list.RefreshedAt
		resp.RefreshedAt = &t
	}
	return resp
}

// ListMarkets returns the current market list.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.listResponse(h.markets.List()))
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}
	m, err := h.markets.GetMarket(id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get market", err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(m, h.now()))
}

// RefreshMarkets runs a refresh and returns the new list. On failure the
// previous list stays in place and 502 is returned.
// POST /api/markets/refresh
func (h *MarketHandler) RefreshMarkets(w http.ResponseWriter, r *http.Request) {
	list, err := h.markets.Refresh(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: refresh markets failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "refresh failed; previous market list kept")
		return
	}
	writeJSON(w, http.StatusOK, h.listResponse(list))
}

type historyResponse struct {
	MarketID  string              `json:"market_id"`
	Timeframe string              `json:"timeframe"`
	Points    []domain.PricePoint `json:"points"`
}

// GetHistory returns price points for charting.
// GET /api/markets/{id}/history?timeframe=1D
func (h *MarketHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	tf := r.URL.Query().Get("timeframe")
	points, err := h.history.History(r.Context(), id, tf)
	if err != nil {
		writeServiceError(w, r, h.logger, "get history", err)
		return
	}
	if tf == "" {
		tf = "1D"
	}
	writeJSON(w, http.StatusOK, historyResponse{MarketID: id, Timeframe: tf, Points: points})
}
