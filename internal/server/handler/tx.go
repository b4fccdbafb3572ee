package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/service"
)

// TxService composes unsigned transactions.
type TxService interface {
	BuildBuy(ctx context.Context, req service.BuyRequest) (domain.BuiltTx, error)
	BuildCreateMarket(ctx context.Context, req service.CreateMarketRequest) (domain.BuiltTx, error)
	BuildOrder(ctx context.Context, req service.OrderRequest) (domain.BuiltTx, error)
	Get(ctx context.Context, digest string) (domain.BuiltTx, error)
}

// TxHandler serves the transaction composition endpoints.
type TxHandler struct {
	txs    TxService
	logger *slog.Logger
}

// NewTxHandler creates a TxHandler.
func NewTxHandler(txs TxService, logger *slog.Logger) *TxHandler {
	return &TxHandler{txs: txs, logger: logHandler(logger, "tx")}
}

type buyRequest struct {
	Sender    string   `json:"sender" validate:"required"`
	MarketID  string   `json:"market_id" validate:"required"`
	Side      string   `json:"side" validate:"required"`
	Amount    string   `json:"amount" validate:"required"` // decimal USDC, e.g. "12.5"
	USDC      []string `json:"usdc_coins"`
	Positions []string `json:"positions"`
}

type createMarketRequest struct {
	Sender      string   `json:"sender" validate:"required"`
	Objects     []string `json:"objects" validate:"len=2,dive,required"`
	Topic       string   `json:"topic" validate:"required,max=256"`
	Description string   `json:"description" validate:"max=4096"`
	StartTime   uint64   `json:"start_time" validate:"required"`
	EndTime     uint64   `json:"end_time" validate:"required,gtfield=StartTime"`
}

type orderRequest struct {
	Sender      string `json:"sender" validate:"required"`
	MarketID    string `json:"market_id" validate:"required"`
	FundingCoin string `json:"funding_coin"`
	MakerAmount uint64 `json:"maker_amount" validate:"required"`
	TakerAmount uint64 `json:"taker_amount"`
	Role        uint8  `json:"role" validate:"lte=1"`
	Token       uint8  `json:"token" validate:"lte=1"`
	Expiration  uint64 `json:"expiration"`
	Salt        uint64 `json:"salt"`
}

// BuildBuy composes a buy-position transaction.
// POST /api/tx/buy
func (h *TxHandler) BuildBuy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "build buy", err)
		return
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		writeServiceError(w, r, h.logger, "build buy", err)
		return
	}
	amount, err := domain.ParseUnits(req.Amount, domain.USDCDecimals)
	if err != nil {
		writeServiceError(w, r, h.logger, "build buy", err)
		return
	}

	built, err := h.txs.BuildBuy(r.Context(), service.BuyRequest{
		Sender:    req.Sender,
		MarketID:  req.MarketID,
		Side:      side,
		Amount:    amount,
		USDC:      req.USDC,
		Positions: req.Positions,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "build buy", err)
		return
	}
	writeJSON(w, http.StatusCreated, built)
}

// BuildCreateMarket composes a create-market transaction.
// POST /api/tx/create-market
func (h *TxHandler) BuildCreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "build create market", err)
		return
	}
	built, err := h.txs.BuildCreateMarket(r.Context(), service.CreateMarketRequest{
		Sender:      req.Sender,
		Objects:     req.Objects,
		Topic:       req.Topic,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "build create market", err)
		return
	}
	writeJSON(w, http.StatusCreated, built)
}

// BuildOrder composes a limit order transaction.
// POST /api/tx/order
func (h *TxHandler) BuildOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "build order", err)
		return
	}
	built, err := h.txs.BuildOrder(r.Context(), service.OrderRequest(req))
	if err != nil {
		writeServiceError(w, r, h.logger, "build order", err)
		return
	}
	writeJSON(w, http.StatusCreated, built)
}

// GetTx returns a composed transaction by digest.
// GET /api/tx/{digest}
func (h *TxHandler) GetTx(w http.ResponseWriter, r *http.Request) {
	built, err := h.txs.Get(r.Context(), pathParam(r, "digest"))
	if err != nil {
		writeServiceError(w, r, h.logger, "get tx", err)
		return
	}
	writeJSON(w, http.StatusOK, built)
}
