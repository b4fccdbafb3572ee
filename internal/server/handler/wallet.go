package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nereus-labs/nereus/internal/domain"
)

// WalletService reads wallet snapshots.
type WalletService interface {
	FetchUser(ctx context.Context, owner string) (domain.WalletSnapshot, error)
}

// WalletHandler serves wallet snapshots.
type WalletHandler struct {
	wallets WalletService
	logger  *slog.Logger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallets WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, logger: logHandler(logger, "wallets")}
}

type walletResponse struct {
	domain.WalletSnapshot
	USDCBalance string `json:"usdc_balance"`
}

// GetWallet fetches the address's coins and positions.
// GET /api/wallets/{address}
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.wallets.FetchUser(r.Context(), pathParam(r, "address"))
	if err != nil {
		writeServiceError(w, r, h.logger, "fetch wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{
		WalletSnapshot: snap,
		USDCBalance:    domain.FormatUnits(snap.USDCBalance(), domain.USDCDecimals),
	})
}
