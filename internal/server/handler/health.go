package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nereus-labs/nereus/internal/domain"
)

// MarketLister exposes the current market list.
type MarketLister interface {
	List() domain.MarketList
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	markets MarketLister
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. markets may be nil.
func NewHealthHandler(markets MarketLister, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{markets: markets, logger: logger}
}

// HealthCheck responds with a simple JSON status indicating the server is
// alive, plus the age of the market list.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.markets != nil {
		list := h.markets.List()
		resp["markets"] = len(list.Markets)
		if !list.RefreshedAt.IsZero() {
			resp["refreshed_at"] = list.RefreshedAt.Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
