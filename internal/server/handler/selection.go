package handler

import (
	"log/slog"
	"net/http"

	"github.com/nereus-labs/nereus/internal/domain"
)

// SelectionService reads and updates per-session selections.
type SelectionService interface {
	SelectTrade(session, marketID string, side domain.Side) (domain.Selection, error)
	SetSelectedMarket(session, marketID string) (domain.Selection, error)
	Get(session string) domain.Selection
}

// SelectionHandler serves session selection state.
type SelectionHandler struct {
	selections SelectionService
	logger     *slog.Logger
}

// NewSelectionHandler creates a SelectionHandler.
func NewSelectionHandler(selections SelectionService, logger *slog.Logger) *SelectionHandler {
	return &SelectionHandler{selections: selections, logger: logHandler(logger, "selection")}
}

// updateSelectionRequest selects a market, and a side when one is given.
// An empty market id clears the selection.
type updateSelectionRequest struct {
	MarketID string `json:"market_id"`
	Side     string `json:"side"`
}

// GetSelection returns the session's selection.
// GET /api/sessions/{id}/selection
func (h *SelectionHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.selections.Get(pathParam(r, "id")))
}

// UpdateSelection replaces the session's selection.
// PUT /api/sessions/{id}/selection
func (h *SelectionHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	var req updateSelectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "update selection", err)
		return
	}

	session := pathParam(r, "id")
	var (
		sel domain.Selection
		err error
	)
	if req.Side == "" {
		sel, err = h.selections.SetSelectedMarket(session, req.MarketID)
	} else {
		var side domain.Side
		if side, err = domain.ParseSide(req.Side); err == nil {
			sel, err = h.selections.SelectTrade(session, req.MarketID, side)
		}
	}
	if err != nil {
		writeServiceError(w, r, h.logger, "update selection", err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}
