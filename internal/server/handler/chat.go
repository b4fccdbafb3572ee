package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nereus-labs/nereus/internal/domain"
)

// ChatService appends and lists market chat messages.
type ChatService interface {
	List(ctx context.Context, marketID string) ([]domain.ChatMessage, error)
	Post(ctx context.Context, marketID, address, message string) (domain.ChatMessage, error)
}

// ChatHandler serves the per-market chat endpoint.
type ChatHandler struct {
	chat   ChatService
	logger *slog.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(chat ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logHandler(logger, "chat")}
}

type chatListResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
}

type chatPostRequest struct {
	Address string `json:"address"`
	Message string `json:"message"`
}

// ListMessages returns the market's messages in insertion order.
// GET /api/market/{marketId}/chat
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.List(r.Context(), pathParam(r, "marketId"))
	if err != nil {
		writeServiceError(w, r, h.logger, "list messages", err)
		return
	}
	writeJSON(w, http.StatusOK, chatListResponse{Messages: msgs})
}

// PostMessage appends a message.
// POST /api/market/{marketId}/chat
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req chatPostRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "address and message are required")
		return
	}

	msg, err := h.chat.Post(r.Context(), pathParam(r, "marketId"), req.Address, req.Message)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		writeServiceError(w, r, h.logger, "post message", err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
