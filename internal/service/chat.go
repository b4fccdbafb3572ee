package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/metrics"
)

var (
	ErrChatFieldsRequired = fmt.Errorf("%w: address and message are required", domain.ErrInvalidArgument)
	ErrChatTooLong        = fmt.Errorf("%w: message longer than %d characters", domain.ErrInvalidArgument, domain.MaxChatMessageLen)
)

var validate = validator.New()

// chatInput is a post after trimming. max counts runes.
type chatInput struct {
	MarketID string `validate:"required"`
	Address  string `validate:"required"`
	Message  string `validate:"required,max=1000"`
}

// ChatLimit configures per-address posting limits. A zero Limit disables
// limiting.
type ChatLimit struct {
	Limit  int
	Window time.Duration
}

// ChatService appends and lists chat messages per market.
type ChatService struct {
	store   domain.ChatStore
	limiter domain.RateLimiter
	limit   ChatLimit
	bus     domain.SignalBus
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewChatService creates a ChatService. limiter and bus may be nil.
func NewChatService(store domain.ChatStore, limiter domain.RateLimiter, limit ChatLimit, bus domain.SignalBus, m *metrics.Metrics, logger *slog.Logger) *ChatService {
	return &ChatService{
		store:   store,
		limiter: limiter,
		limit:   limit,
		bus:     bus,
		metrics: m,
		logger:  logger.With(slog.String("component", "chat")),
		now:     time.Now,
	}
}

// List returns the market's messages in insertion order, never nil.
func (s *ChatService) List(ctx context.Context, marketID string) ([]domain.ChatMessage, error) {
	msgs, err := s.store.List(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("chat: list %s: %w", marketID, err)
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	return msgs, nil
}

// Post validates and appends a message. Validation looks at the trimmed
// fields; the message is stored as sent, under marketID exactly as List
// looks it up. Invalid input changes nothing.
func (s *ChatService) Post(ctx context.Context, marketID, address, message string) (domain.ChatMessage, error) {
	in := chatInput{
		MarketID: strings.TrimSpace(marketID),
		Address:  strings.TrimSpace(address),
		Message:  strings.TrimSpace(message),
	}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "max" {
					return domain.ChatMessage{}, ErrChatTooLong
				}
			}
		}
		return domain.ChatMessage{}, ErrChatFieldsRequired
	}

	if s.limiter != nil && s.limit.Limit > 0 {
		ok, err := s.limiter.Allow(ctx, "chat:"+in.Address, s.limit.Limit, s.limit.Window)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "chat rate limiter unavailable", slog.String("error", err.Error()))
		case !ok:
			return domain.ChatMessage{}, fmt.Errorf("chat: %s: %w", in.Address, domain.ErrRateLimited)
		}
	}

	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		MarketID:  marketID,
		Address:   in.Address,
		Message:   message,
		Timestamp: s.now().UTC(),
	}
	if err := s.store.Append(ctx, msg); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("chat: append %s: %w", marketID, err)
	}
	s.metrics.ChatMessage()

	if s.bus != nil {
		payload, _ := json.Marshal(msg)
		if err := s.bus.Publish(ctx, domain.ChannelChatPrefix+marketID, payload); err != nil {
			s.logger.WarnContext(ctx, "chat publish failed", slog.String("error", err.Error()))
		}
	}
	return msg, nil
}
