// Package memory holds process-lifetime implementations of the domain
// stores. Contents are lost on restart.
package memory

import (
	"context"
	"sync"

	"github.com/nereus-labs/nereus/internal/domain"
)

// ChatStore keeps chat messages per market in insertion order.
type ChatStore struct {
	mu       sync.RWMutex
	messages map[string][]domain.ChatMessage
}

// NewChatStore returns an empty ChatStore.
func NewChatStore() *ChatStore {
	return &ChatStore{messages: make(map[string][]domain.ChatMessage)}
}

func (s *ChatStore) Append(_ context.Context, msg domain.ChatMessage) error {
	s.mu.Lock()
	s.messages[msg.MarketID] = append(s.messages[msg.MarketID], msg)
	s.mu.Unlock()
	return nil
}

// List returns a copy of the market's messages; an unknown market yields an
// empty, non-nil slice.
func (s *ChatStore) List(_ context.Context, marketID string) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChatMessage, len(s.messages[marketID]))
	copy(out, s.messages[marketID])
	return out, nil
}

var _ domain.ChatStore = (*ChatStore)(nil)
