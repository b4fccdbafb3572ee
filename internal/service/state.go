package service

import (
	"sync"

	"github.com/nereus-labs/nereus/internal/domain"
)

// State is the shared view the HTTP layer reads from. Each field has exactly
// one writer:
//
//	markets    - Aggregator
//	wallets    - WalletService
//	selections - SelectionService
//
// The write methods are unexported so only this package can call them, and
// every write replaces a value wholesale. Readers always receive copies.
type State struct {
	mu         sync.RWMutex
	markets    domain.MarketList
	wallets    map[string]domain.WalletSnapshot
	selections map[string]domain.Selection
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		wallets:    make(map[string]domain.WalletSnapshot),
		selections: make(map[string]domain.Selection),
	}
}

// Markets returns a copy of the current market list.
func (s *State) Markets() domain.MarketList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.markets.Clone()
}

// Market returns one market from the current list.
func (s *State) Market(id string) (domain.Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets.Find(id)
	return m.Clone(), ok
}

// Wallet returns the last snapshot fetched for owner.
func (s *State) Wallet(owner string) (domain.WalletSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[owner]
	return w, ok
}

// Selection returns the selection for session.
func (s *State) Selection(session string) (domain.Selection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sel, ok := s.selections[session]
	return sel, ok
}

func (s *State) replaceMarkets(list domain.MarketList) {
	list = list.Clone()
	s.mu.Lock()
	s.markets = list
	s.mu.Unlock()
}

func (s *State) replaceWallet(w domain.WalletSnapshot) {
	s.mu.Lock()
	s.wallets[w.Owner] = w
	s.mu.Unlock()
}

func (s *State) replaceSelection(sel domain.Selection) {
	s.mu.Lock()
	s.selections[sel.SessionID] = sel
	s.mu.Unlock()
}
