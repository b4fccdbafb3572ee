package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/nereus-labs/nereus/internal/domain"
)

// SelectionService owns per-session selection state.
type SelectionService struct {
	state *State
	now   func() time.Time
}

// NewSelectionService creates a SelectionService writing to state.
func NewSelectionService(state *State) *SelectionService {
	return &SelectionService{state: state, now: time.Now}
}

func (s *SelectionService) checkSession(session string) error {
	if strings.TrimSpace(session) == "" {
		return fmt.Errorf("selection: %w: session id is required", domain.ErrInvalidArgument)
	}
	return nil
}

// SelectTrade selects marketID and side together.
func (s *SelectionService) SelectTrade(session, marketID string, side domain.Side) (domain.Selection, error) {
	if err := s.checkSession(session); err != nil {
		return domain.Selection{}, err
	}
	if side != domain.SideYes && side != domain.SideNo {
		return domain.Selection{}, fmt.Errorf("selection: %w: side %q", domain.ErrInvalidArgument, side)
	}
	if _, ok := s.state.Market(marketID); !ok {
		return domain.Selection{}, fmt.Errorf("selection: market %s: %w", marketID, domain.ErrNotFound)
	}
	sel := domain.Selection{SessionID: session, MarketID: marketID, Side: side, UpdatedAt: s.now().UTC()}
	s.state.replaceSelection(sel)
	return sel, nil
}

// SetSelectedMarket changes the viewed market and clears the side. An empty
// marketID clears the selection.
func (s *SelectionService) SetSelectedMarket(session, marketID string) (domain.Selection, error) {
	if err := s.checkSession(session); err != nil {
		return domain.Selection{}, err
	}
	if marketID != "" {
		if _, ok := s.state.Market(marketID); !ok {
			return domain.Selection{}, fmt.Errorf("selection: market %s: %w", marketID, domain.ErrNotFound)
		}
	}
	sel := domain.Selection{SessionID: session, MarketID: marketID, UpdatedAt: s.now().UTC()}
	s.state.replaceSelection(sel)
	return sel, nil
}

// Get returns the session's selection; an unknown session has an empty one.
func (s *SelectionService) Get(session string) domain.Selection {
	if sel, ok := s.state.Selection(session); ok {
		return sel
	}
	return domain.Selection{SessionID: session}
}
