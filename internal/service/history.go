package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nereus-labs/nereus/internal/domain"
)

// historyLimit caps the number of points returned for one chart.
const historyLimit = 2000

// Timeframes maps chart timeframes to their lookback. ALL has none.
var Timeframes = map[string]time.Duration{
	"1H":  time.Hour,
	"6H":  6 * time.Hour,
	"1D":  24 * time.Hour,
	"1W":  7 * 24 * time.Hour,
	"1M":  30 * 24 * time.Hour,
	"ALL": 0,
}

// DefaultTimeframe is used when the caller does not pick one.
const DefaultTimeframe = "1D"

// HistoryService serves price history for charts.
type HistoryService struct {
	store domain.PriceHistoryStore
	state *State
	now   func() time.Time
}

// NewHistoryService creates a HistoryService. Without a store only the
// current price is returned.
func NewHistoryService(store domain.PriceHistoryStore, state *State) *HistoryService {
	return &HistoryService{store: store, state: state, now: time.Now}
}

// History returns the market's price points within timeframe, oldest first.
func (s *HistoryService) History(ctx context.Context, marketID, timeframe string) ([]domain.PricePoint, error) {
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}
	tf := strings.ToUpper(timeframe)
	lookback, ok := Timeframes[tf]
	if !ok {
		return nil, fmt.Errorf("history: %w: timeframe %q", domain.ErrInvalidArgument, timeframe)
	}
	m, ok := s.state.Market(marketID)
	if !ok {
		return nil, fmt.Errorf("history: market %s: %w", marketID, domain.ErrNotFound)
	}

	if s.store == nil {
		if m.Prices == nil {
			return []domain.PricePoint{}, nil
		}
		return []domain.PricePoint{{
			MarketID: m.ID,
			YesPrice: m.Prices.Yes,
			NoPrice:  m.Prices.No,
			Yes:      m.Yes,
			No:       m.No,
			Balance:  m.Balance,
			At:       s.state.Markets().RefreshedAt,
		}}, nil
	}

	var since time.Time
	if lookback > 0 {
		since = s.now().Add(-lookback)
	}
	points, err := s.store.ListByMarket(ctx, marketID, since, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("history: %s: %w", marketID, err)
	}
	if points == nil {
		points = []domain.PricePoint{}
	}
	return points, nil
}
