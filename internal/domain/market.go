package domain

import "time"

// Prices is the pair of unit prices returned by the market contract, scaled
// by PriceScale.
type Prices struct {
	Yes uint64 `json:"yes"`
	No  uint64 `json:"no"`
}

// Market is one on-chain binary prediction market. Records are built fresh on
// every refresh and never patched in place.
type Market struct {
	ID                   string  `json:"id"`
	Digest               string  `json:"digest"`
	Version              uint64  `json:"version"`
	InitialSharedVersion uint64  `json:"initial_shared_version"`
	Topic                string  `json:"topic"`
	Description          string  `json:"description"`
	StartTime            int64   `json:"start_time"` // unix ms
	EndTime              int64   `json:"end_time"`   // unix ms
	Balance              uint64  `json:"balance"`
	Yes                  uint64  `json:"yes"`
	No                   uint64  `json:"no"`
	OracleConfig         string  `json:"oracle_config,omitempty"`
	Prices               *Prices `json:"prices,omitempty"`
}

// Clone returns a copy of m that shares no memory with it.
func (m Market) Clone() Market {
	if m.Prices != nil {
		p := *m.Prices
		m.Prices = &p
	}
	return m
}

// Start returns the market start as a time.
func (m Market) Start() time.Time {
	return time.UnixMilli(m.StartTime)
}

// End returns the market end as a time.
func (m Market) End() time.Time {
	return time.UnixMilli(m.EndTime)
}

// Ended reports whether the market has closed at now.
func (m Market) Ended(now time.Time) bool {
	return !now.Before(m.End())
}

// YesPercent is the share of the pool on YES, rounded to a whole percent.
// An empty pool is reported as 50/50.
func (m Market) YesPercent() int {
	total := m.Yes + m.No
	if total == 0 {
		return 50
	}
	return int((m.Yes*200 + total) / (2 * total))
}

// NoPercent is 100 minus YesPercent.
func (m Market) NoPercent() int {
	return 100 - m.YesPercent()
}

// MarketList is the full result of one refresh.
type MarketList struct {
	Markets     []Market  `json:"markets"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Clone returns a deep copy of l.
func (l MarketList) Clone() MarketList {
	out := MarketList{RefreshedAt: l.RefreshedAt}
	if l.Markets != nil {
		out.Markets = make([]Market, len(l.Markets))
		for i, m := range l.Markets {
			out.Markets[i] = m.Clone()
		}
	}
	return out
}

// Find returns the market with the given id.
func (l MarketList) Find(id string) (Market, bool) {
	for _, m := range l.Markets {
		if m.ID == id {
			return m, true
		}
	}
	return Market{}, false
}

// PricePoint is one stored price observation for charting.
type PricePoint struct {
	MarketID string    `json:"market_id"`
	YesPrice uint64    `json:"yes_price"`
	NoPrice  uint64    `json:"no_price"`
	Yes      uint64    `json:"yes"`
	No       uint64    `json:"no"`
	Balance  uint64    `json:"balance"`
	At       time.Time `json:"at"`
}
