package domain

import "time"

// Selection is the per-session UI state: the market being viewed and the
// side chosen for a trade. It is never persisted.
type Selection struct {
	SessionID string    `json:"session_id"`
	MarketID  string    `json:"market_id,omitempty"`
	Side      Side      `json:"side,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
