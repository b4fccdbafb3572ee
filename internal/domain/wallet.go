package domain

import (
	"time"

	"github.com/nereus-labs/nereus/internal/sui"
)

// Coin is an owned coin object and its balance in base units.
type Coin struct {
	Ref     sui.ObjectRef `json:"ref"`
	Balance uint64        `json:"balance"`
}

// Position is a YES or NO token together with the market it was minted
// for. MarketID is empty when the token content did not name one.
type Position struct {
	Ref      sui.ObjectRef `json:"ref"`
	MarketID string        `json:"market_id,omitempty"`
}

// WalletSnapshot is what an address holds that matters for trading. It is
// replaced wholesale on every fetch.
type WalletSnapshot struct {
	Owner        string     `json:"owner"`
	USDC         []Coin     `json:"usdc"`
	YesPositions []Position `json:"yes_positions"`
	NoPositions  []Position `json:"no_positions"`
	FetchedAt    time.Time  `json:"fetched_at"`
}

// Positions returns the position tokens held for side.
func (w WalletSnapshot) Positions(side Side) []Position {
	if side == SideNo {
		return w.NoPositions
	}
	return w.YesPositions
}

// PositionsFor returns the tokens held for side that belong to marketID.
// Tokens of other markets, or of no known market, are never returned.
func (w WalletSnapshot) PositionsFor(side Side, marketID string) []sui.ObjectRef {
	want, err := sui.ParseAddress(marketID)
	if err != nil {
		return nil
	}
	var out []sui.ObjectRef
	for _, p := range w.Positions(side) {
		if id, err := sui.ParseAddress(p.MarketID); err == nil && id == want {
			out = append(out, p.Ref)
		}
	}
	return out
}

// USDCBalance sums the balances of all USDC coins.
func (w WalletSnapshot) USDCBalance() uint64 {
	var total uint64
	for _, c := range w.USDC {
		total += c.Balance
	}
	return total
}
