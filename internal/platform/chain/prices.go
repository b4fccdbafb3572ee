package chain

import (
	"context"
	"fmt"

	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/sui"
)

// GetPrices dev-inspects <package>::market::get_prices for one market and
// returns its (yes, no) prices.
func (c *Client) GetPrices(ctx context.Context, m domain.Market) (domain.Prices, error) {
	id, err := sui.ParseAddress(m.ID)
	if err != nil {
		return domain.Prices{}, fmt.Errorf("chain: get prices: %w", err)
	}

	tx := sui.NewTransaction()
	market := tx.SharedObject(id, m.InitialSharedVersion, false)
	tx.MoveCall(sui.Target{Package: c.pkg, Module: "market", Function: "get_prices"}, market)

	results, err := c.DevInspect(ctx, tx)
	if err != nil {
		return domain.Prices{}, fmt.Errorf("chain: get prices %s: %w", m.ID, err)
	}
	if len(results) == 0 || len(results[0]) != 2 {
		return domain.Prices{}, fmt.Errorf("chain: get prices %s: %w: expected two return values", m.ID, domain.ErrDecode)
	}

	yes, ok := sui.DecodeU64(results[0][0].Bytes)
	if !ok {
		return domain.Prices{}, fmt.Errorf("chain: get prices %s: %w: yes price is not a u64", m.ID, domain.ErrDecode)
	}
	no, ok := sui.DecodeU64(results[0][1].Bytes)
	if !ok {
		return domain.Prices{}, fmt.Errorf("chain: get prices %s: %w: no price is not a u64", m.ID, domain.ErrDecode)
	}
	return domain.Prices{Yes: yes, No: no}, nil
}
