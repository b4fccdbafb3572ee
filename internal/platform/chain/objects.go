package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/sui"
)

// maxPages bounds pagination so a misbehaving indexer cannot loop forever.
const maxPages = 200

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type objectNode struct {
	Address string `json:"address"`
	Version U64    `json:"version"`
	Digest  string `json:"digest"`
	Owner   struct {
		Typename             string `json:"__typename"`
		InitialSharedVersion *U64   `json:"initialSharedVersion"`
	} `json:"owner"`
	CoinBalance  *U64 `json:"coinBalance"`
	AsMoveObject *struct {
		Contents struct {
			JSON json.RawMessage `json:"json"`
		} `json:"contents"`
	} `json:"asMoveObject"`
}

type objectPage struct {
	PageInfo pageInfo     `json:"pageInfo"`
	Nodes    []objectNode `json:"nodes"`
}

const marketObjectsQuery = `
	query MarketObjects($type: String!, $first: Int!, $after: String) {
		objects(filter: { type: $type }, first: $first, after: $after) {
			pageInfo { hasNextPage endCursor }
			nodes {
				address
				version
				digest
				owner {
					__typename
					... on Shared { initialSharedVersion }
				}
				asMoveObject { contents { json } }
			}
		}
	}
`

const ownedObjectsQuery = `
	query OwnedObjects($owner: SuiAddress!, $type: String!, $first: Int!, $after: String) {
		address(address: $owner) {
			objects(filter: { type: $type }, first: $first, after: $after) {
				pageInfo { hasNextPage endCursor }
				nodes {
					address
					version
					digest
					asMoveObject { contents { json } }
				}
			}
		}
	}
`

const coinsQuery = `
	query Coins($owner: SuiAddress!, $type: String!, $first: Int!, $after: String) {
		address(address: $owner) {
			coins(type: $type, first: $first, after: $after) {
				pageInfo { hasNextPage endCursor }
				nodes { address version digest coinBalance }
			}
		}
	}
`

// paginate runs query page by page. extract pulls the page out of the data
// payload; a nil page ends iteration.
func (c *Client) paginate(ctx context.Context, query string, vars map[string]any, extract func(json.RawMessage) (*objectPage, error)) ([]objectNode, error) {
	var (
		nodes []objectNode
		after any
	)
	for i := 0; i < maxPages; i++ {
		v := make(map[string]any, len(vars)+2)
		for k, val := range vars {
			v[k] = val
		}
		v["first"] = c.pageSize
		v["after"] = after

		data, err := c.doQuery(ctx, query, v)
		if err != nil {
			return nil, err
		}
		page, err := extract(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
		}
		if page == nil {
			return nodes, nil
		}
		nodes = append(nodes, page.Nodes...)
		if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor == "" {
			return nodes, nil
		}
		after = page.PageInfo.EndCursor
	}
	return nil, fmt.Errorf("%w: more than %d pages", domain.ErrUpstream, maxPages)
}

// QueryMarketObjects returns every market object of the package, decoded.
// Prices are not filled in.
func (c *Client) QueryMarketObjects(ctx context.Context) ([]domain.Market, error) {
	nodes, err := c.paginate(ctx, marketObjectsQuery, map[string]any{"type": c.MarketType()},
		func(data json.RawMessage) (*objectPage, error) {
			var result struct {
				Objects objectPage `json:"objects"`
			}
			if err := json.Unmarshal(data, &result); err != nil {
				return nil, err
			}
			return &result.Objects, nil
		})
	if err != nil {
		return nil, fmt.Errorf("chain: query markets: %w", err)
	}

	markets := make([]domain.Market, 0, len(nodes))
	for _, n := range nodes {
		m, err := decodeMarket(n)
		if err != nil {
			return nil, fmt.Errorf("chain: query markets: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, nil
}

func addressPage(field string) func(json.RawMessage) (*objectPage, error) {
	return func(data json.RawMessage) (*objectPage, error) {
		var result struct {
			Address map[string]objectPage `json:"address"`
		}
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, err
		}
		if result.Address == nil {
			return nil, nil
		}
		page, ok := result.Address[field]
		if !ok {
			return nil, nil
		}
		return &page, nil
	}
}

func toRef(n objectNode) (sui.ObjectRef, error) {
	id, err := sui.ParseAddress(n.Address)
	if err != nil {
		return sui.ObjectRef{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return sui.ObjectRef{ObjectID: id, Version: uint64(n.Version), Digest: n.Digest}, nil
}

// OwnedObjects returns references to the objects of moveType owned by owner.
func (c *Client) OwnedObjects(ctx context.Context, owner, moveType string) ([]sui.ObjectRef, error) {
	nodes, err := c.paginate(ctx, ownedObjectsQuery,
		map[string]any{"owner": owner, "type": moveType}, addressPage("objects"))
	if err != nil {
		return nil, fmt.Errorf("chain: owned objects: %w", err)
	}
	refs := make([]sui.ObjectRef, 0, len(nodes))
	for _, n := range nodes {
		ref, err := toRef(n)
		if err != nil {
			return nil, fmt.Errorf("chain: owned objects: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Coins returns the coins of coinType owned by owner. An empty coinType uses
// the configured USDC type.
func (c *Client) Coins(ctx context.Context, owner, coinType string) ([]domain.Coin, error) {
	if coinType == "" {
		coinType = c.usdcType
	}
	nodes, err := c.paginate(ctx, coinsQuery,
		map[string]any{"owner": owner, "type": coinType}, addressPage("coins"))
	if err != nil {
		return nil, fmt.Errorf("chain: coins: %w", err)
	}
	coins := make([]domain.Coin, 0, len(nodes))
	for _, n := range nodes {
		ref, err := toRef(n)
		if err != nil {
			return nil, fmt.Errorf("chain: coins: %w", err)
		}
		var bal uint64
		if n.CoinBalance != nil {
			bal = uint64(*n.CoinBalance)
		}
		coins = append(coins, domain.Coin{Ref: ref, Balance: bal})
	}
	return coins, nil
}

// USDCCoins returns owner's USDC coins.
func (c *Client) USDCCoins(ctx context.Context, owner string) ([]domain.Coin, error) {
	return c.Coins(ctx, owner, c.usdcType)
}

// Positions returns owner's position tokens for side, each tagged with the
// market named in its content.
func (c *Client) Positions(ctx context.Context, owner string, side domain.Side) ([]domain.Position, error) {
	nodes, err := c.paginate(ctx, ownedObjectsQuery,
		map[string]any{"owner": owner, "type": c.PositionType(side)}, addressPage("objects"))
	if err != nil {
		return nil, fmt.Errorf("chain: positions: %w", err)
	}
	positions := make([]domain.Position, 0, len(nodes))
	for _, n := range nodes {
		p, err := decodePosition(n)
		if err != nil {
			return nil, fmt.Errorf("chain: positions: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, nil
}

// positionContent is the part of a position token's content we read.
type positionContent struct {
	MarketID string `json:"market_id"`
}

func decodePosition(n objectNode) (domain.Position, error) {
	ref, err := toRef(n)
	if err != nil {
		return domain.Position{}, err
	}
	p := domain.Position{Ref: ref}
	if n.AsMoveObject == nil || len(n.AsMoveObject.Contents.JSON) == 0 {
		return p, nil
	}
	var content positionContent
	if err := json.Unmarshal(n.AsMoveObject.Contents.JSON, &content); err != nil {
		return domain.Position{}, fmt.Errorf("%w: position %s content: %v", domain.ErrDecode, n.Address, err)
	}
	if content.MarketID != "" {
		id, err := sui.ParseAddress(content.MarketID)
		if err != nil {
			return domain.Position{}, fmt.Errorf("%w: position %s market_id: %v", domain.ErrDecode, n.Address, err)
		}
		p.MarketID = id.String()
	}
	return p, nil
}
