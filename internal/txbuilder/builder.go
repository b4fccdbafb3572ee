// Package txbuilder assembles unsigned market transactions. Builders do no
// I/O: callers resolve object ids beforehand and sign the result elsewhere.
// Every builder validates its parameters before touching the transaction, so
// a rejected call leaves it unchanged.
package txbuilder

import (
	"fmt"

	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/sui"
)

const marketModule = "market"

var publicShareObject = sui.Target{
	Package:  sui.MustParseAddress("0x2"),
	Module:   "transfer",
	Function: "public_share_object",
}

// Builder composes calls against one deployed market package.
type Builder struct {
	pkg sui.Address
}

// New returns a builder for the package at pkg.
func New(pkg sui.Address) *Builder {
	return &Builder{pkg: pkg}
}

// Package returns the package the builder targets.
func (b *Builder) Package() sui.Address {
	return b.pkg
}

func (b *Builder) target(function string) sui.Target {
	return sui.Target{Package: b.pkg, Module: marketModule, Function: function}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("txbuilder: %w: %s", domain.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// CreateMarketParams are the inputs of CreateMarket. Objects holds the two
// objects create_market expects; the first is passed to create_market and
// both are shared afterwards.
type CreateMarketParams struct {
	Objects     []sui.Address
	Topic       string
	Description string
	StartTime   uint64 // unix ms
	EndTime     uint64 // unix ms
}

// CreateMarket appends market::create_market followed by sharing both
// objects.
func (b *Builder) CreateMarket(tx *sui.Transaction, p CreateMarketParams) (*sui.Transaction, error) {
	if len(p.Objects) != 2 {
		return nil, invalid("create market needs 2 objects, got %d", len(p.Objects))
	}
	if p.Objects[0].IsZero() || p.Objects[1].IsZero() {
		return nil, invalid("create market object id is empty")
	}
	if p.Topic == "" {
		return nil, invalid("topic is required")
	}
	if p.EndTime <= p.StartTime {
		return nil, invalid("end time %d is not after start time %d", p.EndTime, p.StartTime)
	}

	tx.MoveCall(b.target("create_market"),
		tx.Object(p.Objects[0]),
		tx.PureString(p.Topic),
		tx.PureString(p.Description),
		tx.PureU64(p.StartTime),
		tx.PureU64(p.EndTime),
	)
	tx.MoveCall(publicShareObject, tx.Object(p.Objects[0]))
	tx.MoveCall(publicShareObject, tx.Object(p.Objects[1]))
	return tx, nil
}

// BuyParams are the inputs of BuyPosition.
type BuyParams struct {
	Side domain.Side
	// USDC lists the user's USDC coins. All are merged into the first before
	// the payment is split off.
	USDC   []sui.Address
	Market sui.Address
	// Positions lists existing position tokens for Side. The first one is
	// topped up; when empty a new token is minted and sent to Recipient.
	Positions []sui.Address
	Amount    uint64
	Recipient sui.Address
}

// BuyPosition appends a bet of Amount USDC on Side.
func (b *Builder) BuyPosition(tx *sui.Transaction, p BuyParams) (*sui.Transaction, error) {
	if len(p.USDC) == 0 {
		return nil, fmt.Errorf("txbuilder: %w", domain.ErrNoFundingCoin)
	}
	if p.Side != domain.SideYes && p.Side != domain.SideNo {
		return nil, invalid("side %q", p.Side)
	}
	if p.Market.IsZero() {
		return nil, invalid("market is required")
	}
	if p.Amount == 0 {
		return nil, invalid("amount must be positive")
	}
	if len(p.Positions) == 0 && p.Recipient.IsZero() {
		return nil, invalid("recipient is required when minting a position")
	}

	primary := tx.Object(p.USDC[0])
	if len(p.USDC) > 1 {
		rest := make([]sui.Argument, 0, len(p.USDC)-1)
		for _, id := range p.USDC[1:] {
			rest = append(rest, tx.Object(id))
		}
		tx.MergeCoins(primary, rest...)
	}
	payment := tx.SplitCoins(primary, tx.PureU64(p.Amount))[0]

	var position sui.Argument
	minted := len(p.Positions) == 0
	if minted {
		position = tx.MoveCall(b.target("zero_"+string(p.Side)), tx.Object(p.Market))
	} else {
		position = tx.Object(p.Positions[0])
	}

	tx.MoveCall(b.target("bet_"+string(p.Side)),
		position,
		tx.Object(p.Market),
		tx.PureU64(p.Amount),
		payment,
		tx.Clock(),
	)

	if minted {
		tx.TransferObjects([]sui.Argument{position}, tx.PureAddress(p.Recipient))
	}
	return tx, nil
}

// Order roles and tokens as the orderbook encodes them.
const (
	RoleBuy  uint8 = 0
	RoleSell uint8 = 1

	TokenYes uint8 = 0
	TokenNo  uint8 = 1
)

// OrderParams are the inputs of CreateOrder.
type OrderParams struct {
	Market      sui.Address
	FundingCoin sui.Address
	Maker       sui.Address
	MakerAmount uint64
	TakerAmount uint64
	Role        uint8
	Token       uint8
	Expiration  uint64
	Salt        uint64
}

// CreateOrder deposits the funding coin into the market and posts a limit
// order.
func (b *Builder) CreateOrder(tx *sui.Transaction, p OrderParams) (*sui.Transaction, error) {
	if p.FundingCoin.IsZero() {
		return nil, fmt.Errorf("txbuilder: %w", domain.ErrNoFundingCoin)
	}
	if p.Market.IsZero() {
		return nil, invalid("market is required")
	}
	if p.Maker.IsZero() {
		return nil, invalid("maker is required")
	}
	if p.MakerAmount == 0 {
		return nil, invalid("maker amount must be positive")
	}
	if p.Role > RoleSell {
		return nil, invalid("role %d", p.Role)
	}
	if p.Token > TokenNo {
		return nil, invalid("token %d", p.Token)
	}

	market := tx.Object(p.Market)
	tx.MoveCall(b.target("deposit_usdc"), market, tx.Object(p.FundingCoin))

	order := tx.MoveCall(b.target("create_order"),
		tx.PureAddress(p.Maker),
		tx.PureU64(p.MakerAmount),
		tx.PureU64(p.TakerAmount),
		tx.PureU8(p.Role),
		tx.PureU8(p.Token),
		tx.PureU64(p.Expiration),
		tx.PureU64(p.Salt),
	)
	tx.MoveCall(b.target("post_order"), market, order, tx.Clock())
	return tx, nil
}
