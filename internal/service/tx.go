package service

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/metrics"
	"github.com/nereus-labs/nereus/internal/sui"
	"github.com/nereus-labs/nereus/internal/txbuilder"
)

// DefaultTxTTL is how long composed transactions stay retrievable.
const DefaultTxTTL = 10 * time.Minute

// BuyRequest asks for a buy-position transaction. USDC and Positions
// override the sender's wallet snapshot when set.
type BuyRequest struct {
	Sender    string
	MarketID  string
	Side      domain.Side
	Amount    uint64 // USDC base units
	USDC      []string
	Positions []string
}

// CreateMarketRequest asks for a create-market transaction.
type CreateMarketRequest struct {
	Sender      string
	Objects     []string
	Topic       string
	Description string
	StartTime   uint64
	EndTime     uint64
}

// OrderRequest asks for a limit order transaction. FundingCoin defaults to
// the sender's first USDC coin; a zero Salt is replaced by a random one.
type OrderRequest struct {
	Sender      string
	MarketID    string
	FundingCoin string
	MakerAmount uint64
	TakerAmount uint64
	Role        uint8
	Token       uint8
	Expiration  uint64
	Salt        uint64
}

// TxService resolves on-chain inputs from the current state, runs the pure
// builders and caches the result by digest.
type TxService struct {
	builder *txbuilder.Builder
	state   *State
	wallets *WalletService
	cache   domain.TxCache
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewTxService creates a TxService. A zero ttl uses DefaultTxTTL.
func NewTxService(builder *txbuilder.Builder, state *State, wallets *WalletService, cache domain.TxCache, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *TxService {
	if ttl <= 0 {
		ttl = DefaultTxTTL
	}
	return &TxService{
		builder: builder,
		state:   state,
		wallets: wallets,
		cache:   cache,
		ttl:     ttl,
		metrics: m,
		logger:  logger.With(slog.String("component", "tx")),
		now:     time.Now,
	}
}

func parseAddr(field, s string) (sui.Address, error) {
	a, err := sui.ParseAddress(s)
	if err != nil {
		return sui.Address{}, fmt.Errorf("tx: %w: %s: %v", domain.ErrInvalidArgument, field, err)
	}
	return a, nil
}

func parseAddrs(field string, ss []string) ([]sui.Address, error) {
	out := make([]sui.Address, 0, len(ss))
	for _, s := range ss {
		a, err := parseAddr(field, s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *TxService) market(id string) (domain.Market, sui.Address, error) {
	addr, err := parseAddr("market", id)
	if err != nil {
		return domain.Market{}, sui.Address{}, err
	}
	m, ok := s.state.Market(addr.String())
	if !ok {
		m, ok = s.state.Market(id)
	}
	if !ok {
		return domain.Market{}, sui.Address{}, fmt.Errorf("tx: market %s: %w", id, domain.ErrNotFound)
	}
	return m, addr, nil
}

func coinIDs(coins []domain.Coin) []sui.Address {
	out := make([]sui.Address, len(coins))
	for i, c := range coins {
		out[i] = c.Ref.ObjectID
	}
	return out
}

func refIDs(refs []sui.ObjectRef) []sui.Address {
	out := make([]sui.Address, len(refs))
	for i, r := range refs {
		out[i] = r.ObjectID
	}
	return out
}

// resolveWallet upgrades inputs that match the snapshot's owned objects.
func resolveWallet(tx *sui.Transaction, snap domain.WalletSnapshot) {
	var objs []sui.ObjectInput
	for _, c := range snap.USDC {
		objs = append(objs, sui.OwnedObjectInput(c.Ref))
	}
	for _, p := range snap.YesPositions {
		objs = append(objs, sui.OwnedObjectInput(p.Ref))
	}
	for _, p := range snap.NoPositions {
		objs = append(objs, sui.OwnedObjectInput(p.Ref))
	}
	tx.Resolve(objs...)
}

// BuildBuy composes a buy-position transaction for the sender.
func (s *TxService) BuildBuy(ctx context.Context, req BuyRequest) (domain.BuiltTx, error) {
	sender, err := parseAddr("sender", req.Sender)
	if err != nil {
		return domain.BuiltTx{}, err
	}
	m, marketID, err := s.market(req.MarketID)
	if err != nil {
		return domain.BuiltTx{}, err
	}

	snap, err := s.wallets.Snapshot(ctx, sender.String())
	if err != nil {
		return domain.BuiltTx{}, fmt.Errorf("tx: %w", err)
	}

	usdc := coinIDs(snap.USDC)
	if len(req.USDC) > 0 {
		if usdc, err = parseAddrs("usdc", req.USDC); err != nil {
			return domain.BuiltTx{}, err
		}
	}
	positions := refIDs(snap.PositionsFor(req.Side, marketID.String()))
	if len(req.Positions) > 0 {
		if positions, err = parseAddrs("positions", req.Positions); err != nil {
			return domain.BuiltTx{}, err
		}
	}

	tx := sui.NewTransaction()
	tx.SetSender(sender)
	if _, err := s.builder.BuyPosition(tx, txbuilder.BuyParams{
		Side:      req.Side,
		USDC:      usdc,
		Market:    marketID,
		Positions: positions,
		Amount:    req.Amount,
		Recipient: sender,
	}); err != nil {
		return domain.BuiltTx{}, err
	}

	tx.Resolve(sui.SharedObjectInput(marketID, m.InitialSharedVersion, true))
	resolveWallet(tx, snap)
	return s.finish(ctx, tx, domain.TxKindBuy)
}

// BuildCreateMarket composes a create-market transaction. The two objects
// are left for the wallet to resolve.
func (s *TxService) BuildCreateMarket(ctx context.Context, req CreateMarketRequest) (domain.BuiltTx, error) {
	sender, err := parseAddr("sender", req.Sender)
	if err != nil {
		return domain.BuiltTx{}, err
	}
	objs, err := parseAddrs("objects", req.Objects)
	if err != nil {
		return domain.BuiltTx{}, err
	}

	tx := sui.NewTransaction()
	tx.SetSender(sender)
	if _, err := s.builder.CreateMarket(tx, txbuilder.CreateMarketParams{
		Objects:     objs,
		Topic:       req.Topic,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}); err != nil {
		return domain.BuiltTx{}, err
	}
	if snap, ok := s.state.Wallet(sender.String()); ok {
		resolveWallet(tx, snap)
	}
	return s.finish(ctx, tx, domain.TxKindCreateMarket)
}

// BuildOrder composes a deposit-and-post-order transaction.
func (s *TxService) BuildOrder(ctx context.Context, req OrderRequest) (domain.BuiltTx, error) {
	maker, err := parseAddr("sender", req.Sender)
	if err != nil {
		return domain.BuiltTx{}, err
	}
	m, marketID, err := s.market(req.MarketID)
	if err != nil {
		return domain.BuiltTx{}, err
	}
	snap, err := s.wallets.Snapshot(ctx, maker.String())
	if err != nil {
		return domain.BuiltTx{}, fmt.Errorf("tx: %w", err)
	}

	var funding sui.Address
	switch {
	case req.FundingCoin != "":
		if funding, err = parseAddr("funding_coin", req.FundingCoin); err != nil {
			return domain.BuiltTx{}, err
		}
	case len(snap.USDC) > 0:
		funding = snap.USDC[0].Ref.ObjectID
	}

	salt := req.Salt
	if salt == 0 {
		id := uuid.New()
		salt = binary.LittleEndian.Uint64(id[:8])
	}

	tx := sui.NewTransaction()
	tx.SetSender(maker)
	if _, err := s.builder.CreateOrder(tx, txbuilder.OrderParams{
		Market:      marketID,
		FundingCoin: funding,
		Maker:       maker,
		MakerAmount: req.MakerAmount,
		TakerAmount: req.TakerAmount,
		Role:        req.Role,
		Token:       req.Token,
		Expiration:  req.Expiration,
		Salt:        salt,
	}); err != nil {
		return domain.BuiltTx{}, err
	}

	tx.Resolve(sui.SharedObjectInput(marketID, m.InitialSharedVersion, true))
	resolveWallet(tx, snap)
	return s.finish(ctx, tx, domain.TxKindOrder)
}

// finish serialises tx, computes its digest and caches it.
func (s *TxService) finish(ctx context.Context, tx *sui.Transaction, kind domain.TxKind) (domain.BuiltTx, error) {
	txJSON, err := json.Marshal(tx)
	if err != nil {
		return domain.BuiltTx{}, fmt.Errorf("tx: marshal: %w", err)
	}

	built := domain.BuiltTx{
		Kind:        kind,
		Transaction: txJSON,
		CreatedAt:   s.now().UTC(),
	}
	if sender, ok := tx.Sender(); ok {
		built.Sender = sender.String()
	}

	if unresolved := tx.Unresolved(); len(unresolved) > 0 {
		for _, id := range unresolved {
			built.Unresolved = append(built.Unresolved, id.String())
		}
		built.Digest = sui.Digest(txJSON)
	} else {
		kindBytes, err := tx.KindBytes()
		if err != nil {
			return domain.BuiltTx{}, fmt.Errorf("tx: encode: %w", err)
		}
		built.KindBytes = base64.StdEncoding.EncodeToString(kindBytes)
		built.Digest = sui.Digest(kindBytes)
	}

	s.metrics.TxBuilt(string(kind))
	if s.cache != nil {
		if err := s.cache.Put(ctx, built, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "tx cache write failed",
				slog.String("digest", built.Digest),
				slog.String("error", err.Error()),
			)
		}
	}
	s.logger.InfoContext(ctx, "transaction composed",
		slog.String("kind", string(kind)),
		slog.String("digest", built.Digest),
		slog.Int("unresolved", len(built.Unresolved)),
	)
	return built, nil
}

// Get returns a previously composed transaction.
func (s *TxService) Get(ctx context.Context, digest string) (domain.BuiltTx, error) {
	if s.cache == nil {
		return domain.BuiltTx{}, fmt.Errorf("tx %s: %w", digest, domain.ErrNotFound)
	}
	return s.cache.Get(ctx, digest)
}
