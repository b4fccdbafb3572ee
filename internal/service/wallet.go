package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/sui"
)

// WalletSource reads an address's coins and position tokens.
type WalletSource interface {
	USDCCoins(ctx context.Context, owner string) ([]domain.Coin, error)
	Positions(ctx context.Context, owner string, side domain.Side) ([]domain.Position, error)
}

// WalletService owns the wallet snapshots in State.
type WalletService struct {
	state  *State
	source WalletSource
	logger *slog.Logger
	now    func() time.Time
}

// NewWalletService creates a WalletService writing to state.
func NewWalletService(state *State, source WalletSource, logger *slog.Logger) *WalletService {
	return &WalletService{
		state:  state,
		source: source,
		logger: logger.With(slog.String("component", "wallet")),
		now:    time.Now,
	}
}

// FetchUser reads owner's USDC coins and YES/NO positions and replaces the
// stored snapshot. If any read fails the previous snapshot is kept.
func (s *WalletService) FetchUser(ctx context.Context, owner string) (domain.WalletSnapshot, error) {
	addr, err := sui.ParseAddress(owner)
	if err != nil {
		return domain.WalletSnapshot{}, fmt.Errorf("wallet: %w: %v", domain.ErrInvalidArgument, err)
	}
	key := addr.String()

	snap := domain.WalletSnapshot{Owner: key}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		coins, err := s.source.USDCCoins(gctx, key)
		snap.USDC = coins
		return err
	})
	g.Go(func() error {
		refs, err := s.source.Positions(gctx, key, domain.SideYes)
		snap.YesPositions = refs
		return err
	})
	g.Go(func() error {
		refs, err := s.source.Positions(gctx, key, domain.SideNo)
		snap.NoPositions = refs
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.WalletSnapshot{}, fmt.Errorf("wallet: fetch %s: %w", key, err)
	}

	snap.FetchedAt = s.now().UTC()
	s.state.replaceWallet(snap)
	s.logger.DebugContext(ctx, "wallet fetched",
		slog.String("owner", key),
		slog.Int("usdc_coins", len(snap.USDC)),
		slog.Int("yes_positions", len(snap.YesPositions)),
		slog.Int("no_positions", len(snap.NoPositions)),
	)
	return snap, nil
}

// Snapshot returns the stored snapshot for owner, fetching it if none exists.
func (s *WalletService) Snapshot(ctx context.Context, owner string) (domain.WalletSnapshot, error) {
	addr, err := sui.ParseAddress(owner)
	if err != nil {
		return domain.WalletSnapshot{}, fmt.Errorf("wallet: %w: %v", domain.ErrInvalidArgument, err)
	}
	if snap, ok := s.state.Wallet(addr.String()); ok {
		return snap, nil
	}
	return s.FetchUser(ctx, owner)
}
