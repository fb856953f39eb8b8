package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/stakerise/internal/catalog"
	"github.com/alanyoungcy/stakerise/internal/domain"
	"github.com/alanyoungcy/stakerise/internal/reward"
	"github.com/alanyoungcy/stakerise/internal/validate"
)

// Position is a stored stake enriched with reward figures.
type Position struct {
	domain.Stake
	Symbol         string          `json:"symbol"`
	DurationMonths int             `json:"duration_months"`
	APY            decimal.Decimal `json:"apy"`
	Maturity       time.Time       `json:"maturity"`
	Mature         bool            `json:"mature"`
	Pending        decimal.Decimal `json:"pending_rewards"`
	// Projection is the simple-interest outcome at maturity, which is how
	// the contract pays out.
	Projection reward.Projection `json:"projection"`
	EarlyExit  *reward.Exit      `json:"early_exit,omitempty"`
	// Unconfigured is set when the stake's tier is missing from the catalog;
	// reward fields are then zero.
	Unconfigured bool `json:"unconfigured,omitempty"`
}

// AssetSummary aggregates a wallet's positions in one asset.
type AssetSummary struct {
	Asset            domain.Asset    `json:"asset"`
	Symbol           string          `json:"symbol"`
	ActiveStakes     int             `json:"active_stakes"`
	TotalStaked      decimal.Decimal `json:"total_staked"`
	PendingRewards   decimal.Decimal `json:"pending_rewards"`
	ProjectedRewards decimal.Decimal `json:"projected_rewards"`
}

// Summary aggregates a wallet's active positions per asset.
type Summary struct {
	Wallet string         `json:"wallet"`
	AsOf   time.Time      `json:"as_of"`
	Assets []AssetSummary `json:"assets"`
}

// RewardsService reports on the stakes synced for a wallet.
type RewardsService struct {
	catalog  *catalog.Catalog
	stakes   domain.StakeStore
	activity domain.ActivityStore
	logger   *slog.Logger
}

// NewRewardsService creates a RewardsService. activity may be nil.
func NewRewardsService(
	cat *catalog.Catalog,
	stakes domain.StakeStore,
	activity domain.ActivityStore,
	logger *slog.Logger,
) *RewardsService {
	return &RewardsService{
		catalog:  cat,
		stakes:   stakes,
		activity: activity,
		logger:   logger.With(slog.String("component", "rewards_service")),
	}
}

// Positions returns every stored stake of wallet with pending rewards,
// maturity and exit figures evaluated at now.
func (s *RewardsService) Positions(ctx context.Context, wallet string, now time.Time) ([]Position, error) {
	addr, err := validate.Address(wallet)
	if err != nil {
		return nil, err
	}

	stakes, err := s.stakes.ListByWallet(ctx, addr.Hex())
	if err != nil {
		return nil, fmt.Errorf("rewards_service: list stakes: %w", err)
	}

	positions := make([]Position, 0, len(stakes))
	for _, st := range stakes {
		positions = append(positions, s.position(ctx, st, now))
	}
	return positions, nil
}

func (s *RewardsService) position(ctx context.Context, st domain.Stake, now time.Time) Position {
	pos := Position{Stake: st, Pending: decimal.Zero}

	tok, err := s.catalog.Token(st.Asset)
	if err == nil {
		pos.Symbol = tok.Symbol
	}
	tier, err := s.catalog.Tier(st.Asset, st.Tier)
	if err != nil {
		s.logger.WarnContext(ctx, "stake tier not in catalog",
			slog.String("wallet", st.Wallet),
			slog.Int("index", st.Index),
			slog.String("error", err.Error()),
		)
		pos.Unconfigured = true
		return pos
	}

	pos.DurationMonths = tier.DurationMonths
	pos.APY = tier.APY
	pos.Maturity = reward.Maturity(st.StartTime, tier.DurationMonths)
	pos.Mature = reward.IsMature(st.StartTime, tier.DurationMonths, now)
	pos.Projection = reward.Project(st.Amount, tier.Terms(), false).Rounded()

	if !st.Active() {
		return pos
	}

	lastClaim := st.LastClaimTime
	if lastClaim.IsZero() {
		lastClaim = st.StartTime
	}
	pos.Pending = reward.Pending(st.Amount, tier.APY, lastClaim, now).Round(reward.RewardPlaces)
	if !pos.Mature {
		exit := reward.EarlyExit(st.Amount, tier.Penalty)
		pos.EarlyExit = &exit
	}
	return pos
}

// Summary aggregates the active positions of wallet per asset in catalog
// order.
func (s *RewardsService) Summary(ctx context.Context, wallet string, now time.Time) (Summary, error) {
	positions, err := s.Positions(ctx, wallet, now)
	if err != nil {
		return Summary{}, err
	}

	byAsset := make(map[domain.Asset]*AssetSummary)
	for _, p := range positions {
		if !p.Active() || p.Unconfigured {
			continue
		}
		agg, ok := byAsset[p.Asset]
		if !ok {
			agg = &AssetSummary{
				Asset:            p.Asset,
				Symbol:           p.Symbol,
				TotalStaked:      decimal.Zero,
				PendingRewards:   decimal.Zero,
				ProjectedRewards: decimal.Zero,
			}
			byAsset[p.Asset] = agg
		}
		agg.ActiveStakes++
		agg.TotalStaked = agg.TotalStaked.Add(p.Amount)
		agg.PendingRewards = agg.PendingRewards.Add(p.Pending)
		agg.ProjectedRewards = agg.ProjectedRewards.Add(p.Projection.TotalReward)
	}

	out := Summary{Wallet: positionsWallet(positions, wallet), AsOf: now.UTC(), Assets: []AssetSummary{}}
	for _, a := range s.catalog.Assets() {
		if agg, ok := byAsset[a]; ok {
			out.Assets = append(out.Assets, *agg)
		}
	}
	return out, nil
}

// Activity returns the activity log of wallet, newest first.
func (s *RewardsService) Activity(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.ActivityEntry, error) {
	addr, err := validate.Address(wallet)
	if err != nil {
		return nil, err
	}
	if s.activity == nil {
		return []domain.ActivityEntry{}, nil
	}
	entries, err := s.activity.List(ctx, addr.Hex(), opts)
	if err != nil {
		return nil, fmt.Errorf("rewards_service: list activity: %w", err)
	}
	return entries, nil
}

func positionsWallet(positions []Position, fallback string) string {
	if len(positions) > 0 {
		return positions[0].Wallet
	}
	if addr, err := validate.Address(fallback); err == nil {
		return addr.Hex()
	}
	return fallback
}
