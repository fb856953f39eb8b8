package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/stakerise/internal/catalog"
	"github.com/alanyoungcy/stakerise/internal/domain"
	"github.com/alanyoungcy/stakerise/internal/reward"
	"github.com/alanyoungcy/stakerise/internal/validate"
)

// BalanceReader looks up a wallet's token balance in whole tokens.
type BalanceReader interface {
	Balance(ctx context.Context, asset domain.Asset, wallet common.Address) (decimal.Decimal, error)
}

// QuoteRequest is a projection request as entered by a user.
type QuoteRequest struct {
	Asset    domain.Asset
	Tier     int
	Amount   string
	Compound bool
	// Wallet, when set, is used to check the amount against its balance.
	Wallet string
}

// ProjectionView is a projection formatted for display.
type ProjectionView struct {
	MonthlyReward string `json:"monthly_reward"`
	TotalReward   string `json:"total_reward"`
	EffectiveAPY  string `json:"effective_apy"`
	FinalValue    string `json:"final_value"`
}

// Quote is the outcome of a projection request.
type Quote struct {
	Asset          domain.Asset       `json:"asset"`
	Symbol         string             `json:"symbol"`
	Tier           int                `json:"tier"`
	DurationMonths int                `json:"duration_months"`
	APY            decimal.Decimal    `json:"apy"`
	Principal      decimal.Decimal    `json:"principal"`
	Compound       bool               `json:"compound"`
	Projection     reward.Projection  `json:"projection"`
	Display        ProjectionView     `json:"display"`
	EarlyExit      reward.Exit        `json:"early_exit"`
	Problems       []validate.Problem `json:"problems,omitempty"`
}

// ProjectionService turns user input into reward projections.
type ProjectionService struct {
	catalog  *catalog.Catalog
	cache    domain.ProjectionCache
	balances BalanceReader
	logger   *slog.Logger
}

// NewProjectionService creates a ProjectionService. cache and balances may
// be nil.
func NewProjectionService(
	cat *catalog.Catalog,
	cache domain.ProjectionCache,
	balances BalanceReader,
	logger *slog.Logger,
) *ProjectionService {
	return &ProjectionService{
		catalog:  cat,
		cache:    cache,
		balances: balances,
		logger:   logger.With(slog.String("component", "projection_service")),
	}
}

// Catalog returns the tier catalog the service projects against.
func (s *ProjectionService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Quote validates req and projects it. Unknown assets, out-of-range tiers and
// unparseable amounts are returned as errors. Business-rule failures
// (minimum stake, balance) are reported in Quote.Problems alongside the
// projection.
func (s *ProjectionService) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	tok, err := s.catalog.Token(req.Asset)
	if err != nil {
		return Quote{}, err
	}
	tier, err := s.catalog.Tier(req.Asset, req.Tier)
	if err != nil {
		return Quote{}, err
	}
	principal, err := validate.ParsePrincipal(req.Amount)
	if err != nil {
		return Quote{}, err
	}

	balance := s.lookupBalance(ctx, req.Asset, req.Wallet)

	q := s.project(ctx, tok, req.Tier, tier, principal, req.Compound)
	q.Problems = validate.CheckStake(principal, tok.Symbol, tier, balance)
	return q, nil
}

// CompareTiers projects amount across every tier of asset.
func (s *ProjectionService) CompareTiers(ctx context.Context, asset domain.Asset, amount string, compound bool) ([]Quote, error) {
	tok, err := s.catalog.Token(asset)
	if err != nil {
		return nil, err
	}
	principal, err := validate.ParsePrincipal(amount)
	if err != nil {
		return nil, err
	}

	quotes := make([]Quote, 0, len(tok.Tiers))
	for i, tier := range tok.Tiers {
		q := s.project(ctx, tok, i, tier, principal, compound)
		q.Problems = validate.CheckStake(principal, tok.Symbol, tier, nil)
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (s *ProjectionService) project(ctx context.Context, tok catalog.Token, index int, tier catalog.Tier, principal decimal.Decimal, compound bool) Quote {
	p := s.cachedProjection(ctx, tok.Asset, index, tier, principal, compound)
	return Quote{
		Asset:          tok.Asset,
		Symbol:         tok.Symbol,
		Tier:           index,
		DurationMonths: tier.DurationMonths,
		APY:            tier.APY,
		Principal:      principal,
		Compound:       compound,
		Projection:     p.Rounded(),
		Display:        Display(p),
		EarlyExit:      reward.EarlyExit(principal, tier.Penalty),
	}
}

// cachedProjection consults the projection cache before running the engine.
// Cache failures are logged and otherwise ignored.
func (s *ProjectionService) cachedProjection(ctx context.Context, asset domain.Asset, index int, tier catalog.Tier, principal decimal.Decimal, compound bool) reward.Projection {
	if s.cache == nil {
		return reward.Project(principal, tier.Terms(), compound)
	}

	key := ProjectionKey(asset, index, principal, compound)
	var p reward.Projection
	err := s.cache.Get(ctx, key, &p)
	if err == nil {
		return p
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "projection cache get failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	p = reward.Project(principal, tier.Terms(), compound)
	if err := s.cache.Set(ctx, key, p); err != nil {
		s.logger.WarnContext(ctx, "projection cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return p
}

func (s *ProjectionService) lookupBalance(ctx context.Context, asset domain.Asset, wallet string) *decimal.Decimal {
	if wallet == "" || s.balances == nil {
		return nil
	}
	addr, err := validate.Address(wallet)
	if err != nil {
		return nil
	}
	bal, err := s.balances.Balance(ctx, asset, addr)
	if err != nil {
		s.logger.DebugContext(ctx, "balance lookup failed",
			slog.String("wallet", addr.Hex()),
			slog.String("asset", asset.String()),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return &bal
}

// ProjectionKey is the cache key of a projection. The catalog is fixed for
// the life of the process, so asset and tier index identify the terms.
func ProjectionKey(asset domain.Asset, tier int, principal decimal.Decimal, compound bool) string {
	return fmt.Sprintf("%s:%d:%s:%t", asset, tier, principal.String(), compound)
}

// Display formats a projection with fixed display precision.
func Display(p reward.Projection) ProjectionView {
	return ProjectionView{
		MonthlyReward: p.MonthlyReward.StringFixed(reward.RewardPlaces),
		TotalReward:   p.TotalReward.StringFixed(reward.RewardPlaces),
		EffectiveAPY:  p.EffectiveAPY.StringFixed(reward.PercentPlaces),
		FinalValue:    p.FinalValue.StringFixed(reward.RewardPlaces),
	}
}
