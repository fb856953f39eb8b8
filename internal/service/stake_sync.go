package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/stakerise/internal/catalog"
	"github.com/alanyoungcy/stakerise/internal/chain"
	"github.com/alanyoungcy/stakerise/internal/domain"
	"github.com/alanyoungcy/stakerise/internal/validate"
)

// syncLockKey names the distributed lock that keeps one syncer active.
const syncLockKey = "stake-sync"

// StakeReader reads a wallet's stakes from the staking contract.
type StakeReader interface {
	UserStakes(ctx context.Context, wallet common.Address) ([]domain.Stake, error)
}

// TierConfigReader reads the contract's own tier configuration.
type TierConfigReader interface {
	StakingConfig(ctx context.Context, asset domain.Asset, tier int) (chain.TierConfig, error)
}

// SyncerConfig tunes the StakeSyncer.
type SyncerConfig struct {
	Interval        time.Duration
	LockTTL         time.Duration
	RetryMaxElapsed time.Duration
	// Wallets are synced on every run in addition to stored wallets.
	Wallets []string
}

// SyncResult reports one sync run.
type SyncResult struct {
	Wallets int  `json:"wallets"`
	Stakes  int  `json:"stakes"`
	Failed  int  `json:"failed"`
	Skipped bool `json:"skipped"`
}

// StakeSyncer periodically copies on-chain stakes into the stake store.
type StakeSyncer struct {
	reader   StakeReader
	stakes   domain.StakeStore
	activity domain.ActivityStore
	locks    domain.LockManager
	bus      domain.SignalBus
	cfg      SyncerConfig
	logger   *slog.Logger

	newBackOff func() backoff.BackOff
	now        func() time.Time
}

// NewStakeSyncer creates a StakeSyncer. activity, locks and bus may be nil.
func NewStakeSyncer(
	reader StakeReader,
	stakes domain.StakeStore,
	activity domain.ActivityStore,
	locks domain.LockManager,
	bus domain.SignalBus,
	cfg SyncerConfig,
	logger *slog.Logger,
) *StakeSyncer {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.Interval
	}
	if cfg.RetryMaxElapsed <= 0 {
		cfg.RetryMaxElapsed = time.Minute
	}
	return &StakeSyncer{
		reader:   reader,
		stakes:   stakes,
		activity: activity,
		locks:    locks,
		bus:      bus,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "stake_syncer")),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		now: time.Now,
	}
}

// Run syncs immediately and then on every interval until ctx is cancelled.
func (s *StakeSyncer) Run(ctx context.Context) error {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *StakeSyncer) runOnce(ctx context.Context) {
	res, err := s.SyncOnce(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "stake sync failed", slog.String("error", err.Error()))
		return
	}
	if res.Skipped {
		s.logger.DebugContext(ctx, "stake sync skipped, lock held elsewhere")
		return
	}
	s.logger.InfoContext(ctx, "stake sync complete",
		slog.Int("wallets", res.Wallets),
		slog.Int("stakes", res.Stakes),
		slog.Int("failed", res.Failed),
	)
}

// SyncOnce syncs every tracked wallet. A wallet that keeps failing after
// retries is counted in SyncResult.Failed and does not stop the run.
func (s *StakeSyncer) SyncOnce(ctx context.Context) (SyncResult, error) {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, syncLockKey, s.cfg.LockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			return SyncResult{Skipped: true}, nil
		}
		if err != nil {
			return SyncResult{}, fmt.Errorf("stake_syncer: acquire lock: %w", err)
		}
		defer unlock()
	}

	wallets, err := s.trackedWallets(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	res := SyncResult{Wallets: len(wallets)}
	for _, w := range wallets {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		n, err := s.syncWallet(ctx, w)
		if err != nil {
			res.Failed++
			s.logger.WarnContext(ctx, "wallet sync failed",
				slog.String("wallet", w.Hex()),
				slog.String("error", err.Error()),
			)
			continue
		}
		res.Stakes += n
	}

	s.logActivity(ctx, "", "sync.run", map[string]any{
		"wallets": res.Wallets,
		"stakes":  res.Stakes,
		"failed":  res.Failed,
	})
	return res, nil
}

// trackedWallets merges configured and stored wallets, deduplicated by
// address.
func (s *StakeSyncer) trackedWallets(ctx context.Context) ([]common.Address, error) {
	stored, err := s.stakes.ListWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("stake_syncer: list wallets: %w", err)
	}

	seen := make(map[common.Address]bool)
	var out []common.Address
	for _, raw := range append(append([]string{}, s.cfg.Wallets...), stored...) {
		addr, err := validate.Address(raw)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping invalid wallet", slog.String("wallet", raw))
			continue
		}
		if !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out, nil
}

func (s *StakeSyncer) syncWallet(ctx context.Context, wallet common.Address) (int, error) {
	stakes, err := backoff.Retry(ctx,
		func() ([]domain.Stake, error) {
			st, err := s.reader.UserStakes(ctx, wallet)
			if errors.Is(err, chain.ErrNoContract) || errors.Is(err, chain.ErrStakeLimit) {
				return nil, backoff.Permanent(err)
			}
			return st, err
		},
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxElapsedTime(s.cfg.RetryMaxElapsed),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.logger.DebugContext(ctx, "retrying stake read",
				slog.String("wallet", wallet.Hex()),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("stake_syncer: read stakes: %w", err)
	}

	previous, err := s.stakes.ListByWallet(ctx, wallet.Hex())
	if err != nil {
		return 0, fmt.Errorf("stake_syncer: load previous stakes: %w", err)
	}

	now := s.now().UTC()
	for i := range stakes {
		stakes[i].SyncedAt = now
	}
	if err := s.stakes.UpsertBatch(ctx, stakes); err != nil {
		return 0, fmt.Errorf("stake_syncer: store stakes: %w", err)
	}

	for _, ch := range diffStakes(previous, stakes) {
		s.logActivity(ctx, wallet.Hex(), ch.event, map[string]any{
			"index":  ch.stake.Index,
			"asset":  ch.stake.Asset.String(),
			"tier":   ch.stake.Tier,
			"amount": ch.stake.Amount.String(),
		})
	}

	s.publish(ctx, map[string]any{
		"event":     domain.ChannelStakeSynced,
		"wallet":    wallet.Hex(),
		"stakes":    len(stakes),
		"synced_at": now,
	})
	return len(stakes), nil
}

type stakeChange struct {
	event string
	stake domain.Stake
}

// diffStakes reports stakes that are new or have left the active state since
// the previous snapshot.
func diffStakes(previous, current []domain.Stake) []stakeChange {
	prev := make(map[int]domain.Stake, len(previous))
	for _, st := range previous {
		prev[st.Index] = st
	}

	var changes []stakeChange
	for _, st := range current {
		old, ok := prev[st.Index]
		switch {
		case !ok:
			changes = append(changes, stakeChange{event: "stake.opened", stake: st})
		case old.Active() && !st.Active():
			changes = append(changes, stakeChange{event: "stake.withdrawn", stake: st})
		case st.LastClaimTime.After(old.LastClaimTime):
			changes = append(changes, stakeChange{event: "stake.claimed", stake: st})
		}
	}
	return changes
}

func (s *StakeSyncer) publish(ctx context.Context, event map[string]any) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelStakeSynced, payload); err != nil {
		s.logger.WarnContext(ctx, "publish stake sync event failed", slog.String("error", err.Error()))
	}
	if err := s.bus.StreamAppend(ctx, domain.StreamActivity, payload); err != nil {
		s.logger.WarnContext(ctx, "append activity stream failed", slog.String("error", err.Error()))
	}
}

func (s *StakeSyncer) logActivity(ctx context.Context, wallet, event string, detail map[string]any) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Log(ctx, wallet, event, detail); err != nil {
		s.logger.WarnContext(ctx, "activity log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// VerifyCatalog compares each catalog tier with the contract's
// stakingConfigs and returns one message per differing field: minimum stake,
// lockup (in whole months), early-exit penalty (percent) and APY (the
// contract's annualRewardRate is in basis points). Read failures are
// returned as errors.
func VerifyCatalog(ctx context.Context, cat *catalog.Catalog, reader TierConfigReader) ([]string, error) {
	var mismatches []string
	for _, tok := range cat.Tokens() {
		for i, tier := range tok.Tiers {
			onChain, err := reader.StakingConfig(ctx, tok.Asset, i)
			if err != nil {
				return mismatches, fmt.Errorf("verify catalog %s tier %d: %w", tok.Symbol, i, err)
			}
			mismatches = append(mismatches, tierMismatches(tok.Symbol, i, tier, onChain)...)
		}
	}
	return mismatches, nil
}

// lockupMonth is the average calendar month used to express a lockup in
// months.
const lockupMonth = 365 * 24 * time.Hour / 12

func tierMismatches(symbol string, index int, tier catalog.Tier, onChain chain.TierConfig) []string {
	var out []string
	report := func(field string, catalogValue, chainValue any) {
		out = append(out, fmt.Sprintf("%s tier %d: %s %v in catalog, %v on chain",
			symbol, index, field, catalogValue, chainValue))
	}

	if !onChain.MinStake.Equal(tier.MinAmount) {
		report("min stake", tier.MinAmount, onChain.MinStake)
	}
	months := int(math.Round(float64(onChain.Lockup) / float64(lockupMonth)))
	if months != tier.DurationMonths {
		report("lockup months", tier.DurationMonths, months)
	}
	if onChain.EarlyUnstakePenalty != nil {
		if pen := decimal.NewFromBigInt(onChain.EarlyUnstakePenalty, 0); !pen.Equal(tier.Penalty) {
			report("penalty", tier.Penalty, pen)
		}
	}
	if onChain.AnnualRewardRate != nil {
		if apy := decimal.NewFromBigInt(onChain.AnnualRewardRate, -2); !apy.Equal(tier.APY) {
			report("apy", tier.APY, apy)
		}
	}
	return out
}
