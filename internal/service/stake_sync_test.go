package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/stakerise/internal/catalog"
	"github.com/alanyoungcy/stakerise/internal/chain"
	"github.com/alanyoungcy/stakerise/internal/domain"
)

const otherWallet = "0x00000000219ab540356cbb839cbe05303d7705fa"

type fakeStakeReader struct {
	mu       sync.Mutex
	stakes   map[common.Address][]domain.Stake
	failures map[common.Address]int
	errs     map[common.Address]error
	calls    int
}

func (f *fakeStakeReader) UserStakes(_ context.Context, wallet common.Address) ([]domain.Stake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[wallet]; err != nil {
		return nil, err
	}
	if f.failures[wallet] > 0 {
		f.failures[wallet]--
		return nil, errors.New("rpc timeout")
	}
	out := make([]domain.Stake, len(f.stakes[wallet]))
	copy(out, f.stakes[wallet])
	return out, nil
}

func newTestSyncer(reader StakeReader, stakes domain.StakeStore, activity domain.ActivityStore, locks domain.LockManager, bus domain.SignalBus, wallets ...string) *StakeSyncer {
	s := NewStakeSyncer(reader, stakes, activity, locks, bus, SyncerConfig{
		Interval:        time.Hour,
		RetryMaxElapsed: 200 * time.Millisecond,
		Wallets:         wallets,
	}, discardLogger())
	s.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return s
}

func TestSyncOnce(t *testing.T) {
	a := common.HexToAddress(testWallet)
	b := common.HexToAddress(otherWallet)

	prior := sampleStakes(b.Hex())[0]
	store := newMemStakes(prior)

	withdrawn := prior
	withdrawn.Status = domain.StakeWithdrawn
	reader := &fakeStakeReader{
		stakes: map[common.Address][]domain.Stake{
			a: {sampleStakes(a.Hex())[0], sampleStakes(a.Hex())[1]},
			b: {withdrawn},
		},
		failures: map[common.Address]int{a: 2},
	}
	activity := &memActivity{}
	locks := &fakeLocks{}
	bus := &fakeBus{}
	syncer := newTestSyncer(reader, store, activity, locks, bus, testWallet, "bogus")
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	syncer.now = func() time.Time { return fixed }

	res, err := syncer.SyncOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SyncResult{Wallets: 2, Stakes: 3}, res)
	assert.Equal(t, 1, locks.acquired)
	assert.Equal(t, 1, locks.released)
	assert.Equal(t, 4, reader.calls, "two retries for the first wallet")

	stored, err := store.ListByWallet(context.Background(), a.Hex())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, fixed, stored[0].SyncedAt)

	got, err := store.Get(context.Background(), b.Hex(), 0)
	require.NoError(t, err)
	assert.False(t, got.Active())

	assert.ElementsMatch(t, []string{"stake.opened", "stake.opened", "stake.withdrawn", "sync.run"}, activity.events())

	require.Len(t, bus.published, 2)
	require.Len(t, bus.streamed, 2)
	assert.Equal(t, domain.ChannelStakeSynced, bus.published[0].channel)
	assert.Equal(t, domain.StreamActivity, bus.streamed[0].channel)
	var event map[string]any
	require.NoError(t, json.Unmarshal(bus.published[0].payload, &event))
	assert.Contains(t, []any{a.Hex(), b.Hex()}, event["wallet"])
}

func TestSyncOnceLockHeld(t *testing.T) {
	reader := &fakeStakeReader{}
	syncer := newTestSyncer(reader, newMemStakes(), nil, &fakeLocks{held: true}, nil, testWallet)

	res, err := syncer.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, reader.calls)
}

func TestSyncOnceWalletFailure(t *testing.T) {
	a := common.HexToAddress(testWallet)
	reader := &fakeStakeReader{errs: map[common.Address]error{a: chain.ErrNoContract}}
	syncer := newTestSyncer(reader, newMemStakes(), nil, nil, nil, testWallet)

	res, err := syncer.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, reader.calls, "permanent errors are not retried")

}

func TestSyncOnceStakeLimitIsNotRetried(t *testing.T) {
	a := common.HexToAddress(testWallet)
	reader := &fakeStakeReader{errs: map[common.Address]error{a: chain.ErrStakeLimit}}
	syncer := newTestSyncer(reader, newMemStakes(), nil, nil, nil, testWallet)

	res, err := syncer.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, reader.calls)
}

func TestSyncOnceRetriesExhausted(t *testing.T) {
	a := common.HexToAddress(testWallet)
	reader := &fakeStakeReader{errs: map[common.Address]error{a: errors.New("connection refused")}}
	store := newMemStakes()
	syncer := newTestSyncer(reader, store, nil, nil, nil, testWallet)

	res, err := syncer.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Greater(t, reader.calls, 1)

	wallets, err := store.ListWallets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestSyncerRunStopsOnCancel(t *testing.T) {
	reader := &fakeStakeReader{}
	syncer := newTestSyncer(reader, newMemStakes(), nil, nil, nil, testWallet)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- syncer.Run(ctx) }()

	require.Eventually(t, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()
		return reader.calls > 0
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDiffStakes(t *testing.T) {
	base := sampleStakes(testWallet)[0]
	claimed := base
	claimed.LastClaimTime = base.StartTime.Add(time.Hour)
	fresh := base
	fresh.Index = 9

	changes := diffStakes([]domain.Stake{base}, []domain.Stake{claimed, fresh})
	require.Len(t, changes, 2)
	assert.Equal(t, "stake.claimed", changes[0].event)
	assert.Equal(t, "stake.opened", changes[1].event)

	assert.Empty(t, diffStakes([]domain.Stake{base}, []domain.Stake{base}))
}

type fakeTierConfigs map[domain.Asset][]chain.TierConfig

func (f fakeTierConfigs) StakingConfig(_ context.Context, asset domain.Asset, tier int) (chain.TierConfig, error) {
	tiers := f[asset]
	if tier >= len(tiers) {
		return chain.TierConfig{}, errors.New("execution reverted")
	}
	return tiers[tier], nil
}

func btcTierConfig(minStake string, days int64, penalty, rateBps int64) chain.TierConfig {
	return chain.TierConfig{
		MinStake:            decimal.RequireFromString(minStake),
		Lockup:              time.Duration(days) * 24 * time.Hour,
		EarlyUnstakePenalty: big.NewInt(penalty),
		AnnualRewardRate:    big.NewInt(rateBps),
	}
}

func TestVerifyCatalog(t *testing.T) {
	cat, err := catalog.New(catalog.DefaultTokens()[1])
	require.NoError(t, err)

	t.Run("matching", func(t *testing.T) {
		mismatches, err := VerifyCatalog(context.Background(), cat, fakeTierConfigs{
			domain.AssetBTC: {
				btcTierConfig("0.1", 182, 20, 500),
				// 30-day months still round to 12.
				btcTierConfig("0.05", 360, 15, 750),
			},
		})
		require.NoError(t, err)
		assert.Empty(t, mismatches)
	})

	t.Run("min stake", func(t *testing.T) {
		mismatches, err := VerifyCatalog(context.Background(), cat, fakeTierConfigs{
			domain.AssetBTC: {
				btcTierConfig("0.1", 182, 20, 500),
				btcTierConfig("0.01", 365, 15, 750),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"BTC tier 1: min stake 0.05 in catalog, 0.01 on chain"}, mismatches)
	})

	t.Run("lockup penalty and apy", func(t *testing.T) {
		mismatches, err := VerifyCatalog(context.Background(), cat, fakeTierConfigs{
			domain.AssetBTC: {
				btcTierConfig("0.1", 365, 25, 500),
				btcTierConfig("0.05", 365, 15, 800),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"BTC tier 0: lockup months 6 in catalog, 12 on chain",
			"BTC tier 0: penalty 20 in catalog, 25 on chain",
			"BTC tier 1: apy 7.5 in catalog, 8 on chain",
		}, mismatches)
	})

	_, err = VerifyCatalog(context.Background(), cat, fakeTierConfigs{})
	assert.Error(t, err)
}
