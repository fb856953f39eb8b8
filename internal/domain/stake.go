package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StakeStatus is the lifecycle state of an on-chain stake.
type StakeStatus string

const (
	StakeActive    StakeStatus = "active"
	StakeWithdrawn StakeStatus = "withdrawn"
)

// Stake is a snapshot of one entry of the staking contract's userStakes list.
// Amount is expressed in whole tokens, not base units.
type Stake struct {
	Wallet        string          `json:"wallet"`
	Index         int             `json:"index"`
	Asset         Asset           `json:"asset"`
	Tier          int             `json:"tier"`
	Amount        decimal.Decimal `json:"amount"`
	StartTime     time.Time       `json:"start_time"`
	LastClaimTime time.Time       `json:"last_claim_time"`
	Status        StakeStatus     `json:"status"`
	SyncedAt      time.Time       `json:"synced_at"`
}

// Active reports whether the stake is still locked in the contract.
func (s Stake) Active() bool {
	return s.Status == StakeActive
}

// PoolInfo is the aggregate state reported by the staking contract.
type PoolInfo struct {
	TotalValueLocked   decimal.Decimal `json:"total_value_locked"`
	AvailableLiquidity decimal.Decimal `json:"available_liquidity"`
	TotalStakers       int64           `json:"total_stakers"`
}
