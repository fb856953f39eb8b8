package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// StakeStore persists stake snapshots read from the staking contract.
type StakeStore interface {
	Upsert(ctx context.Context, stake Stake) error
	UpsertBatch(ctx context.Context, stakes []Stake) error
	Get(ctx context.Context, wallet string, index int) (Stake, error)
	ListByWallet(ctx context.Context, wallet string) ([]Stake, error)
	ListWallets(ctx context.Context) ([]string, error)
}

// ActivityEntry is a single activity log row.
type ActivityEntry struct {
	ID        int64          `json:"id"`
	Wallet    string         `json:"wallet,omitempty"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ActivityStore persists an append-only activity log.
type ActivityStore interface {
	Log(ctx context.Context, wallet, event string, detail map[string]any) error
	List(ctx context.Context, wallet string, opts ListOpts) ([]ActivityEntry, error)
}
