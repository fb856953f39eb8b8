package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/stakerise/internal/domain"
)

// StakeStore implements domain.StakeStore using PostgreSQL.
type StakeStore struct {
	pool *pgxpool.Pool
}

// NewStakeStore creates a new StakeStore backed by the given connection pool.
func NewStakeStore(pool *pgxpool.Pool) *StakeStore {
	return &StakeStore{pool: pool}
}

const upsertStakeQuery = `
	INSERT INTO stakes (
		wallet, stake_index, asset, tier, amount,
		start_time, last_claim_time, status, synced_at
	) VALUES (
		$1, $2, $3, $4, $5::numeric,
		$6, $7, $8, NOW()
	)
	ON CONFLICT (wallet, stake_index) DO UPDATE SET
		asset           = EXCLUDED.asset,
		tier            = EXCLUDED.tier,
		amount          = EXCLUDED.amount,
		start_time      = EXCLUDED.start_time,
		last_claim_time = EXCLUDED.last_claim_time,
		status          = EXCLUDED.status,
		synced_at       = NOW()`

func stakeArgs(st domain.Stake) []any {
	return []any{
		st.Wallet, st.Index, st.Asset.String(), st.Tier, st.Amount.String(),
		nullTime(st.StartTime), nullTime(st.LastClaimTime), string(st.Status),
	}
}

// Upsert inserts or updates a single stake snapshot.
func (s *StakeStore) Upsert(ctx context.Context, st domain.Stake) error {
	if _, err := s.pool.Exec(ctx, upsertStakeQuery, stakeArgs(st)...); err != nil {
		return fmt.Errorf("postgres: upsert stake %s/%d: %w", st.Wallet, st.Index, err)
	}
	return nil
}

// UpsertBatch inserts or updates multiple stakes in a single batch operation.
func (s *StakeStore) UpsertBatch(ctx context.Context, stakes []domain.Stake) error {
	if len(stakes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, st := range stakes {
		batch.Queue(upsertStakeQuery, stakeArgs(st)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range stakes {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert stake batch item %d: %w", i, err)
		}
	}
	return nil
}

const stakeCols = `wallet, stake_index, asset, tier, amount::text,
	start_time, last_claim_time, status, synced_at`

// scanStake scans a single stake row into a domain.Stake.
func scanStake(row pgx.Row) (domain.Stake, error) {
	var (
		st               domain.Stake
		asset, amount    string
		status           string
		start, lastClaim *time.Time
	)
	err := row.Scan(
		&st.Wallet, &st.Index, &asset, &st.Tier, &amount,
		&start, &lastClaim, &status, &st.SyncedAt,
	)
	if err != nil {
		return domain.Stake{}, err
	}

	if st.Asset, err = domain.ParseAsset(asset); err != nil {
		return domain.Stake{}, err
	}
	if st.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Stake{}, fmt.Errorf("amount %q: %w", amount, err)
	}
	if start != nil {
		st.StartTime = start.UTC()
	}
	if lastClaim != nil {
		st.LastClaimTime = lastClaim.UTC()
	}
	st.Status = domain.StakeStatus(status)
	return st, nil
}

// Get retrieves one stake by wallet and contract index.
func (s *StakeStore) Get(ctx context.Context, wallet string, index int) (domain.Stake, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+stakeCols+` FROM stakes WHERE wallet = $1 AND stake_index = $2`, wallet, index)
	st, err := scanStake(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Stake{}, fmt.Errorf("postgres: stake %s/%d: %w", wallet, index, domain.ErrNotFound)
		}
		return domain.Stake{}, fmt.Errorf("postgres: get stake %s/%d: %w", wallet, index, err)
	}
	return st, nil
}

// ListByWallet returns every stored stake of wallet ordered by index.
func (s *StakeStore) ListByWallet(ctx context.Context, wallet string) ([]domain.Stake, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+stakeCols+` FROM stakes WHERE wallet = $1 ORDER BY stake_index`, wallet)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stakes for %s: %w", wallet, err)
	}
	defer rows.Close()

	var stakes []domain.Stake
	for rows.Next() {
		st, err := scanStake(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan stake: %w", err)
		}
		stakes = append(stakes, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list stakes rows: %w", err)
	}
	return stakes, nil
}

// ListWallets returns the distinct wallets that hold at least one active
// stake.
func (s *StakeStore) ListWallets(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT wallet FROM stakes WHERE status = $1 ORDER BY wallet`, string(domain.StakeActive))
	if err != nil {
		return nil, fmt.Errorf("postgres: list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("postgres: scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list wallets rows: %w", err)
	}
	return wallets, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ domain.StakeStore = (*StakeStore)(nil)
