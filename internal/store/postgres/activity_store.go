package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/stakerise/internal/domain"
)

// ActivityStore implements domain.ActivityStore using PostgreSQL.
type ActivityStore struct {
	pool *pgxpool.Pool
}

// NewActivityStore creates a new ActivityStore backed by the given connection pool.
func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

// Log appends a new activity entry. The detail map is stored as JSONB; an
// empty wallet is stored as NULL for system-wide events.
func (s *ActivityStore) Log(ctx context.Context, wallet, event string, detail map[string]any) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("postgres: marshal activity detail: %w", err)
	}

	var walletArg *string
	if wallet != "" {
		walletArg = &wallet
	}

	const query = `INSERT INTO activity_log (wallet, event, detail) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, query, walletArg, event, detailJSON); err != nil {
		return fmt.Errorf("postgres: log activity %s: %w", event, err)
	}
	return nil
}

// List returns activity entries, newest first, with pagination and optional
// wallet and time filtering.
func (s *ActivityStore) List(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.ActivityEntry, error) {
	query := `SELECT id, COALESCE(wallet, ''), event, detail, created_at FROM activity_log WHERE 1=1`
	args := []any{}
	argIdx := 1

	if wallet != "" {
		query += fmt.Sprintf(" AND wallet = $%d", argIdx)
		args = append(args, wallet)
		argIdx++
	}
	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list activity: %w", err)
	}
	defer rows.Close()

	var entries []domain.ActivityEntry
	for rows.Next() {
		var e domain.ActivityEntry
		var detailJSON []byte

		if err := rows.Scan(&e.ID, &e.Wallet, &e.Event, &detailJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan activity entry: %w", err)
		}

		if detailJSON != nil {
			if err := json.Unmarshal(detailJSON, &e.Detail); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal activity detail: %w", err)
			}
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list activity rows: %w", err)
	}
	return entries, nil
}

var _ domain.ActivityStore = (*ActivityStore)(nil)
