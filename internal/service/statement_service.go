package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/stakerise/internal/domain"
	"github.com/alanyoungcy/stakerise/internal/reward"
	"github.com/alanyoungcy/stakerise/internal/validate"
)

const statementPrefix = "statements/"

// StatementInfo describes one exported statement.
type StatementInfo struct {
	ID     string          `json:"id"`
	Wallet string          `json:"wallet"`
	Path   string          `json:"path"`
	Rows   int             `json:"rows"`
	AsOf   time.Time       `json:"as_of"`
	Blob   domain.BlobInfo `json:"blob,omitempty"`
}

// PositionSource yields a wallet's enriched positions.
type PositionSource interface {
	Positions(ctx context.Context, wallet string, now time.Time) ([]Position, error)
}

// StatementService renders reward statements as CSV into blob storage.
type StatementService struct {
	positions PositionSource
	writer    domain.BlobWriter
	reader    domain.BlobReader
	activity  domain.ActivityStore
	bus       domain.SignalBus
	logger    *slog.Logger

	newID func() string
}

// NewStatementService creates a StatementService. activity and bus may be nil.
func NewStatementService(
	positions PositionSource,
	writer domain.BlobWriter,
	reader domain.BlobReader,
	activity domain.ActivityStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *StatementService {
	return &StatementService{
		positions: positions,
		writer:    writer,
		reader:    reader,
		activity:  activity,
		bus:       bus,
		logger:    logger.With(slog.String("component", "statement_service")),
		newID:     uuid.NewString,
	}
}

var statementHeader = []string{
	"index", "asset", "tier", "duration_months", "apy", "amount",
	"start_time", "maturity", "status", "mature", "pending_rewards",
	"projected_rewards", "early_exit_penalty", "early_exit_payout",
}

// Export renders every position of wallet at now and uploads it to
// statements/{wallet}/{YYYY-MM-DD}-{id}.csv.
func (s *StatementService) Export(ctx context.Context, wallet string, now time.Time) (StatementInfo, error) {
	addr, err := validate.Address(wallet)
	if err != nil {
		return StatementInfo{}, err
	}
	positions, err := s.positions.Positions(ctx, addr.Hex(), now)
	if err != nil {
		return StatementInfo{}, err
	}

	body, err := renderStatement(positions)
	if err != nil {
		return StatementInfo{}, fmt.Errorf("statement_service: render: %w", err)
	}

	info := StatementInfo{
		ID:     s.newID(),
		Wallet: addr.Hex(),
		Rows:   len(positions),
		AsOf:   now.UTC(),
	}
	info.Path = fmt.Sprintf("%s%s/%s-%s.csv", statementPrefix, info.Wallet, info.AsOf.Format("2006-01-02"), info.ID)

	if err := s.writer.Put(ctx, info.Path, bytes.NewReader(body), "text/csv"); err != nil {
		return StatementInfo{}, fmt.Errorf("statement_service: upload: %w", err)
	}
	info.Blob = domain.BlobInfo{Path: info.Path, Size: int64(len(body)), ContentType: "text/csv", LastModified: info.AsOf}

	s.logger.InfoContext(ctx, "statement exported",
		slog.String("wallet", info.Wallet),
		slog.String("path", info.Path),
		slog.Int("rows", info.Rows),
	)
	if s.activity != nil {
		if err := s.activity.Log(ctx, info.Wallet, "statement.exported", map[string]any{
			"id":   info.ID,
			"path": info.Path,
			"rows": info.Rows,
		}); err != nil {
			s.logger.WarnContext(ctx, "activity log failed", slog.String("error", err.Error()))
		}
	}
	if s.bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"event":  "statement.exported",
			"wallet": info.Wallet,
			"path":   info.Path,
		})
		if err := s.bus.Publish(ctx, domain.ChannelStatements, payload); err != nil {
			s.logger.WarnContext(ctx, "publish statement event failed", slog.String("error", err.Error()))
		}
	}
	return info, nil
}

// List returns the statements stored for wallet.
func (s *StatementService) List(ctx context.Context, wallet string) ([]domain.BlobInfo, error) {
	addr, err := validate.Address(wallet)
	if err != nil {
		return nil, err
	}
	blobs, err := s.reader.List(ctx, statementPrefix+addr.Hex()+"/")
	if err != nil {
		return nil, fmt.Errorf("statement_service: list: %w", err)
	}
	if blobs == nil {
		blobs = []domain.BlobInfo{}
	}
	return blobs, nil
}

// Open streams a stored statement. Paths outside statements/ are reported as
// not found.
func (s *StatementService) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	clean := path.Clean(p)
	if clean != p || !strings.HasPrefix(clean, statementPrefix) || strings.Contains(p, "..") {
		return nil, fmt.Errorf("statement_service: %q: %w", p, domain.ErrNotFound)
	}
	return s.reader.Get(ctx, clean)
}

func renderStatement(positions []Position) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(statementHeader); err != nil {
		return nil, err
	}
	for _, p := range positions {
		penalty, payout := "", ""
		if p.EarlyExit != nil {
			penalty = p.EarlyExit.Penalty.StringFixed(reward.RewardPlaces)
			payout = p.EarlyExit.Payout.StringFixed(reward.RewardPlaces)
		}
		asset := p.Symbol
		if asset == "" {
			asset = p.Asset.String()
		}
		row := []string{
			strconv.Itoa(p.Index),
			asset,
			strconv.Itoa(p.Tier),
			strconv.Itoa(p.DurationMonths),
			p.APY.StringFixed(reward.PercentPlaces),
			p.Amount.String(),
			p.StartTime.UTC().Format(time.RFC3339),
			formatMaturity(p),
			string(p.Status),
			strconv.FormatBool(p.Mature),
			p.Pending.StringFixed(reward.RewardPlaces),
			p.Projection.TotalReward.StringFixed(reward.RewardPlaces),
			penalty,
			payout,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatMaturity(p Position) string {
	if p.Maturity.IsZero() {
		return ""
	}
	return p.Maturity.UTC().Format(time.RFC3339)
}
