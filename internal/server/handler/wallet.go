package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/stakerise/internal/domain"
	"github.com/alanyoungcy/stakerise/internal/service"
)

// WalletService defines the methods the wallet handler requires from the
// service layer.
type WalletService interface {
	Positions(ctx context.Context, wallet string, now time.Time) ([]service.Position, error)
	Summary(ctx context.Context, wallet string, now time.Time) (service.Summary, error)
	Activity(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.ActivityEntry, error)
}

// WalletHandler serves per-wallet stake, summary and activity endpoints.
type WalletHandler struct {
	wallets WalletService
	logger  *slog.Logger
	now     func() time.Time
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallets WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		wallets: wallets,
		logger:  logHandler(logger, "wallet"),
		now:     time.Now,
	}
}

type positionsResponse struct {
	Wallet    string             `json:"wallet"`
	AsOf      time.Time          `json:"as_of"`
	Positions []service.Position `json:"positions"`
}

// ListStakes returns the wallet's stakes with accrued rewards.
// GET /api/wallets/{address}/stakes?at=2026-01-01T00:00:00Z
func (h *WalletHandler) ListStakes(w http.ResponseWriter, r *http.Request) {
	wallet := pathParam(r, "address")
	asOf := parseAsOf(r, h.now)

	positions, err := h.wallets.Positions(r.Context(), wallet, asOf)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list stakes")
		return
	}
	writeJSON(w, http.StatusOK, positionsResponse{Wallet: wallet, AsOf: asOf, Positions: positions})
}

// GetSummary returns per-asset totals of the wallet's active stakes.
// GET /api/wallets/{address}/summary
func (h *WalletHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.wallets.Summary(r.Context(), pathParam(r, "address"), parseAsOf(r, h.now))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to summarize wallet")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type activityResponse struct {
	Entries []domain.ActivityEntry `json:"entries"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}

// ListActivity returns the wallet's activity log, newest first.
// GET /api/wallets/{address}/activity?limit=50&offset=0
func (h *WalletHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	entries, err := h.wallets.Activity(r.Context(), pathParam(r, "address"), opts)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list activity")
		return
	}
	if entries == nil {
		entries = []domain.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, activityResponse{Entries: entries, Limit: opts.Limit, Offset: opts.Offset})
}
