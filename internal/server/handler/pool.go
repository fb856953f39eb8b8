package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/stakerise/internal/domain"
)

// PoolService defines the pool statistics method the handler requires.
type PoolService interface {
	Info(ctx context.Context) (domain.PoolInfo, error)
}

// PoolHandler serves staking pool statistics.
type PoolHandler struct {
	pool   PoolService
	logger *slog.Logger
}

// NewPoolHandler creates a PoolHandler.
func NewPoolHandler(pool PoolService, logger *slog.Logger) *PoolHandler {
	return &PoolHandler{pool: pool, logger: logHandler(logger, "pool")}
}

// GetPool returns total value locked, available liquidity and staker count.
// GET /api/pool
func (h *PoolHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	info, err := h.pool.Info(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to read pool")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
