package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/stakerise/internal/domain"
	"github.com/alanyoungcy/stakerise/internal/service"
)

// ProjectionService defines the projection methods the handler requires.
type ProjectionService interface {
	Quote(ctx context.Context, req service.QuoteRequest) (service.Quote, error)
	CompareTiers(ctx context.Context, asset domain.Asset, amount string, compound bool) ([]service.Quote, error)
}

// ProjectionHandler serves reward projections.
type ProjectionHandler struct {
	projections     ProjectionService
	defaultCompound bool
	logger          *slog.Logger
}

// NewProjectionHandler creates a ProjectionHandler. defaultCompound applies
// when a request does not say whether to compound.
func NewProjectionHandler(projections ProjectionService, defaultCompound bool, logger *slog.Logger) *ProjectionHandler {
	return &ProjectionHandler{
		projections:     projections,
		defaultCompound: defaultCompound,
		logger:          logHandler(logger, "projection"),
	}
}

type projectionRequest struct {
	Asset    string `json:"asset"`
	Tier     int    `json:"tier"`
	Amount   string `json:"amount"`
	Compound *bool  `json:"compound"`
	Wallet   string `json:"wallet"`
}

// Project validates a stake request and returns its projection. Requests
// that break a staking rule get a 422 carrying both the projection and the
// problems.
// POST /api/projections
func (h *ProjectionHandler) Project(w http.ResponseWriter, r *http.Request) {
	var req projectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	asset, err := domain.ParseAsset(req.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	compound := h.defaultCompound
	if req.Compound != nil {
		compound = *req.Compound
	}

	q, err := h.projections.Quote(r.Context(), service.QuoteRequest{
		Asset:    asset,
		Tier:     req.Tier,
		Amount:   req.Amount,
		Compound: compound,
		Wallet:   req.Wallet,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to project rewards")
		return
	}
	if len(q.Problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, q)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type compareResponse struct {
	Quotes []service.Quote `json:"quotes"`
}

// Compare projects one amount across every tier of an asset.
// GET /api/projections/{asset}/compare?amount=1000&compound=true
func (h *ProjectionHandler) Compare(w http.ResponseWriter, r *http.Request) {
	asset, err := domain.ParseAsset(pathParam(r, "asset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	compound := h.defaultCompound
	if v := q.Get("compound"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "compound must be true or false")
			return
		}
		compound = b
	}

	quotes, err := h.projections.CompareTiers(r.Context(), asset, q.Get("amount"), compound)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to compare tiers")
		return
	}
	writeJSON(w, http.StatusOK, compareResponse{Quotes: quotes})
}
