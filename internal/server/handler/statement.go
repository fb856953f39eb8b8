package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/alanyoungcy/stakerise/internal/domain"
	"github.com/alanyoungcy/stakerise/internal/service"
)

// StatementService defines the statement methods the handler requires.
type StatementService interface {
	Export(ctx context.Context, wallet string, now time.Time) (service.StatementInfo, error)
	List(ctx context.Context, wallet string) ([]domain.BlobInfo, error)
	Open(ctx context.Context, p string) (io.ReadCloser, error)
}

// StatementHandler serves CSV reward statements.
type StatementHandler struct {
	statements StatementService
	logger     *slog.Logger
	now        func() time.Time
}

// NewStatementHandler creates a StatementHandler.
func NewStatementHandler(statements StatementService, logger *slog.Logger) *StatementHandler {
	return &StatementHandler{
		statements: statements,
		logger:     logHandler(logger, "statement"),
		now:        time.Now,
	}
}

// Export renders and stores a new statement for the wallet.
// POST /api/wallets/{address}/statements
func (h *StatementHandler) Export(w http.ResponseWriter, r *http.Request) {
	info, err := h.statements.Export(r.Context(), pathParam(r, "address"), parseAsOf(r, h.now))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to export statement")
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

type statementsResponse struct {
	Statements []domain.BlobInfo `json:"statements"`
}

// List returns the statements stored for the wallet.
// GET /api/wallets/{address}/statements
func (h *StatementHandler) List(w http.ResponseWriter, r *http.Request) {
	blobs, err := h.statements.List(r.Context(), pathParam(r, "address"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list statements")
		return
	}
	writeJSON(w, http.StatusOK, statementsResponse{Statements: blobs})
}

// Download streams a stored statement.
// GET /api/statements/{path...}
func (h *StatementHandler) Download(w http.ResponseWriter, r *http.Request) {
	p := "statements/" + pathParam(r, "path")
	rc, err := h.statements.Open(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to open statement")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(p)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "statement download interrupted",
			slog.String("path", p),
			slog.String("error", err.Error()),
		)
	}
}
