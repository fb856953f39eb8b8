package handler

import (
	"net/http"

	"github.com/alanyoungcy/stakerise/internal/catalog"
	"github.com/alanyoungcy/stakerise/internal/domain"
)

// CatalogHandler serves the token tier catalog.
type CatalogHandler struct {
	catalog *catalog.Catalog
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

type catalogResponse struct {
	Tokens []catalog.Token `json:"tokens"`
}

// ListTokens returns every token with its tiers in catalog order.
// GET /api/catalog
func (h *CatalogHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalogResponse{Tokens: h.catalog.Tokens()})
}

// GetToken returns one token's tiers.
// GET /api/catalog/{asset}
func (h *CatalogHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	asset, err := domain.ParseAsset(pathParam(r, "asset"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown asset")
		return
	}
	tok, err := h.catalog.Token(asset)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown asset")
		return
	}
	writeJSON(w, http.StatusOK, tok)
}
