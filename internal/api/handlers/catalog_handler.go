package handlers

import (
	"net/http"

	"github.com/circuit-studio/engine/internal/api/types"
	"github.com/circuit-studio/engine/internal/catalog"
)

// CatalogHandler serves the approved component database it was handed
// at startup.
type CatalogHandler struct {
	db *catalog.Database
}

func NewCatalogHandler(db *catalog.Database) *CatalogHandler {
	return &CatalogHandler{db: db}
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: h.db})
}
