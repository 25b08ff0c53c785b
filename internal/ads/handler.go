package ads

import (
	"net/http"

	"github.com/watchearn/watchearn/internal/api"
)

// Handler serves the static catalog so non-browser clients can render
// the available inventory.
type Handler struct {
	catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// List handles GET /api/v1/ads.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, h.catalog.All())
}
