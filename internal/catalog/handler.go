package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/routewise/routewise/internal/platform/httpx"
)

// Handler serves the permission catalog, mounted under /api/catalog.
type Handler struct {
	cat *Catalog
}

// NewHandler builds Handler instance.
func NewHandler(cat *Catalog) *Handler {
	return &Handler{cat: cat}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listAll)
	r.Get("/{domain}", h.listDomain)
}

type itemResponse struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Parent string `json:"parent,omitempty"`
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	out := make(map[Domain][]itemResponse, 4)
	for _, domain := range AllDomains() {
		out[domain] = h.items(domain)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listDomain(w http.ResponseWriter, r *http.Request) {
	domain, ok := ParseDomain(chi.URLParam(r, "domain"))
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown permission domain")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"domain": domain, "items": h.items(domain)})
}

func (h *Handler) items(domain Domain) []itemResponse {
	items := h.cat.List(domain)
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, itemResponse{Key: it.Key, Label: it.Label, Parent: it.Parent})
	}
	return out
}
