package overrides

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/platform/httpx"
)

// Handler serves override endpoints, mounted under
// /api/users/{id}/overrides.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers override routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/{domain}", h.setDomain)
	r.Delete("/", h.clear)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	override, found, err := h.service.Get(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !found {
		httpx.JSON(w, http.StatusOK, map[string]any{"user_id": userID, "override": nil})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": userID, "override": map[string]any{
		"menu":       override.Sets.Menu,
		"function":   override.Sets.Function,
		"project":    override.Sets.Project,
		"data":       override.Sets.Data,
		"updated_at": override.UpdatedAt,
	}})
}

type setDomainPayload struct {
	// Keys replaces the whole domain set. Null clears the domain back to
	// template fallback; an empty array revokes everything.
	Keys []string `json:"keys"`
}

func (h *Handler) setDomain(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	domain, ok := catalog.ParseDomain(chi.URLParam(r, "domain"))
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown permission domain")
		return
	}
	var payload setDomainPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.service.SetDomain(r.Context(), userID, domain, payload.Keys); err != nil {
		h.logger.Error("set override domain", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "replaced"})
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.service.Clear(r.Context(), userID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return 0, false
	}
	return id, true
}
