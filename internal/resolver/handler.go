package resolver

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/routewise/routewise/internal/platform/httpx"
)

// Handler serves effective permission resolution, mounted under
// /api/users/{id}.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers resolver routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/effective", h.effective)
}

func (h *Handler) effective(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	eff, err := h.service.ResolveEffective(r.Context(), userID)
	if err != nil {
		h.logger.Error("resolve effective permissions", slog.Int64("user", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, eff)
}
