package assignments

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/routewise/routewise/internal/platform/httpx"
)

// Handler serves project assignment endpoints, mounted under
// /api/users/{id}/projects.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers assignment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listAssignments)
	r.Get("/{projectID}/access", h.hasAccess)
	r.Post("/assign", h.batchAssign)
	r.Post("/restrict", h.batchRestrict)
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	rows, err := h.service.ListAssignments(r.Context(), userID)
	if err != nil {
		h.logger.Error("list assignments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	type assignmentResponse struct {
		ProjectID int64  `json:"project_id"`
		Role      string `json:"role"`
		CanView   bool   `json:"can_view"`
		CanEdit   bool   `json:"can_edit"`
		CanDelete bool   `json:"can_delete"`
	}
	out := make([]assignmentResponse, 0, len(rows))
	for _, a := range rows {
		out = append(out, assignmentResponse{
			ProjectID: a.ProjectID,
			Role:      a.Role,
			CanView:   a.CanView,
			CanEdit:   a.CanEdit,
			CanDelete: a.CanDelete,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assignments": out})
}

func (h *Handler) hasAccess(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid project id")
		return
	}
	access, err := h.service.HasAccess(r.Context(), userID, projectID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, access)
}

type batchAssignPayload struct {
	ProjectIDs []int64 `json:"project_ids" validate:"required,min=1"`
	Role       string  `json:"role" validate:"max=64"`
}

func (h *Handler) batchAssign(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var payload batchAssignPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.BatchAssign(r.Context(), userID, payload.ProjectIDs, payload.Role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type batchRestrictPayload struct {
	ProjectIDs []int64 `json:"project_ids" validate:"required,min=1"`
}

func (h *Handler) batchRestrict(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var payload batchRestrictPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.BatchRestrict(r.Context(), userID, payload.ProjectIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return 0, false
	}
	return id, true
}
