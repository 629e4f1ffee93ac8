package batch

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/routewise/routewise/internal/platform/httpx"
)

// Handler serves batch mutation endpoints, mounted under /api/batch.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers batch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/copy", h.copyPermissions)
	r.Post("/reset", h.resetPermissions)
	r.Post("/role", h.bulkRoleChange)
	r.Post("/template", h.applyTemplate)
}

type copyPayload struct {
	SourceUserID int64 `json:"source_user_id" validate:"required,gt=0"`
	TargetUserID int64 `json:"target_user_id" validate:"required,gt=0"`
}

func (h *Handler) copyPermissions(w http.ResponseWriter, r *http.Request) {
	var payload copyPayload
	if ok := h.decode(w, r, &payload); !ok {
		return
	}
	if err := h.service.CopyPermissions(r.Context(), payload.SourceUserID, payload.TargetUserID); err != nil {
		h.logger.Error("copy permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "copied"})
}

type resetPayload struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

func (h *Handler) resetPermissions(w http.ResponseWriter, r *http.Request) {
	var payload resetPayload
	if ok := h.decode(w, r, &payload); !ok {
		return
	}
	if err := h.service.ResetToRoleDefault(r.Context(), payload.UserID); err != nil {
		h.logger.Error("reset permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

type bulkRolePayload struct {
	UserIDs []int64 `json:"user_ids" validate:"required,min=1"`
	Role    string  `json:"role" validate:"required,max=64"`
}

func (h *Handler) bulkRoleChange(w http.ResponseWriter, r *http.Request) {
	var payload bulkRolePayload
	if ok := h.decode(w, r, &payload); !ok {
		return
	}
	result, err := h.service.BulkRoleChange(r.Context(), payload.UserIDs, payload.Role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type applyTemplatePayload struct {
	Role    string  `json:"role" validate:"required,max=64"`
	UserIDs []int64 `json:"user_ids" validate:"required,min=1"`
}

func (h *Handler) applyTemplate(w http.ResponseWriter, r *http.Request) {
	var payload applyTemplatePayload
	if ok := h.decode(w, r, &payload); !ok {
		return
	}
	result, err := h.service.ApplyTemplate(r.Context(), payload.Role, payload.UserIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}
