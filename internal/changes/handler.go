package changes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/platform/httpx"
	"github.com/routewise/routewise/internal/shared"
)

// Handler serves the change confirmation endpoints, mounted under
// /api/changes.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers change routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/propose", h.propose)
	r.Get("/{id}", h.get)
	r.Post("/{id}/confirm", h.confirm)
	r.Post("/{id}/cancel", h.cancel)
}

type proposePayload struct {
	Kind      Kind     `json:"kind" validate:"required"`
	UserID    int64    `json:"user_id"`
	Domain    string   `json:"domain"`
	Keys      []string `json:"keys"`
	Role      string   `json:"role"`
	Active    *bool    `json:"active"`
	ProjectID int64    `json:"project_id"`
	Assign    *bool    `json:"assign"`
}

func (h *Handler) propose(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing actor identity")
		return
	}
	var payload proposePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	var set *Set
	var err error
	switch payload.Kind {
	case KindUserPermission:
		domain, ok := catalog.ParseDomain(payload.Domain)
		if !ok {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown permission domain")
			return
		}
		set, err = h.service.ProposeOverride(r.Context(), actor, payload.UserID, domain, payload.Keys)
	case KindRoleTemplate:
		domain, ok := catalog.ParseDomain(payload.Domain)
		if !ok {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown permission domain")
			return
		}
		set, err = h.service.ProposeTemplate(r.Context(), actor, payload.Role, domain, payload.Keys)
	case KindUserRole:
		set, err = h.service.ProposeRoleChange(r.Context(), actor, payload.UserID, payload.Role)
	case KindUserStatus:
		if payload.Active == nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "active flag required")
			return
		}
		set, err = h.service.ProposeStatusChange(r.Context(), actor, payload.UserID, *payload.Active)
	case KindProjectAssignment:
		if payload.Assign == nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "assign flag required")
			return
		}
		set, err = h.service.ProposeAssignment(r.Context(), actor, payload.UserID, payload.ProjectID, *payload.Assign, payload.Role)
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown change kind")
		return
	}
	if err != nil {
		h.logger.Error("propose change", slog.String("kind", string(payload.Kind)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, set)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.setID(w, r)
	if !ok {
		return
	}
	set, err := h.service.Get(id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, set)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.setID(w, r)
	if !ok {
		return
	}
	set, err := h.service.Confirm(r.Context(), id)
	if err != nil {
		h.logger.Error("confirm change set", slog.String("set", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, set)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.setID(w, r)
	if !ok {
		return
	}
	set, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, set)
}

func (h *Handler) setID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid change set id")
		return uuid.UUID{}, false
	}
	return id, true
}
