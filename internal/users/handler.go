package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/routewise/routewise/internal/platform/httpx"
	"github.com/routewise/routewise/internal/shared"
)

// Handler serves the user listing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	roleMeta *shared.RoleMetaRegistry
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, roleMeta *shared.RoleMetaRegistry) *Handler {
	return &Handler{logger: logger, service: service, roleMeta: roleMeta}
}

// MountRoutes registers the collection routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
}

// MountDetailRoutes registers routes scoped to a single user, mounted
// under /api/users/{id}.
func (h *Handler) MountDetailRoutes(r chi.Router) {
	r.Get("/", h.getUser)
}

type userResponse struct {
	ID       int64               `json:"id"`
	Email    string              `json:"email"`
	Name     string              `json:"name"`
	Role     string              `json:"role"`
	RoleMeta shared.RoleMetadata `json:"role_meta"`
	IsActive bool                `json:"is_active"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]userResponse, 0, len(list))
	for _, u := range list {
		out = append(out, h.toResponse(u))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": out})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.toResponse(user))
}

func (h *Handler) toResponse(u User) userResponse {
	return userResponse{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		RoleMeta: h.roleMeta.Lookup(u.Role),
		IsActive: u.IsActive,
	}
}
