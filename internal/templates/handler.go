package templates

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/platform/httpx"
)

// Handler serves role template endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers role template routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRoles)
	r.Post("/", h.createRole)
	r.Put("/{role}/template/{domain}", h.upsertTemplate)
	r.Post("/{role}/derive", h.deriveRole)
	r.Delete("/{role}", h.deleteRole)
}

type keySetsPayload struct {
	Menu     []string `json:"menu"`
	Function []string `json:"function"`
	Project  []string `json:"project"`
	Data     []string `json:"data"`
}

func (p keySetsPayload) toSets() catalog.KeySets {
	return catalog.KeySets{Menu: p.Menu, Function: p.Function, Project: p.Project, Data: p.Data}
}

func fromSets(s catalog.KeySets) keySetsPayload {
	return keySetsPayload{Menu: s.Menu, Function: s.Function, Project: s.Project, Data: s.Data}
}

type roleResponse struct {
	Role  string         `json:"role"`
	Label string         `json:"label"`
	Sets  keySetsPayload `json:"sets"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, tpl := range roles {
		out = append(out, roleResponse{Role: tpl.Role, Label: tpl.Label, Sets: fromSets(tpl.Sets)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

type createRolePayload struct {
	Role  string         `json:"role" validate:"required,min=2,max=64"`
	Label string         `json:"label" validate:"max=120"`
	Sets  keySetsPayload `json:"sets"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var payload createRolePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	tpl, err := h.service.CreateRole(r.Context(), payload.Role, payload.Label, payload.Sets.toSets())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, roleResponse{Role: tpl.Role, Label: tpl.Label, Sets: fromSets(tpl.Sets)})
}

type upsertTemplatePayload struct {
	Keys []string `json:"keys" validate:"required"`
}

func (h *Handler) upsertTemplate(w http.ResponseWriter, r *http.Request) {
	domain, ok := catalog.ParseDomain(chi.URLParam(r, "domain"))
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown permission domain")
		return
	}
	var payload upsertTemplatePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.UpsertTemplate(r.Context(), chi.URLParam(r, "role"), domain, payload.Keys); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type deriveRolePayload struct {
	ExcludePrefixes []string `json:"exclude_prefixes"`
	NewRole         string   `json:"new_role" validate:"omitempty,min=2,max=64"`
	Label           string   `json:"label" validate:"max=120"`
}

func (h *Handler) deriveRole(w http.ResponseWriter, r *http.Request) {
	var payload deriveRolePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	derived, err := h.service.DeriveRole(r.Context(), chi.URLParam(r, "role"), payload.ExcludePrefixes)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	// Persist only when the caller names the new role; otherwise this is
	// a dry run for the role editor preview.
	if payload.NewRole != "" {
		tpl, err := h.service.CreateRole(r.Context(), payload.NewRole, payload.Label, derived)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, roleResponse{Role: tpl.Role, Label: tpl.Label, Sets: fromSets(tpl.Sets)})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sets": fromSets(derived)})
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRole(r.Context(), chi.URLParam(r, "role")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}
