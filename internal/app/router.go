package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/routewise/routewise/internal/assignments"
	"github.com/routewise/routewise/internal/audit"
	"github.com/routewise/routewise/internal/batch"
	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/changes"
	"github.com/routewise/routewise/internal/overrides"
	"github.com/routewise/routewise/internal/resolver"
	"github.com/routewise/routewise/internal/templates"
	"github.com/routewise/routewise/internal/users"
	"github.com/routewise/routewise/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	CatalogHandler     *catalog.Handler
	TemplatesHandler   *templates.Handler
	UsersHandler       *users.Handler
	OverridesHandler   *overrides.Handler
	ResolverHandler    *resolver.Handler
	AssignmentsHandler *assignments.Handler
	BatchHandler       *batch.Handler
	ChangesHandler     *changes.Handler
	AuditHandler       *audit.Handler
	JobsHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with the standard middleware.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/catalog", params.CatalogHandler.MountRoutes)
		api.Route("/roles", params.TemplatesHandler.MountRoutes)
		api.Route("/users", func(u chi.Router) {
			params.UsersHandler.MountRoutes(u)
			u.Route("/{id}", func(user chi.Router) {
				params.UsersHandler.MountDetailRoutes(user)
				params.ResolverHandler.MountRoutes(user)
				user.Route("/overrides", params.OverridesHandler.MountRoutes)
				user.Route("/projects", params.AssignmentsHandler.MountRoutes)
			})
		})
		api.Route("/batch", params.BatchHandler.MountRoutes)
		api.Route("/changes", params.ChangesHandler.MountRoutes)
		api.Route("/audit", params.AuditHandler.MountRoutes)
		if params.JobsHandler != nil {
			api.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
