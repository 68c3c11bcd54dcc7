package app

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/authz"
	"github.com/gatewarden/gatewarden/internal/observability"
	"github.com/gatewarden/gatewarden/internal/permissions"
	"github.com/gatewarden/gatewarden/internal/platform/httpx"
	"github.com/gatewarden/gatewarden/internal/roles"
	"github.com/gatewarden/gatewarden/internal/users"
	"github.com/gatewarden/gatewarden/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Engine             *authz.Engine
	AuthHandler        *auth.Handler
	PermissionsHandler *permissions.Handler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi router. The whole /api subtree sits behind
// the permission gate; /healthz and /metrics stay outside it.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "route not found")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	guard := authz.Middleware{
		Engine:         params.Engine,
		Logger:         params.Logger,
		ResolvePattern: patternResolver(r),
	}
	if params.Metrics != nil {
		guard.Recorder = params.Metrics
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(guard.Guard)
		api.Route("/auth", params.AuthHandler.MountRoutes)
		api.Route("/admin", func(admin chi.Router) {
			admin.Route("/permissions", params.PermissionsHandler.MountRoutes)
			admin.Route("/roles", params.RolesHandler.MountRoutes)
			admin.Route("/users", params.UsersHandler.MountRoutes)
			if params.JobsHandler != nil {
				admin.Route("/jobs", params.JobsHandler.MountRoutes)
			}
		})
	})

	return r
}

// patternResolver maps a request to the route pattern it would be served
// under, which is the form permissions are registered in. Collection routes
// resolve without their trailing slash, so /api/admin/users/ and
// /api/admin/users share one permission row.
func patternResolver(mux *chi.Mux) func(r *http.Request) string {
	return func(r *http.Request) string {
		rctx := chi.NewRouteContext()
		pattern := mux.Find(rctx, r.Method, r.URL.Path)
		if len(pattern) > 1 {
			pattern = strings.TrimSuffix(pattern, "/")
		}
		return pattern
	}
}
