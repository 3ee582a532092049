package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/aegis-platform/aegis/internal/audit/http"
	"github.com/aegis-platform/aegis/internal/authz"
	"github.com/aegis-platform/aegis/internal/observability"
	"github.com/aegis-platform/aegis/internal/principal"
	"github.com/aegis-platform/aegis/internal/teams"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	Metrics      *observability.Metrics
	Principals   principal.Resolver
	AuthzHandler *authz.Handler
	AuditHandler *audithttp.Handler
	TeamsHandler *teams.Handler
}

// NewRouter constructs the chi.Router with service defaults.
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

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(PrincipalMiddleware(params.Principals, params.Logger))

		if params.AuthzHandler != nil {
			params.AuthzHandler.MountRoutes(r)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", func(r chi.Router) {
				params.AuditHandler.MountRoutes(r)
			})
		}
		if params.TeamsHandler != nil {
			r.Route("/teams", func(r chi.Router) {
				params.TeamsHandler.MountRoutes(r)
			})
		}
	})

	return r
}
