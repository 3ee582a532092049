package authz

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aegis-platform/aegis/internal/platform/httpx"
)

// Middleware wires enforcement checks into HTTP handlers. It expects
// the principal to already be resolved into the request context by the
// authentication middleware.
type Middleware struct {
	Enforcer *Enforcer
	Logger   *slog.Logger

	// TeamParam names the chi URL parameter carrying the team scope.
	// Defaults to "teamID" when empty.
	TeamParam string
}

// RequirePermission guards a route behind one system permission.
func (m Middleware) RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ec, ok := m.evaluation(w, r)
			if !ok {
				return
			}
			if err := m.Enforcer.RequirePermission(r.Context(), ec, perm); err != nil {
				m.respond(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithEvaluation(r.Context(), ec)))
		})
	}
}

// RequireAny guards a route behind at least one of the listed
// permissions.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			ec, ok := m.evaluation(w, r)
			if !ok {
				return
			}
			if err := m.Enforcer.RequireAnyPermission(r.Context(), ec, perms...); err != nil {
				m.respond(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithEvaluation(r.Context(), ec)))
		})
	}
}

// RequireAll guards a route behind every listed permission.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			ec, ok := m.evaluation(w, r)
			if !ok {
				return
			}
			if err := m.Enforcer.RequireAllPermissions(r.Context(), ec, perms...); err != nil {
				m.respond(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithEvaluation(r.Context(), ec)))
		})
	}
}

// RequireTeamRole guards a route behind a minimum team role. The team
// scope is taken from the URL parameter named by TeamParam.
func (m Middleware) RequireTeamRole(minimum TeamRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ec, ok := m.evaluation(w, r)
			if !ok {
				return
			}
			if err := m.Enforcer.RequireTeamAccess(r.Context(), ec, minimum); err != nil {
				m.respond(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithEvaluation(r.Context(), ec)))
		})
	}
}

// evaluation builds the per-request evaluation context from the
// resolved principal and the route's team scope, answering 403 when no
// principal is present.
func (m Middleware) evaluation(w http.ResponseWriter, r *http.Request) (*EvaluationContext, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no resolved principal")
		return nil, false
	}
	scope := Scope{OrganizationID: user.OrganizationID}
	if teamID := m.teamID(r); teamID != 0 {
		scope.TeamID = teamID
	}
	return m.Enforcer.NewContext(user, scope), true
}

func (m Middleware) teamID(r *http.Request) int64 {
	param := m.TeamParam
	if param == "" {
		param = "teamID"
	}
	raw := chi.URLParam(r, param)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("authz parse team id", slog.String("value", raw))
		}
		return 0
	}
	return id
}

func (m Middleware) respond(w http.ResponseWriter, err error) {
	switch {
	case IsScopeRequired(err):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Scope Required", err.Error())
	case IsPermissionDenied(err):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		if m.Logger != nil {
			m.Logger.Error("authz check", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
