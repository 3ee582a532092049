package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func injectUser(user User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

func TestMiddlewareRequirePermission(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, 10, Role{ID: 400, Name: "viewer"}, PermUsersView)
	mw := Middleware{Enforcer: newTestEnforcer(store, nil)}

	handlerRan := false
	router := chi.NewRouter()
	router.Use(injectUser(User{ID: 1, OrganizationID: 10}))
	router.Group(func(r chi.Router) {
		r.Use(mw.RequirePermission(PermUsersView))
		r.Get("/users", func(w http.ResponseWriter, r *http.Request) {
			handlerRan = true
			require.NotNil(t, EvaluationFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		})
	})
	router.Group(func(r chi.Router) {
		r.Use(mw.RequirePermission(PermUsersDelete))
		r.Delete("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run after a denial")
		})
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, handlerRan)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/users/9", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "Required permission: users.delete")
}

func TestMiddlewareWithoutPrincipal(t *testing.T) {
	store := newFakeStore()
	mw := Middleware{Enforcer: newTestEnforcer(store, nil)}

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(mw.RequirePermission(PermUsersView))
		r.Get("/users", func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run without a principal")
		})
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestMiddlewareRequireTeamRole(t *testing.T) {
	store := newFakeStore()
	store.setMembership(1, 7, TeamRoleMember)
	mw := Middleware{Enforcer: newTestEnforcer(store, nil)}

	router := chi.NewRouter()
	router.Use(injectUser(User{ID: 1, OrganizationID: 10}))
	router.Group(func(r chi.Router) {
		r.Use(mw.RequireTeamRole(TeamRoleMember))
		r.Get("/teams/{teamID}/runs", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	router.Group(func(r chi.Router) {
		r.Use(mw.RequireTeamRole(TeamRoleAdmin))
		r.Post("/teams/{teamID}/settings", func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run below required rank")
		})
	})
	router.Group(func(r chi.Router) {
		r.Use(mw.RequireTeamRole(TeamRoleViewer))
		r.Get("/unscoped", func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run without team scope")
		})
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/teams/7/runs", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/teams/7/settings", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/unscoped", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestMiddlewareRequireAnyEmptyListPassesThrough(t *testing.T) {
	store := newFakeStore()
	mw := Middleware{Enforcer: newTestEnforcer(store, nil)}

	router := chi.NewRouter()
	router.Use(injectUser(User{ID: 1, OrganizationID: 10}))
	router.Group(func(r chi.Router) {
		r.Use(mw.RequireAny())
		r.Get("/open", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
