package authz

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-platform/aegis/internal/platform/httpx"
)

// Handler exposes the decision API and the permission catalog.
type Handler struct {
	logger   *slog.Logger
	enforcer *Enforcer
	validate *validator.Validate
}

// NewHandler constructs the authz HTTP handler.
func NewHandler(logger *slog.Logger, enforcer *Enforcer) *Handler {
	return &Handler{
		logger:   logger,
		enforcer: enforcer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers decision and catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/decisions", h.decide)
	r.Get("/permissions", h.listPermissions)
}

type decisionRequest struct {
	Permission string `json:"permission" validate:"required"`
	TeamID     int64  `json:"team_id" validate:"omitempty,gt=0"`
}

type decisionResponse struct {
	Permission string    `json:"permission"`
	Allowed    bool      `json:"allowed"`
	Reason     string    `json:"reason"`
	CheckedAt  time.Time `json:"checked_at"`
}

// decide evaluates one permission for the calling principal. The
// decision itself is the payload: a denied permission answers 200 with
// allowed=false, not 403.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no resolved principal")
		return
	}
	var req decisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	scope := Scope{OrganizationID: user.OrganizationID, TeamID: req.TeamID}
	ec := h.enforcer.NewContext(user, scope)
	decision, err := h.enforcer.Check(r.Context(), ec, Permission(req.Permission))
	if err != nil {
		h.logger.Error("decision check", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, decisionResponse{
		Permission: req.Permission,
		Allowed:    decision.Allowed,
		Reason:     decision.Reason,
		CheckedAt:  time.Now().UTC(),
	})
}

type permissionResponse struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms := Catalog()
	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		cat, _ := PermissionCategory(p)
		out = append(out, permissionResponse{Name: string(p), Category: string(cat)})
	}
	httpx.JSON(w, http.StatusOK, out)
}
