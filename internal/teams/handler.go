package teams

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aegis-platform/aegis/internal/authz"
	"github.com/aegis-platform/aegis/internal/platform/httpx"
)

// Handler serves team membership operations.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the teams HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers team routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Delete("/{teamID}/members/{userID}", h.removeMember)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	user, ok := authz.UserFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no resolved principal")
		return
	}
	teamID, err := strconv.ParseInt(chi.URLParam(r, "teamID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid team id")
		return
	}
	targetID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}

	ec := h.service.enforcer.NewContext(user, authz.Scope{
		OrganizationID: user.OrganizationID,
		TeamID:         teamID,
	})
	if err := h.service.RemoveMember(r.Context(), ec, targetID); err != nil {
		switch {
		case authz.IsScopeRequired(err):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Scope Required", err.Error())
		case authz.IsPermissionDenied(err):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
		case errors.Is(err, ErrMembershipNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		default:
			h.logger.Error("remove member", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
