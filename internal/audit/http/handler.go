// Package audithttp exposes the audit timeline over HTTP.
package audithttp

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aegis-platform/aegis/internal/audit"
	"github.com/aegis-platform/aegis/internal/authz"
	"github.com/aegis-platform/aegis/internal/platform/httpx"
)

// Handler serves audit timeline queries and CSV export.
type Handler struct {
	logger  *slog.Logger
	service *audit.Service
	guard   authz.Middleware
}

// NewHandler constructs the audit HTTP handler.
func NewHandler(logger *slog.Logger, service *audit.Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermAuditView))
		r.Get("/", h.timeline)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(authz.PermAuditView, authz.PermAuditExport))
		r.Get("/export", h.export)
	})
}

type eventResponse struct {
	ID             string    `json:"id"`
	PrincipalID    int64     `json:"principal_id"`
	Resource       string    `json:"resource"`
	Action         string    `json:"action"`
	Granted        bool      `json:"granted"`
	Reason         string    `json:"reason"`
	OrganizationID int64     `json:"organization_id,omitempty"`
	TeamID         int64     `json:"team_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type timelineResponse struct {
	Events []eventResponse `json:"events"`
	Paging pagingResponse  `json:"paging"`
}

type pagingResponse struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	events := make([]eventResponse, 0, len(result.Events))
	for _, ev := range result.Events {
		events = append(events, eventResponse{
			ID:             ev.ID.String(),
			PrincipalID:    ev.PrincipalID,
			Resource:       ev.Resource,
			Action:         ev.Action,
			Granted:        ev.Granted,
			Reason:         ev.Reason,
			OrganizationID: ev.OrganizationID,
			TeamID:         ev.TeamID,
			OccurredAt:     ev.OccurredAt,
		})
	}
	httpx.JSON(w, http.StatusOK, timelineResponse{
		Events: events,
		Paging: pagingResponse{
			Page:     result.Paging.Page,
			PageSize: result.Paging.PageSize,
			HasNext:  result.Paging.HasNext,
		},
	})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	payload, err := h.service.ExportCSV(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-events.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	query := r.URL.Query()
	var filters audit.TimelineFilters
	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.TimelineFilters{}, err
		}
		filters.From = from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.TimelineFilters{}, err
		}
		filters.To = to
	}
	if raw := query.Get("principal_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return audit.TimelineFilters{}, err
		}
		filters.PrincipalID = id
	}
	filters.Resource = query.Get("resource")
	filters.Action = query.Get("action")
	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return audit.TimelineFilters{}, err
		}
		filters.Page = page
	}
	if raw := query.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return audit.TimelineFilters{}, err
		}
		filters.PageSize = size
	}
	return filters, nil
}
