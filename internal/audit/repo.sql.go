package audit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for audit events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertEvents writes one batch of events.
func (r *Repository) InsertEvents(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO audit_events
				(id, principal_id, resource, action, granted, reason, organization_id, team_id, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			ev.ID, ev.PrincipalID, ev.Resource, ev.Action, ev.Granted, ev.Reason,
			nullableID(ev.OrganizationID), nullableID(ev.TeamID), ev.OccurredAt)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range events {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Timeline returns events matching the filters, newest first, using
// limit/offset paging. The caller passes limit+1 to detect a next
// page.
func (r *Repository) Timeline(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Event, error) {
	query, args := timelineQuery(filters)
	args = append(args, limit, offset)
	query += " LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// TimelineAll returns every event matching the filters, newest first.
func (r *Repository) TimelineAll(ctx context.Context, filters TimelineFilters) ([]Event, error) {
	query, args := timelineQuery(filters)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// DeleteOlderThan removes events recorded before the cutoff and
// reports how many were deleted.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func timelineQuery(filters TimelineFilters) (string, []any) {
	var conditions []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if !filters.From.IsZero() {
		add("occurred_at >= ?", filters.From)
	}
	if !filters.To.IsZero() {
		add("occurred_at < ?", filters.To)
	}
	if filters.PrincipalID != 0 {
		add("principal_id = ?", filters.PrincipalID)
	}
	if filters.Resource != "" {
		add("resource = ?", filters.Resource)
	}
	if filters.Action != "" {
		add("action = ?", filters.Action)
	}

	query := `
		SELECT id, principal_id, resource, action, granted, reason, organization_id, team_id, occurred_at
		FROM audit_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id DESC"
	return query, args
}

func scanEvents(rows pgx.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var ev Event
		var orgID, teamID pgtype.Int8
		if err := rows.Scan(&ev.ID, &ev.PrincipalID, &ev.Resource, &ev.Action, &ev.Granted, &ev.Reason, &orgID, &teamID, &ev.OccurredAt); err != nil {
			return nil, err
		}
		ev.OrganizationID = orgID.Int64
		ev.TeamID = teamID.Int64
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func nullableID(id int64) pgtype.Int8 {
	if id == 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: id, Valid: true}
}
