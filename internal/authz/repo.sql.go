package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed reads for the role, override
// and team membership stores.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RolesForUser returns the roles assigned to the user within the given
// organization. System-level assignments (held outside any
// organization) are always included; a zero organizationID restricts
// the result to those alone.
func (r *Repository) RolesForUser(ctx context.Context, userID, organizationID int64) ([]Role, error) {
	const scoped = `
		SELECT r.id, r.name, r.priority, r.is_system_role, r.created_at, r.updated_at
		FROM roles r
		JOIN user_role_assignments a ON a.role_id = r.id
		WHERE a.user_id = $1
		  AND (a.organization_id = $2 OR (a.organization_id IS NULL AND r.is_system_role))
		ORDER BY r.priority DESC, r.id`
	const unscoped = `
		SELECT r.id, r.name, r.priority, r.is_system_role, r.created_at, r.updated_at
		FROM roles r
		JOIN user_role_assignments a ON a.role_id = r.id
		WHERE a.user_id = $1
		  AND a.organization_id IS NULL AND r.is_system_role
		ORDER BY r.priority DESC, r.id`

	var rows pgx.Rows
	var err error
	if organizationID == 0 {
		rows, err = r.pool.Query(ctx, unscoped, userID)
	} else {
		rows, err = r.pool.Query(ctx, scoped, userID, organizationID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Priority, &role.IsSystemRole, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// PermissionsForRole returns the permission set assigned to a role.
func (r *Repository) PermissionsForRole(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, Permission(name))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// OverrideFor returns the explicit override for (user, permission), if
// any.
func (r *Repository) OverrideFor(ctx context.Context, userID int64, perm Permission) (OverrideEffect, bool, error) {
	var effect string
	err := r.pool.QueryRow(ctx, `
		SELECT effect
		FROM user_permission_overrides
		WHERE user_id = $1 AND permission = $2`, userID, string(perm)).Scan(&effect)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return OverrideEffect(effect), true, nil
}

// TeamRoleFor returns the user's role in a team, if a membership
// exists.
func (r *Repository) TeamRoleFor(ctx context.Context, userID, teamID int64) (TeamRole, bool, error) {
	var role string
	err := r.pool.QueryRow(ctx, `
		SELECT role
		FROM team_memberships
		WHERE user_id = $1 AND team_id = $2`, userID, teamID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return TeamRole(role), true, nil
}
